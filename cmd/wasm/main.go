//go:build js && wasm

package main

import (
	"errors"
	"syscall/js"

	"github.com/inamate/keepsake/internal/engine"
)

var (
	eng    *engine.Engine
	host   = js.Undefined()
	images = make(map[string]engine.ImageStatus)
)

// jsCapturer forwards pointer capture to the page's host object.
type jsCapturer struct{}

func (jsCapturer) Capture() { callHost("capture") }
func (jsCapturer) Release() { callHost("release") }

// jsImages reports image status as the page last told us.
type jsImages struct{}

func (jsImages) Resolve(src string) engine.ImageStatus {
	return images[src]
}

func callHost(name string, args ...any) {
	if host.IsUndefined() || host.IsNull() {
		return
	}
	if fn := host.Get(name); fn.Type() == js.TypeFunction {
		fn.Invoke(args...)
	}
}

func main() {
	eng = engine.NewEngine(
		engine.WithInputCapturer(jsCapturer{}),
		engine.WithImageResolver(jsImages{}),
		engine.WithCameraListener(func(enabled bool) { callHost("cameraEnabled", enabled) }),
	)

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	api.Set("setHost", js.FuncOf(setHost))
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("setBase", js.FuncOf(setBase))
	api.Set("pointer", js.FuncOf(pointer))
	api.Set("key", js.FuncOf(key))
	api.Set("editText", js.FuncOf(editText))
	api.Set("blur", js.FuncOf(blur))
	api.Set("background", js.FuncOf(background))
	api.Set("setModes", js.FuncOf(setModes))
	api.Set("addEntity", js.FuncOf(addEntity))
	api.Set("updateEntity", js.FuncOf(updateEntity))
	api.Set("removeEntity", js.FuncOf(removeEntity))
	api.Set("setLayerVisible", js.FuncOf(setLayerVisible))
	api.Set("moveLayer", js.FuncOf(moveLayer))
	api.Set("raiseLayer", js.FuncOf(raiseLayer))
	api.Set("lowerLayer", js.FuncOf(lowerLayer))
	api.Set("setImageStatus", js.FuncOf(setImageStatus))
	api.Set("markSaved", js.FuncOf(markSaved))
	api.Set("teardown", js.FuncOf(teardown))

	// --- Queries (frontend ← backend) ---
	api.Set("render", js.FuncOf(render))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getInteraction", js.FuncOf(getInteraction))
	api.Set("getLayers", js.FuncOf(getLayers))
	api.Set("isDirty", js.FuncOf(isDirty))
	api.Set("isCameraEnabled", js.FuncOf(isCameraEnabled))
	api.Set("screenToNDC", js.FuncOf(screenToNDC))

	js.Global().Set("keepsakeEngine", api)
	js.Global().Set("keepsakeWasmReady", js.ValueOf(true))

	select {}
}

func result(err error) any {
	if err != nil {
		return js.ValueOf(map[string]any{"error": err.Error()})
	}
	return js.ValueOf(map[string]any{"ok": true})
}

var errMissingArgs = errors.New("missing arguments")

// --- Command Handlers ---

func setHost(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		host = js.Undefined()
		return nil
	}
	host = args[0]
	return nil
}

func loadDocument(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	return result(eng.LoadDocument(args[0].String()))
}

func loadSampleDocument(this js.Value, args []js.Value) any {
	eng.LoadSampleDocument()
	return result(nil)
}

// setBase(id, name, width, height, thickness, cylindrical)
func setBase(this js.Value, args []js.Value) any {
	if len(args) < 6 {
		return result(errMissingArgs)
	}
	eng.SetBase(engine.BaseObject{
		ID:          args[0].String(),
		Name:        args[1].String(),
		Width:       args[2].Float(),
		Height:      args[3].Float(),
		Thickness:   args[4].Float(),
		Cylindrical: args[5].Bool(),
	})
	return result(nil)
}

func pointer(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	return result(eng.HandlePointer(args[0].String()))
}

func key(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	eng.HandleKey(args[0].String())
	return nil
}

func editText(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	eng.EditText(args[0].String())
	return nil
}

func blur(this js.Value, args []js.Value) any {
	eng.Blur()
	return nil
}

func background(this js.Value, args []js.Value) any {
	eng.Scene().Background()
	return nil
}

func setModes(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	return result(eng.SetModes(args[0].String()))
}

func addEntity(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	patch := ""
	if len(args) > 1 && args[1].Type() == js.TypeString {
		patch = args[1].String()
	}
	id, err := eng.AddEntity(args[0].String(), patch)
	if err != nil {
		return result(err)
	}
	return js.ValueOf(map[string]any{"ok": true, "id": id})
}

func updateEntity(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return result(errMissingArgs)
	}
	return result(eng.UpdateEntity(args[0].String(), args[1].String()))
}

func removeEntity(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	return result(eng.RemoveEntity(args[0].String()))
}

func setLayerVisible(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return result(errMissingArgs)
	}
	return result(eng.SetLayerVisible(args[0].String(), args[1].Bool()))
}

func moveLayer(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return result(errMissingArgs)
	}
	return result(eng.MoveLayer(args[0].String(), args[1].Int()))
}

func raiseLayer(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	return result(eng.RaiseLayer(args[0].String()))
}

func lowerLayer(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	return result(eng.LowerLayer(args[0].String()))
}

// setImageStatus(src, loaded, errorMessage?, naturalWidth?, naturalHeight?)
func setImageStatus(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	st := engine.ImageStatus{Loaded: args[1].Bool()}
	if len(args) > 2 && args[2].Type() == js.TypeString && args[2].String() != "" {
		st.Err = errors.New(args[2].String())
	}
	if len(args) > 4 && args[3].Type() == js.TypeNumber && args[4].Type() == js.TypeNumber {
		st.Width, st.Height = args[3].Int(), args[4].Int()
	}
	images[args[0].String()] = st
	return nil
}

func markSaved(this js.Value, args []js.Value) any {
	eng.MarkSaved()
	return nil
}

func teardown(this js.Value, args []js.Value) any {
	eng.Scene().Teardown()
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	return eng.Render()
}

func hitTest(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	return eng.HitTest(args[0].Float(), args[1].Float())
}

func getDocument(this js.Value, args []js.Value) any {
	return eng.GetDocument()
}

func getInteraction(this js.Value, args []js.Value) any {
	return eng.GetInteraction()
}

func getLayers(this js.Value, args []js.Value) any {
	return eng.GetLayers()
}

func isDirty(this js.Value, args []js.Value) any {
	return eng.Dirty()
}

func isCameraEnabled(this js.Value, args []js.Value) any {
	return eng.CameraEnabled()
}

// screenToNDC(x, y, width, height) converts canvas pixels to the normalized
// device coordinates a renderer feeds its raycaster.
func screenToNDC(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return nil
	}
	p := engine.ScreenToNDC(args[0].Float(), args[1].Float(), args[2].Float(), args[3].Float())
	return js.ValueOf(map[string]any{"x": p.X, "y": p.Y})
}
