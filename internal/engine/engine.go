package engine

import (
	"encoding/json"
	"fmt"

	"github.com/inamate/keepsake/internal/document"
)

// Engine wraps a Scene behind a string-in, string-out API for the WASM
// binding and the websocket session. It processes commands from the
// frontend and returns query results.
type Engine struct {
	scene *Scene

	// Revision of the scene at the last save
	savedRevision uint64
}

// NewEngine creates a new engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{scene: NewScene(opts...)}
	e.savedRevision = e.scene.Revision()
	return e
}

// Scene exposes the underlying composer.
func (e *Engine) Scene() *Scene {
	return e.scene
}

// --- Commands (frontend → backend) ---

// LoadDocument loads a design snapshot from JSON.
func (e *Engine) LoadDocument(jsonData string) error {
	var snap document.Snapshot
	if err := json.Unmarshal([]byte(jsonData), &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	e.LoadSnapshot(&snap)
	return nil
}

// LoadSnapshot replaces the design and marks it clean.
func (e *Engine) LoadSnapshot(snap *document.Snapshot) {
	e.scene.Load(snap)
	e.savedRevision = e.scene.Revision()
}

// LoadSampleDocument loads the built-in sample design.
func (e *Engine) LoadSampleDocument() {
	e.LoadSnapshot(document.NewSampleSnapshot())
}

// HandlePointer decodes and dispatches a pointer event.
func (e *Engine) HandlePointer(jsonEvent string) error {
	var ev PointerEvent
	if err := json.Unmarshal([]byte(jsonEvent), &ev); err != nil {
		return fmt.Errorf("decode pointer event: %w", err)
	}
	e.scene.Pointer(ev)
	return nil
}

// HandleKey dispatches a key press.
func (e *Engine) HandleKey(key string) {
	e.scene.Key(Key(key))
}

// EditText updates the text being edited.
func (e *Engine) EditText(text string) {
	e.scene.EditInput(text)
}

// Blur commits a pending text edit.
func (e *Engine) Blur() {
	e.scene.Blur()
}

// SetModes decodes the toolbar toggles.
func (e *Engine) SetModes(jsonModes string) error {
	var m Modes
	if err := json.Unmarshal([]byte(jsonModes), &m); err != nil {
		return fmt.Errorf("decode modes: %w", err)
	}
	e.scene.SetModes(m)
	return nil
}

// AddEntity creates an entity of kind from a JSON patch and returns its id.
func (e *Engine) AddEntity(kind, jsonPatch string) (string, error) {
	p, err := decodePatch(jsonPatch)
	if err != nil {
		return "", err
	}
	return e.scene.Add(Kind(kind), p)
}

// UpdateEntity applies a JSON patch to an entity.
func (e *Engine) UpdateEntity(id, jsonPatch string) error {
	p, err := decodePatch(jsonPatch)
	if err != nil {
		return err
	}
	return e.scene.Update(id, p)
}

// RemoveEntity deletes an entity.
func (e *Engine) RemoveEntity(id string) error {
	return e.scene.Remove(id)
}

// SetLayerVisible toggles a layer.
func (e *Engine) SetLayerVisible(layerID string, visible bool) error {
	return e.scene.SetLayerVisible(layerID, visible)
}

// MoveLayer reorders a layer.
func (e *Engine) MoveLayer(layerID string, index int) error {
	return e.scene.MoveLayer(layerID, index)
}

// RaiseLayer moves a layer one step toward the front.
func (e *Engine) RaiseLayer(layerID string) error {
	return e.scene.RaiseLayer(layerID)
}

// LowerLayer moves a layer one step toward the back.
func (e *Engine) LowerLayer(layerID string) error {
	return e.scene.LowerLayer(layerID)
}

// SetBase switches the base object.
func (e *Engine) SetBase(b BaseObject) {
	e.scene.SetBase(b)
}

// MarkSaved records the current revision as persisted.
func (e *Engine) MarkSaved() {
	e.savedRevision = e.scene.Revision()
}

// --- Queries (frontend ← backend) ---

// Render composes the draw list and interaction state as JSON.
func (e *Engine) Render() string {
	result, _ := FrameToJSON(e.scene.Frame())
	return result
}

// HitTest resolves a face-plane point to a target, as JSON.
func (e *Engine) HitTest(x, y float64) string {
	data, _ := json.Marshal(e.scene.HitTest(Vec2{X: x, Y: y}))
	return string(data)
}

// GetDocument returns the design snapshot as JSON.
func (e *Engine) GetDocument() string {
	data, _ := json.Marshal(e.scene.Snapshot())
	return string(data)
}

// GetInteraction returns the interaction state as JSON.
func (e *Engine) GetInteraction() string {
	data, _ := json.Marshal(e.scene.Interaction())
	return string(data)
}

// GetLayers returns the layer order as JSON.
func (e *Engine) GetLayers() string {
	data, _ := json.Marshal(map[string]any{
		"layerOrder":    e.scene.Layers(),
		"visibleLayers": e.scene.VisibleLayers(),
	})
	return string(data)
}

// Snapshot returns the design snapshot.
func (e *Engine) Snapshot() *document.Snapshot {
	return e.scene.Snapshot()
}

// Dirty reports whether the design changed since it was loaded or saved.
func (e *Engine) Dirty() bool {
	return e.scene.Revision() != e.savedRevision
}

// CameraEnabled reports whether the renderer may orbit, pan and zoom.
func (e *Engine) CameraEnabled() bool {
	return e.scene.Machine().CameraEnabled()
}

func decodePatch(jsonPatch string) (Patch, error) {
	var p Patch
	if jsonPatch == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(jsonPatch), &p); err != nil {
		return p, fmt.Errorf("decode patch: %w", err)
	}
	return p, nil
}
