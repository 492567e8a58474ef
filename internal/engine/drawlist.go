package engine

import (
	"encoding/json"
	"iter"
	"slices"
)

// Drawable is everything the renderer needs to draw one entity without
// consulting the model again.
type Drawable struct {
	Kind     Kind    `json:"kind"`
	ID       string  `json:"id"`
	LayerID  string  `json:"layerId"`
	Order    int     `json:"order"`
	Position Vec3    `json:"position"`
	Rotation float64 `json:"rotation,omitempty"`
	Size     Size    `json:"size"`

	// Transform is the entity's world XY affine transform [a, b, c, d, e, f].
	Transform []float64 `json:"transform"`

	Selected bool `json:"selected,omitempty"`
	Editing  bool `json:"editing,omitempty"`

	Text  *TextParams  `json:"text,omitempty"`
	Image *ImageParams `json:"image,omitempty"`
	Frame *FrameParams `json:"frame,omitempty"`

	// Handles are present only while the entity is selected and not being edited.
	Handles []HandlePos `json:"handles,omitempty"`
}

type TextParams struct {
	Text        string  `json:"text"`
	Font        string  `json:"font"`
	Color       string  `json:"color"`
	Width       float64 `json:"width"`
	FontSize    float64 `json:"fontSize"`
	Cylindrical bool    `json:"cylindrical,omitempty"`
}

type ImageParams struct {
	Src           string `json:"src"`
	Flip          bool   `json:"flip,omitempty"`
	Loaded        bool   `json:"loaded"`
	Error         string `json:"error,omitempty"`
	NaturalWidth  int    `json:"naturalWidth,omitempty"`
	NaturalHeight int    `json:"naturalHeight,omitempty"`
}

type FrameParams struct {
	Shape           ShapeKind     `json:"shape"`
	FrameWidth      float64       `json:"frameWidth"`
	BorderThickness float64       `json:"borderThickness"`
	Color           string        `json:"color,omitempty"`
	Geometry        FrameGeometry `json:"geometry"`
}

// DrawList yields the visible entities back to front. The sequence is lazy
// and may be ranged over any number of times; each pass reflects the scene
// as it is when the pass starts.
func (s *Scene) DrawList() iter.Seq[Drawable] {
	return func(yield func(Drawable) bool) {
		order := 0
		for _, layer := range s.layers.Order() {
			if !s.layers.IsVisible(layer.ID) {
				continue
			}
			e, ok := s.Entity(layer.EntityID)
			if !ok {
				continue
			}
			if !yield(s.describe(e, layer, order)) {
				return
			}
			order++
		}
	}
}

// Drawables collects the draw list.
func (s *Scene) Drawables() []Drawable {
	return slices.Collect(s.DrawList())
}

func (s *Scene) describe(e Entity, layer Layer, order int) Drawable {
	d := Drawable{
		Kind:     e.Kind(),
		ID:       e.ID(),
		LayerID:  layer.ID,
		Order:    order,
		Position: e.Position(),
		Size:     e.Size(),
		Selected: s.machine.IsSelected(e.ID()),
		Editing:  s.machine.IsEditing(e.ID()),
	}

	m := entityTransform(e)
	switch v := e.(type) {
	case *TextEntity:
		text := v.Text
		if d.Editing {
			text = s.machine.EditBuffer()
		}
		d.Text = &TextParams{
			Text:        text,
			Font:        v.Font,
			Color:       v.Color,
			Width:       v.Width,
			FontSize:    v.FontSize,
			Cylindrical: v.Cylindrical,
		}
	case *ImageEntity:
		d.Rotation = v.Rotation
		if v.Flip {
			m = m.Multiply(Scale(-1, 1))
		}
		d.Image = &ImageParams{Src: v.Src, Flip: v.Flip, Loaded: true}
		if s.images != nil {
			st := s.images.Resolve(v.Src)
			d.Image.Loaded = st.Loaded
			d.Image.NaturalWidth, d.Image.NaturalHeight = st.Width, st.Height
			if st.Err != nil {
				d.Image.Error = st.Err.Error()
			}
		}
	case *FrameEntity:
		d.Frame = &FrameParams{
			Shape:           v.Shape,
			FrameWidth:      v.FrameWidth,
			BorderThickness: v.BorderThickness,
			Color:           v.Color,
			Geometry:        s.frameGeometry(v),
		}
	}
	d.Transform = m.ToSlice()

	if d.Selected && !d.Editing {
		d.Handles = HandlePositions(e)
	}
	return d
}

// Frame is one render pass: the draw list plus the interaction state the
// renderer reflects (camera lock, cursor, edit overlay).
type Frame struct {
	Drawables   []Drawable       `json:"drawables"`
	Interaction InteractionState `json:"interaction"`
	Base        BaseObject       `json:"base"`
	Revision    uint64           `json:"revision"`
}

// InteractionState is the externally visible part of the machine.
type InteractionState struct {
	State          string `json:"state"`
	Selected       string `json:"selected,omitempty"`
	SelectedKind   Kind   `json:"selectedKind,omitempty"`
	Handle         Handle `json:"handle,omitempty"`
	EditText       string `json:"editText,omitempty"`
	CameraEnabled  bool   `json:"cameraEnabled"`
	CapturePending bool   `json:"capturePending"`
	Modes          Modes  `json:"modes"`
}

// Interaction reports the current interaction state.
func (s *Scene) Interaction() InteractionState {
	st := InteractionState{
		State:          s.machine.State().String(),
		Handle:         s.machine.Handle(),
		EditText:       s.machine.EditBuffer(),
		CameraEnabled:  s.machine.CameraEnabled(),
		CapturePending: s.machine.CapturePending(),
		Modes:          s.machine.Modes(),
	}
	if id, ok := s.machine.Selected(); ok {
		st.Selected = id
		if e, ok := s.Entity(id); ok {
			st.SelectedKind = e.Kind()
		}
	}
	return st
}

// Frame composes a full render pass.
func (s *Scene) Frame() Frame {
	drawables := s.Drawables()
	if drawables == nil {
		drawables = []Drawable{}
	}
	return Frame{
		Drawables:   drawables,
		Interaction: s.Interaction(),
		Base:        s.base,
		Revision:    s.revision,
	}
}

// FrameToJSON serializes a frame.
func FrameToJSON(f Frame) (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "{}", err
	}
	return string(data), nil
}
