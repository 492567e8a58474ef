package engine

import (
	"fmt"
	"log/slog"

	"github.com/inamate/keepsake/internal/typeid"
)

// BaseObject is the product entities are composited onto.
type BaseObject struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	Thickness   float64 `json:"thickness"`
	Cylindrical bool    `json:"cylindrical,omitempty"`
}

// DefaultBase is used until a base object is chosen.
var DefaultBase = BaseObject{
	ID:        "gravestone-upright",
	Name:      "Upright gravestone",
	Width:     0.6,
	Height:    0.8,
	Thickness: 0.15,
}

// ImageStatus is the load state of an image source. Width and Height are
// the natural pixel size when the resolver knows it.
type ImageStatus struct {
	Loaded bool
	Err    error
	Width  int
	Height int
}

// ImageResolver reports whether an image source is available. It must not
// block; unresolved sources are reported as not loaded and retried on a
// later call.
type ImageResolver interface {
	Resolve(src string) ImageStatus
}

// Option configures a Scene.
type Option func(*Scene)

func WithBase(b BaseObject) Option {
	return func(s *Scene) { s.base = b }
}

func WithImageResolver(r ImageResolver) Option {
	return func(s *Scene) { s.images = r }
}

func WithInputCapturer(c InputCapturer) Option {
	return func(s *Scene) { s.capturer = c }
}

// WithCameraListener is called whenever camera control is toggled.
func WithCameraListener(fn func(enabled bool)) Option {
	return func(s *Scene) { s.onCamera = fn }
}

func WithIDGenerator(fn func(Kind) string) Option {
	return func(s *Scene) { s.newID = fn }
}

// Scene is the composer. It exclusively owns the entity model, the layer
// index and the interaction machine; every mutation routes through it.
type Scene struct {
	base     BaseObject
	model    *Model
	layers   *LayerIndex
	machine  *Machine
	shapes   *ShapeCache
	images   ImageResolver
	capturer InputCapturer
	onCamera func(bool)
	newID    func(Kind) string

	// revision increments on every entity, layer or base change.
	revision uint64
}

// NewScene creates an empty scene.
func NewScene(opts ...Option) *Scene {
	s := &Scene{
		base:   DefaultBase,
		layers: NewLayerIndex(),
		shapes: NewShapeCache(),
		newID:  newTypeID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.model = NewModel(s.base.Thickness, s.newID)
	s.machine = NewMachine(s, NewCaptureManager(s.capturer))
	s.machine.OnCameraChange(s.onCamera)
	return s
}

func newTypeID(kind Kind) string {
	switch kind {
	case KindText:
		return typeid.NewTextID()
	case KindImage:
		return typeid.NewImageID()
	default:
		return typeid.NewFrameID()
	}
}

// --- Entity contract ---

// Add creates an entity and places it on top of the layer order.
func (s *Scene) Add(kind Kind, init Patch) (string, error) {
	id, err := s.model.Create(kind, init)
	if err != nil {
		return "", err
	}
	s.layers.Append(kind, id)
	s.touch()
	return id, nil
}

// Update applies a patch to an entity.
func (s *Scene) Update(id string, p Patch) error {
	if err := s.model.Update(id, p); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Remove deletes an entity, its layer and any interaction state that
// references it, in one step.
func (s *Scene) Remove(id string) error {
	e, err := s.model.Get(id)
	if err != nil {
		return err
	}
	s.machine.Forget(id)
	s.layers.Remove(LayerID(e.Kind(), id))
	if err := s.model.Remove(id); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Get returns an entity by id.
func (s *Scene) Get(id string) (Entity, error) {
	return s.model.Get(id)
}

// Len returns the number of entities.
func (s *Scene) Len() int {
	return s.model.Len()
}

// --- Host (driven by the interaction machine) ---

func (s *Scene) Entity(id string) (Entity, bool) {
	if id == "" {
		return nil, false
	}
	e, err := s.model.Get(id)
	return e, err == nil
}

func (s *Scene) MoveEntity(id string, pos Vec2) error {
	return s.Update(id, Patch{Position: &pos})
}

func (s *Scene) ResizeEntity(id string, size Size) error {
	return s.Update(id, Patch{Size: &size})
}

func (s *Scene) RotateEntity(id string, step float64) error {
	e, err := s.model.Get(id)
	if err != nil {
		return err
	}
	img, ok := e.(*ImageEntity)
	if !ok {
		return fmt.Errorf("%s entities do not rotate", e.Kind())
	}
	img.Rotate(step)
	s.touch()
	return nil
}

func (s *Scene) RemoveEntity(id string) error {
	return s.Remove(id)
}

func (s *Scene) SetText(id, text string) error {
	return s.Update(id, Patch{Text: &text})
}

// --- Input ---

func (s *Scene) Pointer(ev PointerEvent) { s.machine.Pointer(ev) }
func (s *Scene) Key(k Key)               { s.machine.Key(k) }
func (s *Scene) EditInput(text string)   { s.machine.EditInput(text) }
func (s *Scene) Blur()                   { s.machine.Blur() }

// Background handles a click on the empty backdrop: full deselection.
func (s *Scene) Background() { s.machine.Background() }

// Teardown releases any pointer capture, for when the view unmounts.
func (s *Scene) Teardown() { s.machine.Teardown() }

func (s *Scene) Machine() *Machine { return s.machine }

func (s *Scene) SetModes(m Modes) { s.machine.SetModes(m) }
func (s *Scene) Modes() Modes     { return s.machine.Modes() }

// --- Base object ---

func (s *Scene) Base() BaseObject { return s.base }

// SetBase switches the base object and restacks every entity on its face.
func (s *Scene) SetBase(b BaseObject) {
	s.base = b
	s.model.SetBaseThickness(b.Thickness)
	s.touch()
}

// --- Layers ---

func (s *Scene) Layers() []Layer { return s.layers.Order() }

func (s *Scene) VisibleLayers() []string { return s.layers.VisibleIDs() }

func (s *Scene) SetLayerVisible(layerID string, visible bool) error {
	if err := s.layers.SetVisible(layerID, visible); err != nil {
		return err
	}
	s.touch()
	return nil
}

// MoveLayer places a layer at index in the draw order. Siblings of the
// moved entity's kind are restacked so depth agrees with the new order.
func (s *Scene) MoveLayer(layerID string, index int) error {
	if err := s.layers.Move(layerID, index); err != nil {
		return err
	}
	s.restack()
	s.touch()
	return nil
}

// RaiseLayer moves a layer one step toward the front.
func (s *Scene) RaiseLayer(layerID string) error {
	i := s.layers.Index(layerID)
	if i < 0 {
		return fmt.Errorf("%w: layer %s", ErrNotFound, layerID)
	}
	return s.MoveLayer(layerID, i+1)
}

// LowerLayer moves a layer one step toward the back.
func (s *Scene) LowerLayer(layerID string) error {
	i := s.layers.Index(layerID)
	if i < 0 {
		return fmt.Errorf("%w: layer %s", ErrNotFound, layerID)
	}
	return s.MoveLayer(layerID, i-1)
}

// Validate checks the model and layer index agree.
func (s *Scene) Validate() error {
	return s.layers.Validate(s.model)
}

// Revision returns a counter that changes whenever the design changes.
func (s *Scene) Revision() uint64 { return s.revision }

func (s *Scene) touch() { s.revision++ }

// restack derives each kind's sibling order from the layer order.
func (s *Scene) restack() {
	byKind := make(map[Kind][]string, len(Kinds))
	for _, l := range s.layers.Order() {
		byKind[l.Kind] = append(byKind[l.Kind], l.EntityID)
	}
	for _, k := range Kinds {
		s.model.Restack(k, byKind[k])
	}
}

// clear drops all entities, layers and interaction state.
func (s *Scene) clear() {
	s.machine.Teardown()
	s.model.Clear()
	s.layers.Clear()
	s.touch()
}

func (s *Scene) frameGeometry(f *FrameEntity) FrameGeometry {
	g, err := s.shapes.Get(f.Shape, f.Size(), f.FrameWidth)
	if err != nil {
		slog.Warn("frame geometry", "id", f.ID(), "error", err)
	}
	return g
}
