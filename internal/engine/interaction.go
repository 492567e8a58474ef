package engine

import (
	"errors"
	"fmt"
	"log/slog"
)

// State is the interaction state of the scene.
type State int

const (
	StateIdle State = iota
	StateSelected
	StateEditing
	StateMoving
	StateResizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelected:
		return "selected"
	case StateEditing:
		return "editing"
	case StateMoving:
		return "moving"
	case StateResizing:
		return "resizing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Modes are the toolbar toggles gating pointer actions.
type Modes struct {
	Move   bool `json:"moveEnabled"`
	Rotate bool `json:"rotateEnabled"`
	Remove bool `json:"removeEnabled"`
	Locked bool `json:"isSceneLocked"`
}

// TargetType says what a pointer event landed on.
type TargetType string

const (
	TargetNone       TargetType = ""
	TargetEntity     TargetType = "entity"
	TargetHandle     TargetType = "handle"
	TargetBackground TargetType = "background"
)

// Target is the renderer's tag for a pointer event.
type Target struct {
	Type   TargetType `json:"type"`
	Kind   Kind       `json:"kind,omitempty"`
	ID     string     `json:"id,omitempty"`
	Handle Handle     `json:"handle,omitempty"`
}

// PointerType is the phase of a pointer event.
type PointerType string

const (
	PointerDown        PointerType = "down"
	PointerMove        PointerType = "move"
	PointerUp          PointerType = "up"
	PointerDoubleClick PointerType = "dblclick"
)

// PointerEvent is a pointer event reported by the renderer. World is the
// hit on the base object's face plane, when the renderer could compute one.
// A renderer that only has its pick ray sends Ray instead and the engine
// intersects it with the face plane of the entity being dragged.
type PointerEvent struct {
	Type   PointerType `json:"type"`
	Target Target      `json:"target"`
	Screen Vec2        `json:"screen"`
	World  *Vec3       `json:"world,omitempty"`
	Ray    *Ray        `json:"ray,omitempty"`
}

func (ev PointerEvent) sample(z float64) PointerSample {
	s := PointerSample{Screen: ev.Screen, World: ev.World}
	if s.World == nil && ev.Ray != nil {
		if hit, ok := ev.Ray.IntersectPlane(FacePlane(z)); ok {
			s.World = &hit
		}
	}
	return s
}

// Key names the keys the machine reacts to.
type Key string

const (
	KeyEscape Key = "Escape"
	KeyEnter  Key = "Enter"
	KeyDelete Key = "Delete"
)

// Host is the mutation surface the machine drives. All entity changes made
// during an interaction go through it.
type Host interface {
	Entity(id string) (Entity, bool)
	MoveEntity(id string, pos Vec2) error
	ResizeEntity(id string, size Size) error
	RotateEntity(id string, step float64) error
	RemoveEntity(id string) error
	SetText(id, text string) error
}

type dragState struct {
	start     PointerSample
	startPos  Vec2
	startSize Size
	capture   *Capture
}

type editState struct {
	original string
	buffer   string
}

// Machine is the selection and manipulation controller shared by every
// entity kind. Selection is a single entity across all kinds, and at most one
// move or resize runs at a time scene-wide.
type Machine struct {
	host     Host
	captures *CaptureManager
	modes    Modes

	state  State
	target string
	handle Handle
	drag   dragState
	edit   editState

	onCamera   func(enabled bool)
	lastCamera bool
}

// NewMachine creates an idle machine driving host.
func NewMachine(host Host, captures *CaptureManager) *Machine {
	if captures == nil {
		captures = NewCaptureManager(nil)
	}
	return &Machine{host: host, captures: captures, lastCamera: true}
}

// OnCameraChange registers fn to be called whenever camera control flips.
func (m *Machine) OnCameraChange(fn func(enabled bool)) {
	m.onCamera = fn
}

func (m *Machine) State() State   { return m.state }
func (m *Machine) Handle() Handle { return m.handle }
func (m *Machine) Modes() Modes   { return m.modes }

// EditBuffer returns the pending text while editing.
func (m *Machine) EditBuffer() string {
	if m.state != StateEditing {
		return ""
	}
	return m.edit.buffer
}

// Selected returns the selected entity id, if any.
func (m *Machine) Selected() (string, bool) {
	return m.target, m.target != ""
}

// IsSelected reports whether id is the selected entity.
func (m *Machine) IsSelected(id string) bool {
	return id != "" && m.target == id
}

// IsEditing reports whether id is being text-edited.
func (m *Machine) IsEditing(id string) bool {
	return m.state == StateEditing && m.target == id
}

// CameraEnabled reports whether orbit, pan and zoom are allowed.
func (m *Machine) CameraEnabled() bool {
	if m.modes.Locked {
		return false
	}
	switch m.state {
	case StateMoving, StateResizing, StateEditing:
		return false
	}
	return true
}

// CapturePending reports whether a drag still holds the pointer capture.
func (m *Machine) CapturePending() bool {
	return m.captures.Pending()
}

// SetModes replaces the toolbar toggles.
func (m *Machine) SetModes(modes Modes) {
	defer m.settle()
	m.modes = modes
}

// Pointer dispatches a pointer event. It never panics; failures are logged
// and the machine falls back to a state with no capture held.
func (m *Machine) Pointer(ev PointerEvent) {
	defer m.settle()
	defer m.recoverFrom("pointer " + string(ev.Type))

	switch ev.Type {
	case PointerDown:
		m.pointerDown(ev)
	case PointerMove:
		m.pointerMove(ev)
	case PointerUp:
		m.pointerUp()
	case PointerDoubleClick:
		m.doubleClick(ev)
	default:
		slog.Warn("unknown pointer event", "type", ev.Type)
	}
}

// Key handles a key press.
func (m *Machine) Key(k Key) {
	defer m.settle()
	defer m.recoverFrom("key " + string(k))

	switch k {
	case KeyEscape:
		if m.state == StateEditing {
			m.commitEdit()
			return
		}
		m.reset()
	case KeyEnter:
		if m.state == StateEditing {
			m.commitEdit()
		}
	case KeyDelete:
		if m.state == StateSelected {
			m.remove(m.target)
		}
	}
}

// EditInput replaces the pending text while editing.
func (m *Machine) EditInput(text string) {
	if m.state == StateEditing {
		m.edit.buffer = text
	}
}

// Blur ends text editing when the editor loses focus.
func (m *Machine) Blur() {
	defer m.settle()
	defer m.recoverFrom("blur")
	if m.state == StateEditing {
		m.commitEdit()
	}
}

// Background clears all selection and interaction state. It is reachable
// from every state.
func (m *Machine) Background() {
	defer m.settle()
	defer m.recoverFrom("background")
	if m.state == StateEditing {
		m.commitEdit()
	}
	m.reset()
}

// Forget drops every reference to id. The scene calls it when an entity is
// removed so in-flight drags do not outlive their target.
func (m *Machine) Forget(id string) {
	if id == "" || m.target != id {
		return
	}
	defer m.settle()
	m.endDrag()
	m.state = StateIdle
	m.target = ""
	m.handle = ""
	m.edit = editState{}
}

// Teardown releases any held capture and returns to idle.
func (m *Machine) Teardown() {
	defer m.settle()
	m.reset()
	m.captures.ReleaseAll()
}

func (m *Machine) pointerDown(ev PointerEvent) {
	switch ev.Target.Type {
	case TargetBackground:
		if m.state == StateEditing {
			m.commitEdit()
		}
		m.reset()
	case TargetHandle:
		m.handleDown(ev)
	case TargetEntity:
		m.entityDown(ev)
	}
}

func (m *Machine) entityDown(ev PointerEvent) {
	id := ev.Target.ID
	e, ok := m.host.Entity(id)
	if !ok {
		return
	}

	if m.modes.Remove {
		m.finishEdit()
		m.endDrag()
		m.remove(id)
		return
	}
	if m.modes.Rotate && e.SupportsRotation() {
		m.finishEdit()
		m.endDrag()
		if err := m.host.RotateEntity(id, RotationStep); err != nil {
			m.absorb("rotate", id, err)
			return
		}
		m.selectEntity(id)
		return
	}

	if m.dragging() {
		return
	}
	if m.state == StateEditing {
		if id != m.target {
			m.commitEdit()
		}
		return
	}

	m.selectEntity(id)
	if m.modes.Move {
		m.beginDrag(StateMoving, e, "", ev)
	}
}

func (m *Machine) handleDown(ev PointerEvent) {
	if m.dragging() || m.state != StateSelected || m.target != ev.Target.ID {
		return
	}
	e, ok := m.host.Entity(m.target)
	if !ok {
		m.reset()
		return
	}
	if ev.Target.Handle == HandleRemove {
		m.remove(m.target)
		return
	}
	if !HasHandle(e, ev.Target.Handle) {
		return
	}
	m.beginDrag(StateResizing, e, ev.Target.Handle, ev)
}

func (m *Machine) pointerMove(ev PointerEvent) {
	if !m.dragging() {
		return
	}
	e, ok := m.host.Entity(m.target)
	if !ok {
		m.Forget(m.target)
		return
	}

	d := Delta(m.drag.start, ev.sample(e.Position().Z))
	var err error
	switch m.state {
	case StateMoving:
		err = m.host.MoveEntity(m.target, m.drag.startPos.Add(d))
	case StateResizing:
		size, ok := Resize(m.drag.startSize, m.handle, d, e.MinSize())
		if !ok {
			return
		}
		err = m.host.ResizeEntity(m.target, size)
	}
	if err != nil {
		m.absorb(m.state.String(), m.target, err)
	}
}

func (m *Machine) pointerUp() {
	if !m.dragging() {
		return
	}
	m.endDrag()
	if _, ok := m.host.Entity(m.target); ok {
		m.state = StateSelected
	} else {
		m.state = StateIdle
		m.target = ""
	}
	m.handle = ""
}

func (m *Machine) doubleClick(ev PointerEvent) {
	if ev.Target.Type != TargetEntity || m.dragging() || m.modes.Remove {
		return
	}
	e, ok := m.host.Entity(ev.Target.ID)
	if !ok {
		return
	}
	text, ok := e.(*TextEntity)
	if !ok {
		return
	}
	if m.state == StateEditing {
		if m.target == text.ID() {
			return
		}
		m.commitEdit()
	}
	m.selectEntity(text.ID())
	m.state = StateEditing
	m.edit = editState{original: text.Text, buffer: text.Text}
}

func (m *Machine) dragging() bool {
	return m.state == StateMoving || m.state == StateResizing
}

func (m *Machine) selectEntity(id string) {
	m.target = id
	m.handle = ""
	m.state = StateSelected
}

func (m *Machine) beginDrag(state State, e Entity, h Handle, ev PointerEvent) {
	capture, ok := m.captures.Acquire()
	if !ok {
		return
	}
	m.drag = dragState{
		start:     ev.sample(e.Position().Z),
		startPos:  e.Position().XY(),
		startSize: e.Size(),
		capture:   capture,
	}
	m.state = state
	m.target = e.ID()
	m.handle = h
}

func (m *Machine) endDrag() {
	m.drag.capture.Release()
	m.drag = dragState{}
	if m.dragging() {
		m.state = StateSelected
	}
	m.handle = ""
}

// commitEdit writes the edit buffer back when it changed and returns to Selected.
func (m *Machine) commitEdit() {
	id := m.target
	edit := m.edit
	m.edit = editState{}
	m.state = StateSelected
	if edit.buffer == edit.original {
		return
	}
	if err := m.host.SetText(id, edit.buffer); err != nil {
		m.absorb("commit text", id, err)
	}
}

func (m *Machine) finishEdit() {
	if m.state == StateEditing {
		m.commitEdit()
	}
}

func (m *Machine) remove(id string) {
	m.endDrag()
	if err := m.host.RemoveEntity(id); err != nil {
		m.absorb("remove", id, err)
	}
	m.state = StateIdle
	m.target = ""
	m.handle = ""
	m.edit = editState{}
}

// reset abandons any drag or edit and returns to Idle with nothing selected.
func (m *Machine) reset() {
	m.endDrag()
	m.state = StateIdle
	m.target = ""
	m.handle = ""
	m.edit = editState{}
}

// absorb logs an error raised on the interaction path. Unknown targets
// end the interaction; everything else is logged and ignored.
func (m *Machine) absorb(op, id string, err error) {
	if errors.Is(err, ErrNotFound) {
		slog.Debug("interaction target gone", "op", op, "id", id)
		m.Forget(id)
		return
	}
	slog.Warn("interaction failed", "op", op, "id", id, "error", err)
}

func (m *Machine) recoverFrom(op string) {
	if r := recover(); r != nil {
		slog.Error("interaction handler panicked", "op", op, "panic", r)
		m.endDrag()
		if _, ok := m.host.Entity(m.target); !ok {
			m.state = StateIdle
			m.target = ""
		} else if m.state == StateEditing {
			m.state = StateSelected
			m.edit = editState{}
		}
	}
}

func (m *Machine) settle() {
	enabled := m.CameraEnabled()
	if enabled == m.lastCamera {
		return
	}
	m.lastCamera = enabled
	if m.onCamera != nil {
		m.onCamera(enabled)
	}
}
