package engine

import "math"

// Kind identifies the variant of a placed entity.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindFrame Kind = "frame"
)

// Kinds lists every entity kind in stacking order, back to front.
var Kinds = []Kind{KindFrame, KindImage, KindText}

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindFrame:
		return true
	}
	return false
}

// Minimum extents, enforced on every resize.
const (
	MinTextWidth  = 0.05
	MinFontSize   = 0.05
	MinImageSize  = 0.1
	MinFrameSize  = 0.1
	MinFrameWidth = 0.005

	// RotationStep is the fixed rotation applied by one rotate-mode click.
	RotationStep = 90.0
)

// Size is a pair of extents. For text, W is the wrap width and H the font size.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Clamp returns s with each extent raised to at least min.
func (s Size) Clamp(min Size) Size {
	return Size{W: math.Max(min.W, s.W), H: math.Max(min.H, s.H)}
}

// Entity is the capability set the interaction machine needs from any
// placed object. Concrete types are *TextEntity, *ImageEntity and *FrameEntity.
type Entity interface {
	ID() string
	Kind() Kind
	Position() Vec3
	SetPosition(Vec3)
	Size() Size
	// SetSize stores s clamped to MinSize.
	SetSize(s Size)
	MinSize() Size
	SupportsRotation() bool
	// Handles lists the resize handles the entity exposes while selected.
	Handles() []Handle

	apply(p Patch)
}

// Patch is a partial update. Nil fields are left unchanged; fields that do
// not apply to the entity's kind are ignored.
type Patch struct {
	Position *Vec2    `json:"position,omitempty"`
	Size     *Size    `json:"size,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`

	Text        *string `json:"text,omitempty"`
	Font        *string `json:"font,omitempty"`
	Color       *string `json:"color,omitempty"`
	Cylindrical *bool   `json:"cylindrical,omitempty"`

	Src  *string `json:"src,omitempty"`
	Flip *bool   `json:"flip,omitempty"`

	Shape           *ShapeKind `json:"shape,omitempty"`
	FrameWidth      *float64   `json:"frameWidth,omitempty"`
	BorderThickness *float64   `json:"borderThickness,omitempty"`
}

func (p Patch) applyCommon(e Entity) {
	if p.Position != nil {
		pos := e.Position()
		e.SetPosition(Vec3{X: p.Position.X, Y: p.Position.Y, Z: pos.Z})
	}
	if p.Size != nil {
		e.SetSize(*p.Size)
	}
}

// TextEntity is a text label. Flat text exposes all eight box handles;
// cylindrical text (wrapped around an urn) exposes a single scale handle.
type TextEntity struct {
	id          string
	Pos         Vec3
	Text        string
	Font        string
	Color       string
	Width       float64
	FontSize    float64
	Cylindrical bool
}

func NewTextEntity(id string) *TextEntity {
	return &TextEntity{
		id:       id,
		Text:     "Text",
		Font:     "Roboto",
		Color:    "#000000",
		Width:    0.5,
		FontSize: 0.1,
	}
}

func (t *TextEntity) ID() string { return t.id }
func (t *TextEntity) Kind() Kind { return KindText }
func (t *TextEntity) Position() Vec3 { return t.Pos }
func (t *TextEntity) SetPosition(p Vec3) { t.Pos = p }
func (t *TextEntity) Size() Size { return Size{W: t.Width, H: t.FontSize} }
func (t *TextEntity) MinSize() Size { return Size{W: MinTextWidth, H: MinFontSize} }
func (t *TextEntity) SupportsRotation() bool { return false }

func (t *TextEntity) SetSize(s Size) {
	s = s.Clamp(t.MinSize())
	t.Width, t.FontSize = s.W, s.H
}

func (t *TextEntity) Handles() []Handle {
	if t.Cylindrical {
		return []Handle{HandleScale}
	}
	return BoxHandles
}

func (t *TextEntity) apply(p Patch) {
	p.applyCommon(t)
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Font != nil {
		t.Font = *p.Font
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	if p.Cylindrical != nil {
		t.Cylindrical = *p.Cylindrical
	}
}

// ImageEntity is a placed picture. It is the only kind with free rotation.
type ImageEntity struct {
	id       string
	Pos      Vec3
	Rotation float64
	W, H     float64
	Src      string
	Flip     bool
}

func NewImageEntity(id string) *ImageEntity {
	return &ImageEntity{id: id, W: 0.3, H: 0.3}
}

func (i *ImageEntity) ID() string { return i.id }
func (i *ImageEntity) Kind() Kind { return KindImage }
func (i *ImageEntity) Position() Vec3 { return i.Pos }
func (i *ImageEntity) SetPosition(p Vec3) { i.Pos = p }
func (i *ImageEntity) Size() Size { return Size{W: i.W, H: i.H} }
func (i *ImageEntity) MinSize() Size { return Size{W: MinImageSize, H: MinImageSize} }
func (i *ImageEntity) SupportsRotation() bool { return true }
func (i *ImageEntity) Handles() []Handle { return BoxHandles }

func (i *ImageEntity) SetSize(s Size) {
	s = s.Clamp(i.MinSize())
	i.W, i.H = s.W, s.H
}

// Rotate adds step degrees, normalized to [0, 360).
func (i *ImageEntity) Rotate(step float64) {
	i.Rotation = normalizeDegrees(i.Rotation + step)
}

func (i *ImageEntity) apply(p Patch) {
	p.applyCommon(i)
	if p.Rotation != nil {
		i.Rotation = normalizeDegrees(*p.Rotation)
	}
	if p.Src != nil {
		i.Src = *p.Src
	}
	if p.Flip != nil {
		i.Flip = *p.Flip
	}
}

// FrameEntity is a decorative border shape with a hole in the middle.
type FrameEntity struct {
	id              string
	Pos             Vec3
	Shape           ShapeKind
	W, H            float64
	FrameWidth      float64
	BorderThickness float64
	Color           string
}

func NewFrameEntity(id string) *FrameEntity {
	return &FrameEntity{
		id:              id,
		Shape:           ShapeRectangle,
		W:               0.4,
		H:               0.4,
		FrameWidth:      0.02,
		BorderThickness: 0.01,
		Color:           "#c9a227",
	}
}

func (f *FrameEntity) ID() string { return f.id }
func (f *FrameEntity) Kind() Kind { return KindFrame }
func (f *FrameEntity) Position() Vec3 { return f.Pos }
func (f *FrameEntity) SetPosition(p Vec3) { f.Pos = p }
func (f *FrameEntity) Size() Size { return Size{W: f.W, H: f.H} }
func (f *FrameEntity) MinSize() Size { return Size{W: MinFrameSize, H: MinFrameSize} }
func (f *FrameEntity) SupportsRotation() bool { return false }
func (f *FrameEntity) Handles() []Handle { return BoxHandles }

func (f *FrameEntity) SetSize(s Size) {
	s = s.Clamp(f.MinSize())
	f.W, f.H = s.W, s.H
}

func (f *FrameEntity) apply(p Patch) {
	p.applyCommon(f)
	if p.Shape != nil {
		f.Shape = *p.Shape
	}
	if p.FrameWidth != nil {
		f.FrameWidth = math.Max(MinFrameWidth, *p.FrameWidth)
	}
	if p.BorderThickness != nil {
		f.BorderThickness = math.Max(0, *p.BorderThickness)
	}
	if p.Color != nil {
		f.Color = *p.Color
	}
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// newEntity constructs a default entity of the given kind.
func newEntity(kind Kind, id string) (Entity, error) {
	switch kind {
	case KindText:
		return NewTextEntity(id), nil
	case KindImage:
		return NewImageEntity(id), nil
	case KindFrame:
		return NewFrameEntity(id), nil
	}
	return nil, ErrUnknownKind
}
