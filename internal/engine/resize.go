package engine

// Handle labels a draggable control on a selected entity.
type Handle string

const (
	HandleTop         Handle = "top"
	HandleBottom      Handle = "bottom"
	HandleLeft        Handle = "left"
	HandleRight       Handle = "right"
	HandleTopLeft     Handle = "topLeft"
	HandleTopRight    Handle = "topRight"
	HandleBottomLeft  Handle = "bottomLeft"
	HandleBottomRight Handle = "bottomRight"

	// HandleScale is the single vertical drag handle of cylindrical text.
	HandleScale Handle = "scale"

	// HandleRemove is the delete control drawn next to the resize handles.
	HandleRemove Handle = "remove"
)

// BoxHandles are the eight directional handles of a bounding box.
var BoxHandles = []Handle{
	HandleTop, HandleBottom, HandleLeft, HandleRight,
	HandleTopLeft, HandleTopRight, HandleBottomLeft, HandleBottomRight,
}

// handleSigns maps a handle to the sign applied to the x and y components
// of a drag delta when growing width and height.
var handleSigns = map[Handle][2]float64{
	HandleTop:         {0, 1},
	HandleBottom:      {0, -1},
	HandleLeft:        {-1, 0},
	HandleRight:       {1, 0},
	HandleTopLeft:     {-1, 1},
	HandleTopRight:    {1, 1},
	HandleBottomLeft:  {-1, -1},
	HandleBottomRight: {1, -1},
	HandleScale:       {0, 1},
}

// HandleSigns reports the width and height signs for h.
func HandleSigns(h Handle) (sx, sy float64, ok bool) {
	s, ok := handleSigns[h]
	return s[0], s[1], ok
}

// Resize computes the size produced by dragging handle h by d from a
// resize that started at start. The result never drops below min.
func Resize(start Size, h Handle, d Vec2, min Size) (Size, bool) {
	sx, sy, ok := HandleSigns(h)
	if !ok {
		return start, false
	}
	next := Size{
		W: start.W + sx*d.X,
		H: start.H + sy*d.Y,
	}
	return next.Clamp(min), true
}

// HasHandle reports whether e exposes h. The remove control is always present.
func HasHandle(e Entity, h Handle) bool {
	if h == HandleRemove {
		return true
	}
	for _, eh := range e.Handles() {
		if eh == h {
			return true
		}
	}
	return false
}

// HandlePos is a handle placed in world space for the renderer.
type HandlePos struct {
	Handle   Handle `json:"handle"`
	Position Vec3   `json:"position"`
}

// removeOffset pushes the remove control outside the top-right corner.
const removeOffset = 0.04

// handleAnchor returns the handle's location in the entity's unrotated local
// frame, centered on the entity.
func handleAnchor(h Handle, s Size) Vec2 {
	hw, hh := s.W/2, s.H/2
	switch h {
	case HandleTop, HandleScale:
		return Vec2{0, hh}
	case HandleBottom:
		return Vec2{0, -hh}
	case HandleLeft:
		return Vec2{-hw, 0}
	case HandleRight:
		return Vec2{hw, 0}
	case HandleTopLeft:
		return Vec2{-hw, hh}
	case HandleTopRight:
		return Vec2{hw, hh}
	case HandleBottomLeft:
		return Vec2{-hw, -hh}
	case HandleBottomRight:
		return Vec2{hw, -hh}
	case HandleRemove:
		return Vec2{hw + removeOffset, hh + removeOffset}
	}
	return Vec2{}
}

// HandlePositions places every handle of e, plus the remove control, in
// world space, following the entity's rotation when it has one.
func HandlePositions(e Entity) []HandlePos {
	m := entityTransform(e)
	pos := e.Position()
	size := e.Size()

	handles := append(append([]Handle(nil), e.Handles()...), HandleRemove)
	out := make([]HandlePos, 0, len(handles))
	for _, h := range handles {
		a := handleAnchor(h, size)
		x, y := m.TransformPoint(a.X, a.Y)
		out = append(out, HandlePos{Handle: h, Position: Vec3{X: x, Y: y, Z: pos.Z}})
	}
	return out
}

// entityTransform maps an entity's centered local frame into world XY.
func entityTransform(e Entity) Matrix2D {
	pos := e.Position()
	m := Translate(pos.X, pos.Y)
	if img, ok := e.(*ImageEntity); ok && img.Rotation != 0 {
		m = m.Multiply(RotateDegrees(img.Rotation))
	}
	return m
}
