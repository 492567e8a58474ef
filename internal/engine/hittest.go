package engine

// handleHitRadius is how close, in scene units, a point must be to a handle
// to grab it.
const handleHitRadius = 0.02

// HitTest resolves a point on the base object's face plane to a pointer
// target, for renderers that report coordinates instead of tagged events.
// Handles of the selected entity win, then entities front to back; anything
// else is the background.
func (s *Scene) HitTest(p Vec2) Target {
	if id, ok := s.machine.Selected(); ok && s.machine.State() != StateEditing {
		if e, ok := s.Entity(id); ok && s.layers.IsVisible(LayerID(e.Kind(), id)) {
			for _, h := range HandlePositions(e) {
				if h.Position.XY().Sub(p).Len() <= handleHitRadius {
					return Target{Type: TargetHandle, Kind: e.Kind(), ID: id, Handle: h.Handle}
				}
			}
		}
	}

	// Traverse in reverse order (front to back) to get topmost hit
	order := s.layers.Order()
	for i := len(order) - 1; i >= 0; i-- {
		layer := order[i]
		if !s.layers.IsVisible(layer.ID) {
			continue
		}
		e, ok := s.Entity(layer.EntityID)
		if !ok {
			continue
		}
		if s.contains(e, p) {
			return Target{Type: TargetEntity, Kind: e.Kind(), ID: e.ID()}
		}
	}
	return Target{Type: TargetBackground}
}

// contains tests p against the entity's footprint in its own local frame.
func (s *Scene) contains(e Entity, p Vec2) bool {
	lx, ly := entityTransform(e).Invert().TransformPoint(p.X, p.Y)
	size := e.Size()

	f, ok := e.(*FrameEntity)
	if !ok {
		return abs(lx) <= size.W/2 && abs(ly) <= size.H/2
	}

	g := s.frameGeometry(f)
	if g.IsEmpty() {
		return false
	}
	round := f.Shape == ShapeCircle || f.Shape == ShapeOval
	inOuter := insideShape(lx, ly, g.OuterHalf, round)
	inHole := g.HoleHalf.X > 0 && g.HoleHalf.Y > 0 && insideShape(lx, ly, g.HoleHalf, round)
	return inOuter && !inHole
}

func insideShape(x, y float64, half Vec2, round bool) bool {
	if half.X <= 0 || half.Y <= 0 {
		return false
	}
	if round {
		nx, ny := x/half.X, y/half.Y
		return nx*nx+ny*ny <= 1
	}
	return abs(x) <= half.X && abs(y) <= half.Y
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
