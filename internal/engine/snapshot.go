package engine

import (
	"log/slog"

	"github.com/inamate/keepsake/internal/document"
)

// Snapshot exports the design. Interaction state is not part of it.
func (s *Scene) Snapshot() *document.Snapshot {
	snap := document.NewEmptySnapshot(document.Base{
		ID:          s.base.ID,
		Thickness:   s.base.Thickness,
		Cylindrical: s.base.Cylindrical,
	})

	for _, e := range s.model.ByKind(KindText) {
		t := e.(*TextEntity)
		snap.Texts = append(snap.Texts, document.Text{
			ID:          t.ID(),
			Text:        t.Text,
			Font:        t.Font,
			Color:       t.Color,
			Position:    vec3Array(t.Pos),
			Width:       t.Width,
			FontSize:    t.FontSize,
			Cylindrical: t.Cylindrical,
		})
	}
	for _, e := range s.model.ByKind(KindImage) {
		i := e.(*ImageEntity)
		snap.Images = append(snap.Images, document.Image{
			ID:       i.ID(),
			Src:      i.Src,
			Flip:     i.Flip,
			Position: vec3Array(i.Pos),
			Rotation: i.Rotation,
			Size:     [2]float64{i.W, i.H},
		})
	}
	for _, e := range s.model.ByKind(KindFrame) {
		f := e.(*FrameEntity)
		snap.Frames = append(snap.Frames, document.Frame{
			ID:              f.ID(),
			Shape:           document.ShapeType(f.Shape),
			Position:        vec3Array(f.Pos),
			Size:            [2]float64{f.W, f.H},
			FrameWidth:      f.FrameWidth,
			BorderThickness: f.BorderThickness,
			Color:           f.Color,
		})
	}
	for _, l := range s.layers.Order() {
		snap.LayerOrder = append(snap.LayerOrder, document.Layer{
			LayerID:    l.ID,
			EntityKind: string(l.Kind),
			EntityID:   l.EntityID,
		})
	}
	snap.VisibleLayers = append(snap.VisibleLayers, s.layers.VisibleIDs()...)
	return snap
}

// Load replaces the design with snap. Records are repaired rather than
// rejected: sizes are clamped to the minimum extents, z is recomputed,
// duplicate or dangling layer entries are dropped and entities missing from
// the layer order are appended as visible layers.
func (s *Scene) Load(snap *document.Snapshot) {
	s.clear()

	base := s.base
	if snap.Base.ID != "" {
		base = BaseObject{ID: snap.Base.ID, Thickness: snap.Base.Thickness, Cylindrical: snap.Base.Cylindrical}
		if base.ID == s.base.ID {
			base.Name, base.Width, base.Height = s.base.Name, s.base.Width, s.base.Height
		}
	}
	s.base = base
	s.model.SetBaseThickness(base.Thickness)

	insert := func(e Entity) {
		if e.ID() == "" {
			slog.Warn("snapshot entity without id", "kind", e.Kind())
			return
		}
		if err := s.model.Insert(e); err != nil {
			slog.Warn("snapshot entity skipped", "id", e.ID(), "error", err)
		}
	}
	for _, r := range snap.Texts {
		t := NewTextEntity(r.ID)
		t.Text, t.Font, t.Color = r.Text, r.Font, r.Color
		t.Pos = arrayVec3(r.Position)
		t.Width, t.FontSize = r.Width, r.FontSize
		t.Cylindrical = r.Cylindrical
		insert(t)
	}
	for _, r := range snap.Images {
		i := NewImageEntity(r.ID)
		i.Src, i.Flip = r.Src, r.Flip
		i.Pos = arrayVec3(r.Position)
		i.Rotation = normalizeDegrees(r.Rotation)
		i.W, i.H = r.Size[0], r.Size[1]
		insert(i)
	}
	for _, r := range snap.Frames {
		f := NewFrameEntity(r.ID)
		f.Shape = ShapeKind(r.Shape)
		f.Pos = arrayVec3(r.Position)
		f.W, f.H = r.Size[0], r.Size[1]
		f.FrameWidth = max(MinFrameWidth, r.FrameWidth)
		f.BorderThickness = max(0, r.BorderThickness)
		if r.Color != "" {
			f.Color = r.Color
		}
		insert(f)
	}

	visible := make(map[string]bool, len(snap.VisibleLayers))
	for _, id := range snap.VisibleLayers {
		visible[id] = true
	}
	for _, l := range snap.LayerOrder {
		e, ok := s.Entity(l.EntityID)
		if !ok || string(e.Kind()) != l.EntityKind {
			slog.Warn("snapshot layer dropped", "layer", l.LayerID)
			continue
		}
		layer := Layer{ID: LayerID(e.Kind(), e.ID()), Kind: e.Kind(), EntityID: e.ID()}
		if s.layers.Index(layer.ID) >= 0 {
			continue
		}
		s.layers.Append(layer.Kind, layer.EntityID)
		if !visible[l.LayerID] && !visible[layer.ID] {
			s.layers.SetVisible(layer.ID, false)
		}
	}
	for _, k := range Kinds {
		for _, e := range s.model.ByKind(k) {
			if s.layers.Index(LayerID(k, e.ID())) < 0 {
				s.layers.Append(k, e.ID())
			}
		}
	}
	s.restack()
	s.touch()
}

func vec3Array(v Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func arrayVec3(a [3]float64) Vec3 {
	return Vec3{X: a[0], Y: a[1], Z: a[2]}
}
