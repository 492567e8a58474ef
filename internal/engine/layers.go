package engine

import (
	"fmt"
	"slices"
)

// Layer is one draw-order slot referencing exactly one entity.
type Layer struct {
	ID       string `json:"layerId"`
	Kind     Kind   `json:"entityKind"`
	EntityID string `json:"entityId"`
}

// LayerID derives the layer id of an entity.
func LayerID(kind Kind, entityID string) string {
	return string(kind) + "-" + entityID
}

// LayerIndex orders layers back to front and tracks which are visible.
// Hidden layers stay in the order so toggling visibility back restores them
// in place.
type LayerIndex struct {
	order   []Layer
	visible map[string]bool
}

func NewLayerIndex() *LayerIndex {
	return &LayerIndex{visible: make(map[string]bool)}
}

// Append adds a visible layer on top for the entity.
func (l *LayerIndex) Append(kind Kind, entityID string) Layer {
	layer := Layer{ID: LayerID(kind, entityID), Kind: kind, EntityID: entityID}
	if l.Index(layer.ID) >= 0 {
		return layer
	}
	l.order = append(l.order, layer)
	l.visible[layer.ID] = true
	return layer
}

// Remove deletes a layer. It reports whether the layer existed.
func (l *LayerIndex) Remove(layerID string) bool {
	i := l.Index(layerID)
	if i < 0 {
		return false
	}
	l.order = slices.Delete(l.order, i, i+1)
	delete(l.visible, layerID)
	return true
}

// Index returns the draw position of a layer, or -1.
func (l *LayerIndex) Index(layerID string) int {
	return slices.IndexFunc(l.order, func(x Layer) bool { return x.ID == layerID })
}

// Move places a layer at index, clamped to the valid range.
func (l *LayerIndex) Move(layerID string, index int) error {
	i := l.Index(layerID)
	if i < 0 {
		return fmt.Errorf("%w: layer %s", ErrNotFound, layerID)
	}
	index = max(0, min(index, len(l.order)-1))
	if index == i {
		return nil
	}
	layer := l.order[i]
	l.order = slices.Delete(l.order, i, i+1)
	l.order = slices.Insert(l.order, index, layer)
	return nil
}

// SetVisible toggles a layer's visibility.
func (l *LayerIndex) SetVisible(layerID string, visible bool) error {
	if l.Index(layerID) < 0 {
		return fmt.Errorf("%w: layer %s", ErrNotFound, layerID)
	}
	if visible {
		l.visible[layerID] = true
	} else {
		delete(l.visible, layerID)
	}
	return nil
}

func (l *LayerIndex) IsVisible(layerID string) bool {
	return l.visible[layerID]
}

// Order returns a copy of the layers, back to front.
func (l *LayerIndex) Order() []Layer {
	return slices.Clone(l.order)
}

// VisibleIDs returns the visible layer ids in draw order.
func (l *LayerIndex) VisibleIDs() []string {
	out := make([]string, 0, len(l.visible))
	for _, layer := range l.order {
		if l.visible[layer.ID] {
			out = append(out, layer.ID)
		}
	}
	return out
}

func (l *LayerIndex) Len() int {
	return len(l.order)
}

// Clear removes every layer.
func (l *LayerIndex) Clear() {
	l.order = nil
	clear(l.visible)
}

// Validate checks that every entity of m has exactly one layer and every
// layer references a live entity of the matching kind.
func (l *LayerIndex) Validate(m *Model) error {
	seen := make(map[string]bool, len(l.order))
	for _, layer := range l.order {
		if seen[layer.ID] {
			return fmt.Errorf("layer %s appears more than once", layer.ID)
		}
		seen[layer.ID] = true
		e, err := m.Get(layer.EntityID)
		if err != nil {
			return fmt.Errorf("layer %s: %w", layer.ID, err)
		}
		if e.Kind() != layer.Kind {
			return fmt.Errorf("layer %s: kind %s does not match entity kind %s", layer.ID, layer.Kind, e.Kind())
		}
	}
	if len(seen) != m.Len() {
		return fmt.Errorf("%d layers for %d entities", len(seen), m.Len())
	}
	for id := range l.visible {
		if !seen[id] {
			return fmt.Errorf("visible layer %s has no slot in the order", id)
		}
	}
	return nil
}
