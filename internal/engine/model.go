package engine

import (
	"fmt"
	"slices"
)

// Model is the entity store. It owns every placed entity and keeps each
// entity's z coordinate in sync with the base thickness and its index among
// siblings of the same kind. Siblings stack in creation order until Restack
// reorders them.
type Model struct {
	entities      map[string]Entity
	order         map[Kind][]string
	baseThickness float64
	newID         func(Kind) string
}

// NewModel creates an empty model for a base object of the given thickness.
func NewModel(baseThickness float64, newID func(Kind) string) *Model {
	return &Model{
		entities:      make(map[string]Entity),
		order:         make(map[Kind][]string),
		baseThickness: baseThickness,
		newID:         newID,
	}
}

// Create adds a default entity of kind, applies init over it and returns the
// new id.
func (m *Model) Create(kind Kind, init Patch) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	e, err := newEntity(kind, m.newID(kind))
	if err != nil {
		return "", err
	}
	e.apply(init)
	if err := m.Insert(e); err != nil {
		return "", err
	}
	return e.ID(), nil
}

// Insert adds an already constructed entity, used when restoring snapshots.
func (m *Model) Insert(e Entity) error {
	if _, exists := m.entities[e.ID()]; exists {
		return fmt.Errorf("duplicate entity id %q", e.ID())
	}
	// Re-apply the size so restored records obey the minimum extents.
	e.SetSize(e.Size())
	m.entities[e.ID()] = e
	m.order[e.Kind()] = append(m.order[e.Kind()], e.ID())
	m.restack(e.Kind())
	return nil
}

// Update applies p to the entity with the given id.
func (m *Model) Update(id string, p Patch) error {
	e, ok := m.entities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.apply(p)
	m.restack(e.Kind())
	return nil
}

// Remove deletes the entity and restacks its remaining siblings.
func (m *Model) Remove(id string) error {
	e, ok := m.entities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.entities, id)
	kind := e.Kind()
	m.order[kind] = slices.DeleteFunc(m.order[kind], func(s string) bool { return s == id })
	m.restack(kind)
	return nil
}

// Get returns the entity with the given id.
func (m *Model) Get(id string) (Entity, error) {
	e, ok := m.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// Len returns the number of entities.
func (m *Model) Len() int {
	return len(m.entities)
}

// ByKind returns the entities of kind in stacking order, back to front.
func (m *Model) ByKind(kind Kind) []Entity {
	ids := m.order[kind]
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.entities[id])
	}
	return out
}

// Restack orders the entities of kind by ids, the kind's slice of the layer
// order, and recomputes their z. Entities missing from ids keep their
// relative order after the listed ones.
func (m *Model) Restack(kind Kind, ids []string) {
	next := make([]string, 0, len(m.order[kind]))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if e, ok := m.entities[id]; ok && e.Kind() == kind && !seen[id] {
			next = append(next, id)
			seen[id] = true
		}
	}
	for _, id := range m.order[kind] {
		if !seen[id] {
			next = append(next, id)
		}
	}
	m.order[kind] = next
	m.restack(kind)
}

// BaseThickness returns the thickness of the current base object.
func (m *Model) BaseThickness() float64 {
	return m.baseThickness
}

// SetBaseThickness switches the base object and restacks every entity.
func (m *Model) SetBaseThickness(t float64) {
	m.baseThickness = t
	for _, k := range Kinds {
		m.restack(k)
	}
}

// Clear removes every entity.
func (m *Model) Clear() {
	clear(m.entities)
	clear(m.order)
}

func (m *Model) restack(kind Kind) {
	for i, id := range m.order[kind] {
		e := m.entities[id]
		pos := e.Position()
		pos.Z = ZOffset(kind, m.baseThickness, i)
		e.SetPosition(pos)
	}
}
