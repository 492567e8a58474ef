package document

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// CurrentVersion is the snapshot format version written by Save.
const CurrentVersion = 1

// Snapshot is the plain serializable form of a design exchanged with the
// persistence collaborator.
type Snapshot struct {
	Version       int      `json:"version"`
	Base          Base     `json:"base"`
	Texts         []Text   `json:"texts"`
	Images        []Image  `json:"images"`
	Frames        []Frame  `json:"frames"`
	LayerOrder    []Layer  `json:"layerOrder"`
	VisibleLayers []string `json:"visibleLayers"`
}

// Base is the product the design is composited onto.
type Base struct {
	ID          string  `json:"id"`
	Thickness   float64 `json:"thickness"`
	Cylindrical bool    `json:"cylindrical,omitempty"`
}

type Text struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Font        string     `json:"font"`
	Color       string     `json:"color"`
	Position    [3]float64 `json:"position"`
	Width       float64    `json:"width"`
	FontSize    float64    `json:"fontSize"`
	Cylindrical bool       `json:"cylindrical,omitempty"`
}

type Image struct {
	ID       string     `json:"id"`
	Src      string     `json:"src"`
	Flip     bool       `json:"flip,omitempty"`
	Position [3]float64 `json:"position"`
	Rotation float64    `json:"rotation"`
	Size     [2]float64 `json:"size"`
}

type ShapeType string

const (
	ShapeCircle    ShapeType = "circle"
	ShapeRectangle ShapeType = "rectangle"
	ShapeSquare    ShapeType = "square"
	ShapeOval      ShapeType = "oval"
)

type Frame struct {
	ID              string     `json:"id"`
	Shape           ShapeType  `json:"shape"`
	Position        [3]float64 `json:"position"`
	Size            [2]float64 `json:"size"`
	FrameWidth      float64    `json:"frameWidth"`
	BorderThickness float64    `json:"borderThickness"`
	Color           string     `json:"color,omitempty"`
}

// Layer is a draw-order slot.
type Layer struct {
	LayerID    string `json:"layerId"`
	EntityKind string `json:"entityKind"`
	EntityID   string `json:"entityId"`
}

// NewEmptySnapshot creates a design with no entities on the given base.
func NewEmptySnapshot(base Base) *Snapshot {
	return &Snapshot{
		Version:       CurrentVersion,
		Base:          base,
		Texts:         []Text{},
		Images:        []Image{},
		Frames:        []Frame{},
		LayerOrder:    []Layer{},
		VisibleLayers: []string{},
	}
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (s *Snapshot) Clone() (*Snapshot, error) {
	var out Snapshot
	if err := copier.CopyWithOption(&out, s, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone snapshot: %w", err)
	}
	return &out, nil
}

// Validate checks structural integrity that does not need the engine:
// unique entity ids and layer entries that point at known entities.
func (s *Snapshot) Validate() error {
	ids := make(map[string]string)
	add := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%s without id", kind)
		}
		if prev, ok := ids[id]; ok {
			return fmt.Errorf("duplicate id %q (%s and %s)", id, prev, kind)
		}
		ids[id] = kind
		return nil
	}
	for _, t := range s.Texts {
		if err := add("text", t.ID); err != nil {
			return err
		}
	}
	for _, i := range s.Images {
		if err := add("image", i.ID); err != nil {
			return err
		}
	}
	for _, f := range s.Frames {
		if err := add("frame", f.ID); err != nil {
			return err
		}
	}
	for _, l := range s.LayerOrder {
		kind, ok := ids[l.EntityID]
		if !ok {
			return fmt.Errorf("layer %q references unknown entity %q", l.LayerID, l.EntityID)
		}
		if kind != l.EntityKind {
			return fmt.Errorf("layer %q has kind %q, entity is %q", l.LayerID, l.EntityKind, kind)
		}
	}
	return nil
}
