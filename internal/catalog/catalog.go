// Package catalog lists the base objects a design can be placed on.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inamate/keepsake/internal/engine"
)

//go:embed bases.yaml
var defaultCatalog []byte

var ErrUnknownBase = errors.New("unknown base object")

// Base is one catalog entry.
type Base struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Kind        string  `yaml:"kind" json:"kind"`
	Width       float64 `yaml:"width" json:"width"`
	Height      float64 `yaml:"height" json:"height"`
	Thickness   float64 `yaml:"thickness" json:"thickness"`
	Cylindrical bool    `yaml:"cylindrical" json:"cylindrical,omitempty"`
}

// Object converts the entry to the engine's base object.
func (b Base) Object() engine.BaseObject {
	return engine.BaseObject{
		ID:          b.ID,
		Name:        b.Name,
		Width:       b.Width,
		Height:      b.Height,
		Thickness:   b.Thickness,
		Cylindrical: b.Cylindrical,
	}
}

type file struct {
	Bases []Base `yaml:"bases"`
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	bases []Base
	byID  map[string]Base
}

// Load reads the catalog from path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Bases) == 0 {
		return nil, errors.New("catalog has no base objects")
	}

	c := &Catalog{byID: make(map[string]Base, len(f.Bases))}
	for _, b := range f.Bases {
		if b.ID == "" {
			return nil, errors.New("catalog entry without id")
		}
		if _, dup := c.byID[b.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", b.ID)
		}
		if b.Thickness <= 0 {
			return nil, fmt.Errorf("catalog entry %q: thickness must be positive", b.ID)
		}
		c.byID[b.ID] = b
		c.bases = append(c.bases, b)
	}
	return c, nil
}

// Lookup returns the entry with the given id.
func (c *Catalog) Lookup(id string) (Base, error) {
	b, ok := c.byID[id]
	if !ok {
		return Base{}, fmt.Errorf("%w: %s", ErrUnknownBase, id)
	}
	return b, nil
}

// Bases returns every entry in file order.
func (c *Catalog) Bases() []Base {
	return append([]Base(nil), c.bases...)
}

// Default is the first entry, used for new designs.
func (c *Catalog) Default() Base {
	return c.bases[0]
}
