// Package design serves stored designs over REST.
package design

import (
	"context"
	"errors"
	"fmt"

	"github.com/inamate/keepsake/internal/catalog"
	"github.com/inamate/keepsake/internal/document"
	"github.com/inamate/keepsake/internal/engine"
	"github.com/inamate/keepsake/internal/store"
	"github.com/inamate/keepsake/internal/typeid"
)

var (
	ErrNotFound      = errors.New("design not found")
	ErrInvalidDesign = errors.New("invalid design")
	ErrDesignOpen    = errors.New("design is open in an editing session")
)

// Sessions reports which designs are being edited live.
type Sessions interface {
	Active(designID string) bool
}

type Service struct {
	store    store.Store
	catalog  *catalog.Catalog
	sessions Sessions
}

// NewService creates the service. sessions may be nil when no live editing
// runs alongside.
func NewService(st store.Store, cat *catalog.Catalog, sessions Sessions) *Service {
	return &Service{store: st, catalog: cat, sessions: sessions}
}

func (s *Service) Get(ctx context.Context, id string) (*store.Record, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	rec, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context) ([]store.Summary, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	if list == nil {
		list = []store.Summary{}
	}
	return list, nil
}

// Create stores an empty design on baseID, or the catalog default when
// baseID is empty.
func (s *Service) Create(ctx context.Context, baseID string) (*store.Record, error) {
	b := s.catalog.Default()
	if baseID != "" {
		var err error
		if b, err = s.catalog.Lookup(baseID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDesign, err)
		}
	}
	snap := document.NewEmptySnapshot(document.Base{ID: b.ID, Thickness: b.Thickness, Cylindrical: b.Cylindrical})
	id := typeid.NewDesignID()
	v, err := s.store.Save(ctx, id, snap)
	if err != nil {
		return nil, fmt.Errorf("create design: %w", err)
	}
	return &store.Record{ID: id, Version: v, Snapshot: snap}, nil
}

// Put replaces a design. The snapshot is loaded into an engine and saved as
// the engine exports it, so sizes, z offsets and layers are normalized.
// A session opened between the Active check and the save does not lose the
// write silently: its own saves are version-checked and fail with
// store.ErrVersionConflict.
func (s *Service) Put(ctx context.Context, id string, snap *document.Snapshot) (*store.Record, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if s.sessions != nil && s.sessions.Active(id) {
		return nil, ErrDesignOpen
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: missing document", ErrInvalidDesign)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDesign, err)
	}

	eng, err := s.load(snap)
	if err != nil {
		return nil, err
	}
	normalized := eng.Snapshot()

	v, err := s.store.Save(ctx, id, normalized)
	if err != nil {
		return nil, fmt.Errorf("save design: %w", err)
	}
	return &store.Record{ID: id, Version: v, Snapshot: normalized}, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if s.sessions != nil && s.sessions.Active(id) {
		return ErrDesignOpen
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// Frame composes the stored design's draw list.
func (s *Service) Frame(ctx context.Context, id string) (engine.Frame, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return engine.Frame{}, err
	}
	eng, err := s.load(rec.Snapshot)
	if err != nil {
		return engine.Frame{}, err
	}
	return eng.Scene().Frame(), nil
}

func (s *Service) Bases() []catalog.Base {
	return s.catalog.Bases()
}

func (s *Service) load(snap *document.Snapshot) (*engine.Engine, error) {
	b, err := s.catalog.Lookup(snap.Base.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDesign, err)
	}
	eng := engine.NewEngine(engine.WithBase(b.Object()))
	eng.LoadSnapshot(snap)
	return eng, nil
}

func checkID(id string) error {
	if err := typeid.Validate(id, typeid.PrefixDesign); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDesign, err)
	}
	return nil
}

func mapStoreError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
