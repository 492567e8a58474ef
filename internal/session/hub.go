// Package session runs live websocket editing sessions. Each open design is
// owned by exactly one Session whose goroutine serializes every input.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/keepsake/internal/catalog"
	"github.com/inamate/keepsake/internal/document"
	"github.com/inamate/keepsake/internal/engine"
	"github.com/inamate/keepsake/internal/store"
	"github.com/inamate/keepsake/internal/typeid"
)

var (
	ErrSessionBusy = errors.New("design is open in another session")
	ErrHubStopped  = errors.New("session hub stopped")
)

// Hub tracks the live sessions, one per design.
type Hub struct {
	store    store.Store
	catalog  *catalog.Catalog
	images   engine.ImageResolver
	autosave time.Duration

	mu       sync.Mutex
	sessions map[string]*Session // designID -> session
	stopped  bool
}

// NewHub creates a hub. images may be nil; autosave of zero disables
// periodic saves.
func NewHub(st store.Store, cat *catalog.Catalog, images engine.ImageResolver, autosave time.Duration) *Hub {
	return &Hub{
		store:    st,
		catalog:  cat,
		images:   images,
		autosave: autosave,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session of userID on designID, loading it from the store or
// creating an empty design on the default base when none exists yet.
func (h *Hub) Open(ctx context.Context, designID, userID string, out Sender) (*Session, error) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil, ErrHubStopped
	}
	if _, ok := h.sessions[designID]; ok {
		h.mu.Unlock()
		return nil, ErrSessionBusy
	}
	// Reserve the slot while loading.
	h.sessions[designID] = nil
	h.mu.Unlock()

	s, err := h.start(ctx, designID, userID, out)

	h.mu.Lock()
	if err != nil {
		delete(h.sessions, designID)
		h.mu.Unlock()
		return nil, err
	}
	h.sessions[designID] = s
	stopped := h.stopped
	h.mu.Unlock()

	if stopped {
		s.Close()
		return nil, ErrHubStopped
	}
	return s, nil
}

func (h *Hub) start(ctx context.Context, designID, userID string, out Sender) (*Session, error) {
	snap, version, err := h.load(ctx, designID)
	if err != nil {
		return nil, err
	}

	base := h.catalog.Default()
	if b, err := h.catalog.Lookup(snap.Base.ID); err == nil {
		base = b
	}
	opts := []engine.Option{engine.WithBase(base.Object())}
	if h.images != nil {
		opts = append(opts, engine.WithImageResolver(h.images))
	}
	eng := engine.NewEngine(opts...)
	eng.LoadSnapshot(snap)

	s := newSession(h, typeid.NewSessionID(), designID, userID, eng, version, out)
	go s.run(h.autosave)

	slog.Info("session opened", "session", s.ID, "design", designID, "user", userID, "version", version)
	return s, nil
}

func (h *Hub) load(ctx context.Context, designID string) (*document.Snapshot, int, error) {
	rec, err := h.store.Load(ctx, designID)
	if errors.Is(err, store.ErrNotFound) {
		b := h.catalog.Default()
		return document.NewEmptySnapshot(document.Base{
			ID:          b.ID,
			Thickness:   b.Thickness,
			Cylindrical: b.Cylindrical,
		}), 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load design %s: %w", designID, err)
	}
	return rec.Snapshot, rec.Version, nil
}

// Active reports whether designID has a live session.
func (h *Hub) Active(designID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[designID]
	return ok
}

func (h *Hub) release(s *Session) {
	h.mu.Lock()
	if cur, ok := h.sessions[s.DesignID]; ok && cur == s {
		delete(h.sessions, s.DesignID)
		slog.Info("session closed", "session", s.ID, "design", s.DesignID, "user", s.UserID)
	}
	h.mu.Unlock()
}

// Stop closes every live session, saving designs with unsaved changes, and
// refuses new ones.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	live := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if s != nil {
			live = append(live, s)
		}
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range live {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
}
