// Package store persists design snapshots.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/inamate/keepsake/internal/document"
)

var (
	ErrNotFound = errors.New("design not found")
	// ErrVersionConflict means the stored design moved past the version the
	// caller last saw.
	ErrVersionConflict = errors.New("design version conflict")
)

// Record is a stored design. Version increases by one on every save.
type Record struct {
	ID        string             `json:"id"`
	Version   int                `json:"version"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Snapshot  *document.Snapshot `json:"document"`
}

// Summary describes a design without its document.
type Summary struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is the persistence collaborator for designs. Implementations are
// safe for concurrent use.
type Store interface {
	Load(ctx context.Context, id string) (*Record, error)
	// Save creates or replaces the design and returns the new version.
	Save(ctx context.Context, id string, snap *document.Snapshot) (int, error)
	// Update saves only when the stored version still equals version; zero
	// means the design must not exist yet. It returns ErrVersionConflict
	// otherwise.
	Update(ctx context.Context, id string, version int, snap *document.Snapshot) (int, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Summary, error)
	Close() error
}

// Open picks an implementation from the URL scheme: postgres:// and
// postgresql:// use Postgres, file: and bare paths use SQLite.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		s, err := OpenPostgres(ctx, url)
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(url, "file:"), url != "" && !strings.Contains(url, "://"):
		s, err := OpenSQLite(ctx, strings.TrimPrefix(url, "file:"))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported database url %q", url)
}

// Describe renders a database URL for logs: credentials and query
// parameters are dropped.
func Describe(dbURL string) string {
	if !strings.Contains(dbURL, "://") {
		return "sqlite:" + strings.TrimPrefix(dbURL, "file:")
	}
	u, err := url.Parse(dbURL)
	if err != nil {
		return "unparseable database url"
	}
	return u.Scheme + "://" + u.Host + u.Path
}

func encode(snap *document.Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, errors.New("nil snapshot")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*document.Snapshot, error) {
	var snap document.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
