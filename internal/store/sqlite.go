package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/inamate/keepsake/internal/document"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS designs (
	id         TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	document   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLite stores designs in a local database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context, id string) (*Record, error) {
	rec := Record{ID: id}
	var data string
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT version, document, updated_at FROM designs WHERE id = ?`, id,
	).Scan(&rec.Version, &data, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load design: %w", err)
	}
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	if rec.Snapshot, err = decode([]byte(data)); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLite) Save(ctx context.Context, id string, snap *document.Snapshot) (int, error) {
	data, err := encode(snap)
	if err != nil {
		return 0, err
	}
	var version int
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO designs (id, version, document, updated_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET version = designs.version + 1, document = excluded.document, updated_at = excluded.updated_at
		RETURNING version`, id, string(data), time.Now().UnixNano(),
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("save design: %w", err)
	}
	return version, nil
}

func (s *SQLite) Update(ctx context.Context, id string, version int, snap *document.Snapshot) (int, error) {
	data, err := encode(snap)
	if err != nil {
		return 0, err
	}
	now := time.Now().UnixNano()
	var row *sql.Row
	if version == 0 {
		row = s.db.QueryRowContext(ctx, `
			INSERT INTO designs (id, version, document, updated_at)
			VALUES (?, 1, ?, ?)
			ON CONFLICT (id) DO NOTHING
			RETURNING version`, id, string(data), now)
	} else {
		row = s.db.QueryRowContext(ctx, `
			UPDATE designs SET version = version + 1, document = ?, updated_at = ?
			WHERE id = ? AND version = ?
			RETURNING version`, string(data), now, id, version)
	}
	var next int
	if err := row.Scan(&next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrVersionConflict
		}
		return 0, fmt.Errorf("update design: %w", err)
	}
	return next, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM designs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete design: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete design: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, version, updated_at FROM designs ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var updated int64
		if err := rows.Scan(&sum.ID, &sum.Version, &updated); err != nil {
			return nil, fmt.Errorf("list designs: %w", err)
		}
		sum.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
