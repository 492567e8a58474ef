package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inamate/keepsake/internal/document"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS designs (
	id         TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores designs in a designs table.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects and creates the schema if needed.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Load(ctx context.Context, id string) (*Record, error) {
	rec := Record{ID: id}
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT version, document, updated_at FROM designs WHERE id = $1`, id,
	).Scan(&rec.Version, &data, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load design: %w", err)
	}
	if rec.Snapshot, err = decode(data); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *Postgres) Save(ctx context.Context, id string, snap *document.Snapshot) (int, error) {
	data, err := encode(snap)
	if err != nil {
		return 0, err
	}
	var version int
	err = p.pool.QueryRow(ctx, `
		INSERT INTO designs (id, version, document, updated_at)
		VALUES ($1, 1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET version = designs.version + 1, document = EXCLUDED.document, updated_at = now()
		RETURNING version`, id, data,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("save design: %w", err)
	}
	return version, nil
}

func (p *Postgres) Update(ctx context.Context, id string, version int, snap *document.Snapshot) (int, error) {
	data, err := encode(snap)
	if err != nil {
		return 0, err
	}
	var row pgx.Row
	if version == 0 {
		row = p.pool.QueryRow(ctx, `
			INSERT INTO designs (id, version, document, updated_at)
			VALUES ($1, 1, $2, now())
			ON CONFLICT (id) DO NOTHING
			RETURNING version`, id, data)
	} else {
		row = p.pool.QueryRow(ctx, `
			UPDATE designs SET version = version + 1, document = $3, updated_at = now()
			WHERE id = $1 AND version = $2
			RETURNING version`, id, version, data)
	}
	var next int
	if err := row.Scan(&next); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVersionConflict
		}
		return 0, fmt.Errorf("update design: %w", err)
	}
	return next, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM designs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete design: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]Summary, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, version, updated_at FROM designs ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var s Summary
		err := row.Scan(&s.ID, &s.Version, &s.UpdatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	return out, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
