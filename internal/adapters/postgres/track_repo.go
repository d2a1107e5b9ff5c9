package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/racemap/internal/core/domain"
)

// TrackRepo implements ports.TrackRepository on the tracks table.
type TrackRepo struct {
	db *DB
}

func NewTrackRepo(db *DB) *TrackRepo { return &TrackRepo{db: db} }

// Fetch returns the stored content for path. A missing row is an
// *domain.IOError wrapping pgx.ErrNoRows.
func (r *TrackRepo) Fetch(ctx context.Context, path string) (string, error) {
	var content string
	err := r.db.Pool.QueryRow(ctx, `SELECT content FROM tracks WHERE path = $1`, path).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &domain.IOError{Path: path, Err: err}
		}
		return "", &domain.IOError{Path: path, Err: fmt.Errorf("query track: %w", err)}
	}
	return content, nil
}

func (r *TrackRepo) Upsert(ctx context.Context, path, content string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO tracks (path, content, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (path) DO UPDATE
		SET content = EXCLUDED.content, updated_at = now()
	`, path, content)
	return err
}

// UpsertBatch stores several track files in one round trip.
func (r *TrackRepo) UpsertBatch(ctx context.Context, files map[string]string) error {
	batch := &pgx.Batch{}
	for path, content := range files {
		batch.Queue(`
			INSERT INTO tracks (path, content, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (path) DO UPDATE
			SET content = EXCLUDED.content, updated_at = now()
		`, path, content)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range files {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

func (r *TrackRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT path FROM tracks ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return paths, nil
}
