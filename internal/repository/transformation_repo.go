// Package repository provides SQLite/libsql persistence for transformation
// history.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/streamwisdom/streamwisdom-api/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// SQLiteTransformationRepository stores transformation history in
// SQLite/libsql.
type SQLiteTransformationRepository struct {
	db *sql.DB
}

func NewSQLiteTransformationRepository(db *sql.DB) *SQLiteTransformationRepository {
	return &SQLiteTransformationRepository{db: db}
}

// Save upserts by original_url: re-transforming a page replaces its history
// entry (fresh uuid, fresh content) instead of stacking duplicates.
func (r *SQLiteTransformationRepository) Save(ctx context.Context, t *models.Transformation) error {
	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = ulid.Make().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.ImagesJSON == "" {
		t.ImagesJSON = "[]"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transformations (
			id, uuid, title, original_url, transformed_content, complexity,
			model, image_count, images_json, original_length,
			transformed_length, compression_ratio, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(original_url) DO UPDATE SET
			uuid = excluded.uuid,
			title = excluded.title,
			transformed_content = excluded.transformed_content,
			complexity = excluded.complexity,
			model = excluded.model,
			image_count = excluded.image_count,
			images_json = excluded.images_json,
			original_length = excluded.original_length,
			transformed_length = excluded.transformed_length,
			compression_ratio = excluded.compression_ratio,
			updated_at = excluded.updated_at
	`,
		t.ID,
		t.UUID,
		t.Title,
		t.OriginalURL,
		t.TransformedContent,
		t.Complexity,
		t.Model,
		t.ImageCount,
		t.ImagesJSON,
		t.OriginalLength,
		t.TransformedLength,
		t.CompressionRatio,
		t.CreatedAt.Format(time.RFC3339),
		t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save transformation: %w", err)
	}
	return nil
}

const transformationColumns = `id, uuid, title, original_url, transformed_content, complexity,
	model, image_count, images_json, original_length, transformed_length,
	compression_ratio, created_at, updated_at`

// GetByUUID returns one transformation by its public share id.
func (r *SQLiteTransformationRepository) GetByUUID(ctx context.Context, uuid string) (*models.Transformation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transformationColumns+` FROM transformations WHERE uuid = ?`, uuid)
	t, err := scanTransformation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transformation: %w", err)
	}
	return t, nil
}

// GetByURL returns the stored transformation for a normalized URL.
func (r *SQLiteTransformationRepository) GetByURL(ctx context.Context, normalizedURL string) (*models.Transformation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transformationColumns+` FROM transformations WHERE original_url = ?`, normalizedURL)
	t, err := scanTransformation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transformation: %w", err)
	}
	return t, nil
}

// List returns transformations newest first.
func (r *SQLiteTransformationRepository) List(ctx context.Context, limit, offset int) ([]*models.Transformation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transformationColumns+` FROM transformations
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transformations: %w", err)
	}
	defer rows.Close()

	var out []*models.Transformation
	for rows.Next() {
		t, err := scanTransformation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transformation: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Count returns the total number of stored transformations.
func (r *SQLiteTransformationRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transformations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transformations: %w", err)
	}
	return n, nil
}

// DeleteByUUID removes one transformation. Deleting a missing row returns
// ErrNotFound so handlers can 404.
func (r *SQLiteTransformationRepository) DeleteByUUID(ctx context.Context, uuid string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transformations WHERE uuid = ?`, uuid)
	if err != nil {
		return fmt.Errorf("failed to delete transformation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes rows created before cutoff and returns how many
// went away. Used by the retention cleanup job.
func (r *SQLiteTransformationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transformations WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old transformations: %w", err)
	}
	return res.RowsAffected()
}

// CompressionStats aggregates ratio metrics across the stored history.
type CompressionStats struct {
	Count        int     `json:"count"`
	AverageRatio float64 `json:"averageRatio"`
	MinRatio     float64 `json:"minRatio"`
	MaxRatio     float64 `json:"maxRatio"`
}

// Stats returns aggregate compression metrics, zero-valued when the table
// is empty.
func (r *SQLiteTransformationRepository) Stats(ctx context.Context) (*CompressionStats, error) {
	var s CompressionStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(compression_ratio), 0),
		       COALESCE(MIN(compression_ratio), 0),
		       COALESCE(MAX(compression_ratio), 0)
		FROM transformations
	`).Scan(&s.Count, &s.AverageRatio, &s.MinRatio, &s.MaxRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	return &s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransformation(row rowScanner) (*models.Transformation, error) {
	var t models.Transformation
	var createdAt, updatedAt string
	if err := row.Scan(
		&t.ID, &t.UUID, &t.Title, &t.OriginalURL, &t.TransformedContent,
		&t.Complexity, &t.Model, &t.ImageCount, &t.ImagesJSON,
		&t.OriginalLength, &t.TransformedLength, &t.CompressionRatio,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &t, nil
}
