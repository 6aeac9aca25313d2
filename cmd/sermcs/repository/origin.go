package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/libnare/sermcs/cmd/sermcs/models"
	"github.com/libnare/sermcs/common/db"
)

// ErrNoMatch means no media row carries the presented access key
var ErrNoMatch = errors.New("no media record matches key")

// ErrMultipleMatches means the store violated key uniqueness
var ErrMultipleMatches = errors.New("multiple media records match key")

// OriginRepository handles database reads for media metadata
type OriginRepository struct {
	db *db.DB
}

// NewOriginRepository creates a new origin repository
func NewOriginRepository(db *db.DB) *OriginRepository {
	return &OriginRepository{db: db}
}

// FindByAccessKey returns the single record whose primary, thumbnail, or
// webpublic access key equals key. Zero rows is ErrNoMatch; more than one
// row is ErrMultipleMatches (the unique indexes should make that
// impossible, but the caller must not guess which row was meant).
func (r *OriginRepository) FindByAccessKey(ctx context.Context, key string) (*models.OriginRecord, error) {
	query := `
		SELECT url, type, access_key, thumbnail_access_key, webpublic_access_key
		FROM media
		WHERE access_key = $1
		   OR thumbnail_access_key = $1
		   OR webpublic_access_key = $1
		LIMIT 2
	`

	rows, err := r.db.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("query media record: %w", err)
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.OriginRecord, error) {
		rec := &models.OriginRecord{}
		err := row.Scan(
			&rec.URL,
			&rec.ContentType,
			&rec.AccessKey,
			&rec.ThumbnailAccessKey,
			&rec.WebPublicAccessKey,
		)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan media record: %w", err)
	}

	switch len(records) {
	case 0:
		return nil, ErrNoMatch
	case 1:
		return records[0], nil
	default:
		return nil, ErrMultipleMatches
	}
}
