package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/link-shortener/internal/database"
	"github.com/vadimbarashkov/link-shortener/internal/models"
)

type linkRecord struct {
	ID          int64      `db:"id"`
	ShortCode   string     `db:"short_code"`
	OriginalURL string     `db:"original_url"`
	CreatedAt   time.Time  `db:"created_at"`
	ExpiresAt   *time.Time `db:"expires_at"`
	Clicks      int64      `db:"clicks"`
	LastUsed    *time.Time `db:"last_used"`
	IsActive    bool       `db:"is_active"`
	Project     *string    `db:"project"`
	OwnerID     *int64     `db:"owner_id"`
}

func (r *linkRecord) ToLink() *models.Link {
	return &models.Link{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
		Clicks:      r.Clicks,
		LastUsed:    r.LastUsed,
		IsActive:    r.IsActive,
		Project:     r.Project,
		OwnerID:     r.OwnerID,
	}
}

func toLinks(recs []linkRecord) []*models.Link {
	links := make([]*models.Link, 0, len(recs))
	for i := range recs {
		links = append(links, recs[i].ToLink())
	}
	return links
}

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{
		db: db,
	}
}

func (r *LinkRepository) Create(ctx context.Context, link models.NewLink) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.Create"

	rec := new(linkRecord)
	query := `INSERT INTO links(short_code, original_url, expires_at, project, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		link.ShortCode, link.OriginalURL, link.ExpiresAt, link.Project, link.OwnerID)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

func (r *LinkRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.GetByShortCode"

	rec := new(linkRecord)
	query := `SELECT * FROM links WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// FindActiveByURL returns the newest active, unexpired link for the
// original URL and owner. A nil ownerID matches anonymous links only.
func (r *LinkRepository) FindActiveByURL(ctx context.Context, originalURL string, ownerID *int64, now time.Time) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.FindActiveByURL"

	rec := new(linkRecord)
	query := `SELECT * FROM links
		WHERE original_url = $1
			AND owner_id IS NOT DISTINCT FROM $2
			AND is_active
			AND (expires_at IS NULL OR expires_at > $3)
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, rec, query, originalURL, ownerID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to find link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// IncrementClicks atomically bumps clicks and last_used of a resolvable link.
// Inactive or expired links are reported as database.ErrLinkNotFound and left untouched.
func (r *LinkRepository) IncrementClicks(ctx context.Context, shortCode string, now time.Time) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.IncrementClicks"

	rec := new(linkRecord)
	query := `UPDATE links
		SET clicks = clicks + 1, last_used = $2
		WHERE short_code = $1
			AND is_active
			AND (expires_at IS NULL OR expires_at > $2)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to increment link clicks: %w", op, err)
	}

	return rec.ToLink(), nil
}

// Update applies a partial update to the link owned by ownerID and returns
// the row as it was before and after the change.
func (r *LinkRepository) Update(ctx context.Context, shortCode string, ownerID *int64, upd models.LinkUpdate) (*models.Link, *models.Link, error) {
	const op = "database.postgres.LinkRepository.Update"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	before := new(linkRecord)
	selectQuery := `SELECT * FROM links
		WHERE short_code = $1 AND owner_id IS NOT DISTINCT FROM $2
		FOR UPDATE`

	if err := tx.GetContext(ctx, before, selectQuery, shortCode, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, nil, fmt.Errorf("%s: failed to lock link record: %w", op, err)
	}

	after := new(linkRecord)
	updateQuery := `UPDATE links
		SET original_url = COALESCE($1, original_url),
			expires_at = COALESCE($2, expires_at)
		WHERE id = $3
		RETURNING *`

	if err := tx.GetContext(ctx, after, updateQuery, upd.OriginalURL, upd.ExpiresAt, before.ID); err != nil {
		return nil, nil, fmt.Errorf("%s: failed to update link record: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return before.ToLink(), after.ToLink(), nil
}

// Delete removes the link owned by ownerID and returns the removed row.
func (r *LinkRepository) Delete(ctx context.Context, shortCode string, ownerID *int64) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.Delete"

	rec := new(linkRecord)
	query := `DELETE FROM links
		WHERE short_code = $1 AND owner_id IS NOT DISTINCT FROM $2
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to delete link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// ListExpired returns links whose expiry is at or before now.
// A nil ownerID disables the owner filter.
func (r *LinkRepository) ListExpired(ctx context.Context, ownerID *int64, now time.Time) ([]*models.Link, error) {
	const op = "database.postgres.LinkRepository.ListExpired"

	var recs []linkRecord
	query := `SELECT * FROM links
		WHERE expires_at IS NOT NULL
			AND expires_at <= $1
			AND ($2::BIGINT IS NULL OR owner_id = $2)
		ORDER BY expires_at`

	if err := r.db.SelectContext(ctx, &recs, query, now, ownerID); err != nil {
		return nil, fmt.Errorf("%s: failed to list expired link records: %w", op, err)
	}

	return toLinks(recs), nil
}

// ListByProject returns active, unexpired links labelled with project.
// A nil ownerID disables the owner filter.
func (r *LinkRepository) ListByProject(ctx context.Context, project string, ownerID *int64, now time.Time) ([]*models.Link, error) {
	const op = "database.postgres.LinkRepository.ListByProject"

	var recs []linkRecord
	query := `SELECT * FROM links
		WHERE project = $1
			AND is_active
			AND (expires_at IS NULL OR expires_at > $2)
			AND ($3::BIGINT IS NULL OR owner_id = $3)
		ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &recs, query, project, now, ownerID); err != nil {
		return nil, fmt.Errorf("%s: failed to list project link records: %w", op, err)
	}

	return toLinks(recs), nil
}
