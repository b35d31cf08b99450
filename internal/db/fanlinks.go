package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slugConstraint = "fan_links_slug_key"

const fanLinkColumns = `
	id, user_id, title, artist, slug, cover_image,
	background_color, background_image, text_color,
	button_color, button_text_color, button_text,
	pre_save_links, created_at, updated_at
`

// FanLinkRepository handles fan_links database operations.
type FanLinkRepository struct {
	pool *pgxpool.Pool
}

// SlugTaken reports whether slug is used by any fan link other than exclude.
// Pass uuid.Nil to check against every row.
func (r *FanLinkRepository) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM fan_links WHERE slug = $1 AND id <> $2)`
	var taken bool
	if err := r.pool.QueryRow(ctx, query, slug, exclude).Scan(&taken); err != nil {
		return false, fmt.Errorf("checking slug: %w", err)
	}
	return taken, nil
}

// Insert creates a fan link row. ID, CreatedAt and UpdatedAt are set from
// the database. A slug collision returns ErrSlugTaken.
func (r *FanLinkRepository) Insert(ctx context.Context, fl *FanLink) error {
	query := `
		INSERT INTO fan_links (
			user_id, title, artist, slug, cover_image,
			background_color, background_image, text_color,
			button_color, button_text_color, button_text,
			pre_save_links
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		fl.UserID,
		fl.Title,
		fl.Artist,
		fl.Slug,
		fl.CoverImage,
		fl.BackgroundColor,
		fl.BackgroundImage,
		fl.TextColor,
		fl.ButtonColor,
		fl.ButtonTextColor,
		fl.ButtonText,
		preSaveOrEmpty(fl.PreSaveLinks),
	).Scan(&fl.ID, &fl.CreatedAt, &fl.UpdatedAt)
	if isUniqueViolation(err, slugConstraint) {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("inserting fan link: %w", err)
	}
	return nil
}

// Update replaces the editable fields of a fan link owned by fl.UserID.
// Returns ErrNotFound if no row matches both id and owner.
func (r *FanLinkRepository) Update(ctx context.Context, fl *FanLink) error {
	query := `
		UPDATE fan_links SET
			title = $3,
			artist = $4,
			slug = $5,
			cover_image = $6,
			background_color = $7,
			background_image = $8,
			text_color = $9,
			button_color = $10,
			button_text_color = $11,
			button_text = $12,
			pre_save_links = $13,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		fl.ID,
		fl.UserID,
		fl.Title,
		fl.Artist,
		fl.Slug,
		fl.CoverImage,
		fl.BackgroundColor,
		fl.BackgroundImage,
		fl.TextColor,
		fl.ButtonColor,
		fl.ButtonTextColor,
		fl.ButtonText,
		preSaveOrEmpty(fl.PreSaveLinks),
	).Scan(&fl.CreatedAt, &fl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if isUniqueViolation(err, slugConstraint) {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("updating fan link: %w", err)
	}
	return nil
}

// Get retrieves a fan link by ID, scoped to its owner.
func (r *FanLinkRepository) Get(ctx context.Context, id uuid.UUID, userID string) (*FanLink, error) {
	query := `SELECT ` + fanLinkColumns + ` FROM fan_links WHERE id = $1 AND user_id = $2`
	fl, err := scanFanLink(r.pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying fan link: %w", err)
	}
	return fl, nil
}

// ListBySlug returns every fan link with slug, newest first. The unique
// constraint means at most one row in practice.
func (r *FanLinkRepository) ListBySlug(ctx context.Context, slug string) ([]FanLink, error) {
	query := `SELECT ` + fanLinkColumns + ` FROM fan_links WHERE slug = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, slug)
}

// ListForUser returns a user's fan links, newest first.
func (r *FanLinkRepository) ListForUser(ctx context.Context, userID string) ([]FanLink, error) {
	query := `SELECT ` + fanLinkColumns + ` FROM fan_links WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// Delete removes a fan link owned by userID. Its streaming links and events
// are removed by cascade. Deleting a missing row is not an error.
func (r *FanLinkRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	query := `DELETE FROM fan_links WHERE id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("deleting fan link: %w", err)
	}
	return nil
}

func (r *FanLinkRepository) list(ctx context.Context, query string, arg any) ([]FanLink, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("querying fan links: %w", err)
	}
	defer rows.Close()

	var links []FanLink
	for rows.Next() {
		fl, err := scanFanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fan link: %w", err)
		}
		links = append(links, *fl)
	}
	return links, rows.Err()
}

func scanFanLink(row pgx.Row) (*FanLink, error) {
	var fl FanLink
	err := row.Scan(
		&fl.ID,
		&fl.UserID,
		&fl.Title,
		&fl.Artist,
		&fl.Slug,
		&fl.CoverImage,
		&fl.BackgroundColor,
		&fl.BackgroundImage,
		&fl.TextColor,
		&fl.ButtonColor,
		&fl.ButtonTextColor,
		&fl.ButtonText,
		&fl.PreSaveLinks,
		&fl.CreatedAt,
		&fl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &fl, nil
}

func preSaveOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
