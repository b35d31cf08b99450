package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StreamingLinkRepository handles streaming_links database operations.
type StreamingLinkRepository struct {
	pool *pgxpool.Pool
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// InsertBatch inserts links for a fan link in one statement. Each link's
// Position is written as given.
func (r *StreamingLinkRepository) InsertBatch(ctx context.Context, fanLinkID uuid.UUID, links []StreamingLink) error {
	return insertLinks(ctx, r.pool, fanLinkID, links)
}

// Replace swaps a fan link's whole link set in one transaction. Readers see
// either the old set or the new one; on error the old set is kept.
func (r *StreamingLinkRepository) Replace(ctx context.Context, fanLinkID uuid.UUID, links []StreamingLink) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM streaming_links WHERE fan_link_id = $1`, fanLinkID); err != nil {
		return fmt.Errorf("deleting streaming links: %w", err)
	}
	if err := insertLinks(ctx, tx, fanLinkID, links); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertLinks(ctx context.Context, q execer, fanLinkID uuid.UUID, links []StreamingLink) error {
	if len(links) == 0 {
		return nil
	}

	query := `
		INSERT INTO streaming_links (fan_link_id, platform, url, position)
		SELECT $1, platform, url, position
		FROM unnest($2::text[], $3::text[], $4::int[]) AS t(platform, url, position)
	`

	platforms := make([]string, len(links))
	urls := make([]string, len(links))
	positions := make([]*int32, len(links))
	for i, l := range links {
		platforms[i] = l.Platform
		urls[i] = l.URL
		if l.Position != nil {
			p := int32(*l.Position)
			positions[i] = &p
		}
	}

	if _, err := q.Exec(ctx, query, fanLinkID, platforms, urls, positions); err != nil {
		return fmt.Errorf("batch inserting streaming links: %w", err)
	}
	return nil
}

// ListForFanLinks returns streaming links grouped by fan link ID, each group
// ordered by position with unpositioned rows last.
func (r *StreamingLinkRepository) ListForFanLinks(ctx context.Context, fanLinkIDs []uuid.UUID) (map[uuid.UUID][]StreamingLink, error) {
	result := make(map[uuid.UUID][]StreamingLink)
	if len(fanLinkIDs) == 0 {
		return result, nil
	}

	ids := make([]string, len(fanLinkIDs))
	for i, id := range fanLinkIDs {
		ids[i] = id.String()
	}

	query := `
		SELECT id, fan_link_id, platform, url, position, created_at
		FROM streaming_links
		WHERE fan_link_id = ANY($1::uuid[])
		ORDER BY fan_link_id, position ASC NULLS LAST, created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("querying streaming links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l StreamingLink
		if err := rows.Scan(
			&l.ID,
			&l.FanLinkID,
			&l.Platform,
			&l.URL,
			&l.Position,
			&l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning streaming link: %w", err)
		}
		result[l.FanLinkID] = append(result[l.FanLinkID], l)
	}
	return result, rows.Err()
}
