package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LinkEventRepository handles link_events database operations.
type LinkEventRepository struct {
	pool *pgxpool.Pool
}

// Record inserts a view or click event.
func (r *LinkEventRepository) Record(ctx context.Context, e *LinkEvent) error {
	query := `
		INSERT INTO link_events (fan_link_id, kind, platform, device, browser, referrer)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		e.FanLinkID,
		e.Kind,
		e.Platform,
		e.Device,
		e.Browser,
		e.Referrer,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting link event: %w", err)
	}
	return nil
}

// CountsForFanLinks returns view and click totals keyed by fan link ID.
// Fan links without events are absent from the map.
func (r *LinkEventRepository) CountsForFanLinks(ctx context.Context, fanLinkIDs []uuid.UUID) (map[uuid.UUID]EventCounts, error) {
	result := make(map[uuid.UUID]EventCounts)
	if len(fanLinkIDs) == 0 {
		return result, nil
	}

	ids := make([]string, len(fanLinkIDs))
	for i, id := range fanLinkIDs {
		ids[i] = id.String()
	}

	query := `
		SELECT fan_link_id,
			COUNT(*) FILTER (WHERE kind = 'view'),
			COUNT(*) FILTER (WHERE kind = 'click')
		FROM link_events
		WHERE fan_link_id = ANY($1::uuid[])
		GROUP BY fan_link_id
	`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("querying link event counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var c EventCounts
		if err := rows.Scan(&id, &c.Views, &c.Clicks); err != nil {
			return nil, fmt.Errorf("scanning link event counts: %w", err)
		}
		result[id] = c
	}
	return result, rows.Err()
}
