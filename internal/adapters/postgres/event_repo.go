package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/ports"
)

var _ ports.RegionEventRepository = (*EventRepo)(nil)

// EventRepo implements ports.RegionEventRepository.
type EventRepo struct {
	db *DB
}

func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

// Insert stores an event. Re-delivering the same event ID is a no-op so
// retried alert workflows do not duplicate history.
func (r *EventRepo) Insert(ctx context.Context, e *domain.RegionEvent) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO region_events (id, time, region_id, device_id, transition, location, note, message)
		VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography, $8, $9)
		ON CONFLICT (id, time) DO NOTHING
	`, e.ID, e.Time, e.RegionID, e.DeviceID, string(e.Transition),
		e.Location.Lon, e.Location.Lat, nilIfEmpty(e.Note), e.Message)
	if err != nil {
		return fmt.Errorf("insert region event: %w", err)
	}
	return nil
}

// ListByRegion returns the newest events for a region first.
func (r *EventRepo) ListByRegion(ctx context.Context, regionID string, limit int) ([]domain.RegionEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, time, region_id, device_id, transition,
			ST_Y(location::geometry) AS lat,
			ST_X(location::geometry) AS lon,
			COALESCE(note, ''), message
		FROM region_events
		WHERE region_id = $1
		ORDER BY time DESC
		LIMIT $2
	`, regionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query region events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RegionEvent, error) {
		var e domain.RegionEvent
		var transition string
		err := row.Scan(
			&e.ID, &e.Time, &e.RegionID, &e.DeviceID, &transition,
			&e.Location.Lat, &e.Location.Lon, &e.Note, &e.Message,
		)
		e.Transition = domain.Transition(transition)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan region events: %w", err)
	}
	return events, nil
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
