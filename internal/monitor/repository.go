package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/database"
)

// Event types recorded by the monitor.
const (
	EventCycleStarted    = "cycle_started"
	EventCycleCompleted  = "cycle_completed"
	EventWatchdogTripped = "watchdog_tripped"
	EventModeChanged     = "mode_changed"
	EventBoilerAnomaly   = "boiler_anomaly"
)

// Event is one row of the monitor event log.
type Event struct {
	ID         int64
	Type       string
	RoomID     string
	RoomName   string
	Details    string
	OccurredAt time.Time
}

// EventRepository persists monitor events to SQLite.
type EventRepository struct {
	db *database.DB
}

// NewEventRepository creates a repository over the given database.
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Record inserts one event. OccurredAt defaults to now when zero.
func (r *EventRepository) Record(ctx context.Context, event Event) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO monitor_events (event_type, room_id, room_name, details, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		event.Type, event.RoomID, event.RoomName, event.Details, occurredAt)
	if err != nil {
		return fmt.Errorf("record monitor event: %w", err)
	}
	return nil
}

// Recent returns the newest events, most recent first.
func (r *EventRepository) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, event_type, room_id, room_name, details, occurred_at
		FROM monitor_events
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query monitor events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		if err := rows.Scan(&event.ID, &event.Type, &event.RoomID,
			&event.RoomName, &event.Details, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan monitor event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
