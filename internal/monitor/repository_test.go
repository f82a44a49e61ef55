package monitor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/database"
)

func openTestRepo(t *testing.T) *EventRepository {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewEventRepository(db)
}

func TestEventRepository_RecordAndRecent(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	events := []Event{
		{Type: EventCycleStarted, RoomID: "room-1", RoomName: "Kitchen", Details: "start_temp=18.0"},
		{Type: EventWatchdogTripped, RoomID: "room-1", RoomName: "Kitchen", Details: "rounds=6"},
		{Type: EventModeChanged, RoomID: "room-1", RoomName: "Kitchen", Details: "mode=away"},
	}
	for _, event := range events {
		if err := repo.Record(ctx, event); err != nil {
			t.Fatalf("Record(%s) error = %v", event.Type, err)
		}
	}

	got, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent() returned %d events, want 3", len(got))
	}

	// Most recent first.
	if got[0].Type != EventModeChanged {
		t.Errorf("got[0].Type = %q, want %q", got[0].Type, EventModeChanged)
	}
	if got[2].Type != EventCycleStarted {
		t.Errorf("got[2].Type = %q, want %q", got[2].Type, EventCycleStarted)
	}
	if got[0].OccurredAt.IsZero() {
		t.Error("OccurredAt was not defaulted")
	}
}

func TestEventRepository_RecentHonorsLimit(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Record(ctx, Event{Type: EventCycleStarted, RoomID: "room-1"}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Recent(2) returned %d events, want 2", len(got))
	}
}
