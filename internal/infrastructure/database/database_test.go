package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(config.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestOpen_AppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	var count int
	err := db.Conn().QueryRow(`SELECT COUNT(*) FROM monitor_events`).Scan(&count)
	if err != nil {
		t.Fatalf("query monitor_events: %v", err)
	}
	if count != 0 {
		t.Errorf("monitor_events count = %d, want 0", count)
	}
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DatabaseConfig{Path: filepath.Join(dir, "test.db")}

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	db.Close()

	db, err = Open(cfg)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer db.Close()

	var applied int
	err = db.Conn().QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied)
	if err != nil {
		t.Fatalf("query schema_migrations: %v", err)
	}
	if applied != 1 {
		t.Errorf("applied migrations = %d, want 1", applied)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_ClosedDB(t *testing.T) {
	db := openTestDB(t)
	db.Close()

	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() on closed database returned nil, want error")
	}
}
