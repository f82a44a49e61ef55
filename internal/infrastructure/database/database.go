package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
)

// DB wraps the SQLite connection used for the monitor event log.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (creating if necessary) the SQLite database and runs pending
// migrations.
//
// SQLite specifics:
//   - WAL journal mode so the API can read while the monitor writes
//   - busy_timeout to ride out short lock contention
//   - a single connection, since SQLite serializes writers anyway
//
// Parameters:
//   - cfg: Database configuration from the [database] section
//
// Returns:
//   - *DB: Open handle with schema up to date
//   - error: If the file cannot be created or a migration fails
func Open(cfg config.DatabaseConfig) (*DB, error) {
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	journal := "DELETE"
	if cfg.WALMode {
		journal = "WAL"
	}
	busyTimeout := cfg.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = 5
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=%s&_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, journal, busyTimeout*1000)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

// Conn returns the underlying sql.DB for repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// HealthCheck verifies the database is reachable.
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
