// Package database manages the SQLite store backing the monitor event log.
//
// The database is opened in WAL mode with a single connection and the
// schema is brought up to date from embedded migrations on every start.
package database
