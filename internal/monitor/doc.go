// Package monitor implements the heating cycle watchdog.
//
// Each room calling for heat opens a cycle tracked across poll rounds.
// If the measured temperature fails to rise within the configured number
// of rounds the home is forced to away mode and the event is logged to
// the SQLite event store.
package monitor
