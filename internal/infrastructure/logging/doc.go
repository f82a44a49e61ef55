// Package logging provides structured logging for netatmo2mqtt.
//
// It is a thin wrapper around log/slog that applies the configured level,
// format and destination, and stamps every record with the service name and
// version. Components receive a *Logger (usually narrowed with With) rather
// than using the global slog default.
package logging
