// Package influxdb records heating telemetry to InfluxDB v2.
//
// The recorder is optional. When disabled in config the daemon runs
// without it and the poller simply skips the recording hook. Writes use
// the non-blocking API so telemetry can never slow down polling.
package influxdb
