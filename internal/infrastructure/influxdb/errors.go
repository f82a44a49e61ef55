package influxdb

import "errors"

var (
	// ErrConnectionFailed indicates the InfluxDB server rejected or did not
	// answer the initial health probe.
	ErrConnectionFailed = errors.New("influxdb connection failed")

	// ErrWriteFailed indicates an asynchronous write was rejected.
	ErrWriteFailed = errors.New("influxdb write failed")
)
