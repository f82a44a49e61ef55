package influxdb

import (
	"context"
	"fmt"
	"sync"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
)

// Client wraps the InfluxDB v2 client for recording heating telemetry.
//
// Writes go through the non-blocking WriteAPI so a slow or absent InfluxDB
// never stalls the poll loop. Write errors surface through the optional
// OnError callback.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	onError    func(err error)
	callbackMu sync.RWMutex
}

// Connect creates an InfluxDB client and verifies the server is reachable.
//
// Parameters:
//   - ctx: Context for the initial health probe
//   - cfg: InfluxDB configuration from the [influxdb] section
//
// Returns:
//   - *Client: Ready client with a background write pipeline
//   - error: If the server does not answer the health probe
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("%w: status %s", ErrConnectionFailed, health.Status)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:      cfg,
	}

	go c.watchErrors()

	return c, nil
}

// watchErrors drains the async write error channel for the lifetime of
// the client.
func (c *Client) watchErrors() {
	for err := range c.writeAPI.Errors() {
		c.callbackMu.RLock()
		callback := c.onError
		c.callbackMu.RUnlock()
		if callback != nil {
			callback(fmt.Errorf("%w: %w", ErrWriteFailed, err))
		}
	}
}

// SetOnError sets a callback invoked for asynchronous write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.callbackMu.Lock()
	c.onError = callback
	c.callbackMu.Unlock()
}

// HealthCheck verifies the InfluxDB server is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	health, err := c.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	if health.Status != "pass" {
		return fmt.Errorf("influxdb health check: status %s", health.Status)
	}
	return nil
}

// Close flushes pending writes and releases the client.
func (c *Client) Close() error {
	c.Flush()
	c.client.Close()
	return nil
}
