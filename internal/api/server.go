package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/logging"
	"github.com/casaluce/netatmo2mqtt/internal/monitor"
	"github.com/casaluce/netatmo2mqtt/internal/netatmo"
)

// Commander is the slice of the Netatmo client the facade forwards
// commands to.
type Commander interface {
	SetThermMode(ctx context.Context, homeID string, mode netatmo.ThermMode) error
	SetRoomTrueTemperature(ctx context.Context, homeID, roomID string, corrected float64) error
}

// StatusSource serves cached state for the read endpoints.
type StatusSource interface {
	HomeID() string
	LastStatus() (*netatmo.HomeStatus, time.Time, bool)
	Topology() *netatmo.Home
}

// EventSource serves the monitor event log.
type EventSource interface {
	Recent(ctx context.Context, limit int) ([]monitor.Event, error)
}

// MonitorSource exposes the heating watchdog's open cycles.
type MonitorSource interface {
	State() []monitor.CycleState
}

// HealthChecker is any dependency that can report its health.
type HealthChecker func(ctx context.Context) error

// Server is the REST facade over the running daemon.
type Server struct {
	httpServer *http.Server
	cfg        config.HTTPConfig
	log        *logging.Logger

	commander commanderAdapter
	status    StatusSource
	events    EventSource
	watchdog  MonitorSource
	checks    map[string]HealthChecker

	version   string
	startedAt time.Time
}

// commanderAdapter binds the resolved home ID to commands at call time,
// since the home is only known after topology resolution.
type commanderAdapter struct {
	commander Commander
	status    StatusSource
}

func (a commanderAdapter) setThermMode(ctx context.Context, mode netatmo.ThermMode) error {
	return a.commander.SetThermMode(ctx, a.status.HomeID(), mode)
}

func (a commanderAdapter) setTrueTemperature(ctx context.Context, roomID string, corrected float64) error {
	return a.commander.SetRoomTrueTemperature(ctx, a.status.HomeID(), roomID, corrected)
}

// New creates the REST server.
//
// Parameters:
//   - cfg: HTTP configuration from the [http] section
//   - commander: Netatmo command client
//   - status: Cached state source (the poller)
//   - events: Monitor event log, may be nil when the monitor is disabled
//   - log: Logger
//   - version: Reported by GET /status
func New(cfg config.HTTPConfig, commander Commander, status StatusSource,
	events EventSource, log *logging.Logger, version string) *Server {

	s := &Server{
		cfg:       cfg,
		log:       log,
		commander: commanderAdapter{commander: commander, status: status},
		status:    status,
		events:    events,
		checks:    make(map[string]HealthChecker),
		version:   version,
		startedAt: time.Now(),
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.routes(),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return s
}

// AddHealthCheck registers a named dependency check reported by GET /status.
// GET /health stays liveness-only and never consults these.
func (s *Server) AddHealthCheck(name string, check HealthChecker) {
	s.checks[name] = check
}

// SetMonitorSource wires the heating watchdog into GET /status so open
// heating cycles are visible alongside dependency health.
func (s *Server) SetMonitorSource(source MonitorSource) {
	s.watchdog = source
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.log.Info("rest server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("rest server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("rest server shutting down")
	return s.httpServer.Shutdown(ctx)
}
