package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/logging"
	"github.com/casaluce/netatmo2mqtt/internal/netatmo"
)

// Fetcher is the slice of the Netatmo client the poller needs.
type Fetcher interface {
	GetHomesData(ctx context.Context) (*netatmo.HomesData, error)
	GetHomeStatus(ctx context.Context, homeID string) (*netatmo.HomeStatus, error)
}

// StatusHandler receives every successfully fetched home status.
// Handlers run sequentially on the poll goroutine; a slow handler delays
// the cycle but never skips one.
type StatusHandler func(ctx context.Context, status *netatmo.HomeStatus)

// TopologyHandler receives the home topology when it is (re)fetched.
type TopologyHandler func(home netatmo.Home)

// Poller drives the fixed-interval poll-and-publish cycle.
//
// A failed cycle is logged and skipped; the next tick polls again. The
// last successful snapshot is cached for the REST facade.
type Poller struct {
	fetcher  Fetcher
	homeID   string
	interval time.Duration
	log      *logging.Logger

	// handlersMu guards the handler slices so registration is safe even
	// after Run has started.
	handlersMu       sync.Mutex
	statusHandlers   []StatusHandler
	topologyHandlers []TopologyHandler

	// cacheMu guards the cached topology and last snapshot.
	cacheMu      sync.RWMutex
	topology     *netatmo.Home
	lastStatus   *netatmo.HomeStatus
	lastPolledAt time.Time
}

// New creates a Poller.
//
// Parameters:
//   - fetcher: Netatmo API client
//   - homeID: Home to poll; empty means the first home on the account
//   - interval: Poll cycle interval
//   - log: Logger
func New(fetcher Fetcher, homeID string, interval time.Duration, log *logging.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		homeID:   homeID,
		interval: interval,
		log:      log,
	}
}

// OnStatus registers a handler for every successful poll. Safe to call
// concurrently with Run.
func (p *Poller) OnStatus(handler StatusHandler) {
	p.handlersMu.Lock()
	p.statusHandlers = append(p.statusHandlers, handler)
	p.handlersMu.Unlock()
}

// OnTopology registers a handler for topology fetches. Topology is
// dispatched once at startup, so a handler registered after resolution
// is invoked immediately with the cached topology.
func (p *Poller) OnTopology(handler TopologyHandler) {
	p.handlersMu.Lock()
	p.topologyHandlers = append(p.topologyHandlers, handler)
	p.handlersMu.Unlock()

	p.cacheMu.RLock()
	topology := p.topology
	p.cacheMu.RUnlock()
	if topology != nil {
		handler(*topology)
	}
}

// Run polls until ctx is cancelled. The first cycle runs immediately.
//
// Returns:
//   - error: Only if the home cannot be resolved at startup; poll cycle
//     failures are logged and retried on the next tick
func (p *Poller) Run(ctx context.Context) error {
	if err := p.resolveHome(ctx); err != nil {
		return err
	}

	p.log.Info("poller started", "home_id", p.homeID, "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("poller stopped")
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// resolveHome fetches the topology, picks the home and notifies topology
// handlers. Retries a few times so a daemon started before the network is
// up does not die immediately.
func (p *Poller) resolveHome(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		data, err := p.fetcher.GetHomesData(ctx)
		if err == nil {
			return p.applyTopology(data)
		}
		lastErr = err
		p.log.Warn("fetch homes data failed", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 2 * time.Second):
		}
	}
	return fmt.Errorf("resolve home: %w", lastErr)
}

func (p *Poller) applyTopology(data *netatmo.HomesData) error {
	if len(data.Homes) == 0 {
		return fmt.Errorf("resolve home: account has no homes")
	}

	home := data.Homes[0]
	if p.homeID != "" {
		found := false
		for _, h := range data.Homes {
			if h.ID == p.homeID {
				home = h
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("resolve home: home %s not found on account", p.homeID)
		}
	}
	p.cacheMu.Lock()
	p.homeID = home.ID
	p.topology = &home
	p.cacheMu.Unlock()

	p.handlersMu.Lock()
	handlers := append([]TopologyHandler(nil), p.topologyHandlers...)
	p.handlersMu.Unlock()

	for _, handler := range handlers {
		handler(home)
	}
	return nil
}

// poll runs one fetch-and-dispatch cycle.
func (p *Poller) poll(ctx context.Context) {
	status, err := p.fetcher.GetHomeStatus(ctx, p.homeID)
	if err != nil {
		p.log.Error("poll cycle failed", "home_id", p.homeID, "error", err)
		return
	}

	p.cacheMu.Lock()
	p.lastStatus = status
	p.lastPolledAt = time.Now()
	p.cacheMu.Unlock()

	p.handlersMu.Lock()
	handlers := append([]StatusHandler(nil), p.statusHandlers...)
	p.handlersMu.Unlock()

	for _, handler := range handlers {
		handler(ctx, status)
	}
}

// HomeID returns the resolved home identifier. Empty until resolveHome
// has run.
func (p *Poller) HomeID() string {
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()
	return p.homeID
}

// LastStatus returns the most recent successful snapshot, its fetch time,
// and whether one exists yet.
func (p *Poller) LastStatus() (*netatmo.HomeStatus, time.Time, bool) {
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()
	return p.lastStatus, p.lastPolledAt, p.lastStatus != nil
}

// Topology returns the cached home topology, or nil before resolution.
func (p *Poller) Topology() *netatmo.Home {
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()
	return p.topology
}
