package corrector

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/casaluce/netatmo2mqtt/internal/hass"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/logging"
	"github.com/casaluce/netatmo2mqtt/internal/netatmo"
)

// TemperatureReader reads reference temperatures from Home Assistant.
type TemperatureReader interface {
	GetTemperature(ctx context.Context, entityID string) (float64, error)
}

// Commander is the slice of the Netatmo client the corrector needs.
type Commander interface {
	SetRoomTrueTemperature(ctx context.Context, homeID, roomID string, corrected float64) error
}

// Corrector keeps module sensors honest against external reference
// sensors.
//
// For every configured room it compares the Home Assistant reference
// sensor with the temperature the module itself reports. When they drift
// apart by more than the threshold, the reference value is sent to the
// vendor as the room's true temperature.
type Corrector struct {
	reader    TemperatureReader
	commander Commander
	cfg       config.CorrectorConfig
	log       *logging.Logger

	// topoMu guards the indexes built from topology.
	topoMu      sync.RWMutex
	homeID      string
	roomIDs     map[string]string // lowercase room name -> room id
	smartherIDs map[string]bool   // rooms with an integrated sensor that cannot be recalibrated
}

// New creates a Corrector.
func New(reader TemperatureReader, commander Commander, cfg config.CorrectorConfig, log *logging.Logger) *Corrector {
	return &Corrector{
		reader:      reader,
		commander:   commander,
		cfg:         cfg,
		log:         log,
		roomIDs:     make(map[string]string),
		smartherIDs: make(map[string]bool),
	}
}

// SetTopology indexes room names and marks rooms whose module is a BNS,
// which does not support true temperature recalibration.
func (c *Corrector) SetTopology(home netatmo.Home) {
	roomIDs := make(map[string]string, len(home.Rooms))
	for _, room := range home.Rooms {
		roomIDs[strings.ToLower(room.Name)] = room.ID
	}

	smarther := make(map[string]bool)
	for _, module := range home.Modules {
		if strings.EqualFold(module.Type, "BNS") && module.RoomID != "" {
			smarther[module.RoomID] = true
		}
	}

	c.topoMu.Lock()
	c.homeID = home.ID
	c.roomIDs = roomIDs
	c.smartherIDs = smarther
	c.topoMu.Unlock()
}

// Run executes correction cycles until ctx is cancelled. The first cycle
// waits one full interval so the poller has topology ready.
func (c *Corrector) Run(ctx context.Context) error {
	interval := time.Duration(c.cfg.Interval) * time.Second
	c.log.Info("corrector started",
		"interval", interval,
		"delta_threshold", c.cfg.DeltaThreshold,
		"rooms", len(c.cfg.Rooms))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("corrector stopped")
			return nil
		case <-ticker.C:
			c.runCycle(ctx)
		}
	}
}

// runCycle checks every configured room once. Failures are per-room:
// one unreadable sensor never blocks the others.
func (c *Corrector) runCycle(ctx context.Context) {
	for roomName, mapping := range c.cfg.Rooms {
		if err := c.correctRoom(ctx, roomName, mapping); err != nil {
			if errors.Is(err, hass.ErrUnavailable) {
				c.log.Debug("reference sensor unavailable", "room", roomName)
				continue
			}
			c.log.Error("room correction failed", "room", roomName, "error", err)
		}
	}
}

func (c *Corrector) correctRoom(ctx context.Context, roomName string, mapping config.RoomMapping) error {
	c.topoMu.RLock()
	homeID := c.homeID
	roomID := c.roomIDs[strings.ToLower(roomName)]
	isSmarther := c.smartherIDs[roomID]
	c.topoMu.RUnlock()

	if roomID == "" {
		c.log.Warn("configured room not found in topology", "room", roomName)
		return nil
	}
	if isSmarther {
		c.log.Debug("room has integrated sensor, skipping", "room", roomName)
		return nil
	}

	reference, err := c.reader.GetTemperature(ctx, mapping.SensorEntity)
	if err != nil {
		return err
	}
	reported, err := c.reader.GetTemperature(ctx, mapping.ClimateEntity)
	if err != nil {
		return err
	}

	delta := math.Abs(reference - reported)
	if delta <= c.cfg.DeltaThreshold {
		return nil
	}

	c.log.Info("correcting room temperature",
		"room", roomName,
		"reference", reference,
		"reported", reported,
		"delta", delta)

	return c.commander.SetRoomTrueTemperature(ctx, homeID, roomID, reference)
}
