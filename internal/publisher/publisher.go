package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/logging"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/mqtt"
	"github.com/casaluce/netatmo2mqtt/internal/netatmo"
)

// Broker is the slice of the MQTT client the publisher needs.
type Broker interface {
	PublishRetained(ctx context.Context, topic string, payload []byte) error
}

// Publisher turns home status snapshots into retained MQTT state documents.
//
// Every room and every module gets its own document under
// {base}/{item}/state, and the whole snapshot goes to {base}/state. Item
// names come from the home topology; items the topology does not name fall
// back to their vendor ID.
type Publisher struct {
	broker Broker
	topics mqtt.Topics
	log    *logging.Logger

	// nameMu guards the id-to-name indexes built from topology.
	nameMu      sync.RWMutex
	roomNames   map[string]string
	moduleNames map[string]string
}

// New creates a Publisher bound to the given broker and topic layout.
func New(broker Broker, topics mqtt.Topics, log *logging.Logger) *Publisher {
	return &Publisher{
		broker:      broker,
		topics:      topics,
		log:         log,
		roomNames:   make(map[string]string),
		moduleNames: make(map[string]string),
	}
}

// SetTopology refreshes the id-to-name indexes from the home topology.
// Called whenever homesdata is fetched.
func (p *Publisher) SetTopology(home netatmo.Home) {
	rooms := make(map[string]string, len(home.Rooms))
	for _, room := range home.Rooms {
		rooms[room.ID] = room.Name
	}
	modules := make(map[string]string, len(home.Modules))
	for _, module := range home.Modules {
		modules[module.ID] = module.Name
	}

	p.nameMu.Lock()
	p.roomNames = rooms
	p.moduleNames = modules
	p.nameMu.Unlock()
}

// roomState is the per-room document published to {base}/{room}/state.
type roomState struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Measured     *float64 `json:"therm_measured_temperature,omitempty"`
	Setpoint     *float64 `json:"therm_setpoint_temperature,omitempty"`
	SetpointMode string   `json:"therm_setpoint_mode,omitempty"`
	HeatDemand   bool     `json:"heat_demand"`
	Reachable    *bool    `json:"reachable,omitempty"`
	UpdatedAt    string   `json:"updated_at"`
}

// moduleState is the per-module document published to {base}/{module}/state.
type moduleState struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	RoomID       string `json:"room_id,omitempty"`
	Battery      *int   `json:"battery_level,omitempty"`
	RFStrength   *int   `json:"rf_strength,omitempty"`
	Reachable    *bool  `json:"reachable,omitempty"`
	BoilerStatus *bool  `json:"boiler_status,omitempty"`
	UpdatedAt    string `json:"updated_at"`
}

// snapshot is the whole-home document published to {base}/state.
type snapshot struct {
	HomeID    string        `json:"home_id"`
	Rooms     []roomState   `json:"rooms"`
	Modules   []moduleState `json:"modules"`
	UpdatedAt string        `json:"updated_at"`
}

// PublishStatus publishes one home status snapshot: a retained document per
// room, per module, and the whole-home snapshot.
//
// Individual publish failures are logged and counted but do not abort the
// remaining items; the returned error reflects the first failure.
func (p *Publisher) PublishStatus(ctx context.Context, status *netatmo.HomeStatus) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var firstErr error

	snap := snapshot{HomeID: status.Home.ID, UpdatedAt: now}

	for _, room := range status.Home.Rooms {
		doc := p.buildRoomState(room, now)
		snap.Rooms = append(snap.Rooms, doc)
		if err := p.publishJSON(ctx, p.topics.ItemState(doc.Name), doc); err != nil {
			p.log.Error("publish room state failed", "room", doc.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	for _, module := range status.Home.Modules {
		doc := p.buildModuleState(module, now)
		snap.Modules = append(snap.Modules, doc)
		if err := p.publishJSON(ctx, p.topics.ItemState(doc.Name), doc); err != nil {
			p.log.Error("publish module state failed", "module", doc.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if err := p.publishJSON(ctx, p.topics.Snapshot(), snap); err != nil {
		p.log.Error("publish snapshot failed", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (p *Publisher) buildRoomState(room netatmo.Room, now string) roomState {
	return roomState{
		ID:           room.ID,
		Name:         p.roomName(room.ID),
		Measured:     room.MeasuredTemperature,
		Setpoint:     room.SetpointTemperature,
		SetpointMode: room.SetpointMode,
		HeatDemand:   room.HeatDemand(),
		Reachable:    room.Reachable,
		UpdatedAt:    now,
	}
}

func (p *Publisher) buildModuleState(module netatmo.Module, now string) moduleState {
	return moduleState{
		ID:           module.ID,
		Name:         p.moduleName(module.ID),
		Type:         module.Type,
		RoomID:       module.RoomID,
		Battery:      module.Battery,
		RFStrength:   module.RFStrength,
		Reachable:    module.Reachable,
		BoilerStatus: module.BoilerStatus,
		UpdatedAt:    now,
	}
}

func (p *Publisher) publishJSON(ctx context.Context, topic string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	return p.broker.PublishRetained(ctx, topic, payload)
}

func (p *Publisher) roomName(id string) string {
	p.nameMu.RLock()
	defer p.nameMu.RUnlock()
	if name := p.roomNames[id]; name != "" {
		return name
	}
	return id
}

func (p *Publisher) moduleName(id string) string {
	p.nameMu.RLock()
	defer p.nameMu.RUnlock()
	if name := p.moduleNames[id]; name != "" {
		return name
	}
	return id
}
