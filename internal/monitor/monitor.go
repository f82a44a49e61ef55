package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/logging"
	"github.com/casaluce/netatmo2mqtt/internal/netatmo"
)

// Commander is the slice of the Netatmo client the monitor needs to take
// its protective action.
type Commander interface {
	SetThermMode(ctx context.Context, homeID string, mode netatmo.ThermMode) error
}

// EventStore persists monitor events.
type EventStore interface {
	Record(ctx context.Context, event Event) error
}

// cycle tracks one room's heating episode across poll rounds.
type cycle struct {
	startTemp float64
	rounds    int
	tripped   bool
}

// Monitor watches heating cycles for rooms that call for heat but never
// warm up, which usually means an open window or a failed valve. After
// CheckRounds polls without the measured temperature rising by TempDelta
// it sets the whole home to away and records the event.
//
// It also flags the boiler running while no room is calling for heat.
type Monitor struct {
	commander Commander
	store     EventStore
	cfg       config.MonitorConfig
	log       *logging.Logger

	roomNames  map[string]string
	valveRooms map[string]bool
	valveTypes map[string]bool

	// mu guards cycle state, which is written on the poll goroutine and
	// read by State from HTTP handlers.
	mu            sync.Mutex
	cycles        map[string]*cycle
	boilerAnomaly bool
}

// CycleState is a snapshot of one open heating cycle, as reported by the
// status endpoint.
type CycleState struct {
	RoomID    string  `json:"room_id"`
	RoomName  string  `json:"room_name"`
	StartTemp float64 `json:"start_temp"`
	Rounds    int     `json:"rounds"`
	Tripped   bool    `json:"tripped"`
}

// New creates a Monitor.
func New(commander Commander, store EventStore, cfg config.MonitorConfig, log *logging.Logger) *Monitor {
	valveTypes := make(map[string]bool)
	for _, t := range cfg.ValveTypes() {
		valveTypes[strings.ToUpper(t)] = true
	}

	return &Monitor{
		commander:  commander,
		store:      store,
		cfg:        cfg,
		log:        log,
		roomNames:  make(map[string]string),
		valveRooms: make(map[string]bool),
		valveTypes: valveTypes,
		cycles:     make(map[string]*cycle),
	}
}

// SetTopology updates the room name index and marks which rooms are
// heated through valve modules.
func (m *Monitor) SetTopology(home netatmo.Home) {
	names := make(map[string]string, len(home.Rooms))
	for _, room := range home.Rooms {
		names[room.ID] = room.Name
	}

	valveRooms := make(map[string]bool)
	for _, module := range home.Modules {
		if module.RoomID != "" && m.valveTypes[strings.ToUpper(module.Type)] {
			valveRooms[module.RoomID] = true
		}
	}

	m.roomNames = names
	m.valveRooms = valveRooms
}

// HandleStatus processes one poll snapshot.
func (m *Monitor) HandleStatus(ctx context.Context, status *netatmo.HomeStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	boilerPresent := false
	boilerOn := false
	for _, module := range status.Home.Modules {
		if module.BoilerStatus != nil {
			boilerPresent = true
			if *module.BoilerStatus {
				boilerOn = true
			}
		}
	}

	// A boiler that is off globally ends every heating episode. Cycles
	// must not count rounds against heat that is not flowing, and no new
	// cycle starts until the boiler fires again.
	boilerOff := boilerPresent && !boilerOn
	if boilerOff && len(m.cycles) > 0 {
		m.log.Debug("boiler off, cancelling open heating cycles",
			"cycles", len(m.cycles))
		clear(m.cycles)
	}

	anyDemand := false
	for _, room := range status.Home.Rooms {
		if room.HeatDemand() {
			anyDemand = true
		}
		if boilerOff {
			continue
		}
		m.trackRoom(ctx, status.Home.ID, room)
	}

	m.checkBoiler(ctx, boilerOn, anyDemand)
}

// State returns the open heating cycles, ordered by room ID.
func (m *Monitor) State() []CycleState {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make([]CycleState, 0, len(m.cycles))
	for roomID, active := range m.cycles {
		states = append(states, CycleState{
			RoomID:    roomID,
			RoomName:  m.roomName(roomID),
			StartTemp: active.startTemp,
			Rounds:    active.rounds,
			Tripped:   active.tripped,
		})
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].RoomID < states[j].RoomID
	})
	return states
}

// trackRoom advances or closes the room's heating cycle.
func (m *Monitor) trackRoom(ctx context.Context, homeID string, room netatmo.Room) {
	if room.MeasuredTemperature == nil {
		return
	}
	// Rooms regulated by their own thermostat are not watchdog
	// candidates, only valve-heated rooms are tracked. Before topology
	// is known every room is tracked.
	if len(m.valveRooms) > 0 && !m.valveRooms[room.ID] {
		return
	}
	measured := *room.MeasuredTemperature

	active := m.cycles[room.ID]

	if !room.HeatDemand() {
		if active != nil {
			delete(m.cycles, room.ID)
			if !active.tripped {
				m.record(ctx, Event{
					Type:     EventCycleCompleted,
					RoomID:   room.ID,
					RoomName: m.roomName(room.ID),
					Details: fmt.Sprintf("rounds=%d rise=%.1f",
						active.rounds, measured-active.startTemp),
				})
			}
		}
		return
	}

	if active == nil {
		m.cycles[room.ID] = &cycle{startTemp: measured}
		m.record(ctx, Event{
			Type:     EventCycleStarted,
			RoomID:   room.ID,
			RoomName: m.roomName(room.ID),
			Details:  fmt.Sprintf("start_temp=%.1f", measured),
		})
		return
	}

	if active.tripped {
		return
	}

	active.rounds++

	if measured >= active.startTemp+m.cfg.TempDelta {
		// The room is warming, restart the window from here.
		active.startTemp = measured
		active.rounds = 0
		return
	}

	if active.rounds >= m.cfg.CheckRounds {
		m.trip(ctx, homeID, room, active, measured)
	}
}

// trip fires the protective away action for a stalled heating cycle.
func (m *Monitor) trip(ctx context.Context, homeID string, room netatmo.Room, active *cycle, measured float64) {
	active.tripped = true
	name := m.roomName(room.ID)

	m.log.Warn("heating cycle stalled, setting home to away",
		"room", name,
		"rounds", active.rounds,
		"start_temp", active.startTemp,
		"measured", measured)

	m.record(ctx, Event{
		Type:     EventWatchdogTripped,
		RoomID:   room.ID,
		RoomName: name,
		Details: fmt.Sprintf("rounds=%d start_temp=%.1f measured=%.1f",
			active.rounds, active.startTemp, measured),
	})

	if err := m.commander.SetThermMode(ctx, homeID, netatmo.ModeAway); err != nil {
		m.log.Error("watchdog away action failed", "room", name, "error", err)
		return
	}

	m.record(ctx, Event{
		Type:     EventModeChanged,
		RoomID:   room.ID,
		RoomName: name,
		Details:  "mode=away trigger=watchdog",
	})
}

// checkBoiler records the boiler running with no heat demand anywhere.
// The event fires once per episode, not once per poll.
func (m *Monitor) checkBoiler(ctx context.Context, boilerOn, anyDemand bool) {
	anomaly := boilerOn && !anyDemand
	if anomaly && !m.boilerAnomaly {
		m.log.Warn("boiler running with no heat demand")
		m.record(ctx, Event{
			Type:    EventBoilerAnomaly,
			Details: "boiler_status=on heat_demand=none",
		})
	}
	m.boilerAnomaly = anomaly
}

func (m *Monitor) record(ctx context.Context, event Event) {
	if m.store == nil {
		return
	}
	if err := m.store.Record(ctx, event); err != nil {
		m.log.Error("record monitor event failed", "type", event.Type, "error", err)
	}
}

func (m *Monitor) roomName(id string) string {
	if name := m.roomNames[id]; name != "" {
		return name
	}
	return id
}
