package netatmo

import "time"

// ThermMode is a home-wide thermostat operating mode.
type ThermMode string

// Accepted home-wide thermostat modes.
const (
	ModeSchedule   ThermMode = "schedule"
	ModeAway       ThermMode = "away"
	ModeFrostGuard ThermMode = "hg"
)

// ValidMode reports whether mode is one of the accepted thermostat modes.
func ValidMode(mode ThermMode) bool {
	switch mode {
	case ModeSchedule, ModeAway, ModeFrostGuard:
		return true
	}
	return false
}

// token holds the OAuth2 credentials returned by the vendor.
type token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`

	// expiresAt is computed locally from ExpiresIn when the token is issued.
	expiresAt time.Time
}

// apiResponse is the vendor's standard envelope. Every /api call wraps its
// payload in a body field.
type apiResponse[T any] struct {
	Body   T      `json:"body"`
	Status string `json:"status"`
}

// HomesData is the topology of the account: homes, their rooms and modules.
type HomesData struct {
	Homes []Home `json:"homes"`
}

// Home describes one home's rooms and installed modules.
type Home struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Rooms   []Room   `json:"rooms"`
	Modules []Module `json:"modules"`
}

// Room carries both topology (id, name, module ids) and, in a homestatus
// response, the live climate readings.
type Room struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Type      string   `json:"type,omitempty"`
	ModuleIDs []string `json:"module_ids,omitempty"`

	// Live status fields, present only in homestatus responses.
	MeasuredTemperature *float64 `json:"therm_measured_temperature,omitempty"`
	SetpointTemperature *float64 `json:"therm_setpoint_temperature,omitempty"`
	SetpointMode        string   `json:"therm_setpoint_mode,omitempty"`
	HeatingPowerRequest *int     `json:"heating_power_request,omitempty"`
	Reachable           *bool    `json:"reachable,omitempty"`
}

// HeatDemand reports whether the room is currently calling for heat.
func (r Room) HeatDemand() bool {
	return r.HeatingPowerRequest != nil && *r.HeatingPowerRequest > 0
}

// Module carries both topology and, in a homestatus response, live state.
// The interesting type codes are NATherm1 (thermostat), NRV (valve) and
// BNS (smarther, with an integrated boiler relay).
type Module struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Type     string `json:"type"`
	RoomID   string `json:"room_id,omitempty"`
	BridgeID string `json:"bridge,omitempty"`

	// Live status fields, present only in homestatus responses.
	Battery      *int  `json:"battery_level,omitempty"`
	RFStrength   *int  `json:"rf_strength,omitempty"`
	Reachable    *bool `json:"reachable,omitempty"`
	BoilerStatus *bool `json:"boiler_status,omitempty"`
}

// BoilerOn reports whether the module's boiler relay is currently closed.
// False when the module has no boiler relay at all.
func (m Module) BoilerOn() bool {
	return m.BoilerStatus != nil && *m.BoilerStatus
}

// HomeStatus is the live state of one home.
type HomeStatus struct {
	Home struct {
		ID      string   `json:"id"`
		Rooms   []Room   `json:"rooms"`
		Modules []Module `json:"modules"`
	} `json:"home"`
}
