package influxdb

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// RoomSample is one room's climate reading at a point in time.
type RoomSample struct {
	RoomID       string
	RoomName     string
	Measured     float64
	Setpoint     float64
	SetpointMode string
	HeatDemand   bool
}

// WriteRoomSample records a room climate measurement.
//
// Measurement: room_climate
// Tags:        home_id, room_id, room_name
// Fields:      measured, setpoint, setpoint_mode, heat_demand
func (c *Client) WriteRoomSample(homeID string, sample RoomSample, ts time.Time) {
	point := influxdb2.NewPoint(
		"room_climate",
		map[string]string{
			"home_id":   homeID,
			"room_id":   sample.RoomID,
			"room_name": sample.RoomName,
		},
		map[string]interface{}{
			"measured":      sample.Measured,
			"setpoint":      sample.Setpoint,
			"setpoint_mode": sample.SetpointMode,
			"heat_demand":   sample.HeatDemand,
		},
		ts,
	)
	c.writeAPI.WritePoint(point)
}

// WriteBoilerState records the boiler relay state.
//
// Measurement: boiler
// Tags:        home_id, module_id
// Fields:      on
func (c *Client) WriteBoilerState(homeID, moduleID string, on bool, ts time.Time) {
	point := influxdb2.NewPoint(
		"boiler",
		map[string]string{
			"home_id":   homeID,
			"module_id": moduleID,
		},
		map[string]interface{}{
			"on": on,
		},
		ts,
	)
	c.writeAPI.WritePoint(point)
}

// Flush forces pending writes out of the background pipeline.
func (c *Client) Flush() {
	c.writeAPI.Flush()
}
