package generator

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/mqtt"
	"github.com/casaluce/netatmo2mqtt/internal/netatmo"
)

// sensorConfig is one Home Assistant MQTT sensor entry.
type sensorConfig struct {
	Name              string `yaml:"name"`
	UniqueID          string `yaml:"unique_id"`
	StateTopic        string `yaml:"state_topic"`
	ValueTemplate     string `yaml:"value_template"`
	UnitOfMeasurement string `yaml:"unit_of_measurement,omitempty"`
	DeviceClass       string `yaml:"device_class,omitempty"`
	AvailabilityTopic string `yaml:"availability_topic"`
	AvailabilityTmpl  string `yaml:"availability_template"`
}

// mqttPlatform is the generated top-level document, ready to paste into a
// Home Assistant configuration package.
type mqttPlatform struct {
	MQTT struct {
		Sensor       []sensorConfig `yaml:"sensor"`
		BinarySensor []sensorConfig `yaml:"binary_sensor,omitempty"`
	} `yaml:"mqtt"`
}

// Write renders Home Assistant MQTT sensor configuration for every room
// and boiler module in the home topology.
//
// Per room it emits a measured temperature sensor rooted at the room's
// retained state topic; per boiler-capable module a binary sensor for the
// relay state. All entities share the bridge availability topic.
func Write(w io.Writer, home netatmo.Home, topics mqtt.Topics) error {
	var doc mqttPlatform

	for _, room := range home.Rooms {
		name := room.Name
		if name == "" {
			name = room.ID
		}
		topic := topics.ItemState(name)

		doc.MQTT.Sensor = append(doc.MQTT.Sensor, sensorConfig{
			Name:              name + " Temperature",
			UniqueID:          "netatmo2mqtt_" + room.ID + "_temperature",
			StateTopic:        topic,
			ValueTemplate:     "{{ value_json.therm_measured_temperature }}",
			UnitOfMeasurement: "°C",
			DeviceClass:       "temperature",
			AvailabilityTopic: topics.BridgeStatus(),
			AvailabilityTmpl:  "{{ value_json.state }}",
		}, sensorConfig{
			Name:              name + " Setpoint",
			UniqueID:          "netatmo2mqtt_" + room.ID + "_setpoint",
			StateTopic:        topic,
			ValueTemplate:     "{{ value_json.therm_setpoint_temperature }}",
			UnitOfMeasurement: "°C",
			DeviceClass:       "temperature",
			AvailabilityTopic: topics.BridgeStatus(),
			AvailabilityTmpl:  "{{ value_json.state }}",
		})
	}

	for _, module := range home.Modules {
		if module.Type != "BNS" && module.Type != "NATherm1" &&
			module.Type != "NAPlug" && module.Type != "OTH" {
			continue
		}
		name := module.Name
		if name == "" {
			name = module.ID
		}

		doc.MQTT.BinarySensor = append(doc.MQTT.BinarySensor, sensorConfig{
			Name:              name + " Boiler",
			UniqueID:          "netatmo2mqtt_" + module.ID + "_boiler",
			StateTopic:        topics.ItemState(name),
			ValueTemplate:     "{{ 'ON' if value_json.boiler_status else 'OFF' }}",
			DeviceClass:       "heat",
			AvailabilityTopic: topics.BridgeStatus(),
			AvailabilityTmpl:  "{{ value_json.state }}",
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode home assistant config: %w", err)
	}
	return enc.Close()
}
