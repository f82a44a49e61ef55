package generator

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/mqtt"
	"github.com/casaluce/netatmo2mqtt/internal/netatmo"
)

func testHome() netatmo.Home {
	return netatmo.Home{
		ID: "home-1",
		Rooms: []netatmo.Room{
			{ID: "room-1", Name: "Kitchen"},
			{ID: "room-2", Name: "Living Room"},
		},
		Modules: []netatmo.Module{
			{ID: "mod-1", Name: "Boiler Relay", Type: "BNS", RoomID: "room-1"},
			{ID: "mod-2", Name: "Kitchen Valve", Type: "NRV", RoomID: "room-1"},
		},
	}
}

func TestWrite_ProducesValidYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testHome(), mqtt.NewTopics("netatmo")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var doc struct {
		MQTT struct {
			Sensor []map[string]any `yaml:"sensor"`
			Binary []map[string]any `yaml:"binary_sensor"`
		} `yaml:"mqtt"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid yaml: %v", err)
	}

	// Two sensors per room.
	if got := len(doc.MQTT.Sensor); got != 4 {
		t.Errorf("sensors = %d, want 4", got)
	}
	// Only the boiler-capable module gets a binary sensor.
	if got := len(doc.MQTT.Binary); got != 1 {
		t.Errorf("binary sensors = %d, want 1", got)
	}
}

func TestWrite_TopicsMatchPublisherLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testHome(), mqtt.NewTopics("netatmo")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"netatmo/kitchen/state",
		"netatmo/living_room/state",
		"netatmo/boiler_relay/state",
		"netatmo/bridge/status",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing topic %s", want)
		}
	}
}

func TestWrite_UniqueIDsAreStable(t *testing.T) {
	var first, second bytes.Buffer
	if err := Write(&first, testHome(), mqtt.NewTopics("netatmo")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := Write(&second, testHome(), mqtt.NewTopics("netatmo")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if first.String() != second.String() {
		t.Error("two runs over the same topology produced different output")
	}
	if !strings.Contains(first.String(), "netatmo2mqtt_room-1_temperature") {
		t.Error("output missing room-1 unique_id")
	}
}
