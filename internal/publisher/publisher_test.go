package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/logging"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/mqtt"
	"github.com/casaluce/netatmo2mqtt/internal/netatmo"
)

type fakeBroker struct {
	published map[string][]byte
	calls     int
	failTopic string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{published: make(map[string][]byte)}
}

func (f *fakeBroker) PublishRetained(_ context.Context, topic string, payload []byte) error {
	if topic == f.failTopic {
		return errors.New("broker rejected publish")
	}
	f.calls++
	f.published[topic] = payload
	return nil
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func testStatus() *netatmo.HomeStatus {
	status := &netatmo.HomeStatus{}
	status.Home.ID = "home-1"
	status.Home.Rooms = []netatmo.Room{
		{
			ID:                  "room-1",
			MeasuredTemperature: floatPtr(19.4),
			SetpointTemperature: floatPtr(21.0),
			SetpointMode:        "schedule",
		},
	}
	status.Home.Modules = []netatmo.Module{
		{ID: "mod-1", Type: "BNS", RoomID: "room-1", BoilerStatus: boolPtr(true)},
	}
	return status
}

func testTopology() netatmo.Home {
	return netatmo.Home{
		ID:      "home-1",
		Rooms:   []netatmo.Room{{ID: "room-1", Name: "Kitchen"}},
		Modules: []netatmo.Module{{ID: "mod-1", Name: "Boiler Relay", Type: "BNS"}},
	}
}

func TestPublishStatus_TopicsAndNames(t *testing.T) {
	broker := newFakeBroker()
	pub := New(broker, mqtt.NewTopics("netatmo"), logging.Default())
	pub.SetTopology(testTopology())

	if err := pub.PublishStatus(context.Background(), testStatus()); err != nil {
		t.Fatalf("PublishStatus() error = %v", err)
	}

	wantTopics := []string{
		"netatmo/kitchen/state",
		"netatmo/boiler_relay/state",
		"netatmo/state",
	}
	for _, topic := range wantTopics {
		if _, ok := broker.published[topic]; !ok {
			t.Errorf("missing publish to %s (got %v)", topic, topicsOf(broker))
		}
	}
}

func TestPublishStatus_RoomDocument(t *testing.T) {
	broker := newFakeBroker()
	pub := New(broker, mqtt.NewTopics("netatmo"), logging.Default())
	pub.SetTopology(testTopology())

	if err := pub.PublishStatus(context.Background(), testStatus()); err != nil {
		t.Fatalf("PublishStatus() error = %v", err)
	}

	var doc struct {
		ID         string   `json:"id"`
		Name       string   `json:"name"`
		Measured   *float64 `json:"therm_measured_temperature"`
		Setpoint   *float64 `json:"therm_setpoint_temperature"`
		Mode       string   `json:"therm_setpoint_mode"`
		HeatDemand bool     `json:"heat_demand"`
		UpdatedAt  string   `json:"updated_at"`
	}
	if err := json.Unmarshal(broker.published["netatmo/kitchen/state"], &doc); err != nil {
		t.Fatalf("unmarshal room document: %v", err)
	}

	if doc.ID != "room-1" || doc.Name != "Kitchen" {
		t.Errorf("identity = %s/%s, want room-1/Kitchen", doc.ID, doc.Name)
	}
	if doc.Measured == nil || *doc.Measured != 19.4 {
		t.Errorf("measured = %v, want 19.4", doc.Measured)
	}
	if doc.Mode != "schedule" {
		t.Errorf("mode = %q, want %q", doc.Mode, "schedule")
	}
	if doc.HeatDemand {
		t.Error("heat_demand = true, want false")
	}
	if doc.UpdatedAt == "" {
		t.Error("updated_at is empty")
	}
}

func TestPublishStatus_UnknownItemFallsBackToID(t *testing.T) {
	broker := newFakeBroker()
	pub := New(broker, mqtt.NewTopics("netatmo"), logging.Default())
	// No topology set: names are unknown.

	if err := pub.PublishStatus(context.Background(), testStatus()); err != nil {
		t.Fatalf("PublishStatus() error = %v", err)
	}

	if _, ok := broker.published["netatmo/room-1/state"]; !ok {
		t.Errorf("expected fallback topic netatmo/room-1/state, got %v", topicsOf(broker))
	}
}

func TestPublishStatus_FailureDoesNotAbortRemaining(t *testing.T) {
	broker := newFakeBroker()
	broker.failTopic = "netatmo/kitchen/state"
	pub := New(broker, mqtt.NewTopics("netatmo"), logging.Default())
	pub.SetTopology(testTopology())

	err := pub.PublishStatus(context.Background(), testStatus())
	if err == nil {
		t.Fatal("PublishStatus() error = nil, want publish failure")
	}

	// The module and snapshot documents still went out.
	if _, ok := broker.published["netatmo/boiler_relay/state"]; !ok {
		t.Error("module document was not published after room failure")
	}
	if _, ok := broker.published["netatmo/state"]; !ok {
		t.Error("snapshot was not published after room failure")
	}
}

func TestPublishStatus_RepublishIsNotDeduplicated(t *testing.T) {
	broker := newFakeBroker()
	pub := New(broker, mqtt.NewTopics("netatmo"), logging.Default())
	pub.SetTopology(testTopology())

	status := testStatus()
	if err := pub.PublishStatus(context.Background(), status); err != nil {
		t.Fatalf("first PublishStatus() error = %v", err)
	}
	first := broker.calls

	if err := pub.PublishStatus(context.Background(), status); err != nil {
		t.Fatalf("second PublishStatus() error = %v", err)
	}

	if broker.calls != 2*first {
		t.Errorf("publish calls = %d after republish, want %d", broker.calls, 2*first)
	}
}

func topicsOf(broker *fakeBroker) []string {
	topics := make([]string, 0, len(broker.published))
	for topic := range broker.published {
		topics = append(topics, topic)
	}
	return topics
}
