package mqtt

import (
	"strings"
	"testing"
)

func TestTopics_ItemState(t *testing.T) {
	tests := []struct {
		name string
		base string
		item string
		want string
	}{
		{
			name: "simple room",
			base: "netatmo",
			item: "kitchen",
			want: "netatmo/kitchen/state",
		},
		{
			name: "uppercase is lowered",
			base: "netatmo",
			item: "Living Room",
			want: "netatmo/living_room/state",
		},
		{
			name: "trailing slash on base",
			base: "home/netatmo/",
			item: "bedroom",
			want: "home/netatmo/bedroom/state",
		},
		{
			name: "slash in item cannot add a level",
			base: "netatmo",
			item: "up/down",
			want: "netatmo/up_down/state",
		},
		{
			name: "wildcards stripped",
			base: "netatmo",
			item: "room+#",
			want: "netatmo/room__/state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewTopics(tt.base).ItemState(tt.item)
			if got != tt.want {
				t.Errorf("ItemState(%q) = %q, want %q", tt.item, got, tt.want)
			}
		})
	}
}

func TestTopics_Snapshot(t *testing.T) {
	got := NewTopics("netatmo").Snapshot()
	if got != "netatmo/state" {
		t.Errorf("Snapshot() = %q, want %q", got, "netatmo/state")
	}
}

func TestTopics_BridgeStatus(t *testing.T) {
	got := NewTopics("netatmo").BridgeStatus()
	if got != "netatmo/bridge/status" {
		t.Errorf("BridgeStatus() = %q, want %q", got, "netatmo/bridge/status")
	}
}

func TestValidateTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		wantErr bool
	}{
		{name: "valid", topic: "netatmo/kitchen/state", wantErr: false},
		{name: "empty", topic: "", wantErr: true},
		{name: "plus wildcard", topic: "netatmo/+/state", wantErr: true},
		{name: "hash wildcard", topic: "netatmo/#", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTopic(tt.topic)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateTopic(%q) error = %v, wantErr %v", tt.topic, err, tt.wantErr)
			}
		})
	}
}

func TestInstanceClientID(t *testing.T) {
	a := instanceClientID("netatmo2mqtt")
	b := instanceClientID("netatmo2mqtt")

	if !strings.HasPrefix(a, "netatmo2mqtt-") {
		t.Errorf("instanceClientID() = %q, want prefix %q", a, "netatmo2mqtt-")
	}
	if a == b {
		t.Error("instanceClientID() returned identical IDs for two calls")
	}
}
