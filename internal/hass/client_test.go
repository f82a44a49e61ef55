package hass

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(config.HomeAssistantConfig{
		URL:   server.URL,
		Token: "test-token",
	}, 5*time.Second)
}

func TestGetTemperature_Sensor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		if r.URL.Path != "/api/states/sensor.kitchen_temp" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"entity_id":"sensor.kitchen_temp","state":"20.3","attributes":{}}`))
	})

	got, err := client.GetTemperature(context.Background(), "sensor.kitchen_temp")
	if err != nil {
		t.Fatalf("GetTemperature() error = %v", err)
	}
	if got != 20.3 {
		t.Errorf("GetTemperature() = %v, want 20.3", got)
	}
}

func TestGetTemperature_ClimateAttribute(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"entity_id": "climate.kitchen",
			"state": "heat",
			"attributes": {"current_temperature": 19.5, "temperature": 21.0}
		}`))
	})

	got, err := client.GetTemperature(context.Background(), "climate.kitchen")
	if err != nil {
		t.Fatalf("GetTemperature() error = %v", err)
	}
	if got != 19.5 {
		t.Errorf("GetTemperature() = %v, want 19.5", got)
	}
}

func TestGetTemperature_UnavailableStates(t *testing.T) {
	for _, state := range []string{"unavailable", "unknown"} {
		t.Run(state, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"entity_id":"sensor.x","state":"` + state + `","attributes":{}}`))
			})

			_, err := client.GetTemperature(context.Background(), "sensor.x")
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("error = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestGetTemperature_UnknownEntity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetTemperature(context.Background(), "sensor.missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetTemperature_NonNumericSensor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entity_id":"sensor.x","state":"on","attributes":{}}`))
	})

	if _, err := client.GetTemperature(context.Background(), "sensor.x"); err == nil {
		t.Error("GetTemperature() error = nil, want parse error")
	}
}
