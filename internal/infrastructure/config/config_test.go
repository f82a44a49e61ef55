package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes an INI config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "netatmo2mqtt.ini")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
[credentials]
client_id = abc123
client_secret = shh
refresh_token = tok

[home]
home_id = home-1

[mqtt]
broker = mqtt.local
port = 1883
topic = netatmo

[global]
poll_interval = 60

[http]
port = 9090
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Credentials.ClientID != "abc123" {
		t.Errorf("Credentials.ClientID = %q, want %q", cfg.Credentials.ClientID, "abc123")
	}
	if cfg.MQTT.Broker != "mqtt.local" {
		t.Errorf("MQTT.Broker = %q, want %q", cfg.MQTT.Broker, "mqtt.local")
	}
	if cfg.Global.PollInterval != 60 {
		t.Errorf("Global.PollInterval = %d, want 60", cfg.Global.PollInterval)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("HTTP.Port = %d, want 9090", cfg.HTTP.Port)
	}
	// Defaults survive for unset keys
	if cfg.Global.APIURL != "https://api.netatmo.com" {
		t.Errorf("Global.APIURL = %q, want default", cfg.Global.APIURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/netatmo2mqtt.ini")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	content := `
[mqtt]
topic = netatmo
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "client_id") {
		t.Errorf("Load() error = %v, want client_id mentioned", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
[credentials]
client_id = from-file
client_secret = shh
refresh_token = tok

[mqtt]
broker = from-file
`
	t.Setenv("NETATMO_CLIENT_ID", "from-env")
	t.Setenv("NETATMO_MQTT_BROKER", "broker-from-env")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Credentials.ClientID != "from-env" {
		t.Errorf("Credentials.ClientID = %q, want env override", cfg.Credentials.ClientID)
	}
	if cfg.MQTT.Broker != "broker-from-env" {
		t.Errorf("MQTT.Broker = %q, want env override", cfg.MQTT.Broker)
	}
}

func TestLoad_RoomMappings(t *testing.T) {
	content := `
[credentials]
client_id = abc
client_secret = shh
refresh_token = tok

[corrector.rooms]
soggiorno = sensor.sonoff_soggiorno_temperatura, climate.soggiorno
Ufficio = sensor.sonoff_ufficio_temperatura, climate.ufficio
broken = no-comma-here
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Corrector.Rooms) != 2 {
		t.Fatalf("len(Corrector.Rooms) = %d, want 2", len(cfg.Corrector.Rooms))
	}

	m, ok := cfg.Corrector.Rooms["ufficio"]
	if !ok {
		t.Fatal("room name not lowercased in mapping key")
	}
	if m.SensorEntity != "sensor.sonoff_ufficio_temperatura" {
		t.Errorf("SensorEntity = %q", m.SensorEntity)
	}
	if m.ClimateEntity != "climate.ufficio" {
		t.Errorf("ClimateEntity = %q", m.ClimateEntity)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		c := defaultConfig()
		c.Credentials = CredentialsConfig{
			ClientID:     "id",
			ClientSecret: "secret",
			RefreshToken: "tok",
		}
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing client secret",
			mutate:  func(c *Config) { c.Credentials.ClientSecret = "" },
			wantErr: true,
		},
		{
			name: "no token and no password",
			mutate: func(c *Config) {
				c.Credentials.RefreshToken = ""
				c.Credentials.Username = "user"
			},
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Global.PollInterval = 0 },
			wantErr: true,
		},
		{
			name:    "invalid http port",
			mutate:  func(c *Config) { c.HTTP.Port = 0 },
			wantErr: true,
		},
		{
			name:    "corrector without home assistant",
			mutate:  func(c *Config) { c.Corrector.Enabled = true },
			wantErr: true,
		},
		{
			name:    "influx enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMonitorConfig_ValveTypes(t *testing.T) {
	c := MonitorConfig{ValveModuleTypes: "nrv, Valve , "}
	got := c.ValveTypes()
	want := []string{"NRV", "VALVE"}
	if len(got) != len(want) {
		t.Fatalf("ValveTypes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ValveTypes()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
