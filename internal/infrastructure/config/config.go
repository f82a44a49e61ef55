package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Config is the root configuration structure for netatmo2mqtt.
// All configuration is loaded from an INI file and can be overridden by
// environment variables (the container entrypoint exports one variable per
// key before starting the daemon).
type Config struct {
	Credentials   CredentialsConfig   `ini:"credentials"`
	Home          HomeConfig          `ini:"home"`
	MQTT          MQTTConfig          `ini:"mqtt"`
	Global        GlobalConfig        `ini:"global"`
	Logging       LoggingConfig       `ini:"logging"`
	HTTP          HTTPConfig          `ini:"http"`
	HomeAssistant HomeAssistantConfig `ini:"homeassistant"`
	Corrector     CorrectorConfig     `ini:"corrector"`
	Monitor       MonitorConfig       `ini:"monitor"`
	Database      DatabaseConfig      `ini:"database"`
	InfluxDB      InfluxDBConfig      `ini:"influxdb"`
}

// CredentialsConfig contains the Netatmo OAuth2 credentials.
//
// ClientID and ClientSecret identify the registered application. The first
// token is obtained with Username/Password (or an existing RefreshToken);
// subsequent tokens always use the refresh-token grant.
type CredentialsConfig struct {
	ClientID     string `ini:"client_id"`
	ClientSecret string `ini:"client_secret"`
	Username     string `ini:"username"`
	Password     string `ini:"password"`
	RefreshToken string `ini:"refresh_token"`
}

// HomeConfig identifies the Netatmo home this daemon operates on.
type HomeConfig struct {
	// HomeID is the Netatmo home identifier. If empty, the first home
	// returned by /homesdata is used.
	HomeID string `ini:"home_id"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    string `ini:"broker"`
	Port      int    `ini:"port"`
	TLS       bool   `ini:"tls"`
	ClientID  string `ini:"client_id"`
	Username  string `ini:"username"`
	Password  string `ini:"password"`
	QoS       int    `ini:"qos"`
	Keepalive int    `ini:"keepalive"`

	// Topic is the base topic under which all state messages are published
	// (e.g. "netatmo" -> "netatmo/living-room/state").
	Topic string `ini:"topic"`
}

// GlobalConfig contains daemon-wide settings.
type GlobalConfig struct {
	// APIURL is the base URL of the Netatmo API.
	APIURL string `ini:"api_url"`

	// PollInterval is the poll-and-publish cycle interval in seconds.
	PollInterval int `ini:"poll_interval"`

	// RequestTimeout bounds every outbound HTTP request, in seconds.
	RequestTimeout int `ini:"request_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `ini:"level"`
	Format string `ini:"format"`
	Output string `ini:"output"`
}

// HTTPConfig contains REST server settings.
type HTTPConfig struct {
	Host         string `ini:"host"`
	Port         int    `ini:"port"`
	ReadTimeout  int    `ini:"read_timeout"`
	WriteTimeout int    `ini:"write_timeout"`
	IdleTimeout  int    `ini:"idle_timeout"`
}

// HomeAssistantConfig contains Home Assistant API access settings,
// used by the temperature corrector.
type HomeAssistantConfig struct {
	URL   string `ini:"url"`
	Token string `ini:"token"`
}

// CorrectorConfig contains temperature corrector settings.
//
// Rooms maps a Netatmo room name (lowercase) to its Home Assistant
// sensor/climate entity pair. It is populated from the [corrector.rooms]
// section where each key is the room name and the value is
// "sensor_entity,climate_entity".
type CorrectorConfig struct {
	Enabled        bool    `ini:"enabled"`
	Interval       int     `ini:"interval"`
	DeltaThreshold float64 `ini:"delta_threshold"`

	Rooms map[string]RoomMapping `ini:"-"`
}

// RoomMapping is a Home Assistant entity pair for one Netatmo room.
type RoomMapping struct {
	SensorEntity  string
	ClimateEntity string
}

// MonitorConfig contains heating cycle monitor settings.
type MonitorConfig struct {
	Enabled bool `ini:"enabled"`

	// CheckRounds is the number of polls a heating cycle may run without
	// the measured temperature rising by TempDelta before the away action
	// fires.
	CheckRounds int `ini:"check_rounds"`

	// TempDelta is the temperature rise (degrees C) that closes a cycle
	// as successful.
	TempDelta float64 `ini:"temp_delta"`

	// ValveModuleTypes are module types treated as valves when detecting
	// heat demand (comma separated, matched uppercase).
	ValveModuleTypes string `ini:"valve_module_types"`
}

// DatabaseConfig contains SQLite event store settings.
type DatabaseConfig struct {
	Path        string `ini:"path"`
	WALMode     bool   `ini:"wal_mode"`
	BusyTimeout int    `ini:"busy_timeout"`
}

// InfluxDBConfig contains optional telemetry recorder settings.
type InfluxDBConfig struct {
	Enabled       bool   `ini:"enabled"`
	URL           string `ini:"url"`
	Token         string `ini:"token"`
	Org           string `ini:"org"`
	Bucket        string `ini:"bucket"`
	BatchSize     int    `ini:"batch_size"`
	FlushInterval int    `ini:"flush_interval"`
}

// Load reads configuration from an INI file and applies environment variable
// overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. INI file values (override defaults)
//  3. Environment variables (override file values)
//
// Parameters:
//   - path: Path to the INI configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := file.MapTo(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Room mappings live in a child section and need manual parsing:
	// each key is a Netatmo room name, each value "sensor,climate".
	cfg.Corrector.Rooms = parseRoomMappings(file.Section("corrector.rooms").KeysHash())

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// parseRoomMappings converts raw [corrector.rooms] key/value pairs into
// RoomMapping entries. Malformed values (missing comma) are skipped.
func parseRoomMappings(raw map[string]string) map[string]RoomMapping {
	rooms := make(map[string]RoomMapping, len(raw))
	for name, value := range raw {
		sensor, climate, ok := strings.Cut(value, ",")
		if !ok {
			continue
		}
		rooms[strings.ToLower(strings.TrimSpace(name))] = RoomMapping{
			SensorEntity:  strings.TrimSpace(sensor),
			ClimateEntity: strings.TrimSpace(climate),
		}
	}
	return rooms
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			APIURL:         "https://api.netatmo.com",
			PollInterval:   150,
			RequestTimeout: 10,
		},
		MQTT: MQTTConfig{
			Broker:    "127.0.0.1",
			Port:      1883,
			Topic:     "netatmo",
			ClientID:  "netatmo2mqtt",
			QoS:       1,
			Keepalive: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		HTTP: HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  60,
		},
		Corrector: CorrectorConfig{
			Interval:       300,
			DeltaThreshold: 0.8,
		},
		Monitor: MonitorConfig{
			CheckRounds:      6,
			TempDelta:        0.5,
			ValveModuleTypes: "NRV,VALVE",
		},
		Database: DatabaseConfig{
			Path:        "./data/netatmo2mqtt.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. The variable names match the original container contract.
func applyEnvOverrides(cfg *Config) {
	// Credentials
	if v := os.Getenv("NETATMO_CLIENT_ID"); v != "" {
		cfg.Credentials.ClientID = v
	}
	if v := os.Getenv("NETATMO_CLIENT_SECRET"); v != "" {
		cfg.Credentials.ClientSecret = v
	}
	if v := os.Getenv("NETATMO_USERNAME"); v != "" {
		cfg.Credentials.Username = v
	}
	if v := os.Getenv("NETATMO_PASSWORD"); v != "" {
		cfg.Credentials.Password = v
	}
	if v := os.Getenv("NETATMO_REFRESH_TOKEN"); v != "" {
		cfg.Credentials.RefreshToken = v
	}

	// Home
	if v := os.Getenv("NETATMO_HOME_ID"); v != "" {
		cfg.Home.HomeID = v
	}

	// MQTT
	if v := os.Getenv("NETATMO_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("NETATMO_MQTT_TOPIC"); v != "" {
		cfg.MQTT.Topic = v
	}
	if v := os.Getenv("MQTT_USER"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASS"); v != "" {
		cfg.MQTT.Password = v
	}

	// Home Assistant
	if v := os.Getenv("HOMEASSISTANT_URL"); v != "" {
		cfg.HomeAssistant.URL = v
	}
	if v := os.Getenv("HOMEASSISTANT_TOKEN"); v != "" {
		cfg.HomeAssistant.Token = v
	}

	// InfluxDB
	if v := os.Getenv("NETATMO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Credentials.ClientID == "" {
		errs = append(errs, "credentials.client_id is required")
	}
	if c.Credentials.ClientSecret == "" {
		errs = append(errs, "credentials.client_secret is required")
	}
	if c.Credentials.RefreshToken == "" && (c.Credentials.Username == "" || c.Credentials.Password == "") {
		errs = append(errs, "credentials: either refresh_token or username+password is required")
	}

	if c.Global.PollInterval < 1 {
		errs = append(errs, "global.poll_interval must be at least 1 second")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, "mqtt.topic is required")
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, "http.port must be between 1 and 65535")
	}

	if c.Corrector.Enabled {
		if c.HomeAssistant.URL == "" || c.HomeAssistant.Token == "" {
			errs = append(errs, "corrector requires homeassistant.url and homeassistant.token")
		}
		if c.Corrector.DeltaThreshold <= 0 {
			errs = append(errs, "corrector.delta_threshold must be positive")
		}
	}

	if c.Monitor.Enabled && c.Database.Path == "" {
		errs = append(errs, "monitor requires database.path")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" || c.InfluxDB.Token == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb requires url, token, org and bucket when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPollInterval returns the poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Global.PollInterval) * time.Second
}

// GetRequestTimeout returns the outbound request timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.Global.RequestTimeout) * time.Second
}

// GetCorrectorInterval returns the corrector cycle interval as a Duration.
func (c *Config) GetCorrectorInterval() time.Duration {
	return time.Duration(c.Corrector.Interval) * time.Second
}

// GetReadTimeout returns the HTTP read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.HTTP.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.HTTP.WriteTimeout) * time.Second
}

// GetIdleTimeout returns the HTTP idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.HTTP.IdleTimeout) * time.Second
}

// ValveTypes returns the configured valve module types, uppercased.
func (c *MonitorConfig) ValveTypes() []string {
	parts := strings.Split(c.ValveModuleTypes, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
			types = append(types, t)
		}
	}
	return types
}
