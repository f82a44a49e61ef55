package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/casaluce/netatmo2mqtt/internal/api"
	"github.com/casaluce/netatmo2mqtt/internal/corrector"
	"github.com/casaluce/netatmo2mqtt/internal/generator"
	"github.com/casaluce/netatmo2mqtt/internal/hass"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/database"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/influxdb"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/logging"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/mqtt"
	"github.com/casaluce/netatmo2mqtt/internal/monitor"
	"github.com/casaluce/netatmo2mqtt/internal/netatmo"
	"github.com/casaluce/netatmo2mqtt/internal/poller"
	"github.com/casaluce/netatmo2mqtt/internal/publisher"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the INI configuration file")
	hassConfigPath := flag.String("hass-config", "", "write Home Assistant MQTT sensor YAML for the home topology to this file (- for stdout) and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("netatmo2mqtt", version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *hassConfigPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

// defaultConfigPath honors the NETATMO2MQTT_CONFIG environment variable,
// falling back to a config file next to the binary.
func defaultConfigPath() string {
	if path := os.Getenv("NETATMO2MQTT_CONFIG"); path != "" {
		return path
	}
	return "config.ini"
}

func run(ctx context.Context, configPath, hassConfigPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting netatmo2mqtt", "version", version, "config", configPath)

	client := netatmo.New(cfg, log.With("component", "netatmo"))

	if hassConfigPath != "" {
		return writeHassConfig(ctx, client, cfg, hassConfigPath)
	}

	broker, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}
	defer broker.Close()
	broker.SetOnDisconnect(func(err error) {
		log.Warn("mqtt connection lost", "error", err)
	})
	broker.SetOnConnect(func() {
		log.Info("mqtt connected", "broker", cfg.MQTT.Broker)
	})

	pub := publisher.New(broker, broker.Topics(), log.With("component", "publisher"))

	poll := poller.New(client, cfg.Home.HomeID, cfg.GetPollInterval(),
		log.With("component", "poller"))
	poll.OnTopology(pub.SetTopology)
	poll.OnStatus(func(ctx context.Context, status *netatmo.HomeStatus) {
		if err := pub.PublishStatus(ctx, status); err != nil {
			log.Error("publish cycle incomplete", "error", err)
		}
	})

	var events api.EventSource
	var db *database.DB
	var watchdog *monitor.Monitor
	if cfg.Monitor.Enabled {
		db, err = database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		repo := monitor.NewEventRepository(db)
		events = repo

		watchdog = monitor.New(client, repo, cfg.Monitor, log.With("component", "monitor"))
		poll.OnTopology(watchdog.SetTopology)
		poll.OnStatus(watchdog.HandleStatus)
	}

	var recorder *influxdb.Client
	if cfg.InfluxDB.Enabled {
		recorder, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connect influxdb: %w", err)
		}
		defer recorder.Close()
		recorder.SetOnError(func(err error) {
			log.Warn("telemetry write failed", "error", err)
		})

		poll.OnStatus(func(_ context.Context, status *netatmo.HomeStatus) {
			recordTelemetry(recorder, status)
		})
	}

	server := api.New(cfg.HTTP, client, poll, events,
		log.With("component", "api"), version)
	server.AddHealthCheck("mqtt", broker.HealthCheck)
	if watchdog != nil {
		server.SetMonitorSource(watchdog)
	}
	if db != nil {
		server.AddHealthCheck("database", db.HealthCheck)
	}
	if recorder != nil {
		server.AddHealthCheck("influxdb", recorder.HealthCheck)
	}

	// Every poller handler is registered before the poller starts so
	// the one-shot topology dispatch cannot be missed.
	var correct *corrector.Corrector
	if cfg.Corrector.Enabled {
		reader := hass.New(cfg.HomeAssistant, cfg.GetRequestTimeout())
		correct = corrector.New(reader, client, cfg.Corrector,
			log.With("component", "corrector"))
		poll.OnTopology(correct.SetTopology)
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return poll.Run(ctx)
	})

	if correct != nil {
		group.Go(func() error {
			return correct.Run(ctx)
		})
	}

	group.Go(server.Start)
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	log.Info("netatmo2mqtt stopped")
	return err
}

// writeHassConfig fetches the topology and renders Home Assistant sensor
// configuration, then exits.
func writeHassConfig(ctx context.Context, client *netatmo.Client, cfg *config.Config, path string) error {
	data, err := client.GetHomesData(ctx)
	if err != nil {
		return fmt.Errorf("fetch homes data: %w", err)
	}
	if len(data.Homes) == 0 {
		return fmt.Errorf("account has no homes")
	}

	home := data.Homes[0]
	if cfg.Home.HomeID != "" {
		found := false
		for _, h := range data.Homes {
			if h.ID == cfg.Home.HomeID {
				home = h
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("home %s not found on account", cfg.Home.HomeID)
		}
	}

	out := os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return generator.Write(out, home, mqtt.NewTopics(cfg.MQTT.Topic))
}

// recordTelemetry maps one snapshot onto the telemetry series.
func recordTelemetry(recorder *influxdb.Client, status *netatmo.HomeStatus) {
	now := time.Now()

	for _, room := range status.Home.Rooms {
		if room.MeasuredTemperature == nil {
			continue
		}
		sample := influxdb.RoomSample{
			RoomID:       room.ID,
			RoomName:     room.Name,
			Measured:     *room.MeasuredTemperature,
			SetpointMode: room.SetpointMode,
			HeatDemand:   room.HeatDemand(),
		}
		if room.SetpointTemperature != nil {
			sample.Setpoint = *room.SetpointTemperature
		}
		recorder.WriteRoomSample(status.Home.ID, sample, now)
	}

	for _, module := range status.Home.Modules {
		if module.BoilerStatus != nil {
			recorder.WriteBoilerState(status.Home.ID, module.ID, *module.BoilerStatus, now)
		}
	}
}
