// mdacore - Multidimensional Acquisition Server
//
// This is the main entry point for the mdacore application. mdacore
// coordinates laboratory instruments for automated data acquisition:
//   - Device registry with capability introspection
//   - Measurement engine for time series and N-dimensional maps
//   - REST API for control UIs and scripting clients
//   - MQTT event stream and InfluxDB telemetry export
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/openmda/mda-core/migrations"

	"github.com/openmda/mda-core/internal/api"
	"github.com/openmda/mda-core/internal/device"
	"github.com/openmda/mda-core/internal/drivers/sim"
	"github.com/openmda/mda-core/internal/engine"
	"github.com/openmda/mda-core/internal/infrastructure/config"
	"github.com/openmda/mda-core/internal/infrastructure/database"
	"github.com/openmda/mda-core/internal/infrastructure/influxdb"
	"github.com/openmda/mda-core/internal/infrastructure/logging"
	"github.com/openmda/mda-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting mdacore",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "instrument", cfg.Instrument.ID)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise device registry and bootstrap configured devices
	registry := device.NewRegistry()
	registry.SetLogger(log)

	if bootErr := bootstrapDevices(ctx, cfg, registry, log); bootErr != nil {
		return fmt.Errorf("bootstrapping devices: %w", bootErr)
	}
	log.Info("device registry initialised", "devices", registry.Count())
	defer func() {
		log.Info("disconnecting devices")
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer disconnectCancel()
		if dcErr := registry.DisconnectAll(disconnectCtx); dcErr != nil {
			log.Error("error disconnecting devices", "error", dcErr)
		}
	}()

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled, run events will not be published")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled, datapoint telemetry will not be exported")
	}

	// Assemble the measurement engine. MQTT, telemetry sink and run
	// persistence are all optional; the engine tolerates nil for each.
	var engineMQTT engine.MQTTClient
	if mqttClient != nil {
		engineMQTT = mqttClient
	}
	var sink engine.Sink
	if influxClient != nil {
		sink = influxdb.NewRunSink(influxClient)
	}
	var repo engine.Repository
	if cfg.Acquisition.PersistRuns {
		repo = engine.NewSQLiteRepository(db.DB)
	}

	runEngine := engine.NewEngine(
		engine.NewRunRegistry(cfg.Acquisition.MaxRunHistory),
		engineMQTT,
		sink,
		repo,
		log,
	)
	defer func() {
		log.Info("stopping measurement engine")
		runEngine.Close()
	}()
	log.Info("measurement engine started",
		"max_run_history", cfg.Acquisition.MaxRunHistory,
		"persist_runs", cfg.Acquisition.PersistRuns,
	)

	// Start the REST API
	var apiMQTT api.Publisher
	if mqttClient != nil {
		apiMQTT = mqttClient
	}
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Logger:   log,
		Registry: registry,
		Engine:   runEngine,
		MQTT:     apiMQTT,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Tell MQTT consumers the server is going away before teardown starts.
	if mqttClient != nil {
		topics := mqtt.Topics{}
		if pubErr := mqttClient.Publish(topics.SystemShutdown(), []byte(`{"status":"shutting_down"}`), 1, false); pubErr != nil {
			log.Warn("failed to publish shutdown event", "error", pubErr)
		}
	}

	// Deferred Close() calls run in reverse order:
	// 1. API server (stop accepting requests)
	// 2. Measurement engine (cancel active runs, wait for workers)
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Device disconnect
	// 6. Database

	log.Info("mdacore stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MDACORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MDACORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// bootstrapDevices registers the configured sim devices and connects the
// ones marked auto_connect. A failed auto-connect is logged but does not
// abort startup; the device can be connected later via the API.
func bootstrapDevices(ctx context.Context, cfg *config.Config, registry *device.Registry, log *logging.Logger) error {
	for _, sc := range cfg.Devices.Sim {
		dev := sim.New(sim.Options{
			ID:      sc.ID,
			Name:    sc.Name,
			Axes:    sc.Axes,
			Filters: sc.Filters,
			Latency: time.Duration(sc.LatencyMS) * time.Millisecond,
		})
		if err := registry.Register(dev); err != nil {
			return fmt.Errorf("registering device %q: %w", sc.ID, err)
		}
		log.Info("device registered", "id", sc.ID, "driver", "sim", "axes", sc.Axes)

		if !sc.AutoConnect {
			continue
		}
		if err := dev.Connect(ctx); err != nil {
			log.Warn("device auto-connect failed", "id", sc.ID, "error", err)
			continue
		}
		log.Info("device connected", "id", sc.ID)
	}
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
