// GE Appliances bridge
//
// geabridge listens to appliances announcing themselves on the GE
// Appliances MQTT bus, learns what each one supports from its capability
// manifests, and exposes the discovered elements as typed entities over
// an HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gea-bridge/internal/api"
	"github.com/nerrad567/gea-bridge/internal/appliance"
	"github.com/nerrad567/gea-bridge/internal/audit"
	"github.com/nerrad567/gea-bridge/internal/bridges/gea"
	"github.com/nerrad567/gea-bridge/internal/capability"
	"github.com/nerrad567/gea-bridge/internal/device"
	"github.com/nerrad567/gea-bridge/internal/discovery"
	"github.com/nerrad567/gea-bridge/internal/entity"
	"github.com/nerrad567/gea-bridge/internal/erd"
	"github.com/nerrad567/gea-bridge/internal/infrastructure/config"
	"github.com/nerrad567/gea-bridge/internal/infrastructure/database"
	"github.com/nerrad567/gea-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/gea-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/gea-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/gea-bridge/internal/meta"
	"github.com/nerrad567/gea-bridge/migrations"
)

// Version information, set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting geabridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := config.Path()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	dom, err := loadDomain(cfg.Appliance)
	if err != nil {
		return err
	}
	log.Info("appliance definitions loaded",
		"erds", dom.defs.Len(),
		"meta_erds", len(dom.table),
	)

	db, err := database.Open(ctx, database.Config{
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

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	devices := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	devices.SetLogger(log)
	if err := devices.RefreshCache(ctx); err != nil {
		return fmt.Errorf("loading device catalog: %w", err)
	}
	log.Info("device catalog loaded", "appliances", len(devices.ListDevices()))

	// Core: store, propagation, presentation, routing.
	store := appliance.NewStore()
	store.SetLogger(log)

	coord := meta.NewCoordinator(dom.table, dom.defs, store)
	coord.SetLogger(log)

	entities := entity.NewRegistry(store, dom.defs)
	entities.SetLogger(log)
	entities.SetTransformApplier(coord)
	coord.SetPresenter(entities)

	router := discovery.New(store, dom.catalog, coord)
	router.SetLogger(log)
	router.SetRegistrar(devices)
	router.AddListener(entities)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	checks := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}

	opts := gea.BridgeOptions{
		Prefix:     cfg.Appliance.TopicPrefix,
		QoS:        cfg.MQTT.QoS,
		MQTTClient: mqttClient,
		Router:     router,
		Logger:     log,
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		opts.History = influxClient
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled, element history not recorded")
	}

	bridge, err := gea.NewBridge(opts)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	store.SetPublisher(bridge)
	store.SetWriteObserver(bridge.RecordWrite)

	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		bridge.Stop()
	}()

	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Store:    store,
			Entities: entities,
			Devices:  devices,
			Audit:    audit.NewSQLiteRepository(db.DB),
			Bridge:   bridge,
			Router:   router,
			Checks:   checks,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for appliances", "prefix", cfg.Appliance.TopicPrefix)

	<-ctx.Done()

	// Deferred shutdown runs in reverse: API, bridge, InfluxDB, MQTT, database.
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// domain holds the definition files loaded at startup.
type domain struct {
	defs    *erd.Store
	catalog *capability.Catalog
	table   meta.Table
}

// loadDomain reads the ERD definitions, the manifest catalog and the meta
// transform table. An empty transforms path selects the built-in table.
func loadDomain(cfg config.ApplianceConfig) (domain, error) {
	defs, err := erd.LoadDefinitions(cfg.DefinitionsFile)
	if err != nil {
		return domain{}, fmt.Errorf("loading ERD definitions: %w", err)
	}

	catalog, err := capability.LoadCatalog(cfg.APIFile)
	if err != nil {
		return domain{}, fmt.Errorf("loading appliance API: %w", err)
	}

	table := meta.DefaultTable()
	if cfg.TransformsFile != "" {
		table, err = meta.LoadTable(cfg.TransformsFile)
		if err != nil {
			return domain{}, fmt.Errorf("loading meta transforms: %w", err)
		}
	}

	return domain{defs: defs, catalog: catalog, table: table}, nil
}

// healthCheck runs every component check once.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
