package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/pickroute/internal/api"
	"github.com/nerrad567/pickroute/internal/audit"
	"github.com/nerrad567/pickroute/internal/detection"
	"github.com/nerrad567/pickroute/internal/dispatch"
	"github.com/nerrad567/pickroute/internal/engine"
	"github.com/nerrad567/pickroute/internal/history"
	"github.com/nerrad567/pickroute/internal/infrastructure/config"
	"github.com/nerrad567/pickroute/internal/infrastructure/influxdb"
	"github.com/nerrad567/pickroute/internal/infrastructure/logging"
	"github.com/nerrad567/pickroute/internal/infrastructure/mqtt"
	"github.com/nerrad567/pickroute/internal/infrastructure/redis"
	"github.com/nerrad567/pickroute/internal/metrics"
	"github.com/nerrad567/pickroute/internal/remote"
	"github.com/nerrad567/pickroute/internal/route"
	"github.com/nerrad567/pickroute/internal/serial"
	"github.com/nerrad567/pickroute/migrations"
)

const (
	// dispatchFlushTimeout bounds the wait for queued robot commands at
	// shutdown.
	dispatchFlushTimeout = 5 * time.Second

	// subscriberBuffer is the engine event buffer of each in-process consumer.
	subscriberBuffer = 128
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the playback engine and HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, log)
		},
	}
}

// runServe wires every component and blocks until ctx is cancelled or the
// controller lease is lost.
func runServe(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("starting pickroute",
		"version", version,
		"commit", commit,
		"build_date", date,
		"node", cfg.Robot.Node,
	)

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	registry := route.NewRegistry(route.NewSQLiteRepository(db.DB))
	registry.SetLogger(log)
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading route registry: %w", refreshErr)
	}
	log.Info("route registry initialised", "routes", registry.Count())

	runs := history.NewSQLiteRepository(db.DB)
	aborted, err := runs.AbortRunning(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("closing interrupted runs: %w", err)
	}
	if aborted > 0 {
		log.Warn("marked interrupted runs as aborted", "runs", aborted)
	}

	checks := map[string]api.HealthCheckFunc{"database": db.HealthCheck}

	channel, closeRemote, err := connectRemote(ctx, cancel, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeRemote()

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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		checks["influxdb"] = influxClient.HealthCheck
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	collector := metrics.New()

	link, closeSerial := openSerial(ctx, cfg, log)
	defer closeSerial()
	var serialCh dispatch.Serial
	var serialStats api.SerialStats
	if link != nil {
		serialCh, serialStats = link, link
		checks["serial"] = link.HealthCheck
	}

	observers := dispatchObservers{collector}
	if influxClient != nil {
		observers = append(observers, influxDispatchObserver{client: influxClient})
	}
	dispatcher := dispatch.New(channel, serialCh, cfg.Remote.QueueSize,
		dispatch.WithLogger(log),
		dispatch.WithObserver(observers),
	)

	var eng *engine.Engine
	monitor := detection.NewMonitor(channel, cfg.Robot.DetectionField,
		func(detected bool) { eng.Detection(detected) },
		detection.WithLogger(log),
		detection.WithObserver(collector),
	)
	eng = engine.New(registry, dispatcher,
		engine.WithLogger(log),
		engine.WithGate(monitor),
		engine.WithTickInterval(cfg.TickInterval()),
	)

	// Subscribe before the loop starts so no transition is missed.
	metricEvents, stopMetrics := eng.Subscribe(subscriberBuffer)
	go collector.Run(metricEvents)

	recorderOpts := []history.RecorderOption{history.WithLogger(log)}
	if influxClient != nil {
		recorderOpts = append(recorderOpts, history.WithTelemetry(influxClient))
	}
	recorder := history.NewRecorder(runs, recorderOpts...)
	historyEvents, stopHistory := eng.Subscribe(subscriberBuffer)
	recorderDone := make(chan struct{})
	go func() {
		defer close(recorderDone)
		recorder.Run(context.WithoutCancel(ctx), historyEvents)
	}()

	go func() {
		if runErr := eng.Run(ctx); runErr != nil {
			log.Error("playback engine error", "error", runErr)
			cancel()
		}
	}()
	go func() {
		if runErr := monitor.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			log.Error("detection monitor error", "error", runErr)
		}
	}()

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = collector.Handler()
	}
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Routes:      registry,
		Runs:        runs,
		Audit:       audit.NewSQLiteRepository(db.DB),
		Engine:      eng,
		Metrics:     metricsHandler,
		MetricsPath: cfg.Metrics.Path,
		DB:          db.DB,
		Serial:      serialStats,
		Checks:      checks,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	log.Info("initialisation complete, waiting for shutdown signal", "address", server.Addr())

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if closeErr := server.Close(); closeErr != nil {
		log.Error("error closing API server", "error", closeErr)
	}

	// The engine commands a stop on its way out; let it reach the robot.
	<-eng.Done()
	stopMetrics()
	stopHistory()
	<-recorderDone

	flushCtx, flushCancel := context.WithTimeout(context.Background(), dispatchFlushTimeout)
	if flushErr := dispatcher.Flush(flushCtx); flushErr != nil {
		log.Warn("robot commands not flushed", "error", flushErr)
	}
	flushCancel()
	dispatcher.Close()

	log.Info("pickroute stopped")
	return nil
}

// connectRemote opens the configured remote backend. For Redis it also
// takes the controller lease and cancels ctx through stop if the lease is
// lost. The returned function releases everything.
func connectRemote(ctx context.Context, stop context.CancelFunc, cfg *config.Config, log *logging.Logger, checks map[string]api.HealthCheckFunc) (remote.Channel, func(), error) {
	switch cfg.Remote.Backend {
	case config.RemoteBackendRedis:
		rc, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to Redis: %w", err)
		}
		ttl := time.Duration(cfg.Redis.LeaseTTL) * time.Second
		lease, err := rc.AcquireLease(ctx, redis.ControllerKey(cfg.Robot.Node), ttl)
		if err != nil {
			rc.Close() //nolint:errcheck // Already failing
			return nil, nil, fmt.Errorf("acquiring controller lease: %w", err)
		}
		lease.KeepAlive(ctx, func(err error) {
			log.Error("controller lease lost, shutting down", "key", lease.Key(), "error", err)
			stop()
		})
		checks["redis"] = rc.HealthCheck
		log.Info("Redis connected", "addr", cfg.Redis.Addr, "lease", lease.Key())

		return remote.NewRedisChannel(rc.Redis(), cfg.Robot.Node, cfg.Robot.DetectionField), func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := lease.Release(releaseCtx); err != nil {
				log.Warn("error releasing controller lease", "error", err)
			}
			log.Info("closing Redis connection")
			if err := rc.Close(); err != nil {
				log.Error("error closing Redis", "error", err)
			}
		}, nil

	default:
		topics := mqtt.Topics{Prefix: cfg.Remote.TopicPrefix, Node: cfg.Robot.Node}
		client, err := mqtt.Connect(cfg.MQTT, topics.EngineStatus())
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		client.SetLogger(log)
		client.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		client.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		checks["mqtt"] = client.HealthCheck
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"update_topic", topics.Update(),
		)

		return remote.NewMQTTChannel(client, topics), func() {
			log.Info("disconnecting from MQTT")
			if err := client.Close(); err != nil {
				log.Error("error closing MQTT", "error", err)
			}
		}, nil
	}
}

// openSerial opens the device link when enabled and keeps reopening it
// until ctx is cancelled. A port that cannot be opened is logged; sends
// fail and are dropped by the dispatcher until it comes back. The link is
// nil when disabled.
func openSerial(ctx context.Context, cfg *config.Config, log *logging.Logger) (*serial.Link, func()) {
	if !cfg.Serial.Enabled {
		log.Info("serial link disabled")
		return nil, func() {}
	}

	link := serial.New(cfg.Serial, serial.WithLogger(log))
	if err := link.Open(); err != nil {
		log.Warn("serial link unavailable, will retry", "port", cfg.Serial.Port, "error", err)
	}
	go func() {
		if err := link.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("serial link error", "error", err)
		}
	}()
	return link, func() {
		log.Info("closing serial link")
		if err := link.Close(); err != nil {
			log.Error("error closing serial link", "error", err)
		}
	}
}

// dispatchObservers fans dispatch failures out to several observers.
type dispatchObservers []dispatch.Observer

// DispatchFailure implements dispatch.Observer.
func (o dispatchObservers) DispatchFailure(channel string) {
	for _, obs := range o {
		obs.DispatchFailure(channel)
	}
}

// influxDispatchObserver records dispatch failures as telemetry points.
type influxDispatchObserver struct {
	client *influxdb.Client
}

// DispatchFailure implements dispatch.Observer.
func (o influxDispatchObserver) DispatchFailure(channel string) {
	o.client.WriteDispatchFailure(channel, time.Now())
}
