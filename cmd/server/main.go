// Package main is the entry point for the Room Reservation Manager server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/room-reservation-manager/backend/internal/api"
	"github.com/room-reservation-manager/backend/internal/api/handlers"
	"github.com/room-reservation-manager/backend/internal/config"
	"github.com/room-reservation-manager/backend/internal/logging"
	"github.com/room-reservation-manager/backend/internal/metrics"
	"github.com/room-reservation-manager/backend/internal/mqtt"
	"github.com/room-reservation-manager/backend/internal/openremote"
	"github.com/room-reservation-manager/backend/internal/reservation"
	"github.com/room-reservation-manager/backend/internal/storage"
	"github.com/room-reservation-manager/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, addr, dataDir string
	var healthCheck bool

	flagSet := pflag.NewFlagSet("room-reservation-manager", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	flagSet.StringVar(&addr, "addr", "", "HTTP server address (overrides config)")
	flagSet.StringVar(&dataDir, "data", "", "data directory for the SQLite database (overrides config)")
	flagSet.BoolVar(&healthCheck, "health-check", false, "run health check and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if dataDir != "" {
		cfg.Database.DataDir = dataDir
	}

	// Health check mode for Docker HEALTHCHECK
	if healthCheck {
		return runHealthCheck(cfg.Server.Addr)
	}

	// Allow overriding version via environment (e.g., injected by container build/runtime)
	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	log := logging.New(cfg.Logging, version)
	slog.SetDefault(log.Logger)
	log.Info("starting room reservation manager", "addr", cfg.Server.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewDB(cfg.Database.Path())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(ctx, db, log.Component("storage")); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	store := storage.NewStore(db)
	m := metrics.New()

	hub := websocket.NewHub(log.Component("websocket"))
	go hub.Run(ctx)

	notifiers := reservation.Notifiers{websocket.NewEventBroadcaster(hub)}
	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT, log.Component("mqtt"))
		if err != nil {
			// Notifications are best effort; the engine runs without them.
			log.Warn("mqtt disabled", "error", err)
		} else {
			mq := mqtt.NewNotifier(client, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS, log.Component("mqtt"))
			defer mq.Close()
			notifiers = append(notifiers, mq)
		}
	}

	engineCfg := reservation.Config{
		PushEnabled:           cfg.Engine.PushEnabled,
		LeadMinutesDefault:    cfg.Engine.LeadMinutesDefault,
		WebhookSecret:         cfg.Engine.WebhookSecret,
		DefaultTimezone:       cfg.Engine.DefaultTimezone,
		DefaultPowerAttribute: cfg.Engine.DefaultPowerAttribute,
	}

	services := api.Services{
		DB:      db,
		Store:   store,
		Hub:     hub,
		Metrics: m,
		Logger:  log.Component("http"),
	}

	var queue reservation.TaskQueue
	if cfg.OpenRemote.BaseURL != "" {
		orClient := openremote.NewClient(openremote.Config{
			BaseURL: cfg.OpenRemote.BaseURL,
			APIKey:  cfg.OpenRemote.APIKey,
			Timeout: cfg.OpenRemote.Timeout,
		})

		pusher := reservation.NewPusher(orClient, reservation.PusherConfig{
			QueueSize: cfg.Push.QueueSize,
			Workers:   cfg.Push.Workers,
		}, notifiers, log.Component("pusher"), m)
		pusher.Start()
		defer pusher.Stop()

		dispatcher := reservation.NewDispatcher(store, orClient, engineCfg, reservation.DispatcherConfig{
			Interval: cfg.Dispatcher.Interval,
			Horizon:  cfg.Dispatcher.Horizon,
		}, notifiers, log.Component("dispatcher"), m)
		if err := dispatcher.Start(); err != nil {
			return fmt.Errorf("starting dispatcher: %w", err)
		}
		defer dispatcher.Stop()

		queue = pusher
		services.Queue = pusher
		services.Dispatcher = dispatcher
		services.Scheduler = handlers.Pinger(orClient)
	}

	services.Manager = reservation.NewManager(store, queue, engineCfg, notifiers, log.Component("reservation"), m)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(services),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr, "push_enabled", engineCfg.PushEnabled)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + host + "/api/health")
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	return nil
}
