// Package main provides the entrypoint for the SafeRoute alert worker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/saferoute/saferoute/internal/alerts"
	"github.com/saferoute/saferoute/internal/config"
	"github.com/saferoute/saferoute/internal/stream/mqtt"
	"github.com/saferoute/saferoute/internal/stream/pubsub"
	"github.com/saferoute/saferoute/internal/stream/rabbitmq"
	"github.com/saferoute/saferoute/internal/telemetry"
	"github.com/saferoute/saferoute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "saferoute-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting SafeRoute worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.Streams.PubSubProjectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	subscriber, err := pubsub.NewAlertSubscriber(ctx, pubsub.SubscriberConfig{
		ProjectID:        cfg.Streams.PubSubProjectID,
		SubscriptionName: cfg.Streams.AlertSubscription,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create alert subscriber")
	}
	defer subscriber.Close()

	// Notifications go to RabbitMQ; without a broker they are only logged.
	var notifier alerts.Notifier = alerts.NotifierFunc(func(_ context.Context, n alerts.Notification) error {
		log.Info().
			Str("alert_id", n.AlertID).
			Str("watcher_id", n.WatcherID).
			Float64("distance_meters", n.DistanceMeters).
			Msg("notification (no broker configured)")
		return nil
	})
	if cfg.Streams.AMQPURL != "" {
		conn, dialErr := rabbitmq.Dial(cfg.Streams.AMQPURL)
		if dialErr != nil {
			log.Fatal().Err(dialErr).Msg("failed to connect to RabbitMQ")
		}
		defer conn.Close()

		publisher, pubErr := rabbitmq.NewNotificationPublisher(conn, rabbitmq.PublisherConfig{
			Queue:  cfg.Streams.NotificationsQueue,
			Logger: log,
		})
		if pubErr != nil {
			log.Fatal().Err(pubErr).Msg("failed to create notification publisher")
		}
		defer publisher.Close()
		notifier = publisher
		log.Info().Msg("notification publisher initialized")
	} else {
		log.Warn().Msg("AMQP_URL not set - notifications are logged only")
	}

	// Watcher positions arrive over MQTT; without a broker no watcher is ever in range.
	var samples <-chan mqtt.Sample
	if cfg.Streams.MQTTBroker != "" {
		client, connErr := mqtt.Connect(mqtt.Config{
			Broker:   cfg.Streams.MQTTBroker,
			ClientID: cfg.Streams.MQTTClientID,
			Username: cfg.Streams.MQTTUsername,
			Password: cfg.Streams.MQTTPassword,
		})
		if connErr != nil {
			log.Fatal().Err(connErr).Msg("failed to connect to MQTT broker")
		}
		defer client.Disconnect(250)

		positions := mqtt.NewPositionSubscriber(client, mqtt.SubscriberConfig{
			Topic:  cfg.Streams.MQTTPositionTopic,
			Logger: log,
		})
		if err := positions.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to subscribe to watcher positions")
		}
		defer positions.Stop() //nolint:errcheck // best effort on shutdown
		samples = positions.Samples()
	} else {
		log.Warn().Msg("MQTT_BROKER not set - no watcher positions will be received")
	}

	hub := alerts.NewHub(alerts.HubConfig{
		MaxWatchers:         cfg.Alerts.MaxWatchers,
		NotifiedCapacity:    cfg.Alerts.NotifiedCapacity,
		DefaultRadiusMeters: cfg.Alerts.DefaultRadiusMeters,
		Logger:              log.With().Str("component", "alerts").Logger(),
	})
	if err := telemetry.RegisterGauge(tp.Meter, "saferoute.alerts.watchers",
		"Watchers with a known position", func() int64 { return int64(hub.Len()) }); err != nil {
		log.Warn().Err(err).Msg("failed to register watcher gauge")
	}

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		Hub:      hub,
		Notifier: notifier,
		Logger:   log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      healthRouter(dispatcher),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := subscriber.Start(gctx); err != nil {
			return err
		}
		if gctx.Err() == nil {
			return errors.New("alert subscription ended unexpectedly")
		}
		return nil
	})
	g.Go(func() error {
		return dispatcher.Run(gctx, samples, subscriber.Alerts())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down worker")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("worker stopped with error")
		os.Exit(1) //nolint:gocritic // deferred cleanup is best-effort
	}

	log.Info().Msg("worker stopped")
}

func healthRouter(d *worker.Dispatcher) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck // client went away
			"status":   "healthy",
			"version":  Version,
			"dispatch": d.MetricsSnapshot(),
		})
	})
	return r
}
