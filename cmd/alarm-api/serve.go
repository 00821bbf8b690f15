package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/ingest"
	"example.com/homealarm/internal/logging"
	"example.com/homealarm/internal/metrics"
	"example.com/homealarm/internal/service"
	transport "example.com/homealarm/internal/transport/http"
)

const ingestQueueSize = 1024

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the MQTT subscriber when a broker is configured)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.Subsystem(logger, "main")
	log.Infof("config: driver=%s port=%s", cfg.DBDriver, cfg.Port)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg, logging.Subsystem(logger, "storage"))
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("db: ready")

	rec := metrics.NewRecorder()
	registry := domain.MustStatusRegistry(domain.DefaultStatuses)
	sd := service.Deps{
		Store:    store,
		Registry: registry,
		Log:      logging.Subsystem(logger, "service"),
		Metrics:  rec,
	}
	events := service.NewEventService(sd)
	motions := service.NewMotionService(sd, events)

	var sub *ingest.Subscriber
	if cfg.MQTT.Enabled() {
		ingestLog := logging.Subsystem(logger, "ingest")
		dispatcher := ingest.NewDispatcher(cfg.MQTT.TopicPrefix, events, motions)
		ingestor := ingest.NewIngestor(dispatcher, ingestQueueSize, ingestLog)
		// The worker outlives the signal context: it stops only after the
		// subscription is gone and the queue is drained.
		ingestor.Start(context.Background())

		sub = ingest.NewSubscriber(cfg.MQTT, dispatcher.Filter(), ingestor, ingestLog)
		if err := sub.Connect(); err != nil {
			ingestor.Stop()
			return err
		}
		defer func() {
			sub.Close()
			ingestor.Stop()
			log.Info("ingest: stopped")
		}()
		log.Infof("ingest: subscribed to %s on %s", dispatcher.Filter(), cfg.MQTT.Broker)
	}

	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	deps := &transport.ServerDeps{
		Cfg:      cfg,
		Events:   events,
		Motions:  motions,
		Registry: registry,
		Store:    store,
		Metrics:  rec,
		Log:      logging.Subsystem(logger, "http"),
		Now:      func() time.Time { return time.Now().UTC() },
	}
	if sub != nil {
		deps.Ingest = sub
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deps.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info("shutting down")
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	return srv.Shutdown(shutdownCtx)
}
