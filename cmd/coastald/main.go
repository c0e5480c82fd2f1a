package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/coastal-threat-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/coastal-threat-service/internal/adapter/kafka"
	"github.com/couchcryptid/coastal-threat-service/internal/adapter/postgres"
	"github.com/couchcryptid/coastal-threat-service/internal/adapter/rediscache"
	"github.com/couchcryptid/coastal-threat-service/internal/config"
	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"github.com/couchcryptid/coastal-threat-service/internal/hub"
	"github.com/couchcryptid/coastal-threat-service/internal/notify"
	"github.com/couchcryptid/coastal-threat-service/internal/observability"
	"github.com/couchcryptid/coastal-threat-service/internal/processor"
	"github.com/couchcryptid/coastal-threat-service/internal/queue"
	"github.com/couchcryptid/coastal-threat-service/internal/source"
	"github.com/couchcryptid/coastal-threat-service/internal/stats"
)

func main() {
	// Local development convenience; absent .env files are not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded",
		"locations", len(catalog.Locations),
		"stakeholder_groups", len(catalog.Stakeholders))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	readings := queue.New[domain.Reading](cfg.ReadingQueueCapacity)
	threats := queue.New[domain.ThreatAssessment](cfg.ThreatQueueCapacity)
	monitor := stats.NewMonitor(len(catalog.Locations), readings, threats, nil)

	// Reading source: remote collectors over Kafka, or the built-in
	// simulator.
	var src processor.ReadingSource
	var closers []func() error
	if cfg.KafkaEnabled {
		ks := kafkaadapter.NewSource(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
		closers = append(closers, ks.Close)
		src = ks
		logger.Info("kafka reading source enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		src = source.NewSimulator(catalog.Locations, time.Now().UnixNano(), nil, logger)
		logger.Info("simulated reading source enabled")
	}

	// Optional alert persistence.
	var store *postgres.Store
	if cfg.PostgresURL != "" {
		store, err = postgres.Open(ctx, cfg.PostgresURL, logger)
		if err != nil {
			logger.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		closers = append(closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("postgres schema setup failed", "error", err)
			os.Exit(1)
		}
		logger.Info("alert persistence enabled")
	} else {
		logger.Info("alert persistence disabled")
	}

	// Optional live-state cache.
	var cache *rediscache.Cache
	if cfg.RedisURL != "" {
		cache, err = rediscache.Open(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		closers = append(closers, cache.Close)
		logger.Info("live-state cache enabled")
	} else {
		logger.Info("live-state cache disabled")
	}

	// Notification gateways; unconfigured ones run in simulation mode.
	var sms notify.SMSGateway
	if cfg.SMSGatewayURL != "" {
		sms = notify.NewHTTPSMSGateway(cfg.SMSGatewayURL, cfg.SMSGatewayToken, cfg.SMSFrom, cfg.ChannelTimeout, logger)
		logger.Info("sms gateway enabled")
	}
	var email notify.EmailGateway
	if cfg.SMTPHost != "" {
		email = notify.NewSMTPGateway(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		logger.Info("email gateway enabled")
	}

	var recorder notify.Recorder
	if store != nil {
		recorder = store
	}
	dispatcher := notify.NewDispatcher(sms, email, nil, recorder, notify.Options{
		Contacts:             catalog.Contacts,
		Stakeholders:         catalog.Stakeholders,
		SuppressionThreshold: cfg.SuppressionThreshold,
		ChannelTimeout:       cfg.ChannelTimeout,
	}, logger, metrics)

	evaluator := domain.NewEvaluator(catalog.Tiers(), nil)

	proc := &processorHolder{}
	broadcastHub := hub.New(logger, metrics,
		func() stats.Snapshot { return monitor.Snapshot(proc.Running()) },
		catalog.Regions())

	var publisher processor.StatePublisher
	if cache != nil {
		publisher = cache
	}
	var alertStore processor.AlertStore
	if store != nil {
		alertStore = store
	}
	proc.set(processor.New(processor.Config{
		Source:             src,
		Evaluator:          evaluator,
		Hub:                broadcastHub,
		Dispatcher:         dispatcher,
		Store:              alertStore,
		Publisher:          publisher,
		Monitor:            monitor,
		Readings:           readings,
		Threats:            threats,
		BroadcastBatchSize: cfg.BroadcastBatchSize,
		Intervals: processor.Intervals{
			Ingest:     cfg.IngestInterval,
			ThreatPoll: cfg.ThreatPollInterval,
			Broadcast:  cfg.BroadcastInterval,
			Stats:      cfg.StatsInterval,
		},
		Logger:  logger,
		Metrics: metrics,
	}))

	var alertReader httpadapter.AlertReader
	if store != nil {
		alertReader = store
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Options{
		Ready:   proc.get(),
		Status:  proc.get(),
		StatsFn: monitor.Snapshot,
		Alerts:  alertReader,
		Hub:     broadcastHub,
		Regions: catalog.Regions(),
	}, logger)

	go broadcastHub.Run(ctx)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := proc.get().Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// processorHolder breaks the construction cycle between the hub's stats
// callback and the processor it reports on.
type processorHolder struct {
	p *processor.Processor
}

func (h *processorHolder) set(p *processor.Processor) { h.p = p }
func (h *processorHolder) get() *processor.Processor  { return h.p }

func (h *processorHolder) Running() bool {
	if h.p == nil {
		return false
	}
	return h.p.Running()
}
