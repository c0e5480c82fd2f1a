// Package processor orchestrates the realtime pipeline: ingest readings,
// evaluate threats, broadcast to dashboards, dispatch alerts, and report
// statistics. Each stage runs on its own cadence and communicates through
// bounded queues, so a slow stage sheds oldest work instead of blocking.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"github.com/couchcryptid/coastal-threat-service/internal/observability"
	"github.com/couchcryptid/coastal-threat-service/internal/queue"
	"github.com/couchcryptid/coastal-threat-service/internal/stats"
)

// evaluateBatchMax caps how many queued readings one evaluation tick
// consumes, so a backlog cannot monopolize the loop.
const evaluateBatchMax = 64

// ReadingSource produces the next batch of sensor readings.
type ReadingSource interface {
	NextReadings(ctx context.Context) ([]domain.Reading, error)
}

// Broadcaster pushes live data and instant threats to connected dashboards.
type Broadcaster interface {
	BroadcastLiveData(readings []domain.Reading)
	BroadcastInstantThreat(a domain.ThreatAssessment)
}

// AlertDispatcher sends one alert through the notification channels,
// reporting whether it cleared the suppression gate.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert domain.Alert) bool
}

// AlertStore persists alerts. Optional.
type AlertStore interface {
	SaveAlert(ctx context.Context, alert domain.Alert) (inserted bool, err error)
}

// StatePublisher mirrors the latest stats and alert to an external cache.
// Optional.
type StatePublisher interface {
	PublishStats(ctx context.Context, snap stats.Snapshot) error
	PublishAlert(ctx context.Context, alert domain.Alert) error
}

// Intervals sets the cadence of the four periodic stages.
type Intervals struct {
	Ingest     time.Duration
	ThreatPoll time.Duration
	Broadcast  time.Duration
	Stats      time.Duration
}

// Processor coordinates the pipeline stages.
type Processor struct {
	source     ReadingSource
	evaluator  *domain.Evaluator
	hub        Broadcaster
	dispatcher AlertDispatcher
	store      AlertStore
	publisher  StatePublisher
	monitor    *stats.Monitor

	readings *queue.Queue[domain.Reading]
	threats  *queue.Queue[domain.ThreatAssessment]

	// recent holds the newest readings for the periodic live_data broadcast.
	recentMu   sync.Mutex
	recent     []domain.Reading
	recentSize int

	intervals Intervals
	logger    *slog.Logger
	metrics   *observability.Metrics

	running atomic.Bool
	ready   atomic.Bool
}

// Config wires a Processor. Store and Publisher may be nil.
type Config struct {
	Source     ReadingSource
	Evaluator  *domain.Evaluator
	Hub        Broadcaster
	Dispatcher AlertDispatcher
	Store      AlertStore
	Publisher  StatePublisher
	Monitor    *stats.Monitor

	Readings *queue.Queue[domain.Reading]
	Threats  *queue.Queue[domain.ThreatAssessment]

	BroadcastBatchSize int
	Intervals          Intervals
	Logger             *slog.Logger
	Metrics            *observability.Metrics
}

// New creates the processor.
func New(cfg Config) *Processor {
	return &Processor{
		source:     cfg.Source,
		evaluator:  cfg.Evaluator,
		hub:        cfg.Hub,
		dispatcher: cfg.Dispatcher,
		store:      cfg.Store,
		publisher:  cfg.Publisher,
		monitor:    cfg.Monitor,
		readings:   cfg.Readings,
		threats:    cfg.Threats,
		recentSize: cfg.BroadcastBatchSize,
		intervals:  cfg.Intervals,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Running reports whether the pipeline loops are active.
func (p *Processor) Running() bool {
	return p.running.Load()
}

// CheckReadiness returns nil once at least one ingest cycle has completed.
func (p *Processor) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no ingest cycle has completed yet")
	}
	return nil
}

// Run starts the stage loops and blocks until the context is cancelled. A
// second concurrent Run is a no-op returning immediately.
func (p *Processor) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Warn("pipeline already running, ignoring start")
		return nil
	}
	defer p.running.Store(false)

	p.logger.Info("pipeline started",
		"ingest_interval", p.intervals.Ingest,
		"threat_poll_interval", p.intervals.ThreatPoll,
		"broadcast_interval", p.intervals.Broadcast,
		"stats_interval", p.intervals.Stats)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	loops := []struct {
		name     string
		interval time.Duration
		tick     func(context.Context)
	}{
		{"ingest", p.intervals.Ingest, p.ingestTick},
		{"evaluate", p.intervals.ThreatPoll, p.evaluateTick},
		{"dispatch", p.intervals.ThreatPoll, p.dispatchTick},
		{"broadcast", p.intervals.Broadcast, p.broadcastTick},
		{"stats", p.intervals.Stats, p.statsTick},
	}

	var wg sync.WaitGroup
	for _, loop := range loops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runLoop(ctx, loop.name, loop.interval, loop.tick)
		}()
	}
	wg.Wait()

	p.logger.Info("pipeline stopped", "reason", ctx.Err())
	return nil
}

// runLoop ticks one stage until cancellation. A panicking tick is logged and
// the loop keeps going; one poisoned reading must not take the stage down.
func (p *Processor) runLoop(ctx context.Context, name string, interval time.Duration, tick func(context.Context)) {
	for {
		if !sleepWithContext(ctx, interval) {
			return
		}
		p.safeTick(ctx, name, tick)
	}
}

func (p *Processor) safeTick(ctx context.Context, name string, tick func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("stage tick panicked", "stage", name, "panic", r)
		}
	}()
	tick(ctx)
}

// ingestTick pulls one batch from the source into the reading queue.
func (p *Processor) ingestTick(ctx context.Context) {
	start := time.Now()

	batch, err := p.source.NextReadings(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("ingest failed", "error", err)
		return
	}
	if len(batch) == 0 {
		return
	}

	var dropped int
	for _, r := range batch {
		if evicted := p.readings.Enqueue(r); evicted {
			dropped++
			p.metrics.QueueDrops.WithLabelValues("readings").Inc()
		}
	}

	p.metrics.ReadingsIngested.Add(float64(len(batch)))
	p.metrics.CycleBatch.Observe(float64(len(batch)))
	p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	p.monitor.RecordCycle(len(batch), time.Since(start))
	p.ready.Store(true)

	if dropped > 0 {
		p.logger.Warn("reading queue full, dropped oldest", "dropped", dropped, "queue_depth", p.readings.Len())
	}
}

// evaluateTick drains queued readings, classifies each, and routes immediate
// threats to the broadcast hub and the threat queue.
func (p *Processor) evaluateTick(ctx context.Context) {
	batch := p.readings.DrainUpTo(evaluateBatchMax)
	if len(batch) == 0 {
		return
	}

	for _, r := range batch {
		assessment := p.evaluator.Evaluate(r)
		p.remember(r)

		if !assessment.RequiresImmediateAlert {
			continue
		}

		p.metrics.ThreatsDetected.Inc()
		p.monitor.RecordThreat()
		p.logger.Info("instant threat detected",
			"location", r.Location.Name,
			"threat_type", assessment.ThreatType,
			"threat_level", assessment.Level,
			"severity", assessment.Severity)

		p.hub.BroadcastInstantThreat(assessment)
		if evicted := p.threats.Enqueue(assessment); evicted {
			p.metrics.QueueDrops.WithLabelValues("threats").Inc()
			p.logger.Warn("threat queue full, dropped oldest", "queue_depth", p.threats.Len())
		}
	}
}

// dispatchTick drains the threat queue and pushes each alert through the
// notification channels. Runs on its own loop because a dispatch can take as
// long as the channel timeout.
func (p *Processor) dispatchTick(ctx context.Context) {
	for _, assessment := range p.threats.DrainUpTo(evaluateBatchMax) {
		alert := domain.NewAlert(assessment)

		if p.store != nil {
			inserted, err := p.store.SaveAlert(ctx, alert)
			if err != nil {
				p.logger.Warn("alert persist failed", "alert_id", alert.ID, "error", err)
			} else if !inserted {
				p.logger.Debug("alert already persisted", "alert_id", alert.ID)
			}
		}

		if !p.dispatcher.Dispatch(ctx, alert) {
			p.monitor.RecordSuppressed()
			continue
		}
		p.monitor.RecordDispatch()

		if p.publisher != nil {
			if err := p.publisher.PublishAlert(ctx, alert); err != nil {
				p.logger.Warn("alert publish failed", "alert_id", alert.ID, "error", err)
			}
		}
	}
}

// broadcastTick sends the recent readings snapshot to connected dashboards.
func (p *Processor) broadcastTick(ctx context.Context) {
	snapshot := p.recentSnapshot()
	if len(snapshot) == 0 {
		return
	}
	p.hub.BroadcastLiveData(snapshot)
}

// statsTick logs the periodic status line and mirrors the snapshot outward.
func (p *Processor) statsTick(ctx context.Context) {
	p.monitor.Touch()
	snap := p.monitor.Snapshot(p.running.Load())

	p.logger.Info("pipeline status",
		"total_processed", snap.TotalProcessed,
		"threats_detected", snap.ThreatsDetected,
		"alerts_dispatched", snap.AlertsDispatched,
		"alerts_suppressed", snap.AlertsSuppressed,
		"avg_processing_seconds", snap.AvgProcessingTime,
		"reading_queue_depth", snap.ReadingQueueDepth,
		"threat_queue_depth", snap.ThreatQueueDepth)

	if p.publisher != nil {
		if err := p.publisher.PublishStats(ctx, snap); err != nil {
			p.logger.Warn("stats publish failed", "error", err)
		}
	}
}

// remember keeps the newest readings for the periodic broadcast.
func (p *Processor) remember(r domain.Reading) {
	p.recentMu.Lock()
	defer p.recentMu.Unlock()

	p.recent = append(p.recent, r)
	if len(p.recent) > p.recentSize {
		p.recent = p.recent[len(p.recent)-p.recentSize:]
	}
}

func (p *Processor) recentSnapshot() []domain.Reading {
	p.recentMu.Lock()
	defer p.recentMu.Unlock()
	return append([]domain.Reading(nil), p.recent...)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
