package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// monitoring pipeline.
type Metrics struct {
	ReadingsIngested prometheus.Counter
	ThreatsDetected  prometheus.Counter
	QueueDrops       *prometheus.CounterVec // labels: queue={readings,threats}
	PipelineRunning  prometheus.Gauge

	// Ingestion cycle metrics.
	CycleDuration prometheus.Histogram
	CycleBatch    prometheus.Histogram

	// Broadcast hub metrics.
	ConnectedClients  prometheus.Gauge
	BroadcastsSent    prometheus.Counter
	BroadcastFailures prometheus.Counter

	// Notification metrics.
	AlertsSuppressed prometheus.Counter
	ChannelSends     *prometheus.CounterVec // labels: channel, outcome={sent,simulated,failed,timeout}
	DispatchDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReadingsIngested,
		m.ThreatsDetected,
		m.QueueDrops,
		m.PipelineRunning,
		m.CycleDuration,
		m.CycleBatch,
		m.ConnectedClients,
		m.BroadcastsSent,
		m.BroadcastFailures,
		m.AlertsSuppressed,
		m.ChannelSends,
		m.DispatchDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "readings_ingested_total",
			Help:      "Total readings collected from the source.",
		}),
		ThreatsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "threats_detected_total",
			Help:      "Total instant threats that reached the broadcast path.",
		}),
		QueueDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "queue_drops_total",
			Help:      "Oldest-item evictions caused by full queues.",
		}, []string{"queue"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coastal",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coastal",
			Name:      "ingest_cycle_duration_seconds",
			Help:      "Duration of one collect-evaluate-enqueue cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		CycleBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coastal",
			Name:      "ingest_cycle_batch_size",
			Help:      "Readings collected per ingestion cycle.",
			Buckets:   []float64{1, 5, 10, 20, 30, 50, 75, 100},
		}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coastal",
			Name:      "dashboard_clients",
			Help:      "Currently connected live dashboard subscribers.",
		}),
		BroadcastsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "broadcasts_sent_total",
			Help:      "Messages delivered to dashboard subscribers.",
		}),
		BroadcastFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "broadcast_failures_total",
			Help:      "Sends that failed and removed the subscriber.",
		}),
		AlertsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "alerts_suppressed_total",
			Help:      "Alerts below the severity cutoff, dropped before dispatch.",
		}),
		ChannelSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "notification_channel_sends_total",
			Help:      "Notification channel attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coastal",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of a complete multi-channel alert dispatch.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
	}
}
