// Package stats aggregates process-wide pipeline counters for operators, the
// broadcast hub, and the live-state cache.
package stats

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ema smoothing factors for the rolling average processing latency. Stats are
// advisory, so simple read-modify-write under one mutex is sufficient.
const (
	emaKeep   = 0.9
	emaSample = 0.1
)

// QueueView is the read-only view of a queue the monitor reports on.
type QueueView interface {
	Len() int
	Dropped() int64
}

// Snapshot is one point-in-time view of the processing statistics.
type Snapshot struct {
	TotalProcessed     int64     `json:"total_processed"`
	ThreatsDetected    int64     `json:"threats_detected"`
	AlertsDispatched   int64     `json:"alerts_dispatched"`
	AlertsSuppressed   int64     `json:"alerts_suppressed"`
	AvgProcessingTime  float64   `json:"avg_processing_time"` // seconds
	LocationsMonitored int       `json:"locations_monitored"`
	ReadingQueueDepth  int       `json:"reading_queue_depth"`
	ThreatQueueDepth   int       `json:"threat_queue_depth"`
	ReadingsDropped    int64     `json:"readings_dropped"`
	ThreatsDropped     int64     `json:"threats_dropped"`
	LastUpdate         time.Time `json:"last_update"`
	SystemStatus       string    `json:"system_status"`
}

// Monitor accumulates throughput and latency counters for the lifetime of
// the process. Counters reset only on restart.
type Monitor struct {
	mu              sync.Mutex
	clock           clockwork.Clock
	readings        QueueView
	threats         QueueView
	locations       int
	totalProcessed  int64
	threatsDetected int64
	dispatched      int64
	suppressed      int64
	avgSeconds      float64
	lastUpdate      time.Time
}

// NewMonitor creates a monitor observing the two pipeline queues.
// A nil clock uses real time.
func NewMonitor(locations int, readings, threats QueueView, clk clockwork.Clock) *Monitor {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Monitor{
		clock:     clk,
		readings:  readings,
		threats:   threats,
		locations: locations,
	}
}

// RecordCycle folds one ingestion cycle into the totals and the exponential
// moving average of processing latency.
func (m *Monitor) RecordCycle(processed int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalProcessed += int64(processed)
	sample := elapsed.Seconds()
	if m.avgSeconds == 0 {
		m.avgSeconds = sample
	} else {
		m.avgSeconds = m.avgSeconds*emaKeep + sample*emaSample
	}
	m.lastUpdate = m.clock.Now()
}

// RecordThreat counts one instant threat that reached the broadcast path.
func (m *Monitor) RecordThreat() {
	m.mu.Lock()
	m.threatsDetected++
	m.mu.Unlock()
}

// RecordDispatch counts one alert that cleared the suppression gate.
func (m *Monitor) RecordDispatch() {
	m.mu.Lock()
	m.dispatched++
	m.mu.Unlock()
}

// RecordSuppressed counts one alert dropped by the suppression gate.
func (m *Monitor) RecordSuppressed() {
	m.mu.Lock()
	m.suppressed++
	m.mu.Unlock()
}

// Touch refreshes the last-update timestamp without changing counters.
func (m *Monitor) Touch() {
	m.mu.Lock()
	m.lastUpdate = m.clock.Now()
	m.mu.Unlock()
}

// Snapshot returns the current statistics together with live queue depths.
func (m *Monitor) Snapshot(running bool) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := "stopped"
	if running {
		status = "running"
	}

	s := Snapshot{
		TotalProcessed:     m.totalProcessed,
		ThreatsDetected:    m.threatsDetected,
		AlertsDispatched:   m.dispatched,
		AlertsSuppressed:   m.suppressed,
		AvgProcessingTime:  m.avgSeconds,
		LocationsMonitored: m.locations,
		LastUpdate:         m.lastUpdate,
		SystemStatus:       status,
	}
	if m.readings != nil {
		s.ReadingQueueDepth = m.readings.Len()
		s.ReadingsDropped = m.readings.Dropped()
	}
	if m.threats != nil {
		s.ThreatQueueDepth = m.threats.Len()
		s.ThreatsDropped = m.threats.Dropped()
	}
	return s
}
