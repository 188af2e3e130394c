package monitor

import (
	"sync"
	"time"
)

// Metrics tracks in-memory counters for the detection service.
type Metrics struct {
	mu sync.RWMutex

	RunsCompleted  int64 `json:"runs_completed"`
	RunsFailed     int64 `json:"runs_failed"`
	WindowsScored  int64 `json:"windows_scored"`
	AnomaliesFound int64 `json:"anomalies_found"`

	// Sliding window of per-run anomaly rates
	window []windowEntry
}

type windowEntry struct {
	ts   time.Time
	rate float64
}

const windowDuration = 15 * time.Minute

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	RunsCompleted  int64   `json:"runs_completed"`
	RunsFailed     int64   `json:"runs_failed"`
	WindowsScored  int64   `json:"windows_scored"`
	AnomaliesFound int64   `json:"anomalies_found"`
	WindowRuns     int     `json:"window_runs_15m"`
	WindowAvgRate  float64 `json:"window_avg_anomaly_rate_15m"`
	OverallAnomaly float64 `json:"overall_anomaly_rate"`
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRun records a completed detection run.
func (m *Metrics) RecordRun(windows, anomalies int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsCompleted++
	m.WindowsScored += int64(windows)
	m.AnomaliesFound += int64(anomalies)

	var rate float64
	if windows > 0 {
		rate = float64(anomalies) / float64(windows) * 100
	}
	now := time.Now()
	m.window = append(m.window, windowEntry{ts: now, rate: rate})
	m.pruneWindow(now)
}

// RecordFailure records a failed detection run.
func (m *Metrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsFailed++
}

func (m *Metrics) pruneWindow(now time.Time) {
	cutoff := now.Add(-windowDuration)
	i := 0
	for i < len(m.window) && m.window[i].ts.Before(cutoff) {
		i++
	}
	m.window = m.window[i:]
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	cutoff := now.Add(-windowDuration)
	var windowRuns int
	var rateSum float64
	for _, e := range m.window {
		if e.ts.After(cutoff) {
			windowRuns++
			rateSum += e.rate
		}
	}

	var avgRate float64
	if windowRuns > 0 {
		avgRate = rateSum / float64(windowRuns)
	}
	var overall float64
	if m.WindowsScored > 0 {
		overall = float64(m.AnomaliesFound) / float64(m.WindowsScored) * 100
	}

	return MetricsSnapshot{
		RunsCompleted:  m.RunsCompleted,
		RunsFailed:     m.RunsFailed,
		WindowsScored:  m.WindowsScored,
		AnomaliesFound: m.AnomaliesFound,
		WindowRuns:     windowRuns,
		WindowAvgRate:  avgRate,
		OverallAnomaly: overall,
	}
}
