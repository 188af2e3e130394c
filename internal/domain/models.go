package domain

import (
	"math"
	"time"
)

// RawSample is one telemetry reading: the jerk magnitude observed for a
// user in a session at a point in time. Samples are produced externally
// (parquet files, frame differentiation) and consumed transiently.
type RawSample struct {
	SessionID string  `json:"sessionid"`
	UserID    string  `json:"userid"`
	Time      float64 `json:"time"`
	Jerk      float64 `json:"jerk"`
}

// WindowKey identifies one fixed-width time bucket for a (session, user)
// pair. WindowIndex = floor(time / windowWidth).
type WindowKey struct {
	SessionID   string `json:"sessionid"`
	UserID      string `json:"userid"`
	WindowIndex int64  `json:"window_index"`
}

// WindowKeyFor maps a sample onto its window. Total and deterministic:
// every sample maps to exactly one key.
func WindowKeyFor(s RawSample, windowWidth float64) WindowKey {
	return WindowKey{
		SessionID:   s.SessionID,
		UserID:      s.UserID,
		WindowIndex: int64(math.Floor(s.Time / windowWidth)),
	}
}

// WindowAggregate is the per-window reduction: the maximum jerk over all
// samples that fell into the window.
type WindowAggregate struct {
	Key     WindowKey `json:"key"`
	MaxJerk float64   `json:"max_jerk"`
}

// ScoredWindow pairs an aggregate with its isolation-forest anomaly
// score in [0, 1].
type ScoredWindow struct {
	Aggregate WindowAggregate `json:"aggregate"`
	Score     float64         `json:"score"`
}

// LabeledWindow is the final output unit of a detection run.
type LabeledWindow struct {
	SessionID   string  `json:"sessionid"`
	UserID      string  `json:"userid"`
	WindowIndex int64   `json:"window_index"`
	MaxJerk     float64 `json:"max_jerk"`
	Score       float64 `json:"score"`
	IsAnomaly   bool    `json:"is_anomaly"`
}

// DetectionConfig is the full tuning surface of a detection run. It is
// always passed explicitly so the engine stays reentrant; callers that
// need reproducible output must set Seed themselves.
type DetectionConfig struct {
	WindowWidth   float64 `json:"window_width"`
	NumTrees      int     `json:"num_trees"`
	SubsampleSize int     `json:"subsample_size"`
	Contamination float64 `json:"contamination"`
	Seed          int64   `json:"seed"`
}

// DefaultConfig returns the standard tuning: 1s windows, 100 trees,
// 256-sample subsamples, 0.5% expected anomalies.
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		WindowWidth:   1.0,
		NumTrees:      100,
		SubsampleSize: 256,
		Contamination: 0.005,
	}
}

// Validate checks every field against its documented domain.
func (c DetectionConfig) Validate() error {
	if c.WindowWidth <= 0 {
		return Configf("window_width must be positive, got %v", c.WindowWidth)
	}
	if c.NumTrees <= 0 {
		return Configf("num_trees must be positive, got %d", c.NumTrees)
	}
	if c.SubsampleSize < 2 {
		return Configf("subsample_size must be at least 2, got %d", c.SubsampleSize)
	}
	if c.Contamination <= 0 || c.Contamination > 0.5 {
		return Configf("contamination must be in (0, 0.5], got %v", c.Contamination)
	}
	return nil
}

// RunStatus tracks the lifecycle of a stored detection run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// DetectionRun is the persisted record of one detection.
type DetectionRun struct {
	ID           string          `json:"id"`
	Config       DetectionConfig `json:"config"`
	Status       RunStatus       `json:"status"`
	SampleCount  int             `json:"sample_count"`
	WindowCount  int             `json:"window_count"`
	AnomalyCount int             `json:"anomaly_count"`
	Error        string          `json:"error,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// JerkStats summarizes a max-jerk population.
type JerkStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// HistogramBucket is one bin of a max-jerk distribution.
type HistogramBucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// RunSummary is the reporting view over a finished run: the numbers the
// original console summary and plots were built from.
type RunSummary struct {
	RunID            string            `json:"run_id,omitempty"`
	TotalWindows     int               `json:"total_windows"`
	AnomalousWindows int               `json:"anomalous_windows"`
	AnomalyRate      float64           `json:"anomaly_rate"`
	AllStats         JerkStats         `json:"max_jerk_stats"`
	AnomalyStats     *JerkStats        `json:"anomaly_stats,omitempty"`
	TopAnomalies     []LabeledWindow   `json:"top_anomalies"`
	NormalHistogram  []HistogramBucket `json:"normal_histogram"`
	AnomalyHistogram []HistogramBucket `json:"anomaly_histogram"`
}
