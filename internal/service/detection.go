package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
	"github.com/vrpulse/jerk-sentinel/internal/engine"
	"github.com/vrpulse/jerk-sentinel/internal/monitor"
	"github.com/vrpulse/jerk-sentinel/internal/storage"
)

// ConfigOverrides carries per-request tuning; nil fields fall back to
// the service defaults.
type ConfigOverrides struct {
	WindowWidth   *float64 `json:"window_width,omitempty"`
	NumTrees      *int     `json:"num_trees,omitempty"`
	SubsampleSize *int     `json:"subsample_size,omitempty"`
	Contamination *float64 `json:"contamination,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`
}

func (o *ConfigOverrides) apply(cfg domain.DetectionConfig) domain.DetectionConfig {
	if o == nil {
		return cfg
	}
	if o.WindowWidth != nil {
		cfg.WindowWidth = *o.WindowWidth
	}
	if o.NumTrees != nil {
		cfg.NumTrees = *o.NumTrees
	}
	if o.SubsampleSize != nil {
		cfg.SubsampleSize = *o.SubsampleSize
	}
	if o.Contamination != nil {
		cfg.Contamination = *o.Contamination
	}
	if o.Seed != nil {
		cfg.Seed = *o.Seed
	}
	return cfg
}

// DetectionService runs the engine over submitted batches and records
// the results.
type DetectionService struct {
	repo     storage.Repository
	defaults domain.DetectionConfig
	metrics  *monitor.Metrics
}

// NewDetectionService creates a new DetectionService.
func NewDetectionService(repo storage.Repository, defaults domain.DetectionConfig, metrics *monitor.Metrics) *DetectionService {
	return &DetectionService{repo: repo, defaults: defaults, metrics: metrics}
}

// Run executes one detection over a complete sample batch, persists the
// run record and its labeled windows, and returns both. Engine failures
// after the run record exists are recorded on the run and returned
// unchanged.
func (s *DetectionService) Run(ctx context.Context, samples []domain.RawSample, overrides *ConfigOverrides) (*domain.DetectionRun, []domain.LabeledWindow, error) {
	cfg := overrides.apply(s.defaults)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	run := domain.DetectionRun{
		ID:          uuid.NewString(),
		Config:      cfg,
		Status:      domain.RunRunning,
		SampleCount: len(samples),
		StartedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	windows, err := engine.Detect(ctx, samples, cfg)
	if err != nil {
		s.recordFailure(ctx, &run, err)
		return nil, nil, err
	}

	anomalies := 0
	for _, w := range windows {
		if w.IsAnomaly {
			anomalies++
		}
	}

	if err := s.repo.SaveWindows(ctx, run.ID, windows); err != nil {
		s.recordFailure(ctx, &run, err)
		return nil, nil, err
	}
	if err := s.repo.CompleteRun(ctx, run.ID, len(windows), anomalies); err != nil {
		return nil, nil, err
	}

	s.metrics.RecordRun(len(windows), anomalies)
	monitor.DetectionsTotal.WithLabelValues("completed").Inc()
	monitor.AnomaliesDetectedTotal.Add(float64(anomalies))
	monitor.DetectionDurationSeconds.Observe(time.Since(start).Seconds())

	now := time.Now().UTC()
	run.Status = domain.RunCompleted
	run.WindowCount = len(windows)
	run.AnomalyCount = anomalies
	run.CompletedAt = &now
	return &run, windows, nil
}

func (s *DetectionService) recordFailure(ctx context.Context, run *domain.DetectionRun, cause error) {
	s.metrics.RecordFailure()
	monitor.DetectionsTotal.WithLabelValues("failed").Inc()
	if err := s.repo.FailRun(ctx, run.ID, cause.Error()); err != nil {
		// The original failure is what the caller needs to see.
		return
	}
}

// GetRun returns one run by ID.
func (s *DetectionService) GetRun(ctx context.Context, id string) (*domain.DetectionRun, error) {
	return s.repo.GetRun(ctx, id)
}

// ListRuns returns the most recent runs.
func (s *DetectionService) ListRuns(ctx context.Context, limit int) ([]domain.DetectionRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListRuns(ctx, limit)
}

// DeleteRun removes a run and its windows.
func (s *DetectionService) DeleteRun(ctx context.Context, id string) error {
	return s.repo.DeleteRun(ctx, id)
}

// GetWindows returns a run's labeled windows.
func (s *DetectionService) GetWindows(ctx context.Context, runID string, anomaliesOnly bool) ([]domain.LabeledWindow, error) {
	if _, err := s.repo.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.repo.GetWindows(ctx, runID, anomaliesOnly)
}
