// Package engine implements the windowed-aggregation and
// isolation-forest scoring pipeline: raw jerk samples are bucketed into
// per-(session, user) time windows, each window's peak is scored by an
// ensemble of randomized partition trees, and a contamination-derived
// cutoff turns scores into anomaly labels.
package engine

import (
	"context"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
)

// Detect runs the full pipeline over a complete batch of samples:
// aggregate -> fit -> score -> classify. Sub-component failures are
// returned unchanged; on error no partial result is produced.
//
// Output order follows Aggregate's (sessionID, userID, windowIndex)
// sort, and for a fixed cfg.Seed two calls over the same input yield
// bit-identical results.
func Detect(ctx context.Context, samples []domain.RawSample, cfg domain.DetectionConfig) ([]domain.LabeledWindow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	aggs := Aggregate(samples, cfg.WindowWidth)

	values := make([]float64, len(aggs))
	for i, a := range aggs {
		values[i] = a.MaxJerk
	}

	forest, err := Fit(ctx, values, cfg)
	if err != nil {
		return nil, err
	}
	scores := forest.Score(values)

	labels, err := Classify(scores, cfg.Contamination)
	if err != nil {
		return nil, err
	}

	windows := make([]domain.LabeledWindow, len(aggs))
	for i, a := range aggs {
		windows[i] = domain.LabeledWindow{
			SessionID:   a.Key.SessionID,
			UserID:      a.Key.UserID,
			WindowIndex: a.Key.WindowIndex,
			MaxJerk:     a.MaxJerk,
			Score:       scores[i],
			IsAnomaly:   labels[i],
		}
	}
	return windows, nil
}
