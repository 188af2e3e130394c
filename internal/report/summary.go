// Package report turns labeled windows into the run summary consumed by
// the console output and by external plotting: population statistics,
// the top anomalous windows, and histogram buckets for the normal and
// anomalous distributions.
package report

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
)

const (
	normalBins  = 50
	anomalyBins = 20
)

// Summarize builds a RunSummary over one detection's output. topN caps
// the anomalous-window listing.
func Summarize(windows []domain.LabeledWindow, topN int) domain.RunSummary {
	summary := domain.RunSummary{TotalWindows: len(windows)}
	if len(windows) == 0 {
		return summary
	}

	var all, normal, anomalous []float64
	var anomalies []domain.LabeledWindow
	for _, w := range windows {
		all = append(all, w.MaxJerk)
		if w.IsAnomaly {
			anomalous = append(anomalous, w.MaxJerk)
			anomalies = append(anomalies, w)
		} else {
			normal = append(normal, w.MaxJerk)
		}
	}

	summary.AnomalousWindows = len(anomalies)
	summary.AnomalyRate = float64(len(anomalies)) / float64(len(windows)) * 100
	summary.AllStats = jerkStats(all)
	if len(anomalous) > 0 {
		s := jerkStats(anomalous)
		summary.AnomalyStats = &s
	}

	sort.Slice(anomalies, func(i, j int) bool {
		return anomalies[i].MaxJerk > anomalies[j].MaxJerk
	})
	if topN > 0 && len(anomalies) > topN {
		anomalies = anomalies[:topN]
	}
	summary.TopAnomalies = anomalies

	summary.NormalHistogram = histogram(normal, normalBins)
	summary.AnomalyHistogram = histogram(anomalous, anomalyBins)
	return summary
}

func jerkStats(values []float64) domain.JerkStats {
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)

	s := domain.JerkStats{
		Mean:   stat.Mean(values, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}

// histogram bins values into equal-width buckets over their observed
// range. A constant population collapses into a single bucket.
func histogram(values []float64, bins int) []domain.HistogramBucket {
	if len(values) == 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return []domain.HistogramBucket{{Low: lo, High: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	buckets := make([]domain.HistogramBucket, bins)
	for i := range buckets {
		buckets[i].Low = lo + float64(i)*width
		buckets[i].High = lo + float64(i+1)*width
	}
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1 // hi itself lands in the last bucket
		}
		buckets[idx].Count++
	}
	return buckets
}
