package engine

import (
	"sort"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
)

// Aggregate groups raw samples into fixed-width time windows per
// (session, user) and reduces each group to its peak jerk. Pure: the
// input is never retained or mutated.
//
// Output is sorted by (sessionID, userID, windowIndex) ascending so
// downstream scoring and reporting are reproducible.
func Aggregate(samples []domain.RawSample, windowWidth float64) []domain.WindowAggregate {
	if len(samples) == 0 {
		return nil
	}

	peaks := make(map[domain.WindowKey]float64, len(samples))
	for _, s := range samples {
		key := domain.WindowKeyFor(s, windowWidth)
		if cur, ok := peaks[key]; !ok || s.Jerk > cur {
			peaks[key] = s.Jerk
		}
	}

	aggs := make([]domain.WindowAggregate, 0, len(peaks))
	for key, max := range peaks {
		aggs = append(aggs, domain.WindowAggregate{Key: key, MaxJerk: max})
	}

	sort.Slice(aggs, func(i, j int) bool {
		a, b := aggs[i].Key, aggs[j].Key
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.WindowIndex < b.WindowIndex
	})
	return aggs
}
