// Package seed generates deterministic synthetic telemetry for demos
// and local testing: a uniform jerk baseline with spikes injected into
// known windows, so detections have a ground truth to recover.
package seed

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
)

// Options controls the generated population.
type Options struct {
	Sessions       int     // distinct sessions
	UsersPerSess   int     // distinct users per session
	SamplesPerUser int     // samples per (session, user) pair
	Duration       float64 // seconds spanned by each session
	BaseJerk       float64 // upper bound of the uniform baseline
	SpikeJerk      float64 // jerk magnitude injected into spike windows
	SpikeWindows   []int64 // window indices (width 1s) that receive spikes
	Seed           int64
}

// DefaultOptions generates 3 sessions of 2 users over 60 seconds, with
// spikes in three windows.
func DefaultOptions() Options {
	return Options{
		Sessions:       3,
		UsersPerSess:   2,
		SamplesPerUser: 600,
		Duration:       60,
		BaseJerk:       10,
		SpikeJerk:      500,
		SpikeWindows:   []int64{7, 23, 41},
		Seed:           1,
	}
}

// Generate produces samples per opts. Output is sorted by session,
// user, then time, and identical for identical options.
func Generate(opts Options) []domain.RawSample {
	rng := rand.New(rand.NewSource(opts.Seed))

	spikes := make(map[int64]bool, len(opts.SpikeWindows))
	for _, w := range opts.SpikeWindows {
		spikes[w] = true
	}

	var samples []domain.RawSample
	for s := 0; s < opts.Sessions; s++ {
		sessionID := fmt.Sprintf("session-%02d", s+1)
		for u := 0; u < opts.UsersPerSess; u++ {
			userID := fmt.Sprintf("player-%02d", u+1)
			for i := 0; i < opts.SamplesPerUser; i++ {
				t := rng.Float64() * opts.Duration
				jerk := rng.Float64() * opts.BaseJerk
				if spikes[int64(t)] && rng.Float64() < 0.2 {
					jerk = opts.SpikeJerk + rng.Float64()*opts.SpikeJerk
				}
				samples = append(samples, domain.RawSample{
					SessionID: sessionID,
					UserID:    userID,
					Time:      t,
					Jerk:      jerk,
				})
			}
		}
	}

	sort.Slice(samples, func(i, j int) bool {
		a, b := samples[i], samples[j]
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.Time < b.Time
	})
	return samples
}
