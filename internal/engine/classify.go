package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
)

// Classify converts continuous anomaly scores into boolean labels using
// a target contamination rate over the whole population.
//
// Selection is rank-based (nearest rank): exactly
// round(contamination * N) windows are flagged, taken in descending
// score order with ties broken by ascending input position. The
// tie-break keeps the flagged count exact even when the score
// population is degenerate (all values identical).
func Classify(scores []float64, contamination float64) ([]bool, error) {
	if contamination <= 0 || contamination > 0.5 {
		return nil, domain.Configf("contamination must be in (0, 0.5], got %v", contamination)
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: no scores to classify", domain.ErrInsufficientData)
	}

	k := int(math.Round(contamination * float64(len(scores))))
	labels := make([]bool, len(scores))
	if k == 0 {
		return labels, nil
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	for _, idx := range order[:k] {
		labels[idx] = true
	}
	return labels, nil
}
