package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
)

// eulerGamma is the Euler-Mascheroni constant used in the average
// unsuccessful-search path length of a binary tree.
const eulerGamma = 0.5772156649015329

// treeSeedStride decorrelates per-tree RNG streams derived from the
// base seed.
const treeSeedStride uint64 = 0x9E3779B97F4A7C15

const leafNode = -1

// node is one arena slot of an isolation tree. left == leafNode marks a
// leaf; size is only meaningful on leaves.
type node struct {
	split       float64
	left, right int32
	size        int32
}

// tree is an arena of nodes with an entry point. Immutable once built.
type tree struct {
	root  int32
	nodes []node
}

// Forest is a trained isolation forest over a single scalar feature.
// Trees never change after Fit, so Score is safe for concurrent use.
type Forest struct {
	trees      []tree
	sampleSize int
	depthLimit int
}

// Fit trains a forest on values using cfg.NumTrees, cfg.SubsampleSize
// and cfg.Seed. Each tree draws its own subsample without replacement
// from an RNG seeded by (seed, treeIndex), so the result is bit-identical
// for a given seed and input regardless of how the tree builders are
// scheduled. Construction fans out over a worker pool and is cancellable
// at tree granularity; a cancelled Fit never returns a partial forest.
func Fit(ctx context.Context, values []float64, cfg domain.DetectionConfig) (*Forest, error) {
	if cfg.NumTrees <= 0 {
		return nil, domain.Configf("num_trees must be positive, got %d", cfg.NumTrees)
	}
	if cfg.SubsampleSize < 2 {
		return nil, domain.Configf("subsample_size must be at least 2, got %d", cfg.SubsampleSize)
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 values to fit, got %d", domain.ErrInsufficientData, len(values))
	}

	sampleSize := cfg.SubsampleSize
	if len(values) < sampleSize {
		sampleSize = len(values)
	}
	depthLimit := int(math.Ceil(math.Log2(float64(sampleSize))))

	f := &Forest{
		trees:      make([]tree, cfg.NumTrees),
		sampleSize: sampleSize,
		depthLimit: depthLimit,
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > cfg.NumTrees {
		numWorkers = cfg.NumTrees
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// Tree identity is the job index, not arrival order, so
				// the ensemble is the same under any interleaving.
				f.trees[i] = buildTree(values, sampleSize, depthLimit, cfg.Seed+int64(uint64(i)*treeSeedStride))
			}
		}()
	}

	var cancelled bool
dispatch:
	for i := 0; i < cfg.NumTrees; i++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			cancelled = true
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled {
		// Discard whatever was built; Fit is all-or-nothing.
		return nil, ctx.Err()
	}
	return f, nil
}

// buildTree draws a subsample and grows one isolation tree into a fresh
// node arena.
func buildTree(values []float64, sampleSize, depthLimit int, seed int64) tree {
	rng := rand.New(rand.NewSource(seed))

	sample := make([]float64, sampleSize)
	for i, idx := range rng.Perm(len(values))[:sampleSize] {
		sample[i] = values[idx]
	}

	t := tree{nodes: make([]node, 0, 2*sampleSize)}
	t.root = t.grow(rng, sample, 0, depthLimit)
	return t
}

// grow recursively partitions s at a uniform random split in
// [min(s), max(s)) and returns the arena index of the subtree root.
func (t *tree) grow(rng *rand.Rand, s []float64, depth, depthLimit int) int32 {
	if len(s) <= 1 || depth >= depthLimit {
		return t.leaf(len(s))
	}

	lo, hi := s[0], s[0]
	for _, v := range s[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		// All values identical: no useful split exists.
		return t.leaf(len(s))
	}

	split := lo + rng.Float64()*(hi-lo)

	left := make([]float64, 0, len(s)/2)
	right := make([]float64, 0, len(s)/2)
	for _, v := range s {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}

	// Children are grown before the parent slot is filled so the arena
	// stays append-only.
	leftIdx := t.grow(rng, left, depth+1, depthLimit)
	rightIdx := t.grow(rng, right, depth+1, depthLimit)
	t.nodes = append(t.nodes, node{split: split, left: leftIdx, right: rightIdx})
	return int32(len(t.nodes) - 1)
}

func (t *tree) leaf(size int) int32 {
	t.nodes = append(t.nodes, node{left: leafNode, right: leafNode, size: int32(size)})
	return int32(len(t.nodes) - 1)
}

// pathLength walks v from the root and returns the number of edges
// traversed plus the unbuilt-subtree correction at the leaf.
func (t *tree) pathLength(v float64) float64 {
	depth := 0.0
	idx := t.root
	for t.nodes[idx].left != leafNode {
		if v < t.nodes[idx].split {
			idx = t.nodes[idx].left
		} else {
			idx = t.nodes[idx].right
		}
		depth++
	}
	return depth + avgPathLength(int(t.nodes[idx].size))
}

// avgPathLength is c(n), the expected path length of an unsuccessful
// search in a binary search tree of n points.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// Score returns the anomaly score in [0, 1] for each value, in input
// order. Values outside the fitted range are fine: trees extrapolate
// through their existing split boundaries.
func (f *Forest) Score(values []float64) []float64 {
	norm := avgPathLength(f.sampleSize)
	scores := make([]float64, len(values))
	for i, v := range values {
		total := 0.0
		for _, t := range f.trees {
			total += t.pathLength(v)
		}
		avg := total / float64(len(f.trees))
		scores[i] = math.Pow(2, -avg/norm)
	}
	return scores
}
