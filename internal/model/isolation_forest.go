package model

import (
	"fmt"
	"math"
	"math/rand"
)

const eulerGamma = 0.5772156649

// IsolationForest scores points by how quickly random axis splits isolate
// them. A fixed seed makes the forest, and therefore the labels, reproducible.
type IsolationForest struct {
	Trees      int
	SampleSize int
	Seed       int64
}

// NewIsolationForest returns a forest with the usual 100 trees of 256 samples.
func NewIsolationForest(seed int64) *IsolationForest {
	return &IsolationForest{
		Trees:      100,
		SampleSize: 256,
		Seed:       seed,
	}
}

func (f *IsolationForest) Name() string {
	return "isolation_forest"
}

func (f *IsolationForest) Signature() string {
	return fmt.Sprintf("%s(trees=%d,sample=%d,seed=%d)", f.Name(), f.Trees, f.SampleSize, f.Seed)
}

type iNode struct {
	split       float64
	left, right *iNode
	size        int // leaf only
}

func (f *IsolationForest) Detect(values []float64, contamination float64) ([]bool, error) {
	if err := ValidateContamination(contamination); err != nil {
		return nil, err
	}
	n := len(values)
	if n == 0 {
		return nil, nil
	}

	trees := f.Trees
	if trees <= 0 {
		trees = 100
	}
	psi := f.SampleSize
	if psi <= 0 || psi > n {
		psi = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(max(psi, 2)))))

	rng := rand.New(rand.NewSource(f.Seed))
	forest := make([]*iNode, trees)
	for i := range forest {
		perm := rng.Perm(n)[:psi]
		sample := make([]float64, psi)
		for j, idx := range perm {
			sample[j] = values[idx]
		}
		forest[i] = buildTree(rng, sample, 0, heightLimit)
	}

	norm := averagePathLength(psi)
	scores := make([]float64, n)
	for i, v := range values {
		var total float64
		for _, tree := range forest {
			total += pathLength(tree, v, 0)
		}
		avg := total / float64(trees)
		if norm > 0 {
			scores[i] = math.Pow(2, -avg/norm)
		}
	}

	return partitionByScore(scores, contamination), nil
}

func buildTree(rng *rand.Rand, sample []float64, depth, limit int) *iNode {
	if depth >= limit || len(sample) <= 1 {
		return &iNode{size: len(sample)}
	}

	lo, hi := sample[0], sample[0]
	for _, v := range sample[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return &iNode{size: len(sample)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range sample {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}

	return &iNode{
		split: split,
		left:  buildTree(rng, left, depth+1, limit),
		right: buildTree(rng, right, depth+1, limit),
	}
}

func pathLength(node *iNode, v float64, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + averagePathLength(node.size)
	}
	if v < node.split {
		return pathLength(node.left, v, depth+1)
	}
	return pathLength(node.right, v, depth+1)
}

// averagePathLength is c(n), the mean unsuccessful-search depth of a BST.
func averagePathLength(n int) float64 {
	switch {
	case n > 2:
		return 2*(math.Log(float64(n-1))+eulerGamma) - 2*float64(n-1)/float64(n)
	case n == 2:
		return 1
	default:
		return 0
	}
}
