package forecast

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/andresuchdata/restock-advisor/internal/features"
)

const (
	defaultTrees           = 50
	defaultMaxDepth        = 10
	defaultMinSamplesSplit = 5
	defaultSeed            = 42
)

// RandomForest averages bootstrap-bagged regression trees.
type RandomForest struct {
	Trees []*TreeNode `json:"trees"`
}

// TreeNode is a CART regression node. Leaves have no children.
type TreeNode struct {
	Feature   int       `json:"f,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Value     float64   `json:"v"`
	Left      *TreeNode `json:"l,omitempty"`
	Right     *TreeNode `json:"r,omitempty"`
}

func (n *TreeNode) predict(x []float64) float64 {
	for n.Left != nil && n.Right != nil {
		if n.Feature < len(x) && x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

func (f *RandomForest) Kind() Kind { return KindRandomForest }

func (f *RandomForest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.Trees))
}

// ForestTrainer fits RandomForest. A fixed seed makes training reproducible.
type ForestTrainer struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64
}

// NewForestTrainer returns the default forest configuration.
func NewForestTrainer() ForestTrainer {
	return ForestTrainer{
		Trees:           defaultTrees,
		MaxDepth:        defaultMaxDepth,
		MinSamplesSplit: defaultMinSamplesSplit,
		Seed:            defaultSeed,
	}
}

func (ForestTrainer) Kind() Kind { return KindRandomForest }

func (t ForestTrainer) Fit(samples []features.Sample) (Model, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("random forest: no samples")
	}

	x, y := columns(samples)
	rng := rand.New(rand.NewSource(t.Seed))
	forest := &RandomForest{Trees: make([]*TreeNode, 0, t.Trees)}

	for i := 0; i < t.Trees; i++ {
		idx := make([]int, len(x))
		for j := range idx {
			idx[j] = rng.Intn(len(x))
		}
		b := treeBuilder{x: x, y: y, maxDepth: t.MaxDepth, minSplit: t.MinSamplesSplit}
		forest.Trees = append(forest.Trees, b.grow(idx, 0))
	}
	return forest, nil
}

type treeBuilder struct {
	x        [][]float64
	y        []float64
	maxDepth int
	minSplit int
}

func (b *treeBuilder) grow(idx []int, depth int) *TreeNode {
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	leaf := &TreeNode{Value: sum / float64(len(idx))}

	if depth >= b.maxDepth || len(idx) < b.minSplit {
		return leaf
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return leaf
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leaf
	}

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Value:     leaf.Value,
		Left:      b.grow(left, depth+1),
		Right:     b.grow(right, depth+1),
	}
}

// bestSplit finds the split with the largest reduction in squared error.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := float64(len(idx))
	var total, totalSq float64
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	parentSSE := totalSq - total*total/n
	if parentSSE <= 1e-12 {
		return 0, 0, false
	}

	bestGain := 0.0
	bestFeature, bestThreshold := 0, 0.0
	found := false

	sorted := make([]int, len(idx))
	for f := 0; f < len(b.x[idx[0]]); f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })

		var leftSum, leftSq float64
		for k := 0; k < len(sorted)-1; k++ {
			yi := b.y[sorted[k]]
			leftSum += yi
			leftSq += yi * yi

			cur, next := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if cur == next {
				continue
			}

			nl := float64(k + 1)
			nr := n - nl
			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)

			if gain := parentSSE - sse; gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
				found = true
			}
		}
	}

	return bestFeature, bestThreshold, found
}
