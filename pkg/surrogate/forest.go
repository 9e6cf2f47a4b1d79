package surrogate

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"

	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
)

const ForestName = "RandomForest"

// LeafFeature marks a leaf in TreeNode.Feature.
const LeafFeature = -1

// minImprovement is the relative SSE reduction a split must reach.
const minImprovement = 1e-12

// ForestTrainer fits a bootstrap-aggregated ensemble of multi-output
// regression trees that split on summed squared error.
type ForestTrainer struct {
	Trees int
	// MaxDepth limits tree depth. Zero means unlimited.
	MaxDepth       int
	MinSamplesLeaf int
	// MaxFeatures is the number of features drawn per split. Zero means all.
	MaxFeatures int
	Seed        *uint64
}

var _ Trainer = ForestTrainer{}

func (ForestTrainer) Name() string { return ForestName }

func (t ForestTrainer) validate() error {
	if t.Trees < 1 {
		return fmt.Errorf("%w: trees must be positive, got %d", ErrInvalidTrainingData, t.Trees)
	}
	if t.MaxDepth < 0 || t.MinSamplesLeaf < 0 || t.MaxFeatures < 0 {
		return fmt.Errorf("%w: tree limits must be non-negative", ErrInvalidTrainingData)
	}
	return nil
}

func (t ForestTrainer) Fit(ctx context.Context, x, y *mat.Dense) (Model, error) {
	logger := klog.FromContext(ctx)

	if err := t.validate(); err != nil {
		return nil, err
	}
	n, inputDim, outputDim, err := checkTrainingData(x, y)
	if err != nil {
		return nil, err
	}

	b := &treeBuilder{
		x:           x,
		y:           y,
		outputDim:   outputDim,
		maxDepth:    t.MaxDepth,
		minLeaf:     max(t.MinSamplesLeaf, 1),
		maxFeatures: t.MaxFeatures,
	}
	if b.maxFeatures == 0 || b.maxFeatures > inputDim {
		b.maxFeatures = inputDim
	}

	rng := framework.NewRand(t.Seed)
	forest := &Forest{inputDim: inputDim, outputDim: outputDim, Trees: make([]Tree, t.Trees)}
	for k := range forest.Trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.rng = rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))

		sample := make([]int, n)
		for i := range sample {
			sample[i] = b.rng.IntN(n)
		}
		b.nodes = nil
		b.grow(sample, 0)
		forest.Trees[k] = Tree{Nodes: b.nodes}

		logger.V(6).Info("tree grown", "tree", k, "nodes", len(b.nodes))
	}

	logger.V(4).Info("forest fitted", "samples", n, "features", inputDim, "outputs", outputDim, "trees", t.Trees)
	return forest, nil
}

// Forest averages the predictions of its trees.
type Forest struct {
	inputDim  int
	outputDim int
	Trees     []Tree
}

var _ Model = &Forest{}

func (f *Forest) InputDim() int  { return f.inputDim }
func (f *Forest) OutputDim() int { return f.outputDim }

func (f *Forest) Predict(x *mat.Dense) (*mat.Dense, error) {
	n, err := checkPredictInput(x, f.inputDim)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(n, f.outputDim, nil)
	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		features := x.RawRowView(i)
		for _, tree := range f.Trees {
			floats.Add(row, tree.Nodes[tree.leaf(features)].Value)
		}
		floats.Scale(1/float64(len(f.Trees)), row)
	}
	return out, nil
}

// Tree is a binary regression tree stored as a flat node list with the root
// at index 0.
type Tree struct {
	Nodes []TreeNode
}

// TreeNode sends a row to Left when row[Feature] <= Threshold and to Right
// otherwise. Leaves have Feature == LeafFeature and carry the mean label of
// their training rows in Value.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     []float64
}

func (n *TreeNode) IsLeaf() bool {
	return n.Feature == LeafFeature
}

func (t *Tree) leaf(features []float64) int {
	i := 0
	for !t.Nodes[i].IsLeaf() {
		node := &t.Nodes[i]
		if features[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
	return i
}

type treeBuilder struct {
	x, y        *mat.Dense
	outputDim   int
	maxDepth    int
	minLeaf     int
	maxFeatures int
	rng         *rand.Rand
	nodes       []TreeNode
}

type split struct {
	feature   int
	threshold float64
	// position of the first right row in the sorted sample
	at  int
	sse float64
}

// grow appends the subtree for rows and returns the index of its root.
func (b *treeBuilder) grow(rows []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: LeafFeature, Value: b.mean(rows)})

	if b.maxDepth > 0 && depth >= b.maxDepth {
		return id
	}
	if len(rows) < 2*b.minLeaf {
		return id
	}
	if b.pure(rows) {
		return id
	}
	parentSSE := b.sse(rows)
	if parentSSE <= 0 {
		return id
	}

	best, ok := b.bestSplit(rows)
	if !ok || best.sse >= parentSSE*(1-minImprovement) {
		return id
	}

	b.sortBy(rows, best.feature)
	left := b.grow(rows[:best.at], depth+1)
	right := b.grow(rows[best.at:], depth+1)
	b.nodes[id] = TreeNode{Feature: best.feature, Threshold: best.threshold, Left: left, Right: right}
	return id
}

func (b *treeBuilder) bestSplit(rows []int) (split, bool) {
	_, inputDim := b.x.Dims()
	candidates := b.rng.Perm(inputDim)[:b.maxFeatures]
	// Fixed feature order keeps ties independent of the draw order
	slices.Sort(candidates)

	sorted := slices.Clone(rows)
	leftSum := make([]float64, b.outputDim)
	leftSq := make([]float64, b.outputDim)
	totalSum := make([]float64, b.outputDim)
	totalSq := make([]float64, b.outputDim)
	for _, r := range rows {
		for j, v := range b.y.RawRowView(r) {
			totalSum[j] += v
			totalSq[j] += v * v
		}
	}

	var best split
	found := false
	for _, f := range candidates {
		b.sortBy(sorted, f)
		clear(leftSum)
		clear(leftSq)
		for i := 0; i < len(sorted)-1; i++ {
			for j, v := range b.y.RawRowView(sorted[i]) {
				leftSum[j] += v
				leftSq[j] += v * v
			}
			nl, nr := i+1, len(sorted)-i-1
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}
			lo, hi := b.x.At(sorted[i], f), b.x.At(sorted[i+1], f)
			if lo == hi {
				continue
			}
			var sse float64
			for j := range leftSum {
				rightSum := totalSum[j] - leftSum[j]
				sse += leftSq[j] - leftSum[j]*leftSum[j]/float64(nl)
				sse += (totalSq[j] - leftSq[j]) - rightSum*rightSum/float64(nr)
			}
			if !found || sse < best.sse {
				best = split{feature: f, threshold: midpoint(lo, hi), at: nl, sse: sse}
				found = true
			}
		}
	}
	return best, found
}

func (b *treeBuilder) sortBy(rows []int, feature int) {
	slices.SortStableFunc(rows, func(i, j int) int {
		return cmp.Compare(b.x.At(i, feature), b.x.At(j, feature))
	})
}

// midpoint returns a threshold t with lo <= t < hi that also separates lo
// from hi once rounded to float32, when float32 can separate them at all.
func midpoint(lo, hi float64) float64 {
	t := lo + (hi-lo)/2
	if t >= hi || float32(t) >= float32(hi) {
		return lo
	}
	return t
}

func (b *treeBuilder) mean(rows []int) []float64 {
	m := make([]float64, b.outputDim)
	for _, r := range rows {
		floats.Add(m, b.y.RawRowView(r))
	}
	n := float64(len(rows))
	for j := range m {
		m[j] /= n
	}
	return m
}

// pure reports whether every row carries the same label.
func (b *treeBuilder) pure(rows []int) bool {
	first := b.y.RawRowView(rows[0])
	for _, r := range rows[1:] {
		if !floats.Equal(first, b.y.RawRowView(r)) {
			return false
		}
	}
	return true
}

func (b *treeBuilder) sse(rows []int) float64 {
	m := b.mean(rows)
	var s float64
	diff := make([]float64, b.outputDim)
	for _, r := range rows {
		floats.SubTo(diff, b.y.RawRowView(r), m)
		s += floats.Dot(diff, diff)
	}
	return s
}
