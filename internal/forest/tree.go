package forest

import (
	"math"
	"math/rand"
	"sort"
)

// Node is one entry of a flattened regression tree. Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Samples   int
}

// Tree is a CART regression tree stored as a flat node array; Nodes[0] is the root.
type Tree struct {
	Nodes []Node
}

// Predict walks the tree for one feature row: x <= threshold goes left.
func (t *Tree) Predict(row []float64) float64 {
	i := 0
	for {
		nd := &t.Nodes[i]
		if nd.Feature < 0 {
			return nd.Value
		}
		if row[nd.Feature] <= nd.Threshold {
			i = nd.Left
		} else {
			i = nd.Right
		}
	}
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		nd := t.Nodes[i]
		if nd.Feature < 0 {
			return 0
		}
		l, r := walk(nd.Left), walk(nd.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// treeBuilder grows one tree over a row-major matrix.
type treeBuilder struct {
	x        []float64
	p        int
	y        []float64
	params   Params
	rng      *rand.Rand
	nodes    []Node
	decrease []float64
	feats    []int
	order    []int
}

func newTreeBuilder(x []float64, p int, y []float64, params Params, rng *rand.Rand) *treeBuilder {
	feats := make([]int, p)
	for i := range feats {
		feats[i] = i
	}
	return &treeBuilder{
		x:        x,
		p:        p,
		y:        y,
		params:   params,
		rng:      rng,
		decrease: make([]float64, p),
		feats:    feats,
	}
}

// sse returns the mean of y over idx and its sum of squared deviations.
func (b *treeBuilder) sse(idx []int) (mean, sse float64) {
	var s float64
	for _, i := range idx {
		s += b.y[i]
	}
	mean = s / float64(len(idx))
	for _, i := range idx {
		d := b.y[i] - mean
		sse += d * d
	}
	return mean, sse
}

type split struct {
	feature   int
	threshold float64
	pos       int
	childSSE  float64
}

// bestSplit scans candidate features for the threshold with the lowest
// child SSE. idx is reordered by the winning feature on success.
func (b *treeBuilder) bestSplit(idx []int, parentSSE float64) (split, bool) {
	n := len(idx)
	minLeaf := b.params.MinSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}
	k := b.p
	if b.params.MaxFeatures > 0 && b.params.MaxFeatures < b.p {
		k = b.params.MaxFeatures
		b.rng.Shuffle(len(b.feats), func(i, j int) { b.feats[i], b.feats[j] = b.feats[j], b.feats[i] })
	}
	if cap(b.order) < n {
		b.order = make([]int, n)
	}
	order := b.order[:n]

	best := split{feature: -1, childSSE: parentSSE}
	for _, f := range b.feats[:k] {
		copy(order, idx)
		sort.Slice(order, func(i, j int) bool { return b.x[order[i]*b.p+f] < b.x[order[j]*b.p+f] })
		lo, hi := b.x[order[0]*b.p+f], b.x[order[n-1]*b.p+f]
		if lo == hi {
			continue
		}
		var totalS, totalSq float64
		for _, i := range order {
			totalS += b.y[i]
			totalSq += b.y[i] * b.y[i]
		}
		var ls, lsq float64
		for pos := 0; pos < n-1; pos++ {
			yi := b.y[order[pos]]
			ls += yi
			lsq += yi * yi
			nl := pos + 1
			nr := n - nl
			if nl < minLeaf {
				continue
			}
			if nr < minLeaf {
				break
			}
			xa, xb := b.x[order[pos]*b.p+f], b.x[order[pos+1]*b.p+f]
			if xa == xb {
				continue
			}
			rs, rsq := totalS-ls, totalSq-lsq
			child := (lsq - ls*ls/float64(nl)) + (rsq - rs*rs/float64(nr))
			if child < best.childSSE-1e-12*math.Max(1, math.Abs(parentSSE)) {
				thr := xa + (xb-xa)/2
				if thr >= xb || math.IsInf(thr, 0) {
					thr = xa
				}
				best = split{feature: f, threshold: thr, pos: nl, childSSE: child}
			}
		}
	}
	if best.feature < 0 {
		return best, false
	}
	f := best.feature
	sort.SliceStable(idx, func(i, j int) bool { return b.x[idx[i]*b.p+f] < b.x[idx[j]*b.p+f] })
	return best, true
}

// grow appends the subtree for idx and returns its node index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	mean, parentSSE := b.sse(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: mean, Samples: len(idx)})

	minSplit := b.params.MinSamplesSplit
	if minSplit < 2 {
		minSplit = 2
	}
	if len(idx) < minSplit || len(idx) < 2*max(1, b.params.MinSamplesLeaf) {
		return id
	}
	if b.params.MaxDepth > 0 && depth >= b.params.MaxDepth {
		return id
	}
	if parentSSE == 0 {
		return id
	}
	s, ok := b.bestSplit(idx, parentSSE)
	if !ok {
		return id
	}
	b.decrease[s.feature] += parentSSE - s.childSSE

	left := make([]int, s.pos)
	copy(left, idx[:s.pos])
	right := make([]int, len(idx)-s.pos)
	copy(right, idx[s.pos:])

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].Feature = s.feature
	b.nodes[id].Threshold = s.threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}
