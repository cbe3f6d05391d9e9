package ml

import (
	"context"
	"sort"
)

// depthwiseTrainer grows every tree level by level with an exact greedy
// split search over sorted feature values.
type depthwiseTrainer struct {
	params Params
}

func (d *depthwiseTrainer) Family() Family { return FamilyXGBoost }

func (d *depthwiseTrainer) Fit(ctx context.Context, X [][]float64, y []int, names []string) (*Model, error) {
	p := d.params
	grow := func(grad, hess []float64, gains []float64) Tree {
		b := &exactBuilder{X: X, grad: grad, hess: hess, gains: gains, params: p}
		var t Tree
		b.build(&t, allRows(len(X)), 0)
		return t
	}
	return fitBoosted(ctx, FamilyXGBoost, p, X, y, names, grow)
}

type exactBuilder struct {
	X          [][]float64
	grad, hess []float64
	gains      []float64
	params     Params
}

type exactSplit struct {
	feature   int
	threshold float64
	gain      float64
}

func (b *exactBuilder) build(t *Tree, idx []int, depth int) int {
	g, h := sums(idx, b.grad, b.hess)
	id := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Leaf: true, Value: leafValue(g, h, b.params.Lambda)})

	if depth >= b.params.MaxDepth || len(idx) < 2 {
		return id
	}

	best, ok := b.bestSplit(idx, g, h)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.gains[best.feature] += best.gain
	l := b.build(t, left, depth+1)
	r := b.build(t, right, depth+1)
	t.Nodes[id] = Node{Feature: best.feature, Threshold: best.threshold, Left: l, Right: r}
	return id
}

func (b *exactBuilder) bestSplit(idx []int, g, h float64) (exactSplit, bool) {
	var best exactSplit
	found := false
	sorted := make([]int, len(idx))

	for f := range b.X[idx[0]] {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool { return b.X[sorted[i]][f] < b.X[sorted[j]][f] })

		var gl, hl float64
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			gl += b.grad[i]
			hl += b.hess[i]

			v, next := b.X[i][f], b.X[sorted[k+1]][f]
			if v == next {
				continue
			}
			hr := h - hl
			if hl < b.params.MinChildWeight || hr < b.params.MinChildWeight {
				continue
			}

			gain := splitGain(gl, hl, g-gl, hr, b.params.Lambda)
			if gain > best.gain+1e-12 {
				best = exactSplit{feature: f, threshold: (v + next) / 2, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
