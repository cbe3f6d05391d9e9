package ml

import (
	"context"
)

// obliviousTrainer grows symmetric trees: every node on a level shares one
// split, chosen to maximise the gain summed over the level's leaves.
type obliviousTrainer struct {
	params Params
}

func (o *obliviousTrainer) Family() Family { return FamilyCatBoost }

func (o *obliviousTrainer) Fit(ctx context.Context, X [][]float64, y []int, names []string) (*Model, error) {
	if err := checkInput(X, y, names); err != nil {
		return nil, err
	}
	p := o.params
	bins := newBinner(X, p.MaxBins)

	grow := func(grad, hess []float64, gains []float64) Tree {
		return growOblivious(bins, len(X), grad, hess, gains, p)
	}
	return fitBoosted(ctx, FamilyCatBoost, p, X, y, names, grow)
}

type levelSplit struct {
	feature   int
	bin       int
	threshold float64
}

func growOblivious(bins *binner, n int, grad, hess []float64, gains []float64, p Params) Tree {
	// Leaf k on one level becomes leaves 2k (left) and 2k+1 (right) on the next.
	leaves := [][]int{allRows(n)}
	var levels []levelSplit

	for depth := 0; depth < p.MaxDepth; depth++ {
		best, gain, ok := bestLevelSplit(bins, leaves, grad, hess, p.Lambda)
		if !ok {
			break
		}

		next := make([][]int, 0, 2*len(leaves))
		for _, idx := range leaves {
			var left, right []int
			for _, i := range idx {
				if bins.bins[best.feature][i] <= best.bin {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			next = append(next, left, right)
		}

		gains[best.feature] += gain
		levels = append(levels, best)
		leaves = next
	}

	var t Tree
	buildSymmetric(&t, levels, leaves, 0, 0, grad, hess, p.Lambda)
	return t
}

func bestLevelSplit(bins *binner, leaves [][]int, grad, hess []float64, lambda float64) (levelSplit, float64, bool) {
	var best levelSplit
	bestGain := 0.0
	found := false

	for f := range bins.cuts {
		cuts := len(bins.cuts[f])
		if cuts == 0 {
			continue
		}
		total := make([]float64, cuts)

		for _, idx := range leaves {
			if len(idx) == 0 {
				continue
			}
			gs, hs := sums(idx, grad, hess)
			hist := bins.histogram(f, idx, grad, hess)

			var gl, hl float64
			for b := 0; b < cuts; b++ {
				gl += hist.grad[b]
				hl += hist.hess[b]
				total[b] += splitGain(gl, hl, gs-gl, hs-hl, lambda)
			}
		}

		for b, gain := range total {
			if gain > bestGain+1e-12 {
				best = levelSplit{feature: f, bin: b, threshold: bins.cuts[f][b]}
				bestGain = gain
				found = true
			}
		}
	}
	return best, bestGain, found
}

func buildSymmetric(t *Tree, levels []levelSplit, leaves [][]int, depth, path int, grad, hess []float64, lambda float64) int {
	id := len(t.Nodes)
	if depth == len(levels) {
		g, h := sums(leaves[path], grad, hess)
		t.Nodes = append(t.Nodes, Node{Leaf: true, Value: leafValue(g, h, lambda)})
		return id
	}

	s := levels[depth]
	t.Nodes = append(t.Nodes, Node{Feature: s.feature, Threshold: s.threshold})
	l := buildSymmetric(t, levels, leaves, depth+1, 2*path, grad, hess, lambda)
	r := buildSymmetric(t, levels, leaves, depth+1, 2*path+1, grad, hess, lambda)
	t.Nodes[id].Left = l
	t.Nodes[id].Right = r
	return id
}
