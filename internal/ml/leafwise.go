package ml

import (
	"context"
)

// leafwiseTrainer grows each tree best-first: the leaf with the largest gain
// is split next until the leaf budget is spent. Splits come from feature
// histograms.
type leafwiseTrainer struct {
	params Params
}

func (l *leafwiseTrainer) Family() Family { return FamilyLightGBM }

func (l *leafwiseTrainer) Fit(ctx context.Context, X [][]float64, y []int, names []string) (*Model, error) {
	if err := checkInput(X, y, names); err != nil {
		return nil, err
	}
	p := l.params
	bins := newBinner(X, p.MaxBins)

	grow := func(grad, hess []float64, gains []float64) Tree {
		g := &leafwiseGrower{bins: bins, grad: grad, hess: hess, params: p}
		return g.grow(len(X), gains)
	}
	return fitBoosted(ctx, FamilyLightGBM, p, X, y, names, grow)
}

type histSplit struct {
	feature int
	bin     int
	gain    float64
}

type openLeaf struct {
	node  int
	idx   []int
	depth int
	split histSplit
	ok    bool
}

type leafwiseGrower struct {
	bins       *binner
	grad, hess []float64
	params     Params
}

func (g *leafwiseGrower) grow(n int, gains []float64) Tree {
	var t Tree
	root := g.newLeaf(&t, allRows(n), 0)
	leaves := []*openLeaf{root}

	maxLeaves := g.params.NumLeaves
	if maxLeaves < 2 {
		maxLeaves = 2
	}

	for count := 1; count < maxLeaves; count++ {
		pick := -1
		for i, leaf := range leaves {
			if leaf.ok && (pick < 0 || leaf.split.gain > leaves[pick].split.gain) {
				pick = i
			}
		}
		if pick < 0 {
			break
		}

		leaf := leaves[pick]
		s := leaf.split
		threshold := g.bins.cuts[s.feature][s.bin]

		var left, right []int
		for _, i := range leaf.idx {
			if g.bins.bins[s.feature][i] <= s.bin {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}

		gains[s.feature] += s.gain
		l := g.newLeaf(&t, left, leaf.depth+1)
		r := g.newLeaf(&t, right, leaf.depth+1)
		t.Nodes[leaf.node] = Node{Feature: s.feature, Threshold: threshold, Left: l.node, Right: r.node}

		leaves = append(leaves[:pick], leaves[pick+1:]...)
		leaves = append(leaves, l, r)
	}
	return t
}

func (g *leafwiseGrower) newLeaf(t *Tree, idx []int, depth int) *openLeaf {
	gs, hs := sums(idx, g.grad, g.hess)
	node := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Leaf: true, Value: leafValue(gs, hs, g.params.Lambda)})

	leaf := &openLeaf{node: node, idx: idx, depth: depth}
	if g.params.MaxDepth > 0 && depth >= g.params.MaxDepth {
		return leaf
	}
	if len(idx) < 2*g.params.MinDataInLeaf {
		return leaf
	}
	leaf.split, leaf.ok = g.bestSplit(idx, gs, hs)
	return leaf
}

func (g *leafwiseGrower) bestSplit(idx []int, gs, hs float64) (histSplit, bool) {
	var best histSplit
	found := false
	total := len(idx)

	for f := range g.bins.cuts {
		hist := g.bins.histogram(f, idx, g.grad, g.hess)

		var gl, hl float64
		cl := 0
		for b := 0; b < len(g.bins.cuts[f]); b++ {
			gl += hist.grad[b]
			hl += hist.hess[b]
			cl += hist.count[b]

			if cl < g.params.MinDataInLeaf || total-cl < g.params.MinDataInLeaf {
				continue
			}
			hr := hs - hl
			if hl < g.params.MinChildWeight || hr < g.params.MinChildWeight {
				continue
			}

			gain := splitGain(gl, hl, gs-gl, hr, g.params.Lambda)
			if gain > best.gain+1e-12 {
				best = histSplit{feature: f, bin: b, gain: gain}
				found = true
			}
		}
	}
	return best, found
}
