package ml

import (
	"context"
	"fmt"
	"math"
)

// Params are the boosting hyper-parameters. Fields a family does not use are
// ignored.
type Params struct {
	Rounds         int     `json:"rounds"`
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"`
	Lambda         float64 `json:"lambda"`
	MinChildWeight float64 `json:"min_child_weight"`
	NumLeaves      int     `json:"num_leaves"`
	MinDataInLeaf  int     `json:"min_data_in_leaf"`
	MaxBins        int     `json:"max_bins"`
}

// DefaultParams mirrors the stock settings of each family at 100 rounds,
// depth 6 and learning rate 0.1.
func DefaultParams(f Family) Params {
	p := Params{Rounds: 100, LearningRate: 0.1, MaxDepth: 6}
	switch f {
	case FamilyXGBoost:
		p.Lambda = 1
		p.MinChildWeight = 1
	case FamilyLightGBM:
		p.Lambda = 0
		p.MinChildWeight = 1e-3
		p.NumLeaves = 31
		p.MinDataInLeaf = 20
		p.MaxBins = 255
	case FamilyCatBoost:
		p.Lambda = 3
		p.MaxBins = 254
	}
	return p
}

// Trainer fits one classifier family.
type Trainer interface {
	Family() Family
	Fit(ctx context.Context, X [][]float64, y []int, featureNames []string) (*Model, error)
}

// NewTrainer returns the trainer for family f.
func NewTrainer(f Family, p Params) (Trainer, error) {
	switch f {
	case FamilyXGBoost:
		return &depthwiseTrainer{params: p}, nil
	case FamilyLightGBM:
		return &leafwiseTrainer{params: p}, nil
	case FamilyCatBoost:
		return &obliviousTrainer{params: p}, nil
	default:
		return nil, fmt.Errorf("unknown classifier family %q", f)
	}
}

// growFunc builds one tree from per-row gradients and hessians and adds the
// gain of every split it makes to gains.
type growFunc func(grad, hess []float64, gains []float64) Tree

func fitBoosted(ctx context.Context, family Family, p Params, X [][]float64, y []int, names []string, grow growFunc) (*Model, error) {
	if err := checkInput(X, y, names); err != nil {
		return nil, err
	}
	if p.Rounds <= 0 || p.LearningRate <= 0 {
		return nil, fmt.Errorf("%s: rounds and learning rate must be positive", family)
	}

	n := len(X)
	positives := 0
	for _, label := range y {
		positives += label
	}
	prior := math.Min(math.Max(float64(positives)/float64(n), 1e-6), 1-1e-6)

	m := &Model{
		Family:       family,
		FeatureNames: append([]string(nil), names...),
		BaseScore:    math.Log(prior / (1 - prior)),
		LearningRate: p.LearningRate,
		Gains:        make([]float64, len(names)),
	}

	raw := make([]float64, n)
	for i := range raw {
		raw[i] = m.BaseScore
	}
	grad := make([]float64, n)
	hess := make([]float64, n)

	for round := 0; round < p.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: training interrupted at round %d: %w", family, round, err)
		}

		for i := range raw {
			prob := sigmoid(raw[i])
			grad[i] = prob - float64(y[i])
			hess[i] = math.Max(prob*(1-prob), 1e-16)
		}

		tree := grow(grad, hess, m.Gains)
		m.Trees = append(m.Trees, tree)
		for i, x := range X {
			raw[i] += p.LearningRate * tree.predict(x)
		}
	}

	return m, nil
}

func checkInput(X [][]float64, y []int, names []string) error {
	if len(X) == 0 {
		return fmt.Errorf("empty training set")
	}
	if len(X) != len(y) {
		return fmt.Errorf("rows (%d) and labels (%d) differ", len(X), len(y))
	}
	for i, row := range X {
		if len(row) != len(names) {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), len(names))
		}
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("label %d at row %d is not binary", label, i)
		}
	}
	return nil
}

func leafScore(g, h, lambda float64) float64 {
	return g * g / (h + lambda)
}

func leafValue(g, h, lambda float64) float64 {
	if h+lambda <= 0 {
		return 0
	}
	return -g / (h + lambda)
}

func splitGain(gl, hl, gr, hr, lambda float64) float64 {
	return leafScore(gl, hl, lambda) + leafScore(gr, hr, lambda) - leafScore(gl+gr, hl+hr, lambda)
}

func sums(idx []int, grad, hess []float64) (g, h float64) {
	for _, i := range idx {
		g += grad[i]
		h += hess[i]
	}
	return g, h
}
