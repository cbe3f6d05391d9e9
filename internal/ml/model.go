// Package ml implements the gradient-boosted tree classifiers and the
// feature scaler used by the training pipeline.
package ml

import (
	"fmt"
	"math"
)

// Family identifies a boosting algorithm.
type Family string

const (
	FamilyXGBoost  Family = "xgboost"
	FamilyLightGBM Family = "lightgbm"
	FamilyCatBoost Family = "catboost"
)

// Families lists every family in tie-break order.
var Families = []Family{FamilyXGBoost, FamilyLightGBM, FamilyCatBoost}

// Node is a tree node. Internal nodes send x[Feature] <= Threshold left.
type Node struct {
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

// Tree stores nodes in a flat slice with the root at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t Tree) predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	n := t.Nodes[0]
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n.Value
}

// Model is a trained binary classifier: an additive ensemble of trees over
// a log-odds base score.
type Model struct {
	Family       Family    `json:"family"`
	FeatureNames []string  `json:"feature_names"`
	BaseScore    float64   `json:"base_score"`
	LearningRate float64   `json:"learning_rate"`
	Trees        []Tree    `json:"trees"`
	Gains        []float64 `json:"gains"`
}

// PredictProba returns P(label = 1 | x).
func (m *Model) PredictProba(x []float64) float64 {
	f := m.BaseScore
	for _, t := range m.Trees {
		f += m.LearningRate * t.predict(x)
	}
	return sigmoid(f)
}

func (m *Model) Predict(x []float64) int {
	if m.PredictProba(x) > 0.5 {
		return 1
	}
	return 0
}

// Accuracy is the share of rows whose prediction equals the label.
func (m *Model) Accuracy(X [][]float64, y []int) float64 {
	if len(X) == 0 {
		return 0
	}
	correct := 0
	for i, x := range X {
		if m.Predict(x) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}

// FeatureImportances is each feature's share of the total split gain.
func (m *Model) FeatureImportances() map[string]float64 {
	total := 0.0
	for _, g := range m.Gains {
		total += g
	}

	out := make(map[string]float64, len(m.FeatureNames))
	for i, name := range m.FeatureNames {
		if total > 0 && i < len(m.Gains) {
			out[name] = m.Gains[i] / total
		} else {
			out[name] = 0
		}
	}
	return out
}

// Validate checks the structural integrity of a loaded model.
func (m *Model) Validate() error {
	if m.Family == "" {
		return fmt.Errorf("model has no family")
	}
	width := len(m.FeatureNames)
	for ti, t := range m.Trees {
		for ni, n := range t.Nodes {
			if n.Leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= width {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: invalid children", ti, ni)
			}
		}
	}
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
