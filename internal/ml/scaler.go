package ml

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centres each feature on its training mean and divides by
// its standard deviation. Constant features keep a scale of 1.
type StandardScaler struct {
	FeatureNames []string  `json:"feature_names"`
	Means        []float64 `json:"means"`
	Scales       []float64 `json:"scales"`
}

func FitStandardScaler(X [][]float64, names []string) (*StandardScaler, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("cannot fit scaler on empty data")
	}

	s := &StandardScaler{
		FeatureNames: append([]string(nil), names...),
		Means:        make([]float64, len(names)),
		Scales:       make([]float64, len(names)),
	}

	col := make([]float64, len(X))
	for f := range names {
		for i, row := range X {
			if len(row) != len(names) {
				return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), len(names))
			}
			col[i] = row[f]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if len(col) < 2 || std == 0 {
			std = 1
		}
		s.Means[f] = mean
		s.Scales[f] = std
	}
	return s, nil
}

// Transform returns a scaled copy of X.
func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.TransformRow(row)
	}
	return out
}

func (s *StandardScaler) TransformRow(row []float64) []float64 {
	scaled := make([]float64, len(row))
	for f, v := range row {
		scaled[f] = (v - s.Means[f]) / s.Scales[f]
	}
	return scaled
}
