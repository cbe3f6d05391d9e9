package ml

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var featureNames = []string{"signal", "noise", "constant"}

// linearlySeparable labels rows by whether signal exceeds 0.5.
func linearlySeparable(n int, seed uint64) ([][]float64, []int) {
	r := rand.New(rand.NewPCG(seed, 0))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		signal := r.Float64()
		X[i] = []float64{signal, r.Float64(), 1}
		if signal > 0.5 {
			y[i] = 1
		}
	}
	return X, y
}

func TestTrainers_LearnSimpleBoundary(t *testing.T) {
	X, y := linearlySeparable(300, 1)
	testX, testY := linearlySeparable(100, 2)

	for _, family := range Families {
		t.Run(string(family), func(t *testing.T) {
			p := DefaultParams(family)
			p.Rounds = 30

			trainer, err := NewTrainer(family, p)
			require.NoError(t, err)
			assert.Equal(t, family, trainer.Family())

			model, err := trainer.Fit(context.Background(), X, y, featureNames)
			require.NoError(t, err)
			require.NoError(t, model.Validate())

			assert.Equal(t, family, model.Family)
			assert.Len(t, model.Trees, 30)
			assert.GreaterOrEqual(t, model.Accuracy(testX, testY), 0.9)

			imp := model.FeatureImportances()
			assert.InDelta(t, 1.0, imp["signal"]+imp["noise"]+imp["constant"], 1e-9)
			assert.Greater(t, imp["signal"], imp["noise"])
			assert.Zero(t, imp["constant"])
		})
	}
}

func TestTrainers_Deterministic(t *testing.T) {
	X, y := linearlySeparable(120, 3)

	for _, family := range Families {
		p := DefaultParams(family)
		p.Rounds = 5
		trainer, err := NewTrainer(family, p)
		require.NoError(t, err)

		a, err := trainer.Fit(context.Background(), X, y, featureNames)
		require.NoError(t, err)
		b, err := trainer.Fit(context.Background(), X, y, featureNames)
		require.NoError(t, err)

		assert.Equal(t, a, b, family)
	}
}

func TestTrainers_RejectBadInput(t *testing.T) {
	trainer, err := NewTrainer(FamilyXGBoost, DefaultParams(FamilyXGBoost))
	require.NoError(t, err)

	_, err = trainer.Fit(context.Background(), nil, nil, featureNames)
	assert.Error(t, err)

	_, err = trainer.Fit(context.Background(), [][]float64{{1, 2, 3}}, []int{2}, featureNames)
	assert.Error(t, err)

	_, err = trainer.Fit(context.Background(), [][]float64{{1, 2}}, []int{1}, featureNames)
	assert.Error(t, err)

	_, err = NewTrainer("randomforest", Params{})
	assert.Error(t, err)
}

func TestTrainers_HonourCancellation(t *testing.T) {
	X, y := linearlySeparable(50, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trainer, err := NewTrainer(FamilyCatBoost, DefaultParams(FamilyCatBoost))
	require.NoError(t, err)

	_, err = trainer.Fit(ctx, X, y, featureNames)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel_SurvivesJSON(t *testing.T) {
	X, y := linearlySeparable(100, 5)
	p := DefaultParams(FamilyLightGBM)
	p.Rounds = 10
	trainer, err := NewTrainer(FamilyLightGBM, p)
	require.NoError(t, err)
	model, err := trainer.Fit(context.Background(), X, y, featureNames)
	require.NoError(t, err)

	data, err := json.Marshal(model)
	require.NoError(t, err)
	var loaded Model
	require.NoError(t, json.Unmarshal(data, &loaded))
	require.NoError(t, loaded.Validate())

	for _, x := range X {
		assert.InDelta(t, model.PredictProba(x), loaded.PredictProba(x), 1e-12)
	}
}

func TestCutPoints(t *testing.T) {
	assert.Nil(t, cutPoints([]float64{3, 3, 3}, 10))
	assert.Equal(t, []float64{1.5, 2.5}, cutPoints([]float64{3, 1, 2, 2}, 10))
	assert.Len(t, cutPoints([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 4), 3)
}

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 5}, {3, 5}, {5, 5}}

	s, err := FitStandardScaler(X, []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 5}, s.Means)
	assert.Equal(t, []float64{2, 1}, s.Scales)
	assert.Equal(t, [][]float64{{-1, 0}, {0, 0}, {1, 0}}, s.Transform(X))

	_, err = FitStandardScaler(nil, []string{"a"})
	assert.Error(t, err)
}
