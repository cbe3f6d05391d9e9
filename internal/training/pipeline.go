// Package training generates the labelled feature dataset, trains the
// competing classifier families and decides which family serves each domain.
package training

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/resume-matcher/internal/apperr"
	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/ml"
)

type Config struct {
	Samples          int                     `mapstructure:"samples"`
	TestRatio        float64                 `mapstructure:"test_ratio"`
	Seed             uint64                  `mapstructure:"seed"`
	MinDomainSamples int                     `mapstructure:"min_domain_samples"`
	Timeout          time.Duration           `mapstructure:"timeout"`
	Params           map[ml.Family]ml.Params `mapstructure:"-"`
}

func DefaultConfig() Config {
	params := make(map[ml.Family]ml.Params, len(ml.Families))
	for _, f := range ml.Families {
		params[f] = ml.DefaultParams(f)
	}
	return Config{
		Samples:          500,
		TestRatio:        0.2,
		Seed:             42,
		MinDomainSamples: 10,
		Timeout:          10 * time.Minute,
		Params:           params,
	}
}

// FamilyReport is what training_results.json records per family.
type FamilyReport struct {
	Accuracy          float64            `json:"accuracy"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
}

type Result struct {
	RunID         string
	Classifiers   map[ml.Family]*ml.Model
	Scaler        *ml.StandardScaler
	DomainMapping map[string]string
	Reports       map[ml.Family]FamilyReport
	TrainSize     int
	TestSize      int
	Duration      time.Duration
}

// Accuracies flattens the per-family test accuracy.
func (r *Result) Accuracies() map[ml.Family]float64 {
	out := make(map[ml.Family]float64, len(r.Reports))
	for f, rep := range r.Reports {
		out[f] = rep.Accuracy
	}
	return out
}

// Publisher receives a finished run. The registry implements it.
type Publisher interface {
	Publish(mapping map[string]string, classifiers map[ml.Family]*ml.Model, scaler *ml.StandardScaler, accuracies map[ml.Family]float64)
}

type Pipeline struct {
	cfg       Config
	store     *Store
	publisher Publisher
	logger    *zap.Logger
	mu        sync.Mutex
}

// NewPipeline wires a pipeline. store and publisher may be nil to skip
// persisting or publishing.
func NewPipeline(cfg Config, store *Store, publisher Publisher, log *zap.Logger) *Pipeline {
	if cfg.Params == nil {
		cfg.Params = DefaultConfig().Params
	}
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		publisher: publisher,
		logger:    logger.Component(log, "training"),
	}
}

func (p *Pipeline) Config() Config {
	return p.cfg
}

// Train runs one full training pass. Only one run may be in flight; a second
// caller gets a conflict error immediately.
func (p *Pipeline) Train(ctx context.Context) (*Result, error) {
	if !p.mu.TryLock() {
		return nil, apperr.New(apperr.KindConflict, "a training run is already in progress")
	}
	defer p.mu.Unlock()

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	log := p.logger.With(zap.String(logger.FieldRunID, runID))
	start := time.Now()
	log.Info("training started",
		zap.Int("samples", p.cfg.Samples),
		zap.Uint64("seed", p.cfg.Seed),
	)

	dataset, err := GenerateDataset(p.cfg.Samples, p.cfg.Seed)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to generate dataset")
	}

	result, err := p.fit(ctx, log, dataset)
	if err != nil {
		return nil, err
	}
	result.RunID = runID

	if p.store != nil {
		artifacts := &Artifacts{
			DomainMapping: result.DomainMapping,
			Scaler:        result.Scaler,
			Classifiers:   result.Classifiers,
			Reports:       result.Reports,
		}
		if err := p.store.Save(artifacts, dataset); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to persist training artifacts")
		}
	}

	if p.publisher != nil {
		p.publisher.Publish(result.DomainMapping, result.Classifiers, result.Scaler, result.Accuracies())
	}

	result.Duration = time.Since(start)
	log.Info("training finished",
		zap.Duration("duration", result.Duration),
		zap.Any("domain_mapping", result.DomainMapping),
	)
	return result, nil
}

func (p *Pipeline) fit(ctx context.Context, log *zap.Logger, dataset *Dataset) (*Result, error) {
	train, test, err := Split(dataset, p.cfg.TestRatio, p.cfg.Seed)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to split dataset")
	}

	trainX, trainY := train.Matrix()
	testX, testY := test.Matrix()

	scaler, err := ml.FitStandardScaler(trainX, dataset.FeatureNames)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to fit scaler")
	}
	trainScaled := scaler.Transform(trainX)
	testScaled := scaler.Transform(testX)

	models := make([]*ml.Model, len(ml.Families))
	g, gctx := errgroup.WithContext(ctx)
	for i, family := range ml.Families {
		g.Go(func() error {
			trainer, err := ml.NewTrainer(family, p.cfg.Params[family])
			if err != nil {
				return err
			}
			m, err := trainer.Fit(gctx, trainScaled, trainY, dataset.FeatureNames)
			if err != nil {
				return fmt.Errorf("failed to train %s: %w", family, err)
			}
			models[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "training aborted")
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "training failed")
	}

	result := &Result{
		Classifiers: make(map[ml.Family]*ml.Model, len(models)),
		Scaler:      scaler,
		Reports:     make(map[ml.Family]FamilyReport, len(models)),
		TrainSize:   len(trainX),
		TestSize:    len(testX),
	}
	for _, m := range models {
		acc := m.Accuracy(testScaled, testY)
		result.Classifiers[m.Family] = m
		result.Reports[m.Family] = FamilyReport{Accuracy: acc, FeatureImportance: m.FeatureImportances()}
		log.Info("classifier trained",
			zap.String(logger.FieldClassifier, string(m.Family)),
			zap.Float64("accuracy", acc),
		)
	}

	result.DomainMapping = SelectDomainModels(result.Classifiers, result.Accuracies(), train, trainScaled, p.cfg.MinDomainSamples)
	return result, nil
}

// SelectDomainModels picks, for every domain flag column, the family with the
// highest accuracy on the training rows flagged for that domain. Domains with
// fewer than minSamples flagged rows take the family with the best global
// accuracy. Ties go to the earlier family in ml.Families.
func SelectDomainModels(classifiers map[ml.Family]*ml.Model, globalAccuracy map[ml.Family]float64, train *Dataset, scaled [][]float64, minSamples int) map[string]string {
	globalBest := bestFamily(globalAccuracy)

	mapping := make(map[string]string)
	for _, col := range train.DomainColumns() {
		idx := train.Column(col)
		var X [][]float64
		var y []int
		for i, r := range train.Records {
			if r.Features[idx] == 1 {
				X = append(X, scaled[i])
				y = append(y, r.Label)
			}
		}

		domain := DomainName(col)
		if len(X) < minSamples {
			mapping[domain] = string(globalBest)
			continue
		}

		acc := make(map[ml.Family]float64, len(classifiers))
		for f, m := range classifiers {
			acc[f] = m.Accuracy(X, y)
		}
		mapping[domain] = string(bestFamily(acc))
	}
	return mapping
}

func bestFamily(acc map[ml.Family]float64) ml.Family {
	best := ml.Families[0]
	bestAcc := -1.0
	for _, f := range ml.Families {
		a, ok := acc[f]
		if ok && a > bestAcc {
			best, bestAcc = f, a
		}
	}
	return best
}
