package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/apperr"
	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/training"
)

type TrainingService interface {
	// Train runs the training pipeline and records the run. A run rejected
	// because another is in flight is not recorded.
	Train(ctx context.Context) (*training.Result, error)
	LatestRun() (*models.TrainingRun, error)
}

type trainingService struct {
	pipeline *training.Pipeline
	runRepo  repositories.TrainingRunRepository
	logger   *zap.Logger
}

func NewTrainingService(pipeline *training.Pipeline, runRepo repositories.TrainingRunRepository, log *zap.Logger) TrainingService {
	return &trainingService{
		pipeline: pipeline,
		runRepo:  runRepo,
		logger:   logger.Component(log, "training_service"),
	}
}

func (t *trainingService) Train(ctx context.Context) (*training.Result, error) {
	started := time.Now()
	result, err := t.pipeline.Train(ctx)
	if apperr.Is(err, apperr.KindConflict) {
		return nil, err
	}

	cfg := t.pipeline.Config()
	run := &models.TrainingRun{
		ID:         uuid.New(),
		Samples:    cfg.Samples,
		Seed:       cfg.Seed,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err != nil {
		msg := err.Error()
		run.Status = models.TrainingFailed
		run.ErrorMessage = &msg
	} else {
		if parsed, perr := uuid.Parse(result.RunID); perr == nil {
			run.ID = parsed
		}
		run.Status = models.TrainingCompleted
		run.DomainMapping = result.DomainMapping
		run.Accuracies = make(map[string]float64, len(result.Reports))
		for f, acc := range result.Accuracies() {
			run.Accuracies[string(f)] = acc
		}
	}

	if rerr := t.runRepo.Create(run); rerr != nil {
		t.logger.Error("failed to record training run", zap.String(logger.FieldRunID, run.ID.String()), zap.Error(rerr))
	}

	return result, err
}

func (t *trainingService) LatestRun() (*models.TrainingRun, error) {
	return t.runRepo.FindLatest()
}
