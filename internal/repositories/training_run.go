package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"alfredoptarigan/resume-matcher/internal/apperr"
	"alfredoptarigan/resume-matcher/internal/models"
)

type TrainingRunRepository interface {
	Create(run *models.TrainingRun) error
	FindLatest() (*models.TrainingRun, error)
}

type trainingRunRepository struct {
	db *gorm.DB
}

func NewTrainingRunRepository(db *gorm.DB) TrainingRunRepository {
	return &trainingRunRepository{db: db}
}

func (r *trainingRunRepository) Create(run *models.TrainingRun) error {
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to create training run: %w", err)
	}
	return nil
}

func (r *trainingRunRepository) FindLatest() (*models.TrainingRun, error) {
	var run models.TrainingRun
	if err := r.db.Order("started_at DESC").First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, err, "no training runs recorded")
		}
		return nil, fmt.Errorf("failed to find latest training run: %w", err)
	}
	return &run, nil
}
