package models

import (
	"time"

	"github.com/google/uuid"
)

type TrainingStatus string

const (
	TrainingCompleted TrainingStatus = "completed"
	TrainingFailed    TrainingStatus = "failed"
)

// TrainingRun records the outcome of one API-triggered training pass.
type TrainingRun struct {
	ID            uuid.UUID          `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Status        TrainingStatus     `gorm:"not null" json:"status"`
	Samples       int                `json:"samples"`
	Seed          uint64             `json:"seed"`
	DomainMapping map[string]string  `gorm:"type:jsonb;serializer:json" json:"domain_mapping,omitempty"`
	Accuracies    map[string]float64 `gorm:"type:jsonb;serializer:json" json:"accuracies,omitempty"`
	ErrorMessage  *string            `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at"`
}

func (TrainingRun) TableName() string {
	return "training_runs"
}
