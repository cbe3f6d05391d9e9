package models

import (
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/scoring"
)

type EvaluationStatus string

const (
	StatusQueued     EvaluationStatus = "queued"
	StatusProcessing EvaluationStatus = "processing"
	StatusCompleted  EvaluationStatus = "completed"
	StatusFailed     EvaluationStatus = "failed"
)

type Evaluation struct {
	ID               uuid.UUID                 `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ResumeDocumentID *uuid.UUID                `gorm:"type:uuid" json:"resume_document_id,omitempty"`
	ResumeText       string                    `gorm:"type:text" json:"-"`
	JobText          string                    `gorm:"type:text;not null" json:"-"`
	Domain           string                    `gorm:"type:text" json:"domain"`
	Status           EvaluationStatus          `gorm:"not null;default:'queued'" json:"status"`
	FinalScore       *float64                  `gorm:"type:decimal(5,4)" json:"final_score,omitempty"`
	Recommendation   *string                   `gorm:"type:text" json:"recommendation,omitempty"`
	Result           *scoring.EvaluationResult `gorm:"type:jsonb;serializer:json" json:"result,omitempty"`
	ErrorMessage     *string                   `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time                 `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time                 `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	ResumeDocument *Document `gorm:"foreignKey:ResumeDocumentID" json:"-"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}
