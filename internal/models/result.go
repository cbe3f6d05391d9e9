package models

import "alfredoptarigan/resume-matcher/internal/scoring"

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
}

// EvaluateRequest is the JSON form of an evaluation request. Multipart
// requests carry the same fields as form values plus an optional file.
type EvaluateRequest struct {
	ResumeText       string `json:"resume_text" form:"resume_text"`
	ResumeDocumentID string `json:"resume_document_id" form:"resume_document_id" validate:"omitempty,uuid"`
	JobText          string `json:"job_text" form:"job_text" validate:"required"`
	Domain           string `json:"domain" form:"domain" validate:"omitempty,max=64"`
}

type EvaluateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResultResponse struct {
	ID           string                    `json:"id"`
	Status       string                    `json:"status"`
	Domain       string                    `json:"domain,omitempty"`
	Result       *scoring.EvaluationResult `json:"result,omitempty"`
	ErrorMessage *string                   `json:"error_message,omitempty"`
}

type SimilarCandidate struct {
	EvaluationID   string  `json:"evaluation_id"`
	Score          float32 `json:"score"`
	Domain         string  `json:"domain"`
	FinalScore     float64 `json:"final_score"`
	Recommendation string  `json:"recommendation"`
}

type TrainResponse struct {
	RunID         string             `json:"run_id"`
	Status        string             `json:"status"`
	DomainMapping map[string]string  `json:"domain_mapping"`
	Accuracies    map[string]float64 `json:"accuracies"`
	DurationMS    int64              `json:"duration_ms"`
}

type ModelsResponse struct {
	EmbeddingModelIDs []string          `json:"embedding_model_ids"`
	ClassifierIDs     []string          `json:"classifier_ids"`
	DomainMapping     map[string]string `json:"domain_mapping"`
	LastTrainingRun   *TrainingRun      `json:"last_training_run,omitempty"`
}

type HealthResponse struct {
	Status                 string `json:"status"`
	ModelsLoaded           bool   `json:"models_loaded"`
	EmbeddingModelsLoaded  int    `json:"embedding_models_loaded"`
	ClassifierModelsLoaded int    `json:"classifier_models_loaded"`
}
