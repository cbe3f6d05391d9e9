package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/apperr"
	"alfredoptarigan/resume-matcher/internal/extraction"
	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/registry"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/scoring"
	"alfredoptarigan/resume-matcher/internal/similarity"
)

// Matcher is the evaluation pipeline without persistence: extraction,
// similarity, scoring and the registry lookup.
type Matcher struct {
	Extractor  *extraction.Extractor
	Similarity *similarity.Engine
	Scorer     *scoring.Engine
	Registry   *registry.Registry
}

// Match scores one resume against one job. Texts must already be validated.
func (m *Matcher) Match(ctx context.Context, resumeText, jobText, domain string) *scoring.EvaluationResult {
	entities := m.Extractor.Extract(ctx, resumeText)
	scores := m.Similarity.Compute(ctx, resumeText, jobText)

	result := m.Scorer.Score(entities, jobText, scores)
	result.BestModelName = m.Registry.BestModelFor(domain)
	return &result
}

type EvaluationInput struct {
	ResumeText       string
	ResumeDocumentID *uuid.UUID
	JobText          string
	Domain           string
}

type EvaluatorService interface {
	// Evaluate runs the pipeline synchronously and stores a completed record.
	Evaluate(ctx context.Context, input EvaluationInput) (*scoring.EvaluationResult, error)
	// Submit stores a queued record for the worker and returns it.
	Submit(ctx context.Context, input EvaluationInput) (*models.Evaluation, error)
	// EvaluateCandidate processes a queued record.
	EvaluateCandidate(ctx context.Context, evalID uuid.UUID) error
	SimilarCandidates(ctx context.Context, evalID uuid.UUID, limit int) ([]models.SimilarCandidate, error)
}

type evaluatorService struct {
	matcher       *Matcher
	evalRepo      repositories.EvaluationRepository
	docRepo       repositories.DocumentRepository
	parser        DocumentParserService
	index         CandidateIndex
	defaultDomain string
	logger        *zap.Logger
}

// NewEvaluatorService wires the evaluation flow. index may be nil when no
// candidate index is configured.
func NewEvaluatorService(
	matcher *Matcher,
	evalRepo repositories.EvaluationRepository,
	docRepo repositories.DocumentRepository,
	parser DocumentParserService,
	index CandidateIndex,
	defaultDomain string,
	log *zap.Logger,
) EvaluatorService {
	return &evaluatorService{
		matcher:       matcher,
		evalRepo:      evalRepo,
		docRepo:       docRepo,
		parser:        parser,
		index:         index,
		defaultDomain: defaultDomain,
		logger:        logger.Component(log, "evaluator"),
	}
}

func (e *evaluatorService) Evaluate(ctx context.Context, input EvaluationInput) (*scoring.EvaluationResult, error) {
	input, err := e.prepare(input)
	if err != nil {
		return nil, err
	}

	result := e.matcher.Match(ctx, input.ResumeText, input.JobText, input.Domain)

	eval := &models.Evaluation{
		ID:               uuid.New(),
		ResumeDocumentID: input.ResumeDocumentID,
		ResumeText:       input.ResumeText,
		JobText:          input.JobText,
		Domain:           input.Domain,
		Status:           models.StatusCompleted,
	}
	result.ID = eval.ID.String()
	score := result.FinalScore
	recommendation := string(result.Recommendation)
	eval.FinalScore = &score
	eval.Recommendation = &recommendation
	eval.Result = result

	if err := e.evalRepo.Create(eval); err != nil {
		return nil, fmt.Errorf("failed to store evaluation: %w", err)
	}

	e.logCompleted(eval.ID, input.Domain, result)
	e.indexCandidate(ctx, eval.ID, input, result)
	return result, nil
}

func (e *evaluatorService) Submit(ctx context.Context, input EvaluationInput) (*models.Evaluation, error) {
	input, err := e.prepare(input)
	if err != nil {
		return nil, err
	}

	eval := &models.Evaluation{
		ID:               uuid.New(),
		ResumeDocumentID: input.ResumeDocumentID,
		ResumeText:       input.ResumeText,
		JobText:          input.JobText,
		Domain:           input.Domain,
		Status:           models.StatusQueued,
	}
	if err := e.evalRepo.Create(eval); err != nil {
		return nil, fmt.Errorf("failed to store evaluation: %w", err)
	}

	e.logger.Info("evaluation queued", zap.String(logger.FieldEvaluationID, eval.ID.String()))
	return eval, nil
}

func (e *evaluatorService) EvaluateCandidate(ctx context.Context, evalID uuid.UUID) error {
	if err := e.evalRepo.UpdateStatus(evalID, models.StatusProcessing); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	eval, err := e.evalRepo.FindByID(evalID)
	if err != nil {
		e.fail(evalID, err)
		return fmt.Errorf("failed to get evaluation: %w", err)
	}

	input, err := e.prepare(EvaluationInput{
		ResumeText:       eval.ResumeText,
		ResumeDocumentID: eval.ResumeDocumentID,
		JobText:          eval.JobText,
		Domain:           eval.Domain,
	})
	if err != nil {
		e.fail(evalID, err)
		return err
	}

	result := e.matcher.Match(ctx, input.ResumeText, input.JobText, input.Domain)
	result.ID = evalID.String()

	if err := e.evalRepo.UpdateResult(evalID, result); err != nil {
		err = fmt.Errorf("failed to save results: %w", err)
		e.fail(evalID, err)
		return err
	}

	e.logCompleted(evalID, input.Domain, result)
	e.indexCandidate(ctx, evalID, input, result)
	return nil
}

func (e *evaluatorService) SimilarCandidates(ctx context.Context, evalID uuid.UUID, limit int) ([]models.SimilarCandidate, error) {
	if e.index == nil {
		return nil, apperr.New(apperr.KindNotFound, "candidate index is not configured")
	}

	eval, err := e.evalRepo.FindByID(evalID)
	if err != nil {
		return nil, err
	}
	if eval.Status != models.StatusCompleted {
		return nil, apperr.New(apperr.KindConflict, "evaluation %s is %s", evalID, eval.Status)
	}

	candidates, err := e.index.SearchSimilar(ctx, evalID, eval.ResumeText, eval.Domain, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindModelUnavailable, err, "candidate search failed")
	}
	return candidates, nil
}

// prepare validates the input and resolves the resume text. A missing job
// description is a Validation error; a missing resume is InvalidInput.
func (e *evaluatorService) prepare(input EvaluationInput) (EvaluationInput, error) {
	input.JobText = strings.TrimSpace(input.JobText)
	if input.JobText == "" {
		return input, apperr.New(apperr.KindValidation, "job description text is required")
	}

	input.Domain = strings.TrimSpace(input.Domain)
	if input.Domain == "" {
		input.Domain = e.defaultDomain
	}

	// Resume text is kept verbatim; it becomes parsed_entities.raw_text.
	if strings.TrimSpace(input.ResumeText) != "" {
		return input, nil
	}
	if input.ResumeDocumentID == nil {
		return input, apperr.New(apperr.KindInvalidInput, "no resume text or file provided")
	}

	doc, err := e.docRepo.FindByID(*input.ResumeDocumentID)
	if err != nil {
		return input, err
	}
	text := doc.Text
	if strings.TrimSpace(text) == "" {
		text, err = e.parser.ExtractText(doc.FilePath)
		if err != nil {
			return input, err
		}
	}
	input.ResumeText = text
	return input, nil
}

func (e *evaluatorService) indexCandidate(ctx context.Context, evalID uuid.UUID, input EvaluationInput, result *scoring.EvaluationResult) {
	if e.index == nil {
		return
	}
	if err := e.index.IndexCandidate(ctx, evalID, input.ResumeText, result, input.Domain); err != nil {
		e.logger.Warn("failed to index candidate",
			zap.String(logger.FieldEvaluationID, evalID.String()),
			zap.Error(err),
		)
	}
}

func (e *evaluatorService) fail(evalID uuid.UUID, cause error) {
	if err := e.evalRepo.UpdateError(evalID, cause.Error()); err != nil {
		e.logger.Error("failed to record evaluation error",
			zap.String(logger.FieldEvaluationID, evalID.String()),
			zap.Error(err),
		)
	}
}

func (e *evaluatorService) logCompleted(evalID uuid.UUID, domain string, result *scoring.EvaluationResult) {
	e.logger.Info("evaluation completed",
		zap.String(logger.FieldEvaluationID, evalID.String()),
		zap.String(logger.FieldDomain, domain),
		zap.Float64("final_score", result.FinalScore),
		zap.String("recommendation", string(result.Recommendation)),
		zap.String(logger.FieldClassifier, result.BestModelName),
	)
}
