package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/apperr"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/services"
)

type EvaluationHandler struct {
	evaluator services.EvaluatorService
	documents services.DocumentService
	worker    services.Worker
	validate  *validator.Validate
}

func NewEvaluationHandler(
	evaluator services.EvaluatorService,
	documents services.DocumentService,
	worker services.Worker,
) *EvaluationHandler {
	return &EvaluationHandler{
		evaluator: evaluator,
		documents: documents,
		worker:    worker,
		validate:  validator.New(),
	}
}

// HandleEvaluate handles POST /evaluate. It accepts JSON or a multipart form
// with an optional "file" part and returns the full evaluation result.
func (h *EvaluationHandler) HandleEvaluate(c *fiber.Ctx) error {
	input, err := h.parseInput(c)
	if err != nil {
		return err
	}

	result, err := h.evaluator.Evaluate(c.UserContext(), input)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// HandleSubmit handles POST /evaluations: the evaluation is queued for the
// worker and its id returned immediately.
func (h *EvaluationHandler) HandleSubmit(c *fiber.Ctx) error {
	input, err := h.parseInput(c)
	if err != nil {
		return err
	}

	evaluation, err := h.evaluator.Submit(c.UserContext(), input)
	if err != nil {
		return err
	}

	h.worker.EnqueueJob(evaluation.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.EvaluateResponse{
		ID:     evaluation.ID.String(),
		Status: string(evaluation.Status),
	})
}

func (h *EvaluationHandler) parseInput(c *fiber.Ctx) (services.EvaluationInput, error) {
	var req models.EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return services.EvaluationInput{}, apperr.Wrap(apperr.KindInvalidInput, err, "invalid request payload")
	}

	if err := h.validate.Struct(req); err != nil {
		return services.EvaluationInput{}, validationError(err)
	}

	input := services.EvaluationInput{
		ResumeText: req.ResumeText,
		JobText:    req.JobText,
		Domain:     req.Domain,
	}

	if req.ResumeDocumentID != "" {
		id, err := uuid.Parse(req.ResumeDocumentID)
		if err != nil {
			return input, apperr.Wrap(apperr.KindValidation, err, "invalid resume_document_id")
		}
		input.ResumeDocumentID = &id
	}

	// An uploaded file is only read when no resume text was sent.
	if strings.TrimSpace(input.ResumeText) == "" && isMultipart(c) {
		if file, err := c.FormFile("file"); err == nil {
			doc, err := h.documents.Ingest(file, "resume")
			if err != nil {
				return input, err
			}
			input.ResumeText = doc.Text
			input.ResumeDocumentID = &doc.ID
		}
	}

	return input, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}
