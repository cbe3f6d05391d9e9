package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/apperr"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

const (
	defaultSimilarLimit = 5
	maxSimilarLimit     = 50
)

type ResultHandler struct {
	evalRepo  repositories.EvaluationRepository
	evaluator services.EvaluatorService
}

func NewResultHandler(evalRepo repositories.EvaluationRepository, evaluator services.EvaluatorService) *ResultHandler {
	return &ResultHandler{
		evalRepo:  evalRepo,
		evaluator: evaluator,
	}
}

// HandleGetResult handles GET /result/:id
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	evalID, err := parseID(c)
	if err != nil {
		return err
	}

	evaluation, err := h.evalRepo.FindByID(evalID)
	if err != nil {
		return err
	}

	response := models.ResultResponse{
		ID:     evaluation.ID.String(),
		Status: string(evaluation.Status),
		Domain: evaluation.Domain,
	}

	if evaluation.Status == models.StatusCompleted {
		response.Result = evaluation.Result
	}

	if evaluation.Status == models.StatusFailed {
		response.ErrorMessage = evaluation.ErrorMessage
	}

	return c.JSON(response)
}

// HandleSimilar handles GET /result/:id/similar?limit=N
func (h *ResultHandler) HandleSimilar(c *fiber.Ctx) error {
	evalID, err := parseID(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", defaultSimilarLimit)
	if limit < 1 || limit > maxSimilarLimit {
		return apperr.New(apperr.KindValidation, "limit must be between 1 and %d", maxSimilarLimit)
	}

	candidates, err := h.evaluator.SimilarCandidates(c.UserContext(), evalID, limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"id":         evalID.String(),
		"candidates": candidates,
	})
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindInvalidInput, err, "invalid evaluation ID format")
	}
	return id, nil
}
