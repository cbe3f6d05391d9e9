package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-matcher/internal/ml"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/registry"
	"alfredoptarigan/resume-matcher/internal/services"
)

type ModelHandler struct {
	registry *registry.Registry
	trainer  services.TrainingService
}

func NewModelHandler(reg *registry.Registry, trainer services.TrainingService) *ModelHandler {
	return &ModelHandler{registry: reg, trainer: trainer}
}

// HandleTrain handles POST /train. A second request while a run is in
// flight gets 409.
func (h *ModelHandler) HandleTrain(c *fiber.Ctx) error {
	result, err := h.trainer.Train(c.UserContext())
	if err != nil {
		return err
	}

	accuracies := make(map[string]float64, len(result.Reports))
	for f, acc := range result.Accuracies() {
		accuracies[string(f)] = acc
	}

	return c.JSON(models.TrainResponse{
		RunID:         result.RunID,
		Status:        string(models.TrainingCompleted),
		DomainMapping: result.DomainMapping,
		Accuracies:    accuracies,
		DurationMS:    result.Duration.Milliseconds(),
	})
}

// HandleListModels handles GET /models.
func (h *ModelHandler) HandleListModels(c *fiber.Ctx) error {
	snap := h.registry.Snapshot()

	classifiers := make([]string, 0, len(snap.Classifiers))
	for _, f := range ml.Families {
		if _, ok := snap.Classifiers[f]; ok {
			classifiers = append(classifiers, string(f))
		}
	}

	response := models.ModelsResponse{
		EmbeddingModelIDs: snap.EmbeddingModels,
		ClassifierIDs:     classifiers,
		DomainMapping:     snap.DomainMapping,
	}
	if h.trainer != nil {
		if run, err := h.trainer.LatestRun(); err == nil {
			response.LastTrainingRun = run
		}
	}

	return c.JSON(response)
}

// HandleHealth handles GET /health.
func (h *ModelHandler) HandleHealth(c *fiber.Ctx) error {
	snap := h.registry.Snapshot()

	return c.JSON(models.HealthResponse{
		Status:                 "healthy",
		ModelsLoaded:           len(snap.EmbeddingModels) > 0,
		EmbeddingModelsLoaded:  len(snap.EmbeddingModels),
		ClassifierModelsLoaded: len(snap.Classifiers),
	})
}
