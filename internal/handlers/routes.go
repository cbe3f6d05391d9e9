package handlers

import "github.com/gofiber/fiber/v2"

// Register mounts every endpoint under /api/v1.
func Register(app *fiber.App, evaluate *EvaluationHandler, result *ResultHandler, upload *UploadHandler, model *ModelHandler) {
	api := app.Group("/api/v1")

	api.Get("/health", model.HandleHealth)
	api.Get("/models", model.HandleListModels)
	api.Post("/train", model.HandleTrain)

	api.Post("/upload", upload.HandleUpload)
	api.Post("/evaluate", evaluate.HandleEvaluate)
	api.Post("/evaluations", evaluate.HandleSubmit)
	api.Get("/result/:id", result.HandleGetResult)
	api.Get("/result/:id/similar", result.HandleSimilar)
}
