package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-matcher/internal/apperr"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/services"
)

type UploadHandler struct {
	documents services.DocumentService
}

func NewUploadHandler(documents services.DocumentService) *UploadHandler {
	return &UploadHandler{documents: documents}
}

// HandleUpload handles POST /upload. Every file sent under "resume" is
// stored and its text extracted.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, err, "failed to parse multipart form")
	}

	files := form.File["resume"]
	if len(files) == 0 {
		return apperr.New(apperr.KindInvalidInput, "no file uploaded, send a pdf, docx or txt file as 'resume'")
	}

	responses := make([]models.UploadResponse, 0, len(files))
	for _, file := range files {
		doc, err := h.documents.Ingest(file, "resume")
		if err != nil {
			return err
		}

		responses = append(responses, models.UploadResponse{
			ID:           doc.ID.String(),
			Filename:     doc.Filename,
			OriginalName: doc.OriginalFileName,
			FileType:     doc.FileType,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Files uploaded successfully",
		"documents": responses,
	})
}
