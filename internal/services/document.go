package services

import (
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

// DocumentService turns an uploaded resume file into a stored document with
// its extracted text.
type DocumentService interface {
	Ingest(file *multipart.FileHeader, fileType string) (*models.Document, error)
}

type documentService struct {
	docRepo repositories.DocumentRepository
	storage StorageService
	parser  DocumentParserService
	logger  *zap.Logger
}

func NewDocumentService(docRepo repositories.DocumentRepository, storage StorageService, parser DocumentParserService, log *zap.Logger) DocumentService {
	return &documentService{
		docRepo: docRepo,
		storage: storage,
		parser:  parser,
		logger:  logger.Component(log, "documents"),
	}
}

// Ingest saves the file, extracts its text and records it. The stored file
// is removed again if any later step fails.
func (d *documentService) Ingest(file *multipart.FileHeader, fileType string) (*models.Document, error) {
	filename, filePath, err := d.storage.SaveFile(file, fileType)
	if err != nil {
		return nil, err
	}

	text, err := d.parser.ExtractText(filePath)
	if err != nil {
		d.cleanup(filename)
		return nil, err
	}

	doc := &models.Document{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		FileType:         strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), "."),
		FilePath:         filePath,
		Text:             text,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := d.docRepo.Create(doc); err != nil {
		d.cleanup(filename)
		return nil, err
	}

	d.logger.Info("document stored",
		zap.String("document_id", doc.ID.String()),
		zap.String("file_type", doc.FileType),
		zap.Int("chars", len(text)),
	)
	return doc, nil
}

func (d *documentService) cleanup(filename string) {
	if err := d.storage.DeleteFile(filename); err != nil {
		d.logger.Warn("failed to remove stored file", zap.String("filename", filename), zap.Error(err))
	}
}
