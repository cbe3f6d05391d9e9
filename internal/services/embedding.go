package services

import (
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/similarity"
)

const (
	EmbeddingHashing = "hashing"
	EmbeddingNgram   = "ngram"
	EmbeddingGemini  = "gemini"

	geminiEmbeddingDimensions = 768
)

// BuildEmbeddingModels resolves configured model ids to embedders. Unknown
// ids, and "gemini" without a client, are skipped with a warning.
func BuildEmbeddingModels(ids []string, gemini GeminiService, log *zap.Logger) []similarity.Model {
	models := make([]similarity.Model, 0, len(ids))
	for _, id := range ids {
		switch id {
		case EmbeddingHashing:
			models = append(models, similarity.Model{ID: id, Embedder: similarity.NewWordHashingEmbedder(similarity.DefaultHashDimensions)})
		case EmbeddingNgram:
			models = append(models, similarity.Model{ID: id, Embedder: similarity.NewNgramHashingEmbedder(similarity.DefaultHashDimensions)})
		case EmbeddingGemini:
			if gemini == nil {
				log.Warn("gemini embedding model configured without an API key, skipping")
				continue
			}
			models = append(models, similarity.Model{ID: id, Embedder: NewGeminiEmbedder(gemini)})
		default:
			log.Warn("unknown embedding model, skipping", zap.String(logger.FieldEmbeddingModel, id))
		}
	}
	return models
}

// IndexEmbedder picks the embedder backing the candidate index and its
// vector size.
func IndexEmbedder(gemini GeminiService) (similarity.Embedder, uint64) {
	if gemini != nil {
		return NewGeminiEmbedder(gemini), geminiEmbeddingDimensions
	}
	return similarity.NewWordHashingEmbedder(similarity.DefaultHashDimensions), similarity.DefaultHashDimensions
}
