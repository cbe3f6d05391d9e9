package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/scoring"
	"alfredoptarigan/resume-matcher/internal/similarity"
)

// CandidateIndex stores resume embeddings of completed evaluations so that
// similar past candidates can be looked up.
type CandidateIndex interface {
	InitCollection(ctx context.Context) error
	IndexCandidate(ctx context.Context, evalID uuid.UUID, resumeText string, result *scoring.EvaluationResult, domain string) error
	SearchSimilar(ctx context.Context, evalID uuid.UUID, resumeText, domain string, limit int) ([]models.SimilarCandidate, error)
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	embedder       similarity.Embedder
	logger         *zap.Logger
}

// NewQdrantService connects to Qdrant over gRPC. vectorSize must match the
// output width of embedder.
func NewQdrantService(urlStr, apiKey, collectionName string, embedder similarity.Embedder, vectorSize uint64, log *zap.Logger) (CandidateIndex, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     vectorSize,
		embedder:       embedder,
		logger:         logger.Component(log, "candidate_index"),
	}, nil
}

// InitCollection implements CandidateIndex.
func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.logger.Info("collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.logger.Info("collection created", zap.String("collection", q.collectionName), zap.Uint64("vector_size", q.vectorSize))
	return nil
}

// IndexCandidate implements CandidateIndex. The evaluation id doubles as the
// point id, so re-indexing an evaluation overwrites it.
func (q *qdrantService) IndexCandidate(ctx context.Context, evalID uuid.UUID, resumeText string, result *scoring.EvaluationResult, domain string) error {
	vector, err := q.embed(ctx, resumeText)
	if err != nil {
		return err
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(evalID.String()),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(candidatePayload(evalID, result, domain)),
	}

	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// SearchSimilar implements CandidateIndex. The queried evaluation itself is
// left out of the results.
func (q *qdrantService) SearchSimilar(ctx context.Context, evalID uuid.UUID, resumeText, domain string, limit int) ([]models.SimilarCandidate, error) {
	vector, err := q.embed(ctx, resumeText)
	if err != nil {
		return nil, err
	}

	var filter *qdrant.Filter
	if domain != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("domain", domain),
			},
		}
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit + 1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]models.SimilarCandidate, 0, len(points))
	for _, point := range points {
		c := decodeCandidate(point)
		if c.EvaluationID == evalID.String() {
			continue
		}
		results = append(results, c)
		if len(results) == limit {
			break
		}
	}

	return results, nil
}

func (q *qdrantService) embed(ctx context.Context, text string) ([]float32, error) {
	values, err := q.embedder.Encode(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed resume: %w", err)
	}
	if uint64(len(values)) != q.vectorSize {
		return nil, fmt.Errorf("embedding has %d dimensions, collection expects %d", len(values), q.vectorSize)
	}
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}

func candidatePayload(evalID uuid.UUID, result *scoring.EvaluationResult, domain string) map[string]any {
	return map[string]any{
		"evaluation_id":  evalID.String(),
		"domain":         domain,
		"final_score":    result.FinalScore,
		"recommendation": string(result.Recommendation),
	}
}

func decodeCandidate(point *qdrant.ScoredPoint) models.SimilarCandidate {
	payload := point.GetPayload()
	return models.SimilarCandidate{
		EvaluationID:   payload["evaluation_id"].GetStringValue(),
		Score:          point.GetScore(),
		Domain:         payload["domain"].GetStringValue(),
		FinalScore:     payload["final_score"].GetDoubleValue(),
		Recommendation: payload["recommendation"].GetStringValue(),
	}
}
