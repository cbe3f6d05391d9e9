// Package similarity computes semantic closeness between resume and job text
// under every configured embedding model.
package similarity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"alfredoptarigan/resume-matcher/internal/logger"
)

// SimilarityScore is the outcome for one model. A degraded score is 0 and
// carries the reason, so it is never mistaken for a genuine zero.
type SimilarityScore struct {
	Value    float64 `json:"value"`
	Degraded bool    `json:"degraded"`
	Reason   string  `json:"reason,omitempty"`
}

// ScoreSet maps model id to its score. One set per evaluation.
type ScoreSet map[string]SimilarityScore

// Values returns model id to plain score value.
func (s ScoreSet) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for id, score := range s {
		out[id] = score.Value
	}
	return out
}

// Diagnostics returns the reason for every degraded model.
func (s ScoreSet) Diagnostics() map[string]string {
	out := make(map[string]string)
	for id, score := range s {
		if score.Degraded {
			out[id] = score.Reason
		}
	}
	return out
}

// Best returns the maximum value, or 0 for an empty set.
func (s ScoreSet) Best() float64 {
	if len(s) == 0 {
		return 0
	}
	first := true
	best := 0.0
	for _, score := range s {
		if first || score.Value > best {
			best = score.Value
			first = false
		}
	}
	return best
}

// Model pairs an embedder with its identifier.
type Model struct {
	ID       string
	Embedder Embedder
}

type Engine struct {
	models  []Model
	timeout time.Duration
	logger  *zap.Logger
}

// NewEngine keeps models in the given order; duplicate ids keep the first.
func NewEngine(models []Model, timeout time.Duration, log *zap.Logger) *Engine {
	seen := make(map[string]bool, len(models))
	kept := make([]Model, 0, len(models))
	for _, m := range models {
		if m.ID == "" || m.Embedder == nil || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		kept = append(kept, m)
	}

	return &Engine{
		models:  kept,
		timeout: timeout,
		logger:  logger.Component(log, "similarity"),
	}
}

// ModelIDs lists loaded embedding models in configuration order.
func (e *Engine) ModelIDs() []string {
	ids := make([]string, len(e.models))
	for i, m := range e.models {
		ids[i] = m.ID
	}
	return ids
}

// Compute scores resume against job under every model. It never fails: a
// model that errors or times out yields a degraded 0 for that model only.
func (e *Engine) Compute(ctx context.Context, resumeText, jobText string) ScoreSet {
	scores := make(ScoreSet, len(e.models))
	var mu sync.Mutex

	var g errgroup.Group
	for _, m := range e.models {
		g.Go(func() error {
			score := e.computeOne(ctx, m, resumeText, jobText)
			mu.Lock()
			scores[m.ID] = score
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return scores
}

// computeOne runs on its own goroutine, so a panicking embedder is recovered
// here and reported like any other model failure.
func (e *Engine) computeOne(ctx context.Context, m Model, resumeText, jobText string) (score SimilarityScore) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("embedding model panicked, using neutral similarity",
				zap.String(logger.FieldEmbeddingModel, m.ID), zap.Any("panic", r))
			score = SimilarityScore{Value: 0, Degraded: true, Reason: fmt.Sprintf("embedder panic: %v", r)}
		}
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	value, err := e.similarity(ctx, m.Embedder, resumeText, jobText)
	if err != nil {
		e.logger.Warn("embedding model unavailable, using neutral similarity",
			zap.String(logger.FieldEmbeddingModel, m.ID), zap.Error(err))
		return SimilarityScore{Value: 0, Degraded: true, Reason: err.Error()}
	}
	return SimilarityScore{Value: value}
}

func (e *Engine) similarity(ctx context.Context, emb Embedder, resumeText, jobText string) (float64, error) {
	resumeVec, err := emb.Encode(ctx, resumeText)
	if err != nil {
		return 0, fmt.Errorf("failed to encode resume: %w", err)
	}
	jobVec, err := emb.Encode(ctx, jobText)
	if err != nil {
		return 0, fmt.Errorf("failed to encode job description: %w", err)
	}
	return Cosine(resumeVec, jobVec)
}

// Cosine returns the cosine similarity of a and b. Zero vectors give 0.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}

	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0, nil
	}

	sim := floats.Dot(a, b) / (na * nb)
	// Guard against rounding just outside [-1, 1].
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}
