// Package registry holds the trained artifacts the evaluation pipeline reads:
// which embedding model to report per domain, the classifiers and the scaler.
//
// Readers always see one complete snapshot. Writers build a new snapshot and
// swap it in atomically, so a retrain never exposes a half-written mapping.
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"alfredoptarigan/resume-matcher/internal/ml"
)

// DefaultEmbeddingModel is reported when nothing else is known.
const DefaultEmbeddingModel = "hashing"

// Snapshot is immutable once published.
type Snapshot struct {
	EmbeddingModels []string                `json:"embedding_models"`
	DomainMapping   map[string]string       `json:"domain_to_best_model"`
	Classifiers     map[ml.Family]*ml.Model `json:"-"`
	Scaler          *ml.StandardScaler      `json:"-"`
	Accuracies      map[ml.Family]float64   `json:"accuracies,omitempty"`
}

// Domains returns the mapped domain names in sorted order.
func (s *Snapshot) Domains() []string {
	out := make([]string, 0, len(s.DomainMapping))
	for d := range s.DomainMapping {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

type Registry struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
}

// New creates a registry with the configured embedding model ids and an
// empty domain mapping.
func New(embeddingModels []string) *Registry {
	r := &Registry{}
	r.current.Store(&Snapshot{
		EmbeddingModels: append([]string(nil), embeddingModels...),
		DomainMapping:   map[string]string{},
		Classifiers:     map[ml.Family]*ml.Model{},
	})
	return r
}

// Snapshot returns the current snapshot. Callers must not mutate it.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// BestModelFor returns the mapped model for domain. Unknown or empty domains
// fall back to the first configured embedding model, then to
// DefaultEmbeddingModel.
func (r *Registry) BestModelFor(domain string) string {
	s := r.current.Load()
	if domain != "" {
		if m, ok := s.DomainMapping[domain]; ok && m != "" {
			return m
		}
	}
	if len(s.EmbeddingModels) > 0 {
		return s.EmbeddingModels[0]
	}
	return DefaultEmbeddingModel
}

// ReplaceMapping swaps in a new domain mapping and keeps everything else.
func (r *Registry) ReplaceMapping(mapping map[string]string) {
	r.update(func(next *Snapshot) {
		next.DomainMapping = copyMapping(mapping)
	})
}

// Publish installs the output of a training run in one step.
func (r *Registry) Publish(mapping map[string]string, classifiers map[ml.Family]*ml.Model, scaler *ml.StandardScaler, accuracies map[ml.Family]float64) {
	r.update(func(next *Snapshot) {
		next.DomainMapping = copyMapping(mapping)
		next.Classifiers = make(map[ml.Family]*ml.Model, len(classifiers))
		for f, m := range classifiers {
			next.Classifiers[f] = m
		}
		next.Scaler = scaler
		next.Accuracies = make(map[ml.Family]float64, len(accuracies))
		for f, a := range accuracies {
			next.Accuracies[f] = a
		}
	})
}

func (r *Registry) update(mutate func(next *Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()
	next := *cur
	mutate(&next)
	r.current.Store(&next)
}

func copyMapping(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
