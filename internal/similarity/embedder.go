package similarity

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float64, error)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, text string) ([]float64, error)

func (f EmbedderFunc) Encode(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}

const DefaultHashDimensions = 512

// HashingEmbedder is a local, deterministic embedder: token counts are
// projected into a fixed number of signed buckets (the hashing trick).
type HashingEmbedder struct {
	dims     int
	tokenize func(string) []string
}

// NewWordHashingEmbedder hashes lowercased word unigrams.
func NewWordHashingEmbedder(dims int) *HashingEmbedder {
	return &HashingEmbedder{dims: normalizeDims(dims), tokenize: wordTokens}
}

// NewNgramHashingEmbedder hashes character trigrams of each word, padded
// with boundary markers, which tolerates inflections and typos.
func NewNgramHashingEmbedder(dims int) *HashingEmbedder {
	return &HashingEmbedder{dims: normalizeDims(dims), tokenize: charTrigrams}
}

func (h *HashingEmbedder) Encode(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, h.dims)
	for _, tok := range h.tokenize(text) {
		hasher := fnv.New64a()
		hasher.Write([]byte(tok))
		sum := hasher.Sum64()

		idx := int(sum % uint64(h.dims))
		sign := 1.0
		if (sum>>63)&1 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}

	// Sublinear term frequency keeps long documents from being dominated by
	// repeated tokens.
	for i, v := range vec {
		if v != 0 {
			vec[i] = math.Copysign(1+math.Log(math.Abs(v)), v)
		}
	}
	return vec, nil
}

func normalizeDims(dims int) int {
	if dims <= 0 {
		return DefaultHashDimensions
	}
	return dims
}

func wordTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

func charTrigrams(text string) []string {
	var grams []string
	for _, word := range wordTokens(text) {
		runes := []rune("<" + word + ">")
		for i := 0; i+3 <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+3]))
		}
	}
	return grams
}
