package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
)

// Ensure LocalEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*LocalEmbedding)(nil)

// LocalEmbedding implements EmbeddingService with deterministic feature
// hashing: each token is hashed into a fixed-size bag-of-words vector, which
// is then L2-normalised.
//
// It runs offline with no external dependency and gives identical vectors for
// identical input, which makes it the default backend for development and the
// reference backend for tests. It captures lexical overlap only; swap in a
// hosted model (and reindex) when real semantic similarity is needed.
type LocalEmbedding struct {
	dimensions int
	version    string
}

// DefaultLocalDimensions is the vector size for the local backend. Small on
// purpose: brute-force cosine over a personal task corpus does not need more.
const DefaultLocalDimensions = 256

// NewLocalEmbedding creates a new local embedding service.
func NewLocalEmbedding(dimensions int) *LocalEmbedding {
	if dimensions <= 0 {
		dimensions = DefaultLocalDimensions
	}
	return &LocalEmbedding{
		dimensions: dimensions,
		version:    "local-hash-v1",
	}
}

// Embed generates embeddings for multiple texts
func (e *LocalEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, domain.ErrEmptyText
		}
		result[i] = e.embed(text)
	}
	return result, nil
}

// EmbedQuery generates an embedding for a search query
func (e *LocalEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyText
	}
	return e.embed(query), nil
}

// Dimensions returns the embedding dimension size
func (e *LocalEmbedding) Dimensions() int {
	return e.dimensions
}

// ModelVersion identifies the embedding model
func (e *LocalEmbedding) ModelVersion() string {
	return e.version
}

// HealthCheck always succeeds: there is no backend to be down
func (e *LocalEmbedding) HealthCheck(ctx context.Context) error {
	return nil
}

// Close releases resources held by the embedding service
func (e *LocalEmbedding) Close() error {
	return nil
}

func (e *LocalEmbedding) embed(text string) []float32 {
	vector := make([]float32, e.dimensions)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vector[h.Sum32()%uint32(e.dimensions)] += 1.0
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1.0 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector
}

// tokenize lowercases and splits on anything that is not a letter or digit,
// so "Fix login-bug!" and "fix login bug" hash to the same buckets.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
