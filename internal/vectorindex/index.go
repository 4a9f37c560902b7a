// Package vectorindex holds the precomputed chunk embeddings and answers
// cosine-similarity searches against them.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/hospital-voicebot/internal/embedding"
	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
)

// ErrInvalidK is returned when a search asks for fewer than one result.
var ErrInvalidK = errors.New("vectorindex: k must be at least 1")

var indexTracer = otel.Tracer("hospital.internal.vectorindex")

// Result is one chunk and its similarity to the query.
type Result struct {
	Chunk      knowledge.Chunk
	Similarity float64
}

// Index is read-only after construction and safe for concurrent searches.
type Index struct {
	chunks   []knowledge.Chunk
	dim      int
	model    string
	embedder embedding.Embedder
}

// New builds an index over a validated artifact. The embedder must be the
// model that generated the artifact.
func New(a *Artifact, e embedding.Embedder) (*Index, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil artifact", ErrCorruptArtifact)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errors.New("vectorindex: embedder is required")
	}
	if e.Model() != a.Model {
		return nil, fmt.Errorf("%w: artifact %q, embedder %q", ErrModelMismatch, a.Model, e.Model())
	}
	return &Index{chunks: a.Chunks, dim: a.EmbeddingDimension, model: a.Model, embedder: e}, nil
}

func (ix *Index) Len() int { return len(ix.chunks) }
func (ix *Index) Dimension() int { return ix.dim }
func (ix *Index) Model() string { return ix.model }

// Chunks returns the loaded chunks in artifact order.
func (ix *Index) Chunks() []knowledge.Chunk {
	out := make([]knowledge.Chunk, len(ix.chunks))
	copy(out, ix.chunks)
	return out
}

// Embed embeds a query with the index's model and checks its dimensionality.
func (ix *Index) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := embedding.EmbedOne(ctx, ix.embedder, text)
	if err != nil {
		return nil, err
	}
	if ix.dim > 0 && len(vec) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", ErrDimensionMismatch, len(vec), ix.dim)
	}
	return vec, nil
}

// Similarity is cosine similarity. It is NaN when either vector has zero
// magnitude or the lengths differ.
func Similarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return math.NaN()
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Search embeds query and returns the k most similar chunks, optionally
// restricted to one chunk type.
func (ix *Index) Search(ctx context.Context, query string, k int, typeFilter knowledge.ChunkType) ([]Result, error) {
	ctx, span := indexTracer.Start(ctx, "vectorindex.search")
	defer span.End()
	span.SetAttributes(
		attribute.Int("search.k", k),
		attribute.String("search.type_filter", string(typeFilter)),
	)

	if k < 1 {
		return nil, ErrInvalidK
	}
	vec, err := ix.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	results, err := ix.SearchVector(vec, k, typeFilter)
	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results, err
}

// SearchVector ranks chunks against an already-embedded query. Ties keep
// artifact order and NaN similarities sort last.
func (ix *Index) SearchVector(vec []float32, k int, typeFilter knowledge.ChunkType) ([]Result, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	results := make([]Result, 0, len(ix.chunks))
	for _, c := range ix.chunks {
		if typeFilter != "" && c.Type != typeFilter {
			continue
		}
		results = append(results, Result{Chunk: c, Similarity: Similarity(vec, c.Embedding)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return Outranks(results[i].Similarity, results[j].Similarity)
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Outranks reports whether score a sorts before b in a descending ranking
// where NaN is the lowest value.
func Outranks(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	default:
		return a > b
	}
}
