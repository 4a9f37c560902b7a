// Package embeddingtest provides deterministic embedders for tests.
package embeddingtest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// HashEmbedder is a bag-of-words embedder: every lowercase word is hashed into
// one of Dim buckets. Texts sharing words get positive cosine similarity, and
// text with no words maps to the zero vector.
type HashEmbedder struct {
	Dim     int
	ModelID string
	Err     error

	mu    sync.Mutex
	calls int
	texts []string
}

func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{Dim: 512, ModelID: "hash-test"}
}

func (h *HashEmbedder) Model() string { return h.ModelID }

func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	h.mu.Lock()
	h.calls++
	h.texts = append(h.texts, texts...)
	h.mu.Unlock()
	if h.Err != nil {
		return nil, h.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.Vector(t)
	}
	return out, nil
}

// Vector embeds one text without counting a call.
func (h *HashEmbedder) Vector(text string) []float32 {
	dim := h.Dim
	if dim <= 0 {
		dim = 512
	}
	vec := make([]float32, dim)
	for _, w := range Words(text) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(w))
		vec[f.Sum32()%uint32(dim)]++
	}
	return vec
}

// Calls reports how many Embed calls were made.
func (h *HashEmbedder) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// Texts returns every text passed to Embed so far.
func (h *HashEmbedder) Texts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.texts...)
}

// Words splits text into lowercase letter/digit runs.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ErrProviderDown is a stand-in provider failure.
var ErrProviderDown = errors.New("provider down")
