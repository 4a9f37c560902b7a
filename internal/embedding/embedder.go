// Package embedding turns text into vectors through an external provider.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetrievalUnavailable marks any failure of the embedding provider. Callers
// surface it as a per-request error and never retry on the hot path.
var ErrRetrievalUnavailable = errors.New("embedding: retrieval unavailable")

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// ProviderError wraps a provider failure so errors.Is(err, ErrRetrievalUnavailable) holds.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding: %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool {
	return target == ErrRetrievalUnavailable
}

func providerError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Err: err}
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, providerError(e.Model(), fmt.Errorf("expected 1 embedding, got %d", len(vecs)))
	}
	return vecs[0], nil
}

// BatchOptions controls offline batch embedding.
type BatchOptions struct {
	Size  int
	Delay time.Duration
	// Progress, when set, is called after every completed batch.
	Progress func(done, total int)
}

// EmbedBatches embeds texts in fixed-size batches and waits Delay between
// batches to stay under provider rate limits. Used by offline generation only.
func EmbedBatches(ctx context.Context, e Embedder, texts []string, opts BatchOptions) ([][]float32, error) {
	size := opts.Size
	if size <= 0 {
		size = 100
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		if start > 0 && opts.Delay > 0 {
			timer := time.NewTimer(opts.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding: batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, providerError(e.Model(), fmt.Errorf("batch %d-%d returned %d embeddings", start, end, len(vecs)))
		}
		out = append(out, vecs...)
		if opts.Progress != nil {
			opts.Progress(end, len(texts))
		}
	}
	return out, nil
}
