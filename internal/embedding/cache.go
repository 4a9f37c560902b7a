package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

// CachingEmbedder memoizes embeddings in Redis. Cache failures are logged and
// fall through to the provider; they never fail a request.
type CachingEmbedder struct {
	next   Embedder
	redis  redis.Cmdable
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachingEmbedder(next Embedder, client redis.Cmdable, ttl time.Duration, logger *logging.Logger) *CachingEmbedder {
	if next == nil {
		panic("embedding: wrapped embedder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachingEmbedder{next: next, redis: client, ttl: ttl, logger: logger}
}

func (c *CachingEmbedder) Model() string { return c.next.Model() }

func (c *CachingEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%s:%s", c.next.Model(), hex.EncodeToString(sum[:]))
}

func (c *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.redis == nil {
		return c.next.Embed(ctx, texts)
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	out := make([][]float32, len(texts))
	var missing []int
	vals, err := c.redis.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("embedding cache read failed", "error", err)
		vals = nil
	}
	for i := range texts {
		if i < len(vals) {
			if s, ok := vals[i].(string); ok {
				var vec []float32
				if err := json.Unmarshal([]byte(s), &vec); err == nil && len(vec) > 0 {
					out[i] = vec
					continue
				}
			}
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}
	vecs, err := c.next.Embed(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(pending) {
		return nil, providerError(c.next.Model(), fmt.Errorf("expected %d embeddings, got %d", len(pending), len(vecs)))
	}

	pipe := c.redis.Pipeline()
	for j, i := range missing {
		out[i] = vecs[j]
		data, err := json.Marshal(vecs[j])
		if err != nil {
			continue
		}
		pipe.Set(ctx, keys[i], data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("embedding cache write failed", "error", err)
	}
	return out, nil
}

// LatencyObserver receives provider call durations.
type LatencyObserver interface {
	ObserveEmbedding(d time.Duration)
}

// Instrumented reports the latency of every provider call.
type Instrumented struct {
	next     Embedder
	observer LatencyObserver
}

func NewInstrumented(next Embedder, observer LatencyObserver) *Instrumented {
	return &Instrumented{next: next, observer: observer}
}

func (i *Instrumented) Model() string { return i.next.Model() }

func (i *Instrumented) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := i.next.Embed(ctx, texts)
	if i.observer != nil {
		i.observer.ObserveEmbedding(time.Since(start))
	}
	return vecs, err
}
