package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/hospital-voicebot/internal/config"
	"github.com/wolfman30/hospital-voicebot/internal/embedding"
	"github.com/wolfman30/hospital-voicebot/internal/observability/metrics"
	"github.com/wolfman30/hospital-voicebot/internal/retrieval"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

// AWSConfigLoader loads AWS SDK config on demand, so only the bedrock
// provider touches AWS credentials.
type AWSConfigLoader func(ctx context.Context) (aws.Config, error)

// BuildEmbedder returns the configured embedding provider, timed by m and
// cached in Redis when a client is given.
func BuildEmbedder(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, redisClient redis.Cmdable, m *metrics.RetrievalMetrics, logger *logging.Logger) (embedding.Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var base embedding.Embedder
	switch cfg.EmbeddingProvider {
	case "", "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("bootstrap: OPENAI_API_KEY is required for the openai embedding provider")
		}
		client := embedding.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		base = embedding.NewOpenAIEmbedder(client, cfg.EmbeddingModel)
	case "bedrock":
		if loadAWS == nil {
			return nil, fmt.Errorf("bootstrap: aws config loader is required for the bedrock embedding provider")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		base = embedding.NewBedrockEmbedder(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockEmbeddingModelID)
	default:
		return nil, fmt.Errorf("bootstrap: unknown embedding provider %q", cfg.EmbeddingProvider)
	}
	logger.Info("embedding provider", "provider", cfg.EmbeddingProvider, "model", base.Model())

	var e embedding.Embedder = embedding.NewInstrumented(base, m)
	if redisClient != nil {
		e = embedding.NewCachingEmbedder(e, redisClient, cfg.EmbeddingCacheTTL, logger)
		logger.Info("embedding cache enabled", "ttl", cfg.EmbeddingCacheTTL)
	}
	return e, nil
}

// BuildRetrievalService wires the retrieval service from config. The caller
// still has to Start it.
func BuildRetrievalService(cfg *appconfig.Config, e embedding.Embedder, cache retrieval.ResponseCache, m *metrics.RetrievalMetrics, logger *logging.Logger) (*retrieval.Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	return retrieval.New(retrieval.Options{
		DocumentPath:   cfg.RAGDocumentPath,
		EmbeddingsPath: cfg.EmbeddingsPath,
		Embedder:       e,
		Cache:          cache,
		Metrics:        m,
		Logger:         logger,
	})
}
