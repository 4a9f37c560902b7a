package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hospital-voicebot/internal/appointments"
	appconfig "github.com/wolfman30/hospital-voicebot/internal/config"
	"github.com/wolfman30/hospital-voicebot/internal/embedding"
	"github.com/wolfman30/hospital-voicebot/internal/retrieval"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

func TestBuildRedisClient(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, logging.Discard(), true))

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.Discard(), true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.Discard(), true))
}

func TestBuildResponseCache(t *testing.T) {
	cache := BuildResponseCache(&appconfig.Config{ResponseCacheBackend: "memory"}, nil, logging.Discard())
	assert.IsType(t, &retrieval.MemoryCache{}, cache)

	cache = BuildResponseCache(&appconfig.Config{ResponseCacheBackend: "redis"}, nil, logging.Discard())
	assert.IsType(t, &retrieval.MemoryCache{}, cache, "falls back without redis")

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.Discard(), false)
	t.Cleanup(func() { _ = client.Close() })
	cache = BuildResponseCache(&appconfig.Config{ResponseCacheBackend: "redis", ResponseCacheTTL: time.Minute}, client, logging.Discard())
	assert.IsType(t, &retrieval.RedisResponseCache{}, cache)
}

func TestBuildAppointmentStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appointments.json")
	store, closeFn, err := BuildAppointmentStore(context.Background(), &appconfig.Config{AppointmentStore: "file", AppointmentsPath: path}, logging.Discard())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &appointments.FileStore{}, store)

	_, _, err = BuildAppointmentStore(context.Background(), &appconfig.Config{AppointmentStore: "postgres"}, logging.Discard())
	assert.ErrorContains(t, err, "DATABASE_URL is required")

	_, _, err = BuildAppointmentStore(context.Background(), &appconfig.Config{AppointmentStore: "dynamo"}, logging.Discard())
	assert.ErrorContains(t, err, "unknown appointment store")

	_, _, err = BuildAppointmentStore(context.Background(), nil, logging.Discard())
	assert.Error(t, err)
}

func TestBuildEmbedder(t *testing.T) {
	ctx := context.Background()

	_, err := BuildEmbedder(ctx, &appconfig.Config{EmbeddingProvider: "openai"}, nil, nil, nil, logging.Discard())
	assert.ErrorContains(t, err, "OPENAI_API_KEY is required")

	_, err = BuildEmbedder(ctx, &appconfig.Config{EmbeddingProvider: "cohere"}, nil, nil, nil, logging.Discard())
	assert.ErrorContains(t, err, "unknown embedding provider")

	e, err := BuildEmbedder(ctx, &appconfig.Config{EmbeddingProvider: "openai", OpenAIAPIKey: "sk-test", EmbeddingModel: "text-embedding-3-small"}, nil, nil, nil, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &embedding.Instrumented{}, e)
	assert.Equal(t, "text-embedding-3-small", e.Model())

	mr := miniredis.RunT(t)
	client := BuildRedisClient(ctx, &appconfig.Config{RedisAddr: mr.Addr()}, logging.Discard(), false)
	t.Cleanup(func() { _ = client.Close() })
	e, err = BuildEmbedder(ctx, &appconfig.Config{EmbeddingProvider: "openai", OpenAIAPIKey: "sk-test", EmbeddingCacheTTL: time.Hour}, nil, client, nil, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &embedding.CachingEmbedder{}, e)
}

func TestBuildEmbedderBedrock(t *testing.T) {
	ctx := context.Background()
	cfg := &appconfig.Config{EmbeddingProvider: "bedrock", BedrockEmbeddingModelID: "amazon.titan-embed-text-v2:0"}

	_, err := BuildEmbedder(ctx, cfg, nil, nil, nil, logging.Discard())
	assert.ErrorContains(t, err, "aws config loader is required")

	_, err = BuildEmbedder(ctx, cfg, func(context.Context) (aws.Config, error) {
		return aws.Config{}, errors.New("no credentials")
	}, nil, nil, logging.Discard())
	assert.ErrorContains(t, err, "no credentials")

	e, err := BuildEmbedder(ctx, cfg, func(context.Context) (aws.Config, error) {
		return aws.Config{Region: "us-east-1"}, nil
	}, nil, nil, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "amazon.titan-embed-text-v2:0", e.Model())
}

func TestBuildRetrievalService(t *testing.T) {
	cfg := &appconfig.Config{RAGDocumentPath: "doc.json", EmbeddingsPath: "emb.json"}
	_, err := BuildRetrievalService(cfg, nil, nil, nil, logging.Discard())
	assert.Error(t, err, "embedder is required")
}

func TestBuildVoiceClients(t *testing.T) {
	vapi, retell := BuildVoiceClients(&appconfig.Config{}, logging.Discard())
	assert.Nil(t, vapi)
	assert.Nil(t, retell)

	vapi, retell = BuildVoiceClients(&appconfig.Config{VAPIAPIKey: "v", RetellAPIKey: "r", RetellAgentID: "agent_1"}, logging.Discard())
	require.NotNil(t, vapi)
	require.NotNil(t, retell)
	assert.Equal(t, "agent_1", retell.AgentID())
}
