package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hospital-voicebot/internal/embedding"
	"github.com/wolfman30/hospital-voicebot/internal/embedding/embeddingtest"
	"github.com/wolfman30/hospital-voicebot/internal/knowledge/knowledgetest"
	"github.com/wolfman30/hospital-voicebot/internal/observability/metrics"
	"github.com/wolfman30/hospital-voicebot/internal/vectorindex"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

type fixture struct {
	svc      *Service
	embedder *embeddingtest.HashEmbedder
	cache    *MemoryCache
	now      *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	e := embeddingtest.NewHashEmbedder()
	kb := knowledgetest.Base()
	artifact, err := vectorindex.Generate(context.Background(), kb, e, embedding.BatchOptions{})
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := &fixture{embedder: e, now: &now}
	f.cache = NewMemoryCache(30*time.Minute, 100).WithClock(func() time.Time { return *f.now })

	svc, err := New(Options{
		Knowledge: kb,
		Artifact:  artifact,
		Embedder:  e,
		Cache:     f.cache,
		Metrics:   metrics.NewRetrievalMetrics(prometheus.NewRegistry()),
		Logger:    logging.Discard(),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	f.svc = svc
	return f
}

func TestServiceRejectsQueriesBeforeStart(t *testing.T) {
	svc, err := New(Options{
		DocumentPath:   "unused.json",
		EmbeddingsPath: "unused.json",
		Embedder:       embeddingtest.NewHashEmbedder(),
	})
	require.NoError(t, err)
	assert.False(t, svc.Ready())

	_, err = svc.GenerateVoiceBotResponse(context.Background(), "knee pain")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.FindRelevantDoctors(context.Background(), "knee pain", 3)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.Knowledge()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestServiceStartFailsOnMissingFiles(t *testing.T) {
	dir := t.TempDir()
	svc, err := New(Options{
		DocumentPath:   filepath.Join(dir, "kb.json"),
		EmbeddingsPath: filepath.Join(dir, "emb.json"),
		Embedder:       embeddingtest.NewHashEmbedder(),
		Logger:         logging.Discard(),
	})
	require.NoError(t, err)
	require.Error(t, svc.Start(context.Background()))
	assert.False(t, svc.Ready())
}

func TestServiceStartTwice(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.Start(context.Background()), ErrAlreadyStarted)
}

func TestNewRequiresEmbedder(t *testing.T) {
	_, err := New(Options{DocumentPath: "a", EmbeddingsPath: "b"})
	require.Error(t, err)
}

func TestGenerateVoiceBotResponseEndToEnd(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.GenerateVoiceBotResponse(context.Background(), "I have severe stomach pain")
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "I have severe stomach pain", resp.Query)
	require.NotEmpty(t, resp.Doctors)
	assert.LessOrEqual(t, len(resp.Doctors), VoiceTopK)
	assert.Equal(t, "Meera Rao", resp.Doctors[0].Name)
	assert.True(t, strings.HasPrefix(resp.Doctors[0].MatchReason, "Matches symptom:"), resp.Doctors[0].MatchReason)
	assert.Equal(t, "12 years", resp.Doctors[0].Experience)

	require.Len(t, resp.RelatedQA, 2)
	assert.Equal(t, "When should stomach pain be checked?", resp.RelatedQA[0].Question)
	require.NotNil(t, resp.HospitalInfo)
	assert.Equal(t, "Even Hospital", resp.HospitalInfo.Name)

	names := map[string]bool{}
	for _, d := range resp.Doctors {
		assert.False(t, names[d.Name], "duplicate doctor %s", d.Name)
		names[d.Name] = true
	}
}

func TestGenerateVoiceBotResponseCachesByNormalizedQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.embedder.Calls()

	first, err := f.svc.GenerateVoiceBotResponse(ctx, "I have severe stomach pain")
	require.NoError(t, err)
	require.Equal(t, before+1, f.embedder.Calls(), "one embedding per cache miss")

	second, err := f.svc.GenerateVoiceBotResponse(ctx, "  i HAVE severe stomach pain ")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, before+1, f.embedder.Calls())

	*f.now = f.now.Add(31 * time.Minute)
	third, err := f.svc.GenerateVoiceBotResponse(ctx, "I have severe stomach pain")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, before+2, f.embedder.Calls())
}

func TestGenerateVoiceBotResponseUnavailableService(t *testing.T) {
	f := newFixture(t)
	before := f.embedder.Calls()

	resp, err := f.svc.GenerateVoiceBotResponse(context.Background(), "I need a dentist")
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, ErrorUnavailableService, resp.Error)
	assert.Equal(t, "Dental/Dentistry", resp.Service)
	require.NotNil(t, resp.Guidance)
	assert.Equal(t, "describe_symptoms", resp.Guidance.Action)
	assert.Equal(t, before, f.embedder.Calls(), "gate runs before any embedding")

	n, _ := f.cache.Len(context.Background())
	assert.Zero(t, n)
}

func TestGenerateVoiceBotResponseVagueQueriesNotCached(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.GenerateVoiceBotResponse(context.Background(), "xyz qwop zzzz")
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, ErrorVagueQuery, resp.Error)
	assert.Equal(t, ReasonGibberish, resp.Reason)
	require.NotNil(t, resp.Guidance)
	assert.Equal(t, GuidanceExamples, resp.Guidance.Examples)

	resp, err = f.svc.GenerateVoiceBotResponse(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, ReasonTooShort, resp.Reason)

	n, _ := f.cache.Len(context.Background())
	assert.Zero(t, n)
}

func TestGenerateVoiceBotResponseTranslates(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.GenerateVoiceBotResponse(context.Background(), "mera ghutna me dard hai")
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "mera ghutna me dard hai", resp.Query)
	require.NotEmpty(t, resp.Doctors)
	assert.Equal(t, "Orthopedics", resp.Doctors[0].Specialty)

	texts := f.embedder.Texts()
	assert.Equal(t, "my knee in pain is", texts[len(texts)-1])
}

func TestGenerateVoiceBotResponseProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.embedder.Err = &embedding.ProviderError{Provider: "test", Err: errors.New("quota")}

	_, err := f.svc.GenerateVoiceBotResponse(context.Background(), "I have severe stomach pain")
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrRetrievalUnavailable)

	n, _ := f.cache.Len(context.Background())
	assert.Zero(t, n)

	f.embedder.Err = nil
	resp, err := f.svc.GenerateVoiceBotResponse(context.Background(), "I have severe stomach pain")
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestFindRelevantDoctorsFallback(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.FindRelevantDoctors(context.Background(), "doctor experience years languages expertise", 2)
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, 2, res.TotalResults)
	for _, r := range res.Recommendations {
		assert.Equal(t, "General match based on specialty and expertise", r.MatchReason)
	}
	assert.LessOrEqual(t, len(res.RawResults), 3)
}

func TestRelevantQAAndConditionContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	qa, err := f.svc.RelevantQA(ctx, "do I need surgery for my knee", 1)
	require.NoError(t, err)
	require.Len(t, qa, 1)
	assert.Equal(t, "Do I need surgery for knee pain?", qa[0].Question)

	conds, err := f.svc.ConditionContext(ctx, "Stomach pain")
	require.NoError(t, err)
	require.Len(t, conds, 3, "only three condition chunks exist")
	assert.Equal(t, "Stomach pain", conds[0].Condition)
	assert.Equal(t, "Gastroenterology", conds[0].Specialty)
	assert.Equal(t, []string{"Meera Rao"}, conds[0].RecommendedDoctors)
}

func TestResponseJSONShapes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.GenerateVoiceBotResponse(ctx, "I have severe stomach pain")
	require.NoError(t, err)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var ok map[string]any
	require.NoError(t, json.Unmarshal(data, &ok))
	for _, key := range []string{"success", "query", "doctors", "relatedQA", "hospitalInfo"} {
		assert.Contains(t, ok, key)
	}
	assert.NotContains(t, ok, "error")

	resp, err = f.svc.GenerateVoiceBotResponse(ctx, "I need a dentist")
	require.NoError(t, err)
	data, err = json.Marshal(resp)
	require.NoError(t, err)
	var gated map[string]any
	require.NoError(t, json.Unmarshal(data, &gated))
	assert.Equal(t, false, gated["success"])
	assert.Equal(t, "unavailable_service", gated["error"])
	assert.Equal(t, "Dental/Dentistry", gated["service"])
	assert.NotContains(t, gated, "doctors")
	assert.NotContains(t, gated, "reason")
}

func TestGenerateVoiceBotResponseConcurrentCacheBound(t *testing.T) {
	f := newFixture(t)
	f.cache.maxSize = 4

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.GenerateVoiceBotResponse(context.Background(), fmt.Sprintf("severe stomach pain day %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, _ := f.cache.Len(context.Background())
	assert.LessOrEqual(t, n, 4)
}
