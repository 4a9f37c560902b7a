// Package retrieval resolves patient descriptions to doctor recommendations:
// query normalization, hybrid search, aggregation, gating and caching.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/hospital-voicebot/internal/embedding"
	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
	"github.com/wolfman30/hospital-voicebot/internal/observability/metrics"
	"github.com/wolfman30/hospital-voicebot/internal/vectorindex"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

var retrievalTracer = otel.Tracer("hospital.internal.retrieval")

var (
	// ErrNotInitialized is returned by every query made before Start.
	ErrNotInitialized = errors.New("retrieval: service not started")
	ErrAlreadyStarted = errors.New("retrieval: service already started")
)

const (
	// VoiceTopK is the number of doctors offered in a voice response.
	VoiceTopK = 3
	// DefaultSearchK applies when FindRelevantDoctors is called with k < 1.
	DefaultSearchK = 5

	relatedQALimit   = 2
	conditionContext = 5
)

// Query outcomes reported to metrics.
const (
	outcomeSuccess     = "success"
	outcomeCacheHit    = "cache_hit"
	outcomeUnavailable = "unavailable_service"
	outcomeVague       = "vague_query"
	outcomeError       = "error"
)

// Options configures a Service. Knowledge and Artifact, when set, take the
// place of the corresponding file paths.
type Options struct {
	DocumentPath   string
	EmbeddingsPath string
	Knowledge      *knowledge.Base
	Artifact       *vectorindex.Artifact

	Embedder embedding.Embedder
	Cache    ResponseCache

	Translate       TranslateFunc
	DetectGibberish GibberishFunc
	Boosts          []BoostRule

	Metrics *metrics.RetrievalMetrics
	Logger  *logging.Logger
}

// Service is built once per process with New and made ready with Start.
type Service struct {
	opts      Options
	cache     ResponseCache
	translate TranslateFunc
	gibberish GibberishFunc
	boosts    []BoostRule
	metrics   *metrics.RetrievalMetrics
	logger    *logging.Logger

	startMu sync.Mutex
	started atomic.Bool
	kb      *knowledge.Base
	index   *vectorindex.Index
}

// New validates options and returns a service that is not yet ready.
func New(opts Options) (*Service, error) {
	if opts.Embedder == nil {
		return nil, errors.New("retrieval: embedder is required")
	}
	if opts.Knowledge == nil && opts.DocumentPath == "" {
		return nil, errors.New("retrieval: knowledge base or document path is required")
	}
	if opts.Artifact == nil && opts.EmbeddingsPath == "" {
		return nil, errors.New("retrieval: embeddings artifact or path is required")
	}

	s := &Service{
		opts:      opts,
		cache:     opts.Cache,
		translate: opts.Translate,
		gibberish: opts.DetectGibberish,
		boosts:    opts.Boosts,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	if s.cache == nil {
		s.cache = NewMemoryCache(DefaultCacheTTL, DefaultCacheMaxSize)
	}
	if s.translate == nil {
		s.translate = TranslateQuery
	}
	if s.gibberish == nil {
		s.gibberish = DetectGibberish
	}
	if s.boosts == nil {
		s.boosts = DefaultBoosts
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	return s, nil
}

// Start loads the knowledge base and embeddings and builds the index. Any
// load failure is fatal for the caller.
func (s *Service) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started.Load() {
		return ErrAlreadyStarted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	kb := s.opts.Knowledge
	if kb == nil {
		var err error
		if kb, err = knowledge.Load(s.opts.DocumentPath); err != nil {
			return err
		}
	}
	artifact := s.opts.Artifact
	if artifact == nil {
		var err error
		if artifact, err = vectorindex.LoadArtifact(s.opts.EmbeddingsPath); err != nil {
			return err
		}
	}
	index, err := vectorindex.New(artifact, s.opts.Embedder)
	if err != nil {
		return err
	}

	s.kb = kb
	s.index = index
	s.started.Store(true)
	s.logger.Info("retrieval service started",
		"doctors", len(kb.AllDoctors()),
		"chunks", index.Len(),
		"model", index.Model(),
		"dimension", index.Dimension(),
	)
	return nil
}

// Ready reports whether Start has completed.
func (s *Service) Ready() bool {
	return s.started.Load()
}

func (s *Service) ready() error {
	if !s.started.Load() {
		return ErrNotInitialized
	}
	return nil
}

// Knowledge returns the loaded knowledge base.
func (s *Service) Knowledge() (*knowledge.Base, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.kb, nil
}

// GenerateVoiceBotResponse runs the full pipeline for one patient query.
// Gated queries come back as unsuccessful responses with guidance, not errors;
// an error means the embedding provider failed or the service is not started.
func (s *Service) GenerateVoiceBotResponse(ctx context.Context, query string) (*Response, error) {
	ctx, span := retrievalTracer.Start(ctx, "retrieval.generate_voice_bot_response")
	defer span.End()

	if err := s.ready(); err != nil {
		return nil, err
	}

	t := s.translate(query)
	searchQuery := t.Query()
	if t.WasTranslated {
		s.logger.Info("translated query", "original", query, "translated", searchQuery)
	}
	span.SetAttributes(attribute.Bool("retrieval.translated", t.WasTranslated))

	if check := DetectUnavailableService(searchQuery, s.kb.HospitalInfo().Name); check.IsUnavailable {
		s.metrics.ObserveQuery(outcomeUnavailable)
		span.SetAttributes(attribute.String("retrieval.outcome", outcomeUnavailable))
		return unavailableResponse(query, check), nil
	}

	key := CacheKey(searchQuery)
	if key == "" {
		s.metrics.ObserveQuery(outcomeVague)
		return vagueResponse(query, VagueCheck{IsVague: true, Reason: ReasonTooShort, Message: msgTooShort}), nil
	}

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("response cache read failed", "error", err)
	} else if ok {
		s.metrics.ObserveQuery(outcomeCacheHit)
		span.SetAttributes(attribute.String("retrieval.outcome", outcomeCacheHit))
		return cached, nil
	}

	if evicted, err := s.cache.EvictIfFull(ctx); err != nil {
		s.logger.Warn("response cache eviction failed", "error", err)
	} else if evicted {
		s.metrics.ObserveCacheEviction()
	}

	vec, err := s.index.Embed(ctx, searchQuery)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveQuery(outcomeError)
		s.logger.Error("query embedding failed", "error", err, "query", query)
		return nil, fmt.Errorf("retrieval: generate response: %w", err)
	}

	results, err := s.findRelevant(searchQuery, vec, VoiceTopK)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveQuery(outcomeError)
		return nil, err
	}

	if vague := DetectVagueQuery(searchQuery, results.Recommendations, s.gibberish); vague.IsVague {
		s.metrics.ObserveQuery(outcomeVague)
		span.SetAttributes(
			attribute.String("retrieval.outcome", outcomeVague),
			attribute.String("retrieval.vague_reason", string(vague.Reason)),
		)
		return vagueResponse(query, vague), nil
	}

	qa, err := s.qaFromVector(vec, relatedQALimit)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveQuery(outcomeError)
		return nil, err
	}

	doctors := make([]FormattedDoctor, 0, len(results.Recommendations))
	for _, rec := range results.Recommendations {
		doctors = append(doctors, FormatDoctorRecommendation(rec))
	}
	hospital := s.kb.HospitalInfo()
	resp := &Response{
		Success:      true,
		Query:        query,
		Doctors:      doctors,
		RelatedQA:    qa,
		HospitalInfo: &hospital,
	}

	if err := s.cache.Set(ctx, key, resp); err != nil {
		s.logger.Warn("response cache write failed", "error", err)
	}
	s.metrics.ObserveQuery(outcomeSuccess)
	span.SetAttributes(
		attribute.String("retrieval.outcome", outcomeSuccess),
		attribute.Int("retrieval.doctors", len(doctors)),
	)
	return resp, nil
}

// FindRelevantDoctors returns up to k deduplicated recommendations for query.
func (s *Service) FindRelevantDoctors(ctx context.Context, query string, k int) (*SearchResults, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if k < 1 {
		k = DefaultSearchK
	}
	vec, err := s.index.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: find doctors: %w", err)
	}
	return s.findRelevant(query, vec, k)
}

// RelevantQA returns the k Q&A pairs closest to query.
func (s *Service) RelevantQA(ctx context.Context, query string, k int) ([]QA, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if k < 1 {
		k = 3
	}
	vec, err := s.index.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: related qa: %w", err)
	}
	return s.qaFromVector(vec, k)
}

// ConditionContext returns the condition chunks closest to a condition name.
func (s *Service) ConditionContext(ctx context.Context, name string) ([]ConditionMatch, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	results, err := s.index.Search(ctx, name, conditionContext, knowledge.ChunkCondition)
	if err != nil {
		return nil, fmt.Errorf("retrieval: condition context: %w", err)
	}
	out := make([]ConditionMatch, 0, len(results))
	for _, r := range results {
		out = append(out, ConditionMatch{
			Condition:          r.Chunk.Metadata.Condition,
			Specialty:          r.Chunk.Metadata.Specialty,
			RecommendedDoctors: r.Chunk.Metadata.RecommendedDoctors,
			Similarity:         finite(r.Similarity),
		})
	}
	return out, nil
}

// findRelevant ranks 2k hybrid candidates, drawn from 4k semantic hits, and
// aggregates them into k recommendations.
func (s *Service) findRelevant(query string, vec []float32, k int) (*SearchResults, error) {
	semantic, err := s.index.SearchVector(vec, 4*k, "")
	if err != nil {
		return nil, err
	}
	ranked := Rank(query, semantic, 2*k, s.boosts)
	recs := Aggregate(s.kb, ranked, k)
	return searchResults(query, ranked, recs), nil
}

func (s *Service) qaFromVector(vec []float32, k int) ([]QA, error) {
	results, err := s.index.SearchVector(vec, k, knowledge.ChunkQAPair)
	if err != nil {
		return nil, err
	}
	out := make([]QA, 0, len(results))
	for _, r := range results {
		out = append(out, QA{
			Question:  r.Chunk.Metadata.Question,
			Answer:    r.Chunk.Metadata.Answer,
			Relevance: finite(r.Similarity),
		})
	}
	return out, nil
}
