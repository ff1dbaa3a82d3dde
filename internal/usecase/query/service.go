package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/osamaatef1/rag-service/internal/domain"
	"github.com/osamaatef1/rag-service/internal/logger"
	"github.com/osamaatef1/rag-service/internal/metrics"
)

const maxTopK = 100

// Service orchestrates the retrieval pipeline: cache lookup, query
// embedding, similarity search, context assembly and answer generation.
// Concurrent identical requests share one in-flight computation; late
// callers wait for the first result instead of repeating the work.
type Service struct {
	searcher  Searcher
	embedder  domain.Embedder
	generator domain.Generator
	cache     ResultCache

	defaultTopK int
	threshold   float64
	timeout     time.Duration

	flights singleflight.Group
}

// New creates a query service.
func New(searcher Searcher, embedder domain.Embedder, generator domain.Generator, cache ResultCache) *Service {
	return &Service{
		searcher:    searcher,
		embedder:    embedder,
		generator:   generator,
		cache:       cache,
		defaultTopK: 5,
		threshold:   0.7,
		timeout:     60 * time.Second,
	}
}

// WithRetrieval configures search defaults.
func (s *Service) WithRetrieval(topK int, threshold float64, timeout time.Duration) *Service {
	if topK > 0 {
		s.defaultTopK = topK
	}
	if threshold > 0 {
		s.threshold = threshold
	}
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

// Query answers a question from the documents of one collection.
func (s *Service) Query(ctx context.Context, req domain.QueryRequest) (domain.QueryResponse, error) {
	start := time.Now()

	req, err := s.normalize(req)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("invalid", "error").Inc()
		return domain.QueryResponse{}, err
	}

	key := s.cache.Key(req)

	lookupStart := time.Now()
	cached, hit := s.cache.Lookup(key)
	metrics.QueryStageDuration.WithLabelValues("cache_lookup").Observe(time.Since(lookupStart).Seconds())

	if hit {
		metrics.QueryCacheTotal.WithLabelValues("hit").Inc()
		metrics.QueriesTotal.WithLabelValues(req.Collection, "cache_hit").Inc()
		return stamp(cached, start, true, req.IncludeSources), nil
	}
	metrics.QueryCacheTotal.WithLabelValues("miss").Inc()

	v, err, _ := s.flights.Do(key, func() (any, error) {
		return s.run(ctx, key, req)
	})
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(req.Collection, "error").Inc()
		return domain.QueryResponse{}, err
	}

	res, ok := v.(flightResult)
	if !ok {
		return domain.QueryResponse{}, fmt.Errorf("unexpected flight result type %T: %w", v, domain.ErrGeneration)
	}

	metrics.QueriesTotal.WithLabelValues(req.Collection, "ok").Inc()
	return stamp(res.resp, start, res.fromCache, req.IncludeSources), nil
}

// flightResult tags a flight's response with its provenance: a freshly
// computed answer reports cached=false for every waiter sharing the flight,
// a cache entry found inside the flight reports cached=true.
type flightResult struct {
	resp      domain.QueryResponse
	fromCache bool
}

// run executes one uncached pipeline pass. Exactly one run is in flight per
// cache key.
func (s *Service) run(ctx context.Context, key string, req domain.QueryRequest) (flightResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// A concurrent flight may have finished between our lookup and Do.
	if resp, ok := s.cache.Lookup(key); ok {
		return flightResult{resp: resp, fromCache: true}, nil
	}

	embedStart := time.Now()
	embedded, err := s.embedder.Embed(ctx, req.Query)
	metrics.QueryStageDuration.WithLabelValues("embed_query").Observe(time.Since(embedStart).Seconds())
	if err != nil {
		return flightResult{}, fmt.Errorf("embed query: %w", err)
	}

	searchStart := time.Now()
	hits, err := s.searcher.Search(ctx, req.Collection, embedded.Embedding, req.MetadataFilter, req.TopK, s.threshold)
	metrics.QueryStageDuration.WithLabelValues("vector_search").Observe(time.Since(searchStart).Seconds())
	if err != nil {
		return flightResult{}, fmt.Errorf("search chunks: %w", err)
	}

	snippets := buildContext(hits)

	genStart := time.Now()
	gen, err := s.generator.Generate(ctx, req.Query, snippets)
	metrics.QueryStageDuration.WithLabelValues("generate").Observe(time.Since(genStart).Seconds())
	if err != nil {
		return flightResult{}, fmt.Errorf("generate answer: %w", err)
	}

	resp := domain.QueryResponse{
		Answer:  gen.Answer,
		Sources: sourcesFromHits(hits),
		Metadata: domain.QueryResponseMeta{
			DocumentsRetrieved: len(hits),
			Provider:           gen.Provider,
		},
	}

	// Best-effort: a failed or evicted write never blocks the answer.
	s.cache.Write(key, resp)
	logger.FromContext(ctx).Debug("query answered",
		zap.String("collection", req.Collection),
		zap.Int("documents_retrieved", len(hits)),
		zap.String("provider", gen.Provider),
	)

	return flightResult{resp: resp}, nil
}

func (s *Service) normalize(req domain.QueryRequest) (domain.QueryRequest, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return req, fmt.Errorf("query is empty: %w", domain.ErrValidation)
	}

	req.Collection = domain.NormalizeCollection(req.Collection)
	if err := domain.ValidateCollectionName(req.Collection); err != nil {
		return req, err
	}
	if err := req.MetadataFilter.Validate(); err != nil {
		return req, fmt.Errorf("metadata filter: %w", err)
	}

	if req.TopK == 0 {
		req.TopK = s.defaultTopK
	}
	if req.TopK < 0 || req.TopK > maxTopK {
		return req, fmt.Errorf("top_k must be between 1 and %d, got %d: %w",
			maxTopK, req.TopK, domain.ErrValidation)
	}
	return req, nil
}

// buildContext converts ranked hits into synthesizer snippets, keeping rank
// order and provenance.
func buildContext(hits []domain.SearchHit) []domain.ContextSnippet {
	snippets := make([]domain.ContextSnippet, 0, len(hits))
	for _, hit := range hits {
		snippets = append(snippets, domain.ContextSnippet{
			DocumentID: hit.Chunk.DocumentID,
			Text:       hit.Chunk.Text,
			Score:      hit.Score,
			Source:     hit.Chunk.Metadata["source"],
		})
	}
	return snippets
}

func sourcesFromHits(hits []domain.SearchHit) []domain.Source {
	if len(hits) == 0 {
		return nil
	}
	sources := make([]domain.Source, 0, len(hits))
	for _, hit := range hits {
		sources = append(sources, domain.Source{
			DocumentID:     hit.Chunk.DocumentID,
			Content:        hit.Chunk.Text,
			Metadata:       hit.Chunk.Metadata.Clone(),
			RelevanceScore: hit.Score,
		})
	}
	return sources
}

// stamp finalizes a response for one caller: per-request timing and cache
// provenance, and source stripping when the caller opted out.
func stamp(resp domain.QueryResponse, start time.Time, cached bool, includeSources bool) domain.QueryResponse {
	resp.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000
	resp.Metadata.Cached = cached
	if !includeSources {
		resp.Sources = nil
	}
	return resp
}
