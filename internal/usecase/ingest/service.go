package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/osamaatef1/rag-service/internal/domain"
	"github.com/osamaatef1/rag-service/internal/metrics"
)

const (
	maxListLimit     = 1000
	defaultListLimit = 100
)

// Service handles document ingestion: extraction, chunking, embedding and
// registration. A document becomes visible only after its registry entry is
// written, which happens strictly after all chunks are stored.
type Service struct {
	vectors   VectorRepo
	registry  Registry
	chunker   Chunker
	embedder  domain.Embedder
	extractor Extractor
	fetcher   Fetcher

	workers   int
	batchSize int

	locks keyedMutex
}

// New creates an ingest service.
func New(
	vectors VectorRepo,
	registry Registry,
	chunker Chunker,
	embedder domain.Embedder,
	extractor Extractor,
	fetcher Fetcher,
) *Service {
	return &Service{
		vectors:   vectors,
		registry:  registry,
		chunker:   chunker,
		embedder:  embedder,
		extractor: extractor,
		fetcher:   fetcher,
		workers:   4,
		batchSize: 32,
	}
}

// WithConcurrency configures embedding parallelism.
func (s *Service) WithConcurrency(workers, batchSize int) *Service {
	if workers > 0 {
		s.workers = workers
	}
	if batchSize > 0 {
		s.batchSize = batchSize
	}
	return s
}

// Stats summarizes one collection.
type Stats struct {
	Collection    string `json:"collection"`
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
}

// IngestText ingests raw text as a new document.
func (s *Service) IngestText(
	ctx context.Context, text, collection string, meta domain.Metadata,
) (domain.Document, error) {
	return s.ingest(ctx, text, collection, domain.SourceText, meta)
}

// IngestFile extracts text from a file payload and ingests it. The filename
// extension selects the extractor; the filename is recorded as source metadata.
func (s *Service) IngestFile(
	ctx context.Context, filename string, data []byte, collection string, meta domain.Metadata,
) (domain.Document, error) {
	text, err := s.extractor.Extract(filename, data)
	if err != nil {
		return domain.Document{}, err
	}
	meta = withSource(meta, filename)
	return s.ingest(ctx, text, collection, domain.SourceFile, meta)
}

// IngestURL downloads a URL, extracts readable text and ingests it.
func (s *Service) IngestURL(
	ctx context.Context, url, collection string, meta domain.Metadata,
) (domain.Document, error) {
	text, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return domain.Document{}, err
	}
	meta = withSource(meta, url)
	return s.ingest(ctx, text, collection, domain.SourceURL, meta)
}

func (s *Service) ingest(
	ctx context.Context, text, collection string, source domain.SourceType, meta domain.Metadata,
) (domain.Document, error) {
	collection = domain.NormalizeCollection(collection)
	if err := domain.ValidateCollectionName(collection); err != nil {
		return domain.Document{}, err
	}
	if err := meta.Validate(); err != nil {
		return domain.Document{}, err
	}
	if strings.TrimSpace(text) == "" {
		return domain.Document{}, fmt.Errorf("document content is empty: %w", domain.ErrValidation)
	}

	doc := domain.Document{
		ID:         uuid.NewString(),
		Collection: collection,
		SourceType: source,
		Metadata:   meta.Clone(),
		CreatedAt:  time.Now().UTC(),
	}

	texts := s.chunker.Chunk(text)
	if len(texts) == 0 {
		return domain.Document{}, fmt.Errorf("document produced no chunks: %w", domain.ErrValidation)
	}

	embeddings, err := s.embedAll(ctx, texts)
	if err != nil {
		return domain.Document{}, err
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Text:       t,
			Embedding:  embeddings[i],
			Metadata:   meta,
		}
	}

	unlock := s.locks.lock(collection + "/" + doc.ID)
	defer unlock()

	if err := s.vectors.AddChunks(ctx, collection, doc.ID, chunks); err != nil {
		return domain.Document{}, fmt.Errorf("store chunks: %w", err)
	}

	// Registry entry last: a document with stored chunks but no registry
	// entry is invisible to search and list.
	doc.ChunkCount = len(chunks)
	if err := s.registry.Put(ctx, doc); err != nil {
		if _, delErr := s.vectors.DeleteChunks(ctx, collection, doc.ID); delErr != nil {
			return domain.Document{}, fmt.Errorf("register document: %w (chunk rollback failed: %v)", err, delErr)
		}
		return domain.Document{}, fmt.Errorf("register document: %w", err)
	}

	metrics.ChunksIngestedTotal.WithLabelValues(collection, string(source)).Add(float64(len(chunks)))
	if n, err := s.registry.Count(ctx, collection); err == nil {
		metrics.DocumentsTotal.WithLabelValues(collection).Set(float64(n))
	}

	return doc, nil
}

// embedAll embeds chunk texts in bounded-concurrency batches. Results keep
// input order. Any batch failure aborts the whole ingest.
func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for start := 0; start < len(texts); start += s.batchSize {
		start := start
		end := min(start+s.batchSize, len(texts))
		g.Go(func() error {
			res, err := domain.EmbedBatch(gctx, s.embedder, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed chunks [%d:%d]: %w", start, end, err)
			}
			if len(res.Embeddings) != end-start {
				return fmt.Errorf("embed chunks [%d:%d]: got %d embeddings for %d texts: %w",
					start, end, len(res.Embeddings), end-start, domain.ErrEmbedding)
			}
			copy(embeddings[start:end], res.Embeddings)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// Get returns a registered document.
func (s *Service) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	collection = domain.NormalizeCollection(collection)
	doc, err := s.registry.Get(ctx, collection, id)
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns registered documents, newest first, with the collection total.
func (s *Service) List(
	ctx context.Context, collection string, limit, offset int,
) ([]domain.Document, int, error) {
	collection = domain.NormalizeCollection(collection)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		return nil, 0, fmt.Errorf("limit must be at most %d, got %d: %w",
			maxListLimit, limit, domain.ErrValidation)
	}
	if offset < 0 {
		return nil, 0, fmt.Errorf("offset must be non-negative, got %d: %w",
			offset, domain.ErrValidation)
	}

	docs, total, err := s.registry.List(ctx, collection, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}

// Delete removes a document and all its chunks as a unit. Returns the number
// of chunks removed.
func (s *Service) Delete(ctx context.Context, collection, id string) (int, error) {
	collection = domain.NormalizeCollection(collection)

	unlock := s.locks.lock(collection + "/" + id)
	defer unlock()

	if _, err := s.registry.Get(ctx, collection, id); err != nil {
		return 0, fmt.Errorf("delete document: %w", err)
	}

	// Registry entry first: once it is gone the document is invisible even
	// if chunk deletion is interrupted; orphaned chunks never surface.
	if err := s.registry.Delete(ctx, collection, id); err != nil {
		return 0, fmt.Errorf("unregister document: %w", err)
	}
	removed, err := s.vectors.DeleteChunks(ctx, collection, id)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}

	if n, err := s.registry.Count(ctx, collection); err == nil {
		metrics.DocumentsTotal.WithLabelValues(collection).Set(float64(n))
	}
	return removed, nil
}

// Stats reports document and chunk counts for a collection.
func (s *Service) Stats(ctx context.Context, collection string) (Stats, error) {
	collection = domain.NormalizeCollection(collection)

	docs, err := s.registry.Count(ctx, collection)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	chunks, err := s.vectors.CountChunks(ctx, collection)
	if err != nil {
		return Stats{}, fmt.Errorf("count chunks: %w", err)
	}

	return Stats{Collection: collection, DocumentCount: docs, ChunkCount: chunks}, nil
}

func withSource(meta domain.Metadata, source string) domain.Metadata {
	out := meta.Clone()
	if out == nil {
		out = domain.Metadata{}
	}
	if _, ok := out["source"]; !ok {
		out["source"] = source
	}
	return out
}

// keyedMutex serializes writes per document key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
