// Package vector persists chunk embeddings and runs similarity search over
// one collection namespace at a time.
package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/osamaatef1/rag-service/internal/db"
	"github.com/osamaatef1/rag-service/internal/domain"
)

const (
	chunkKeyPrefix = "chunk:"
	// docKeyPrefix mirrors the registry's key layout; search joins chunk
	// candidates against the registry's document set so a rolled-back
	// ingest can never surface chunks.
	docKeyPrefix = "doc:"
	// dimensionKey stores the deployment's fixed vector dimension.
	dimensionKey = "meta:dimension"
)

// store is the consumer interface for chunk persistence (ISP).
type store interface {
	HSetMulti(ctx context.Context, namespace string, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, namespace string, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, namespace string, keys []string) (int, error)
	Scan(ctx context.Context, namespace, prefix string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo implements chunk-level vector storage and search.
type Repo struct {
	store store
	dim   int
}

// New creates a vector repository bound to the deployment's vector dimension.
func New(s store, dim int) *Repo {
	return &Repo{store: s, dim: dim}
}

// EnsureDimension records the deployment dimension on first open and rejects
// a store written with a different one.
func (r *Repo) EnsureDimension(ctx context.Context) error {
	stored, err := r.store.Get(ctx, dimensionKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		if err := r.store.Set(ctx, dimensionKey, []byte(fmt.Sprintf("%d", r.dim))); err != nil {
			return fmt.Errorf("record dimension: %w: %w", err, domain.ErrStorage)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read dimension: %w: %w", err, domain.ErrStorage)
	}
	if string(stored) != fmt.Sprintf("%d", r.dim) {
		return fmt.Errorf("store dimension %s does not match configured %d: %w",
			stored, r.dim, domain.ErrStorage)
	}
	return nil
}

// AddChunks persists a document's chunk batch. All chunks land together; on
// a partial write the written keys are rolled back so nothing of the
// document stays visible.
func (r *Repo) AddChunks(ctx context.Context, collection, docID string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(chunks))
	keys := make([]string, len(chunks))
	for i, ch := range chunks {
		if err := domain.ValidateDimension(ch.Embedding, r.dim); err != nil {
			return err
		}
		key := chunkKey(docID, ch.Index)
		items[i] = db.HashSetItem{Key: key, Fields: chunkToFields(ch)}
		keys[i] = key
	}

	if err := r.store.HSetMulti(ctx, collection, items); err != nil {
		// Best-effort rollback; the registry entry is written after us, so
		// even orphaned keys stay invisible to search.
		_, _ = r.store.DelMulti(ctx, collection, keys)
		return fmt.Errorf("write chunks for %s: %w: %w", docID, err, domain.ErrStorage)
	}
	return nil
}

// Search ranks chunks of a collection by normalized cosine similarity
// against queryVec. Candidates are restricted by the metadata filter and
// the registry's document set; the threshold prunes the full candidate set
// before truncation to topK, so changing it never reorders survivors.
// Ties break by ascending chunk index, then ascending document ID.
func (r *Repo) Search(
	ctx context.Context, collection string, queryVec []float32,
	filter domain.Metadata, topK int, threshold float64,
) ([]domain.SearchHit, error) {
	if err := domain.ValidateDimension(queryVec, r.dim); err != nil {
		return nil, err
	}

	keys, err := r.store.Scan(ctx, collection, chunkKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w: %w", err, domain.ErrStorage)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	known, err := r.documentSet(ctx, collection)
	if err != nil {
		return nil, err
	}

	records, err := r.store.HGetAllMulti(ctx, collection, keys)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w: %w", err, domain.ErrStorage)
	}

	hits := make([]domain.SearchHit, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		chunk, err := fieldsToChunk(rec)
		if err != nil {
			return nil, fmt.Errorf("decode chunk: %w: %w", err, domain.ErrStorage)
		}
		if !known[chunk.DocumentID] {
			continue
		}
		if !chunk.Metadata.Matches(filter) {
			continue
		}
		score := normalizedCosine(queryVec, chunk.Embedding)
		if score < threshold {
			continue
		}
		hits = append(hits, domain.SearchHit{Chunk: chunk, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Chunk.Index != hits[j].Chunk.Index {
			return hits[i].Chunk.Index < hits[j].Chunk.Index
		}
		return hits[i].Chunk.DocumentID < hits[j].Chunk.DocumentID
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// DeleteChunks removes every chunk of a document, returning the count.
func (r *Repo) DeleteChunks(ctx context.Context, collection, docID string) (int, error) {
	keys, err := r.store.Scan(ctx, collection, chunkKeyPrefix+docID+":")
	if err != nil {
		return 0, fmt.Errorf("scan chunks of %s: %w: %w", docID, err, domain.ErrStorage)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := r.store.DelMulti(ctx, collection, keys)
	if err != nil {
		return 0, fmt.Errorf("delete chunks of %s: %w: %w", docID, err, domain.ErrStorage)
	}
	return n, nil
}

// CountChunks returns the number of stored chunks in a collection.
func (r *Repo) CountChunks(ctx context.Context, collection string) (int, error) {
	keys, err := r.store.Scan(ctx, collection, chunkKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("scan chunks: %w: %w", err, domain.ErrStorage)
	}
	return len(keys), nil
}

// documentSet loads the registry's document IDs for the search join.
func (r *Repo) documentSet(ctx context.Context, collection string) (map[string]bool, error) {
	docKeys, err := r.store.Scan(ctx, collection, docKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w: %w", err, domain.ErrStorage)
	}
	set := make(map[string]bool, len(docKeys))
	for _, k := range docKeys {
		set[strings.TrimPrefix(k, docKeyPrefix)] = true
	}
	return set, nil
}

func chunkKey(docID string, index int) string {
	return fmt.Sprintf("%s%s:%d", chunkKeyPrefix, docID, index)
}

// normalizedCosine maps cosine similarity from [-1,1] to [0,1].
// A zero vector on either side scores 0.
func normalizedCosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	score := (1 + cos) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
