// Package registry maintains the authoritative per-document metadata
// listing, so list and stats never need a full chunk scan.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/osamaatef1/rag-service/internal/db"
	"github.com/osamaatef1/rag-service/internal/domain"
)

const docKeyPrefix = "doc:"

// store is the consumer interface for registry persistence (ISP).
type store interface {
	HSet(ctx context.Context, namespace, key string, fields map[string]string) error
	HGetAll(ctx context.Context, namespace, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, namespace string, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, namespace, key string) error
	Exists(ctx context.Context, namespace, key string) (bool, error)
	Scan(ctx context.Context, namespace, prefix string) ([]string, error)
}

// Repo implements the document registry.
type Repo struct {
	store store
}

// New creates a registry repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Put writes a registry entry. Called after the document's chunks are
// durable, making the document visible as a unit.
func (r *Repo) Put(ctx context.Context, doc domain.Document) error {
	if err := r.store.HSet(ctx, doc.Collection, docKey(doc.ID), docToFields(doc)); err != nil {
		return fmt.Errorf("write registry entry %s: %w: %w", doc.ID, err, domain.ErrStorage)
	}
	return nil
}

// Get returns a registry entry by document ID.
func (r *Repo) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	fields, err := r.store.HGetAll(ctx, collection, docKey(id))
	if errors.Is(err, db.ErrKeyNotFound) {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("read registry entry %s: %w: %w", id, err, domain.ErrStorage)
	}
	return fieldsToDoc(id, collection, fields)
}

// Exists reports whether a document is registered.
func (r *Repo) Exists(ctx context.Context, collection, id string) (bool, error) {
	ok, err := r.store.Exists(ctx, collection, docKey(id))
	if err != nil {
		return false, fmt.Errorf("check registry entry %s: %w: %w", id, err, domain.ErrStorage)
	}
	return ok, nil
}

// List returns registry entries ordered by creation time (newest first,
// document ID as tie-break) with offset/limit pagination, plus the total
// count before pagination. Bounds are validated by the caller.
func (r *Repo) List(ctx context.Context, collection string, limit, offset int) ([]domain.Document, int, error) {
	keys, err := r.store.Scan(ctx, collection, docKeyPrefix)
	if err != nil {
		return nil, 0, fmt.Errorf("scan registry: %w: %w", err, domain.ErrStorage)
	}
	if len(keys) == 0 {
		return nil, 0, nil
	}

	records, err := r.store.HGetAllMulti(ctx, collection, keys)
	if err != nil {
		return nil, 0, fmt.Errorf("load registry entries: %w: %w", err, domain.ErrStorage)
	}

	docs := make([]domain.Document, 0, len(records))
	for i, rec := range records {
		if rec == nil {
			continue
		}
		id := strings.TrimPrefix(keys[i], docKeyPrefix)
		doc, err := fieldsToDoc(id, collection, rec)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	total := len(docs)
	if offset >= total {
		return nil, total, nil
	}
	docs = docs[offset:]
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, total, nil
}

// Delete removes a registry entry.
func (r *Repo) Delete(ctx context.Context, collection, id string) error {
	if err := r.store.Del(ctx, collection, docKey(id)); err != nil {
		return fmt.Errorf("delete registry entry %s: %w: %w", id, err, domain.ErrStorage)
	}
	return nil
}

// Count returns the number of registered documents in a collection.
func (r *Repo) Count(ctx context.Context, collection string) (int, error) {
	keys, err := r.store.Scan(ctx, collection, docKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("scan registry: %w: %w", err, domain.ErrStorage)
	}
	return len(keys), nil
}

func docKey(id string) string {
	return docKeyPrefix + id
}
