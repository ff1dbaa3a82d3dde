package query

import (
	"context"

	"github.com/osamaatef1/rag-service/internal/domain"
)

// Searcher ranks stored chunks against a query vector.
type Searcher interface {
	Search(ctx context.Context, collection string, queryVec []float32,
		filter domain.Metadata, topK int, threshold float64) ([]domain.SearchHit, error)
}

// ResultCache caches complete query responses by canonical key.
type ResultCache interface {
	Key(req domain.QueryRequest) string
	Lookup(key string) (domain.QueryResponse, bool)
	Write(key string, resp domain.QueryResponse)
}
