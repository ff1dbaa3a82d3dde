package ingest

import (
	"context"

	"github.com/osamaatef1/rag-service/internal/domain"
)

// VectorRepo defines the chunk storage contract.
type VectorRepo interface {
	AddChunks(ctx context.Context, collection, documentID string, chunks []domain.Chunk) error
	DeleteChunks(ctx context.Context, collection, documentID string) (int, error)
	CountChunks(ctx context.Context, collection string) (int, error)
}

// Registry defines the document registry contract.
type Registry interface {
	Put(ctx context.Context, doc domain.Document) error
	Get(ctx context.Context, collection, id string) (domain.Document, error)
	List(ctx context.Context, collection string, limit, offset int) ([]domain.Document, int, error)
	Delete(ctx context.Context, collection, id string) error
	Count(ctx context.Context, collection string) (int, error)
}

// Chunker splits text into overlapping chunks.
type Chunker interface {
	Chunk(text string) []string
}

// Extractor parses file payloads into plain text.
type Extractor interface {
	Extract(filename string, data []byte) (string, error)
}

// Fetcher downloads a URL and returns its extracted text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
