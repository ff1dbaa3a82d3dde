package rag

import "time"

// Metadata is a flat map of string key/value pairs attached to documents
// and filtered on at query time.
type Metadata map[string]string

// Document describes one ingested document.
type Document struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	SourceType string    `json:"source_type"`
	Metadata   Metadata  `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ChunkCount int       `json:"chunk_count"`
}

// DocumentList is one page of documents.
type DocumentList struct {
	Items  []Document `json:"items"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// DeleteResult reports a document deletion.
type DeleteResult struct {
	ID            string `json:"id"`
	ChunksRemoved int    `json:"chunks_removed"`
}

// Stats summarizes one collection.
type Stats struct {
	Collection    string `json:"collection"`
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
}

// QueryRequest is a retrieval-augmented query.
// Zero values fall back to server defaults (collection "default",
// top_k 5, sources included).
type QueryRequest struct {
	Query          string   `json:"query"`
	Collection     string   `json:"collection,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
	MetadataFilter Metadata `json:"metadata_filter,omitempty"`
	IncludeSources *bool    `json:"include_sources,omitempty"`
}

// Source is one retrieved passage backing an answer.
type Source struct {
	DocumentID     string   `json:"document_id"`
	Content        string   `json:"content"`
	Metadata       Metadata `json:"metadata"`
	RelevanceScore float64  `json:"relevance_score"`
}

// QueryMeta carries pipeline bookkeeping for a query response.
type QueryMeta struct {
	DocumentsRetrieved int    `json:"documents_retrieved"`
	Cached             bool   `json:"cached"`
	Provider           string `json:"provider,omitempty"`
}

// QueryResponse is a complete answer to a query.
type QueryResponse struct {
	Answer           string    `json:"answer"`
	Sources          []Source  `json:"sources,omitempty"`
	ProcessingTimeMs float64   `json:"processing_time_ms"`
	Metadata         QueryMeta `json:"metadata"`
}

// HealthReport is the service health status with per-dependency checks.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
