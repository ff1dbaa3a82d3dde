package domain

// QueryRequest is a retrieval question against one collection.
type QueryRequest struct {
	Query          string
	Collection     string
	TopK           int
	MetadataFilter Metadata
	IncludeSources bool
}

// Source is one retrieved passage returned to the caller.
type Source struct {
	DocumentID     string   `json:"document_id"`
	Content        string   `json:"content"`
	Metadata       Metadata `json:"metadata"`
	RelevanceScore float64  `json:"relevance_score"`
}

// QueryResponseMeta carries pipeline bookkeeping for a query response.
type QueryResponseMeta struct {
	DocumentsRetrieved int    `json:"documents_retrieved"`
	Cached             bool   `json:"cached"`
	Provider           string `json:"provider,omitempty"`
}

// QueryResponse is a complete answer to a query. Cached and replayed as a
// unit; ProcessingTimeMs and Cached are stamped per request.
type QueryResponse struct {
	Answer           string            `json:"answer"`
	Sources          []Source          `json:"sources,omitempty"`
	ProcessingTimeMs float64           `json:"processing_time_ms"`
	Metadata         QueryResponseMeta `json:"metadata"`
}
