package domain

import "fmt"

// Chunk is a contiguous substring of a document's content, the unit of
// embedding and retrieval. Belongs to exactly one document; Index defines
// the original ordering.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
	Embedding  []float32
	Metadata   Metadata
}

// SearchHit is a ranked retrieval result: a chunk plus its normalized
// cosine similarity score in [0,1].
type SearchHit struct {
	Chunk Chunk
	Score float64
}

// ValidateDimension rejects an embedding whose length differs from the
// deployment's fixed vector dimension.
func ValidateDimension(vec []float32, dim int) error {
	if dim > 0 && len(vec) != dim {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d: %w", len(vec), dim, ErrStorage)
	}
	return nil
}
