package domain

import (
	"fmt"
	"strings"
	"time"
)

// SourceType identifies how a document entered the system.
type SourceType string

const (
	// SourceText is raw text supplied in the ingest request body.
	SourceText SourceType = "text"
	// SourceFile is an uploaded file.
	SourceFile SourceType = "file"
	// SourceURL is content fetched from a URL.
	SourceURL SourceType = "url"
)

// Metadata is caller-supplied document metadata, opaque to the core.
// Filterable by exact match on supplied keys.
type Metadata map[string]string

// internalFieldPrefix marks storage fields owned by the system. Caller
// metadata keys must not use it.
const internalFieldPrefix = "__"

// Validate rejects metadata keys that would collide with internal
// storage fields.
func (m Metadata) Validate() error {
	for k := range m {
		if k == "" {
			return fmt.Errorf("empty metadata key: %w", ErrValidation)
		}
		if strings.HasPrefix(k, internalFieldPrefix) {
			return fmt.Errorf("metadata key %q uses reserved prefix %q: %w", k, internalFieldPrefix, ErrValidation)
		}
	}
	return nil
}

// Clone returns a copy so stored metadata cannot alias caller maps.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	c := make(Metadata, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Matches reports whether every key of filter is present with an equal value.
// An empty filter matches everything.
func (m Metadata) Matches(filter Metadata) bool {
	for k, want := range filter {
		if got, ok := m[k]; !ok || got != want {
			return false
		}
	}
	return true
}

// Document is a registry entry: per-document aggregate metadata.
// Immutable after ingest except ChunkCount, which always equals the number
// of chunks stored for this document.
type Document struct {
	ID         string
	Collection string
	SourceType SourceType
	Metadata   Metadata
	CreatedAt  time.Time
	ChunkCount int
}
