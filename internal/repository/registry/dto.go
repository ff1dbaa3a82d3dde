package registry

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/osamaatef1/rag-service/internal/domain"
)

const (
	fieldSourceType = "__source_type"
	fieldCreatedAt  = "__created_at"
	fieldChunkCount = "__chunk_count"
)

// docToFields flattens a registry entry into a hash record.
func docToFields(doc domain.Document) map[string]string {
	m := make(map[string]string, 3+len(doc.Metadata))
	m[fieldSourceType] = string(doc.SourceType)
	m[fieldCreatedAt] = doc.CreatedAt.UTC().Format(time.RFC3339Nano)
	m[fieldChunkCount] = strconv.Itoa(doc.ChunkCount)
	for k, v := range doc.Metadata {
		m[k] = v
	}
	return m
}

// fieldsToDoc hydrates a registry entry from a hash record.
func fieldsToDoc(id, collection string, m map[string]string) (domain.Document, error) {
	doc := domain.Document{
		ID:         id,
		Collection: collection,
		Metadata:   make(domain.Metadata),
	}
	for k, v := range m {
		switch k {
		case fieldSourceType:
			doc.SourceType = domain.SourceType(v)
		case fieldCreatedAt:
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return domain.Document{}, fmt.Errorf("bad created_at %q for %s: %w", v, id, err)
			}
			doc.CreatedAt = t
		case fieldChunkCount:
			n, err := strconv.Atoi(v)
			if err != nil {
				return domain.Document{}, fmt.Errorf("bad chunk_count %q for %s: %w", v, id, err)
			}
			doc.ChunkCount = n
		default:
			if !strings.HasPrefix(k, "__") {
				doc.Metadata[k] = v
			}
		}
	}
	return doc, nil
}
