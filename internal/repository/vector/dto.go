package vector

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/osamaatef1/rag-service/internal/domain"
)

// Internal hash fields. Caller metadata keys are stored raw; the reserved
// __ prefix is enforced at validation time.
const (
	fieldText   = "__text"
	fieldVector = "__vector"
	fieldDoc    = "__doc"
	fieldIndex  = "__index"
)

// chunkToFields flattens a chunk into a hash record.
func chunkToFields(ch domain.Chunk) map[string]string {
	m := make(map[string]string, 4+len(ch.Metadata))
	m[fieldText] = ch.Text
	m[fieldVector] = vectorToString(ch.Embedding)
	m[fieldDoc] = ch.DocumentID
	m[fieldIndex] = strconv.Itoa(ch.Index)
	for k, v := range ch.Metadata {
		m[k] = v
	}
	return m
}

// fieldsToChunk hydrates a chunk from a hash record.
func fieldsToChunk(m map[string]string) (domain.Chunk, error) {
	ch := domain.Chunk{Metadata: make(domain.Metadata)}
	for k, v := range m {
		switch k {
		case fieldText:
			ch.Text = v
		case fieldDoc:
			ch.DocumentID = v
		case fieldIndex:
			idx, err := strconv.Atoi(v)
			if err != nil {
				return domain.Chunk{}, fmt.Errorf("bad chunk index %q: %w", v, err)
			}
			ch.Index = idx
		case fieldVector:
			vec, err := stringToVector(v)
			if err != nil {
				return domain.Chunk{}, err
			}
			ch.Embedding = vec
		default:
			if !strings.HasPrefix(k, "__") {
				ch.Metadata[k] = v
			}
		}
	}
	return ch, nil
}

// vectorToString encodes a float32 vector as base64 of little-endian bytes.
func vectorToString(vec []float32) string {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// stringToVector decodes a base64 little-endian float32 vector.
func stringToVector(s string) ([]float32, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad vector encoding: %w", err)
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("bad vector length %d", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
