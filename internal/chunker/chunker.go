// Package chunker splits document text into fixed-size overlapping windows
// for embedding and retrieval.
package chunker

import "fmt"

// Engine is a deterministic, overlap-aware text splitter. It slides a
// window of Size runes across the text, advancing Size-Overlap runes per
// step; the final window may be shorter and is never padded.
type Engine struct {
	size    int
	overlap int
}

// New validates the window parameters and creates an Engine.
// Requires size > 0 and 0 <= overlap < size.
func New(size, overlap int) (*Engine, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got overlap=%d size=%d", overlap, size)
	}
	return &Engine{size: size, overlap: overlap}, nil
}

// Size returns the window length in runes.
func (e *Engine) Size() int { return e.size }

// Overlap returns the number of runes shared between adjacent chunks.
func (e *Engine) Overlap() int { return e.overlap }

// Chunk splits text into an ordered sequence of chunk strings. Identical
// input always yields an identical sequence. Empty text yields zero chunks;
// callers treat that as a no-op ingestion, not an error.
//
// Invariant: concatenating the chunks while dropping the first Overlap
// runes of every chunk except the first reconstructs text exactly.
func (e *Engine) Chunk(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= e.size {
		return []string{text}
	}

	step := e.size - e.overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + e.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
