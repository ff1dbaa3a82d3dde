package domain

import (
	"context"
	"time"
)

// ContextSnippet is one retrieved passage handed to the answer synthesizer,
// with provenance.
type ContextSnippet struct {
	DocumentID string
	Text       string
	Score      float64
	Source     string // filename or URL when known, empty otherwise
}

// GenerationResult is the synthesizer's answer plus generation metrics.
type GenerationResult struct {
	Answer   string
	Provider string
	Model    string
	Latency  time.Duration
}

// Generator turns (query, ranked context) into a grounded answer. A single
// synchronous call with a bounded timeout; provider errors surface uniformly
// as ErrGeneration.
type Generator interface {
	Generate(ctx context.Context, query string, snippets []ContextSnippet) (GenerationResult, error)
}
