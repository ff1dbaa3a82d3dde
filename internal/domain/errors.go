package domain

import "errors"

var (
	// ErrValidation signals malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing document or collection.
	ErrNotFound = errors.New("not found")
	// ErrEmbedding signals an embedding gateway failure.
	ErrEmbedding = errors.New("embedding failed")
	// ErrStorage signals a vector store IO failure or dimension mismatch.
	ErrStorage = errors.New("storage failure")
	// ErrGeneration signals an LLM gateway failure or timeout.
	ErrGeneration = errors.New("generation failed")
	// ErrRateLimited signals a rate limit hit. Produced by the rate-limiting
	// middleware, never by the core pipeline; mapped here for transport.
	ErrRateLimited = errors.New("rate limited")
	// ErrCache signals a query cache failure. Non-fatal: callers log it and
	// fall back to direct computation.
	ErrCache = errors.New("cache failure")
)
