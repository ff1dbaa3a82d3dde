// Package cache implements the TTL-bounded, LRU-evicted cache of complete
// query responses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/osamaatef1/rag-service/internal/domain"
)

type entry struct {
	response  domain.QueryResponse
	expiresAt time.Time
}

// QueryCache caches complete query responses keyed by the canonicalized
// request. Expiry is lazy: an expired entry found on lookup is removed and
// reported as a miss. Capacity is bounded by entry count with LRU eviction.
type QueryCache struct {
	entries *lru.Cache[string, entry]
	ttl     time.Duration
	now     func() time.Time
}

// New creates a query cache with the given capacity and default TTL.
func New(maxEntries int, ttl time.Duration) (*QueryCache, error) {
	entries, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &QueryCache{entries: entries, ttl: ttl, now: time.Now}, nil
}

// Key canonicalizes a query request: trimmed (case-preserving) query text,
// collection, top_k, and the metadata filter with sorted keys, hashed
// together. Two semantically identical requests always map to the same key
// regardless of field ordering.
func Key(req domain.QueryRequest) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Query))
	b.WriteByte(0)
	b.WriteString(req.Collection)
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(req.TopK))

	keys := make([]string, 0, len(req.MetadataFilter))
	for k := range req.MetadataFilter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(req.MetadataFilter[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Key canonicalizes a query request. Method form of the package Key function.
func (c *QueryCache) Key(req domain.QueryRequest) string {
	return Key(req)
}

// Lookup returns the cached response for a key, or false on miss.
func (c *QueryCache) Lookup(key string) (domain.QueryResponse, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return domain.QueryResponse{}, false
	}
	if c.now().After(e.expiresAt) {
		c.entries.Remove(key)
		return domain.QueryResponse{}, false
	}
	return e.response, true
}

// Write stores a response under key with the cache's default TTL.
func (c *QueryCache) Write(key string, resp domain.QueryResponse) {
	c.WriteTTL(key, resp, c.ttl)
}

// WriteTTL stores a response with an explicit TTL.
func (c *QueryCache) WriteTTL(key string, resp domain.QueryResponse, ttl time.Duration) {
	c.entries.Add(key, entry{response: resp, expiresAt: c.now().Add(ttl)})
}

// Purge drops every entry.
func (c *QueryCache) Purge() {
	c.entries.Purge()
}

// Len returns the current entry count.
func (c *QueryCache) Len() int {
	return c.entries.Len()
}
