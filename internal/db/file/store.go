// Package file implements db.Store on a local directory. Each collection
// namespace gets its own subdirectory holding a single JSON segment file;
// key-value entries live in the reserved _kv partition. Mutations rewrite
// the segment through a temp file and rename, so a batch lands
// all-or-nothing and readers never observe a torn file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/osamaatef1/rag-service/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const (
	kvNamespace = "_kv"
	segmentFile = "records.json"
)

// Config holds the root directory for a file store.
type Config struct {
	Path string
}

// Store implements db.Store on the local filesystem.
type Store struct {
	root string

	mu         sync.Mutex // guards the partitions map itself
	partitions map[string]*partition
}

// partition is one namespace: an in-memory view of its segment file.
type partition struct {
	mu     sync.RWMutex
	dir    string
	loaded bool
	hashes map[string]map[string]string
	kv     map[string]kvEntry
}

type kvEntry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

type segment struct {
	Hashes map[string]map[string]string `json:"hashes,omitempty"`
	KV     map[string]kvEntry           `json:"kv,omitempty"`
}

// NewStore creates (or reopens) a file store rooted at cfg.Path.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	return &Store{
		root:       cfg.Path,
		partitions: make(map[string]*partition),
	}, nil
}

// Ping verifies the root directory is still accessible.
func (s *Store) Ping(_ context.Context) error {
	if _, err := os.Stat(s.root); err != nil {
		return &db.Error{Op: db.OpOpen, Err: err}
	}
	return nil
}

// Close is a no-op: every mutation is flushed synchronously.
func (s *Store) Close() {}

// WaitForReady checks the store once; a local directory is ready or it is not.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// partition returns the namespace partition, loading its segment lazily.
func (s *Store) partition(namespace string) (*partition, error) {
	s.mu.Lock()
	p, ok := s.partitions[namespace]
	if !ok {
		p = &partition{dir: filepath.Join(s.root, namespace)}
		s.partitions[namespace] = p
	}
	s.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p, nil
	}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *partition) load() error {
	p.hashes = make(map[string]map[string]string)
	p.kv = make(map[string]kvEntry)
	p.loaded = true

	data, err := os.ReadFile(filepath.Join(p.dir, segmentFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &db.Error{Op: db.OpOpen, Err: err}
	}

	var seg segment
	if err := json.Unmarshal(data, &seg); err != nil {
		return &db.Error{Op: db.OpOpen, Err: fmt.Errorf("corrupt segment %s: %w", p.dir, err)}
	}
	if seg.Hashes != nil {
		p.hashes = seg.Hashes
	}
	if seg.KV != nil {
		p.kv = seg.KV
	}
	return nil
}

// flush writes the partition segment atomically. Caller holds p.mu.
func (p *partition) flush() error {
	if err := os.MkdirAll(p.dir, 0o750); err != nil {
		return &db.Error{Op: db.OpFlush, Err: err}
	}

	data, err := json.Marshal(segment{Hashes: p.hashes, KV: p.kv})
	if err != nil {
		return &db.Error{Op: db.OpFlush, Err: err}
	}

	tmp, err := os.CreateTemp(p.dir, segmentFile+".tmp-*")
	if err != nil {
		return &db.Error{Op: db.OpFlush, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &db.Error{Op: db.OpFlush, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &db.Error{Op: db.OpFlush, Err: err}
	}
	if err := os.Rename(tmpName, filepath.Join(p.dir, segmentFile)); err != nil {
		_ = os.Remove(tmpName)
		return &db.Error{Op: db.OpFlush, Err: err}
	}
	return nil
}

// HSet sets hash fields, merging into an existing record.
func (s *Store) HSet(_ context.Context, namespace, key string, fields map[string]string) error {
	p, err := s.partition(namespace)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.hashes[key]
	if !ok {
		rec = make(map[string]string, len(fields))
		p.hashes[key] = rec
	}
	for k, v := range fields {
		rec[k] = v
	}
	return p.flush()
}

// HSetMulti stores multiple hashes with a single flush, so the whole batch
// becomes durable together.
func (s *Store) HSetMulti(_ context.Context, namespace string, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}
	p, err := s.partition(namespace)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, item := range items {
		rec := make(map[string]string, len(item.Fields))
		for k, v := range item.Fields {
			rec[k] = v
		}
		p.hashes[item.Key] = rec
	}
	return p.flush()
}

// HGetAll returns a copy of all fields of a hash.
func (s *Store) HGetAll(_ context.Context, namespace, key string) (map[string]string, error) {
	p, err := s.partition(namespace)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, nil
}

// HGetAllMulti returns copies of multiple hashes; missing keys yield nil maps.
func (s *Store) HGetAllMulti(_ context.Context, namespace string, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	p, err := s.partition(namespace)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		rec, ok := p.hashes[key]
		if !ok {
			continue
		}
		m := make(map[string]string, len(rec))
		for k, v := range rec {
			m[k] = v
		}
		out[i] = m
	}
	return out, nil
}

// Del deletes a hash record.
func (s *Store) Del(_ context.Context, namespace, key string) error {
	p, err := s.partition(namespace)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.hashes[key]; !ok {
		return nil
	}
	delete(p.hashes, key)
	return p.flush()
}

// DelMulti deletes multiple hash records with a single flush.
func (s *Store) DelMulti(_ context.Context, namespace string, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	p, err := s.partition(namespace)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for _, key := range keys {
		if _, ok := p.hashes[key]; ok {
			delete(p.hashes, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := p.flush(); err != nil {
		return 0, err
	}
	return removed, nil
}

// Exists checks if a hash record exists.
func (s *Store) Exists(_ context.Context, namespace, key string) (bool, error) {
	p, err := s.partition(namespace)
	if err != nil {
		return false, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.hashes[key]
	return ok, nil
}

// Scan returns sorted keys starting with prefix.
func (s *Store) Scan(_ context.Context, namespace, prefix string) ([]string, error) {
	p, err := s.partition(namespace)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var keys []string
	for k := range p.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Get retrieves a key-value entry, honoring its TTL lazily.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.partition(kvNamespace)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt) {
		delete(p.kv, key)
		return nil, db.ErrKeyNotFound
	}
	return e.Value, nil
}

// Set stores a key-value entry without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a key-value entry; ttl <= 0 means no expiry.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	p, err := s.partition(kvNamespace)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	e := kvEntry{Value: value}
	if ttl > 0 {
		e.ExpiresAt = time.Now().Add(ttl)
	}
	p.kv[key] = e
	return p.flush()
}

// IncrBy adds delta to an integer counter, creating it at zero. Atomic under
// the partition lock.
func (s *Store) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	p, err := s.partition(kvNamespace)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var current int64
	if e, ok := p.kv[key]; ok {
		current, err = strconv.ParseInt(string(e.Value), 10, 64)
		if err != nil {
			return 0, &db.Error{Op: db.OpSet, Err: fmt.Errorf("counter %s holds non-integer value", key)}
		}
	}
	current += delta
	p.kv[key] = kvEntry{Value: []byte(strconv.FormatInt(current, 10))}
	if err := p.flush(); err != nil {
		return 0, err
	}
	return current, nil
}

// KVDel removes a key-value entry.
func (s *Store) KVDel(_ context.Context, key string) error {
	p, err := s.partition(kvNamespace)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.kv[key]; !ok {
		return nil
	}
	delete(p.kv, key)
	return p.flush()
}
