// Package memory implements an in-memory core.Store for tests and local
// development. It can stand in for any scheme.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lejeunel/image-db-app/internal/blob/core"
)

type blobEntry struct {
	info core.Info
	data []byte
}

// Store implements core.Store backed by process memory.
type Store struct {
	mu      sync.RWMutex
	scheme  core.Scheme
	buckets map[string]map[string]blobEntry
	failOps map[string]error
}

// New returns an in-memory store serving scheme (mem when empty).
func New(scheme core.Scheme) *Store {
	if scheme == "" {
		scheme = core.SchemeMemory
	}
	return &Store{
		scheme:  scheme,
		buckets: make(map[string]map[string]blobEntry),
		failOps: make(map[string]error),
	}
}

// Scheme returns the URI scheme served by the store.
func (s *Store) Scheme() core.Scheme { return s.scheme }

// Put stores or replaces an object.
func (s *Store) Put(bucket, key string, data []byte, contentType string) core.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		objs = make(map[string]blobEntry)
		s.buckets[bucket] = objs
	}
	b := make([]byte, len(data))
	copy(b, data)
	info := core.Info{Key: key, Size: int64(len(b)), ContentType: contentType, LastModified: time.Now().UTC()}
	objs[key] = blobEntry{info: info, data: b}
	return info
}

// Fail makes every subsequent call of op ("list" or "get") return err.
// A nil err clears the failure.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOps, op)
		return
	}
	s.failOps[op] = err
}

// Get returns object metadata and a reader over a copy of its content.
func (s *Store) Get(_ context.Context, bucket, key string) (core.Info, io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failOps["get"]; err != nil {
		return core.Info{}, nil, err
	}
	obj, ok := s.buckets[bucket][key]
	if !ok {
		return core.Info{}, nil, fmt.Errorf("%s/%s: %w", bucket, key, core.ErrNotFound)
	}
	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)
	return obj.info, io.NopCloser(bytes.NewReader(dataCopy)), nil
}

// List returns the objects directly under prefix.
func (s *Store) List(_ context.Context, bucket, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failOps["list"]; err != nil {
		return nil, err
	}
	objs := s.buckets[bucket]
	out := make([]core.Info, 0, len(objs))
	for k, v := range objs {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if strings.Contains(k[len(prefix):], "/") {
			continue
		}
		out = append(out, v.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
