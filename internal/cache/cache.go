// Package cache stores fetched item content so repeated downloads of the
// same object skip the object store.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache maps keys to byte payloads.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// Memory is a process-local cache bounded by entry count. The least recently
// used entry is evicted when full.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory builds a memory cache. ttl <= 0 keeps entries until evicted;
// maxEntries <= 0 means 256.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, data []byte) error {
	m.lru.Add(key, append([]byte(nil), data...))
	return nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}
