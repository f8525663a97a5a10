// Package cache memoizes digests by content key so repeated documents in a
// batch are hashed once.
package cache

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/hoangsonww/fuzzyhash/internal/crypto"
	"github.com/hoangsonww/fuzzyhash/internal/monitoring"
)

// Key identifies a digest: the hashing parameters plus a content key.
type Key struct {
	Params  string
	Content string
}

// BytesKey builds the key for a byte document hashed with the given parameters.
func BytesKey(windowSize, digestSize, precision int, data []byte) Key {
	return Key{
		Params:  fmt.Sprintf("b:%d:%d:%d", windowSize, digestSize, precision),
		Content: string(crypto.Hash(data)),
	}
}

// TokensKey builds the key for a token document.
func TokensKey(windowSize, digestSize int, tokens []int64) Key {
	return Key{
		Params:  fmt.Sprintf("t:%d:%d", windowSize, digestSize),
		Content: string(crypto.HashTokens(tokens)),
	}
}

// Cache is safe for concurrent use. Once it holds maxEntries digests, new
// results are computed but not stored.
type Cache struct {
	m          *xsync.MapOf[Key, string]
	maxEntries int
	metrics    *monitoring.Metrics
}

func New(maxEntries int) *Cache {
	return &Cache{
		m:          xsync.NewMapOf[Key, string](),
		maxEntries: maxEntries,
		metrics:    monitoring.GetMetrics(),
	}
}

// GetOrCompute returns the cached digest for key, calling compute on a miss.
// Concurrent misses on one key call compute once.
func (c *Cache) GetOrCompute(key Key, compute func() string) string {
	if v, ok := c.m.Load(key); ok {
		c.metrics.RecordCacheLookup(true)
		return v
	}
	c.metrics.RecordCacheLookup(false)

	if c.maxEntries > 0 && c.m.Size() >= c.maxEntries {
		return compute()
	}
	v, _ := c.m.LoadOrCompute(key, compute)
	return v
}

// Len returns the number of cached digests.
func (c *Cache) Len() int {
	return c.m.Size()
}

// Close drops every entry.
func (c *Cache) Close() error {
	c.m.Clear()
	return nil
}
