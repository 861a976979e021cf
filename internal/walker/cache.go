package walker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of memoised walk results.
const DefaultCacheSize = 4096

// Cache memoises walk results by content hash and walker, so watch-mode
// rebuilds only reparse files whose bytes changed. Safe for concurrent use.
type Cache struct {
	entries *lru.Cache[string, Result]
}

// NewCache returns a cache holding at most size results.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, Result](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Walk returns the cached result for (w, source) or walks and stores it.
// Failed walks are not cached. A nil Cache walks directly.
func (c *Cache) Walk(ctx context.Context, w Walker, source []byte) (Result, error) {
	if c == nil {
		return w.Walk(ctx, source)
	}

	sum := sha256.Sum256(source)
	key := w.String() + ":" + hex.EncodeToString(sum[:])

	if r, ok := c.entries.Get(key); ok {
		return Result{Specifiers: slices.Clone(r.Specifiers)}, nil
	}
	r, err := w.Walk(ctx, source)
	if err != nil {
		return Result{}, err
	}
	c.entries.Add(key, Result{Specifiers: slices.Clone(r.Specifiers)})
	return r, nil
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
