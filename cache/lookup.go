// Package cache wraps bpstree.Tree with an optional read-through lookup
// cache, for the read-heavy secondary-index-lookup pattern the tree is
// meant to sit behind.
package cache

import (
	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"

	"bpstree/bpstree"
)

// KeyEncoder renders a lookup key as bytes, for hashing into a cache
// key. Implementations must be deterministic and injective enough that
// distinct keys rarely collide (a collision only costs a cache miss,
// never correctness, since Find always falls through to the tree).
type KeyEncoder[K any] func(K) []byte

// LookupCache memoizes Tree.Find behind a ristretto admission-controlled
// cache. It does not observe tree mutations on its own — callers must
// call Invalidate after any Insert/Delete that may affect a cached key.
type LookupCache[E any, K any] struct {
	tree   *bpstree.Tree[E, K]
	encode KeyEncoder[K]
	cache  *ristretto.Cache[uint64, E]
}

// NewLookupCache wraps tree with a cache sized to maxCost units (one
// cached element costs 1 unit, so maxCost is effectively the maximum
// number of cached entries).
func NewLookupCache[E any, K any](tree *bpstree.Tree[E, K], encode KeyEncoder[K], maxCost int64) (*LookupCache[E, K], error) {
	c, err := ristretto.NewCache(&ristretto.Config[uint64, E]{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &LookupCache[E, K]{tree: tree, encode: encode, cache: c}, nil
}

func (l *LookupCache[E, K]) hash(key K) uint64 {
	return xxhash.Sum64(l.encode(key))
}

// Find consults the cache first, falling back to Tree.Find on a miss and
// populating the cache before returning.
func (l *LookupCache[E, K]) Find(key K) (E, bool) {
	h := l.hash(key)
	if v, ok := l.cache.Get(h); ok {
		return v, true
	}
	e, ok := l.tree.Find(key)
	if ok {
		l.cache.Set(h, e, 1)
	}
	return e, ok
}

// Invalidate drops key's cached entry, if any.
func (l *LookupCache[E, K]) Invalidate(key K) {
	l.cache.Del(l.hash(key))
}

// Close releases the cache's background goroutines. The wrapped tree is
// unaffected.
func (l *LookupCache[E, K]) Close() {
	l.cache.Close()
}

// RandomSeed derives a uint64 suitable for Tree.Random from an arbitrary
// seed value, via the same xxhash digest used for cache keys — so a
// caller already depending on this package doesn't need a second hash
// function just to drive sampling.
func RandomSeed(seed []byte) uint64 {
	return xxhash.Sum64(seed)
}
