// Package cache holds the process-wide classification and type-list caches.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/rpggio/catalogbulk/internal/domain/record"
)

// Policy bounds a cache. Zero values mean unbounded size and no expiry.
type Policy struct {
	Size int
	TTL  time.Duration
}

func newLRU[K comparable, V any](p Policy) *expirable.LRU[K, V] {
	ttl := p.TTL
	if ttl < 0 {
		ttl = 0
	}
	size := p.Size
	if size < 0 {
		size = 0
	}
	return expirable.NewLRU[K, V](size, nil, ttl)
}

// Classifications maps identifier strings to their classified kind.
// Unknown is never stored.
type Classifications struct {
	lru *expirable.LRU[string, record.IdentifierKind]
}

// NewClassifications creates an empty classification cache.
func NewClassifications(p Policy) *Classifications {
	return &Classifications{lru: newLRU[string, record.IdentifierKind](p)}
}

// Get returns the cached kind for id.
func (c *Classifications) Get(id string) (record.IdentifierKind, bool) {
	return c.lru.Get(id)
}

// Put stores a known kind. Unknown is ignored.
func (c *Classifications) Put(id string, kind record.IdentifierKind) {
	if kind == record.IDUnknown || kind == "" {
		return
	}
	c.lru.Add(id, kind)
}

// Len reports the number of cached classifications.
func (c *Classifications) Len() int { return c.lru.Len() }

// Clear drops every cached classification.
func (c *Classifications) Clear() { c.lru.Purge() }

// TypeLoader fetches the full list for one type category.
type TypeLoader func(ctx context.Context, kind record.TypeKind) ([]record.Record, error)

// Types memoizes type lists per TypeKind. Concurrent misses for the same
// kind share a single load.
type Types struct {
	lru   *expirable.LRU[record.TypeKind, []record.Record]
	group singleflight.Group
}

// NewTypes creates an empty type cache.
func NewTypes(p Policy) *Types {
	return &Types{lru: newLRU[record.TypeKind, []record.Record](p)}
}

// Get returns the cached list for kind, loading it on a miss.
func (t *Types) Get(ctx context.Context, kind record.TypeKind, load TypeLoader) ([]record.Record, error) {
	if recs, ok := t.lru.Get(kind); ok {
		return recs, nil
	}
	v, err, _ := t.group.Do(string(kind), func() (any, error) {
		if recs, ok := t.lru.Get(kind); ok {
			return recs, nil
		}
		recs, err := load(ctx, kind)
		if err != nil {
			return nil, err
		}
		t.lru.Add(kind, recs)
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]record.Record), nil
}

// Peek returns the cached list without loading.
func (t *Types) Peek(kind record.TypeKind) ([]record.Record, bool) {
	return t.lru.Peek(kind)
}

// Clear drops every cached type list.
func (t *Types) Clear() { t.lru.Purge() }
