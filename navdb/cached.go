// navdb/cached.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navdb

import (
	"context"
	"sync/atomic"
	"time"

	av "github.com/mmp/routeplan/aviation"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type fixKey struct {
	ident, region string
}

// CachedDatabase wraps a Database, keeping the results of recent
// queries in LRU caches. It's mostly useful in front of an SQLDatabase.
type CachedDatabase struct {
	db Database

	fixes      *expirable.LRU[fixKey, []av.Fix]
	airways    *expirable.LRU[string, []av.Airway]
	legs       *expirable.LRU[ProcedureKey, []av.RawLeg]
	procedures *expirable.LRU[string, []ProcedureInfo]

	hits, misses atomic.Int64
}

// NewCachedDatabase returns a CachedDatabase that holds up to size
// results for each kind of query for at most ttl.
func NewCachedDatabase(db Database, size int, ttl time.Duration) *CachedDatabase {
	return &CachedDatabase{
		db:         db,
		fixes:      expirable.NewLRU[fixKey, []av.Fix](size, nil, ttl),
		airways:    expirable.NewLRU[string, []av.Airway](size, nil, ttl),
		legs:       expirable.NewLRU[ProcedureKey, []av.RawLeg](size, nil, ttl),
		procedures: expirable.NewLRU[string, []ProcedureInfo](size, nil, ttl),
	}
}

// cached returns the cached value for k if there is one and otherwise
// queries the underlying database and caches the result.
func cached[K comparable, V any](c *CachedDatabase, lru *expirable.LRU[K, V], k K, query func() (V, error)) (V, error) {
	if v, ok := lru.Get(k); ok {
		c.hits.Add(1)
		return v, nil
	}

	c.misses.Add(1)
	v, err := query()
	if err == nil {
		lru.Add(k, v)
	}
	return v, err
}

func (c *CachedDatabase) FindFixByIdent(ctx context.Context, ident, region string) ([]av.Fix, error) {
	return cached(c, c.fixes, fixKey{normalizeIdent(ident), region}, func() ([]av.Fix, error) {
		return c.db.FindFixByIdent(ctx, ident, region)
	})
}

func (c *CachedDatabase) GetAirway(ctx context.Context, name string) ([]av.Airway, error) {
	return cached(c, c.airways, normalizeIdent(name), func() ([]av.Airway, error) {
		return c.db.GetAirway(ctx, name)
	})
}

func (c *CachedDatabase) GetProcedureLegs(ctx context.Context, key ProcedureKey) ([]av.RawLeg, error) {
	return cached(c, c.legs, key, func() ([]av.RawLeg, error) {
		return c.db.GetProcedureLegs(ctx, key)
	})
}

func (c *CachedDatabase) Procedures(ctx context.Context, airport string) ([]ProcedureInfo, error) {
	return cached(c, c.procedures, normalizeIdent(airport), func() ([]ProcedureInfo, error) {
		return c.db.Procedures(ctx, airport)
	})
}

// Stats returns the number of cache hits and misses so far.
func (c *CachedDatabase) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge empties the caches.
func (c *CachedDatabase) Purge() {
	c.fixes.Purge()
	c.airways.Purge()
	c.legs.Purge()
	c.procedures.Purge()
}
