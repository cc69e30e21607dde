// Package cache implements the load-through collection cache that sits
// between the workflows and the authoritative data sources.
package cache

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/headwaterlabs/catchcover/internal/geo"
	"github.com/headwaterlabs/catchcover/internal/metrics"
)

// ErrMiss is returned by a Store when a key has never been written.
var ErrMiss = errors.New("cache: miss")

// Store persists serialized collections under string keys. Implementations:
// fsstore (production), memstore (tests), redisstore.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// LoadFunc materializes a collection from its authoritative source. It is
// invoked only on a full cache miss.
type LoadFunc func(ctx context.Context) (geo.Collection, error)

// CollectionCache is a write-once-then-read cache of loaded collections: an
// LRU of decoded collections in front of a persistent Store of encoded ones.
// Entries are never invalidated automatically; staleness is the caller's
// responsibility. A failed load writes nothing.
type CollectionCache struct {
	store Store
	lru   *lru.Cache[string, geo.Collection]
	log   zerolog.Logger
}

func New(store Store, lruSize int, log zerolog.Logger) (*CollectionCache, error) {
	if store == nil {
		return nil, errors.New("cache: nil store")
	}
	l, err := lru.New[string, geo.Collection](lruSize)
	if err != nil {
		return nil, fmt.Errorf("cache: lru size %d: %w", lruSize, err)
	}
	return &CollectionCache{store: store, lru: l, log: log}, nil
}

// Get returns the collection for key, serving from the LRU, then the Store,
// and only then load. On a store hit the cached bytes are decoded and
// returned unchanged; repeated Gets for one key yield identical collections.
// Every return is a deep copy, so callers may mutate their result without
// touching the cached entry.
func (c *CollectionCache) Get(ctx context.Context, key string, load LoadFunc) (geo.Collection, error) {
	if col, ok := c.lru.Get(key); ok {
		metrics.ObserveCacheLookup("lru", true)
		return col.Clone(), nil
	}
	metrics.ObserveCacheLookup("lru", false)

	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		metrics.ObserveCacheLookup("store", true)
		col, decErr := geo.Decode(data)
		if decErr != nil {
			return geo.Collection{}, fmt.Errorf("cache: decode %q: %w", key, decErr)
		}
		c.lru.Add(key, col)
		c.log.Debug().Str("key", key).Int("features", len(col.Features)).Msg("cache hit")
		return col.Clone(), nil
	case errors.Is(err, ErrMiss):
		metrics.ObserveCacheLookup("store", false)
	default:
		return geo.Collection{}, fmt.Errorf("cache: read %q: %w", key, err)
	}

	c.log.Debug().Str("key", key).Msg("cache miss, loading from source")
	col, err := load(ctx)
	if err != nil {
		return geo.Collection{}, err
	}
	data, err = geo.Encode(col)
	if err != nil {
		return geo.Collection{}, fmt.Errorf("cache: encode %q: %w", key, err)
	}
	if err := c.store.Put(ctx, key, data); err != nil {
		return geo.Collection{}, fmt.Errorf("cache: write %q: %w", key, err)
	}
	// decode our own encoding so a warm Get and a cold Get return the same value
	col, err = geo.Decode(data)
	if err != nil {
		return geo.Collection{}, fmt.Errorf("cache: decode %q after write: %w", key, err)
	}
	c.lru.Add(key, col)
	return col.Clone(), nil
}
