package dialect

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/cypher"
)

// CacheDriver caches the rows of read-only statements in a cypher.Cache.
// Concurrent misses of the same statement share one backend round trip.
// A successful write statement invalidates every cached read of its store.
// Statements executed without a Statement in the context bypass the cache.
type CacheDriver struct {
	Driver
	cache  cypher.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger

	mu   sync.Mutex
	gens map[string]uint64 // write generation per store
}

// CacheOption configures the CacheDriver.
type CacheOption func(*CacheDriver)

// WithTTL sets the time to live of cached rows. Zero, the default, keeps
// rows until they are invalidated.
func WithTTL(ttl time.Duration) CacheOption {
	return func(d *CacheDriver) {
		d.ttl = ttl
	}
}

// WithCacheLogger sets the logger reporting cache failures. Cache failures
// never fail a statement.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(d *CacheDriver) {
		d.logger = logger
	}
}

// Cached wraps the driver with a CacheDriver.
//
//	drv := dialect.Cached(bolt, dialect.NewMemoryCache(), dialect.WithTTL(time.Minute))
func Cached(drv Driver, cache cypher.Cache, opts ...CacheOption) *CacheDriver {
	d := &CacheDriver{
		Driver: drv,
		cache:  cache,
		logger: slog.Default(),
		gens:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute serves read-only statements from the cache.
func (d *CacheDriver) Execute(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return d.Driver.Execute(ctx, query, params)
	}
	key := cypher.CacheKey{Store: s.Store, Query: query, Params: params}
	if !s.ReadOnly {
		rows, err := d.Driver.Execute(ctx, query, params)
		if err == nil {
			d.invalidate(ctx, key)
		}
		return rows, err
	}
	k := key.String()
	if b, err := d.cache.Get(ctx, k); err != nil {
		d.logger.WarnContext(ctx, "cypher: cache get failed", "key", k, "error", err)
	} else if b != nil {
		if rows, err := decodeRows(b); err == nil {
			return rows, nil
		}
	}
	v, err, _ := d.group.Do(k, func() (any, error) {
		gen := d.generation(s.Store)
		rows, err := d.Driver.Execute(ctx, query, params)
		if err != nil {
			return nil, err
		}
		// A write of the store completed during the round trip.
		if d.generation(s.Store) != gen {
			return rows, nil
		}
		b, err := msgpack.Marshal(rows)
		if err != nil {
			d.logger.WarnContext(ctx, "cypher: cache encoding failed", "key", k, "error", err)
			return rows, nil
		}
		if err := d.cache.Set(ctx, k, b, d.ttl); err != nil {
			d.logger.WarnContext(ctx, "cypher: cache set failed", "key", k, "error", err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Row), nil
}

func (d *CacheDriver) generation(store string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gens[store]
}

// invalidate drops the cached reads of the key store. The generation is
// bumped first, so reads in flight do not store their rows afterwards.
func (d *CacheDriver) invalidate(ctx context.Context, key cypher.CacheKey) {
	d.mu.Lock()
	d.gens[key.Store]++
	d.mu.Unlock()
	if err := d.cache.DeletePrefix(ctx, key.Prefix()); err != nil {
		d.logger.WarnContext(ctx, "cypher: cache invalidation failed", "store", key.Store, "error", err)
	}
}

func decodeRows(b []byte) ([]Row, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.UseLooseInterfaceDecoding(true)
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// MemoryCache is an in-process cypher.Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time // zero for no expiry
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements cypher.Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || (!e.expires.IsZero() && !c.now().Before(e.expires)) {
		return nil, nil
	}
	return bytes.Clone(e.value), nil
}

// Set implements cypher.Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: bytes.Clone(value)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Delete implements cypher.Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// DeletePrefix implements cypher.Cache.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

// Clear implements cypher.Cache.
func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var (
	_ Driver       = (*CacheDriver)(nil)
	_ cypher.Cache = (*MemoryCache)(nil)
)
