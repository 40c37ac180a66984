// Package imagecache resolves artwork URLs to image bytes through a
// two-level cache: a persistent TTL store keyed by normalized URL, plus an
// in-flight request map keyed by fetch URL so racing callers share one
// network request.
package imagecache

import (
	"context"
	"sync"
	"time"

	"github.com/cardforge/cardforge/internal/cachestore"
	"github.com/cardforge/cardforge/internal/constants"
)

// flight is one shared in-progress fetch. The result is published before
// done is closed, so waiters may read blob and err after the close.
type flight struct {
	done chan struct{}
	blob []byte
	err  error
}

// Cache is the two-level image cache. Safe for concurrent use.
type Cache struct {
	store   cachestore.Store
	fetcher *Fetcher

	ttl   time.Duration
	grace time.Duration
	now   func() time.Time

	mu       sync.Mutex
	inflight map[string]*flight
}

// Option adjusts cache behavior.
type Option func(*Cache)

// WithTTL overrides the staleness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithGraceDelay overrides how long a completed in-flight entry lingers to
// absorb near-simultaneous late joiners.
func WithGraceDelay(d time.Duration) Option {
	return func(c *Cache) { c.grace = d }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache over the given store and fetcher.
func New(store cachestore.Store, fetcher *Fetcher, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		fetcher:  fetcher,
		ttl:      constants.CacheTTL,
		grace:    constants.InflightGrace,
		now:      time.Now,
		inflight: make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the image bytes for url. Lookup order: persistent store
// by normalized key (fresh entries get their timestamp refreshed), then the
// in-flight map, then a new fetch. Store failures are cache misses; the
// fetch still proceeds.
func (c *Cache) Resolve(ctx context.Context, url string) ([]byte, error) {
	blob, _, err := c.ResolveInfo(ctx, url)
	return blob, err
}

// ResolveInfo is Resolve plus a flag reporting whether the bytes came from
// the persistent store.
func (c *Cache) ResolveInfo(ctx context.Context, url string) ([]byte, bool, error) {
	key := NormalizeKey(url)

	if entry, ok, err := c.store.Get(ctx, key); err == nil && ok {
		age := c.now().Sub(time.UnixMilli(entry.CachedAt))
		if age <= c.ttl {
			// Touch-on-hit keeps hot entries alive. Best effort.
			_ = c.store.Touch(ctx, key, c.now())
			return entry.Blob, true, nil
		}
	}

	c.mu.Lock()
	if f, ok := c.inflight[url]; ok {
		c.mu.Unlock()
		blob, err := c.await(ctx, f)
		return blob, false, err
	}
	f := &flight{done: make(chan struct{})}
	c.inflight[url] = f
	c.mu.Unlock()

	// The fetch runs detached from the caller's context so one canceling
	// waiter cannot poison the shared flight for the others.
	go c.fetchInto(context.WithoutCancel(ctx), f, url, key)

	blob, err := c.await(ctx, f)
	return blob, false, err
}

// await blocks until the flight completes or the waiter's own context is
// canceled. Each waiter selects on its own ctx.
func (c *Cache) await(ctx context.Context, f *flight) ([]byte, error) {
	select {
	case <-f.done:
		return f.blob, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetchInto performs the shared fetch, publishes the result, and manages
// the in-flight entry's lifetime: failures clear immediately so the next
// caller retries, successes linger for a grace period.
func (c *Cache) fetchInto(ctx context.Context, f *flight, url, key string) {
	blob, err := c.fetcher.Fetch(ctx, url)
	f.blob, f.err = blob, err
	close(f.done)

	if err != nil {
		c.clearInflight(url)
		return
	}

	_ = c.store.Put(ctx, cachestore.Entry{
		Key:      key,
		Blob:     blob,
		CachedAt: cachestore.EpochMs(c.now()),
		Size:     int64(len(blob)),
	})

	time.AfterFunc(c.grace, func() {
		c.clearInflight(url)
	})
}

func (c *Cache) clearInflight(url string) {
	c.mu.Lock()
	delete(c.inflight, url)
	c.mu.Unlock()
}
