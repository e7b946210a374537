// Package querycache provides a shared, keyed cache for remote reads.
//
// Any number of consumers can declare "I need the result of fetching
// resource X" and receive a shared result plus loading/error status without
// independently hitting the network. Concurrent fetches for one key
// collapse into a single producer call; cached values are served while a
// background revalidation runs once they go stale; and a per-key generation
// counter guarantees that a superseded fetch can never overwrite a newer
// result, regardless of completion order.
package querycache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/studyhub/studyhub-go/metrics"
)

// Key identifies a cache slot: a resource kind plus an optional parameter
// (such as a group ID). Same kind and parameter share a slot; different
// parameters never collide.
type Key struct {
	Kind  string
	Param string
}

func (k Key) String() string {
	if k.Param == "" {
		return k.Kind
	}
	return k.Kind + ":" + k.Param
}

// Producer performs the actual fetch for a key, typically by calling a
// resource service.
type Producer func(ctx context.Context) (any, error)

// Result is the consumer's view of a cache entry.
type Result struct {
	Value   any
	Err     error
	Stale   bool // Value was served from cache while a revalidation runs
	Loading bool // no value yet and a fetch is outstanding (Lookup only)
}

// Options tunes a single Fetch call.
type Options struct {
	// Disabled declares the query without issuing any fetch; the result is
	// absent. Mirrors conditional queries whose inputs are not ready yet.
	Disabled bool

	// MaxAge overrides the cache-wide freshness window for this call.
	MaxAge time.Duration
}

// DefaultTTL is the freshness window after which a cached value is
// revalidated in the background on the next fetch.
const DefaultTTL = 5 * time.Minute

type entry struct {
	hasValue  bool
	value     any
	err       error
	fetchedAt time.Time
	gen       uint64 // latest issued fetch generation for this key
	inflight  bool   // a fetch for gen is outstanding
}

// Cache is a keyed query cache shared by all consumers of a client.
type Cache struct {
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[Key]*entry

	sf singleflight.Group
}

// Option configures the Cache.
type Option func(*Cache)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a cache with the given freshness window; ttl <= 0 selects
// DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: metrics.New(false),
		entries: make(map[Key]*entry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch returns the cached value for key, producing it if needed.
//
// A fresh cached value returns immediately without invoking the producer. A
// stale value is returned immediately with Stale set while the producer
// revalidates in the background. On a miss the call blocks on the producer;
// concurrent callers for the same key share one invocation. Producer
// failures come back in Result.Err, never as a panic into the caller.
func (c *Cache) Fetch(ctx context.Context, key Key, producer Producer, opts Options) Result {
	if opts.Disabled {
		return Result{}
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = c.ttl
	}

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
		c.metrics.SetCacheSize(float64(len(c.entries)))
	}

	if e.hasValue {
		c.metrics.RecordCacheHit(key.Kind)
		res := Result{Value: e.value, Err: e.err}
		if time.Since(e.fetchedAt) <= maxAge {
			c.mu.Unlock()
			return res
		}

		// Stale: serve what we have and revalidate behind the caller's
		// back. The background fetch outlives this call, so detach it
		// from the caller's cancellation.
		if !e.inflight {
			e.gen++
			e.inflight = true
			gen := e.gen
			bg := context.WithoutCancel(ctx)
			go func() {
				_, _ = c.run(bg, key, gen, producer)
			}()
		}
		res.Stale = true
		c.mu.Unlock()
		return res
	}

	// Miss. Join an outstanding fetch if one is in flight; otherwise issue
	// a new generation.
	c.metrics.RecordCacheMiss(key.Kind)
	if !e.inflight {
		e.gen++
		e.inflight = true
	}
	gen := e.gen
	c.mu.Unlock()

	value, err := c.run(ctx, key, gen, producer)
	return Result{Value: value, Err: err}
}

// run executes the fetch for a specific generation and applies the result,
// unless a newer generation was issued for the key in the meantime.
func (c *Cache) run(ctx context.Context, key Key, gen uint64, producer Producer) (any, error) {
	flight := fmt.Sprintf("%s#%d", key, gen)
	value, err, _ := c.sf.Do(flight, func() (interface{}, error) {
		return producer(ctx)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || gen != e.gen {
		// Superseded by invalidation or a newer fetch: discard.
		c.logger.Debug("discarding superseded fetch", "key", key.String(), "gen", gen)
		return value, err
	}

	if err == nil {
		e.value = value
		e.hasValue = true
	}
	e.err = err
	e.fetchedAt = time.Now()
	e.inflight = false
	return value, err
}

// Lookup returns the current state of a key without fetching. The second
// return value reports whether the key has an entry at all.
func (c *Cache) Lookup(key Key) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	return Result{
		Value:   e.value,
		Err:     e.err,
		Stale:   e.hasValue && e.inflight,
		Loading: !e.hasValue && e.inflight,
	}, true
}

// Invalidate discards the cached value for key. The next fetch invokes the
// producer again, and any fetch already in flight for the key resolves into
// the void. Mutation call sites are responsible for invalidating the keys
// they make stale.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.gen++
	e.hasValue = false
	e.value = nil
	e.err = nil
	e.inflight = false
}

// InvalidateKind discards every entry of the given kind across all
// parameters.
func (c *Cache) InvalidateKind(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if key.Kind != kind {
			continue
		}
		e.gen++
		e.hasValue = false
		e.value = nil
		e.err = nil
		e.inflight = false
	}
}

// Len returns the number of entries currently tracked.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Typed fetches through c with a typed producer and type-asserts the cached
// value. The boolean reports whether a value was present.
func Typed[T any](ctx context.Context, c *Cache, key Key, producer func(context.Context) (T, error), opts Options) (T, bool, error) {
	res := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return producer(ctx)
	}, opts)

	var zero T
	if res.Value == nil {
		return zero, false, res.Err
	}
	value, ok := res.Value.(T)
	if !ok {
		return zero, false, fmt.Errorf("querycache: key %s holds %T, not %T", key, res.Value, zero)
	}
	return value, true, res.Err
}
