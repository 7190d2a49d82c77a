// Package pagecache caches grant pages by their full parameter tuple and
// collapses identical in-flight fetches into one backend call.
package pagecache

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/letmevibethatforyou/grantsx"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is how long a page stays fresh.
	DefaultTTL = 5 * time.Minute
	// DefaultSize bounds the number of cached pages.
	DefaultSize = 256
)

// LoadFunc issues the backend call for p.
type LoadFunc func(ctx context.Context, p grantsx.Params) (*grantsx.Page, error)

// Cache is safe for concurrent use.
type Cache struct {
	pages  *expirable.LRU[grantsx.Params, *grantsx.Page]
	group  singleflight.Group
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*config)

type config struct {
	ttl    time.Duration
	size   int
	logger *slog.Logger
}

// WithTTL sets the freshness window. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithSize sets the maximum number of cached pages.
func WithSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Cache.
func New(opts ...Option) *Cache {
	cfg := config{ttl: DefaultTTL, size: DefaultSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache{
		pages:  expirable.NewLRU[grantsx.Params, *grantsx.Page](cfg.size, nil, cfg.ttl),
		logger: cfg.logger,
	}
}

// Get returns the page for p, calling load at most once for concurrent
// callers with the same params. Each caller waits under its own ctx; the
// shared load is not canceled when one caller gives up, so its result still
// lands in the cache. Failed loads are not cached.
func (c *Cache) Get(ctx context.Context, p grantsx.Params, load LoadFunc) (*grantsx.Page, error) {
	if page, ok := c.pages.Get(p); ok {
		c.logger.DebugContext(ctx, "page cache hit", "params", p.Key())
		return page, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(p.Key(), func() (interface{}, error) {
		page, err := load(loadCtx, p)
		if err != nil {
			return nil, err
		}
		c.pages.Add(p, page)
		return page, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.DebugContext(ctx, "page fetch shared", "params", p.Key())
		}
		return res.Val.(*grantsx.Page), nil
	}
}

// Peek returns a fresh cached page without loading.
func (c *Cache) Peek(p grantsx.Params) (*grantsx.Page, bool) {
	return c.pages.Peek(p)
}

// Invalidate drops the cached page for p.
func (c *Cache) Invalidate(p grantsx.Params) {
	c.pages.Remove(p)
}

// Purge drops every cached page.
func (c *Cache) Purge() {
	c.pages.Purge()
}

// Len returns the number of cached pages, including expired ones not yet evicted.
func (c *Cache) Len() int {
	return c.pages.Len()
}
