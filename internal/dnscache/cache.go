// Package dnscache is a TTL-based MX lookup cache with singleflight
// deduplication: concurrent lookups for the same domain trigger a single
// upstream query and all waiters share its result. One cache is scoped to
// one validator, so batches never leak results into each other.
package dnscache

import (
	"context"
	"sync"
	"time"

	"github.com/mailvet/mailvet/types"
)

// Lookup is the upstream MX query the cache wraps.
type Lookup func(ctx context.Context, domain string) ([]types.MXHost, error)

// Cache caches MX lookups per domain. Errors are cached too: a domain
// that just failed to resolve will not be re-queried until the TTL lapses.
type Cache struct {
	mu            sync.Mutex
	entries       map[string]*entry
	ttl           time.Duration
	lookupTimeout time.Duration
	lookup        Lookup
}

type entry struct {
	hosts   []types.MXHost
	err     error
	expires time.Time
	done    chan struct{} // closed when the lookup completes
}

// New creates a cache around the given lookup.
func New(lookup Lookup, lookupTimeout, ttl time.Duration) *Cache {
	return &Cache{
		entries:       make(map[string]*entry),
		ttl:           ttl,
		lookupTimeout: lookupTimeout,
		lookup:        lookup,
	}
}

// LookupMX returns MX hosts for the domain, consulting the cache first.
func (c *Cache) LookupMX(ctx context.Context, domain string) ([]types.MXHost, error) {
	c.mu.Lock()

	if e, ok := c.entries[domain]; ok {
		select {
		case <-e.done:
			if time.Now().Before(e.expires) {
				c.mu.Unlock()
				return copyHosts(e.hosts), e.err
			}
			// expired, refresh below
		default:
			// a lookup is in flight, wait for it
			c.mu.Unlock()
			<-e.done
			return copyHosts(e.hosts), e.err
		}
	}

	e := &entry{done: make(chan struct{})}
	c.entries[domain] = e
	c.mu.Unlock()

	lctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	e.hosts, e.err = c.lookup(lctx, domain)
	e.expires = time.Now().Add(c.ttl)
	close(e.done)

	return copyHosts(e.hosts), e.err
}

// Len reports how many domains the cache currently holds.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// copyHosts shields cached data from callers that sort their slice.
func copyHosts(hosts []types.MXHost) []types.MXHost {
	if hosts == nil {
		return nil
	}
	out := make([]types.MXHost, len(hosts))
	copy(out, hosts)
	return out
}
