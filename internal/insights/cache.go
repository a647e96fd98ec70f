package insights

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stirixi/copilot-relay/internal/metrics"
)

// DefaultTTL bounds backend load from chat turns.
const DefaultTTL = 30 * time.Second

// GatherFunc produces a fresh Insights value.
type GatherFunc func(ctx context.Context) (*Insights, error)

// Cache memoizes the aggregated insights for a TTL window. Concurrent
// refreshes collapse into a single aggregation via singleflight. A failed
// aggregation propagates to all waiters and leaves the slot empty.
type Cache struct {
	gather GatherFunc
	ttl    time.Duration

	mu        sync.RWMutex
	cached    *Insights
	expiresAt time.Time

	flight  singleflight.Group
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewCache creates a cache over the given gather function.
func NewCache(gather GatherFunc, ttl time.Duration, m *metrics.Metrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		gather:  gather,
		ttl:     ttl,
		metrics: m,
		now:     time.Now,
	}
}

// Get returns the cached insights while fresh, refreshing otherwise.
func (c *Cache) Get(ctx context.Context) (*Insights, error) {
	if ins, ok := c.fresh(); ok {
		c.record("hit")
		return ins, nil
	}
	c.record("miss")

	v, err, _ := c.flight.Do("insights", func() (interface{}, error) {
		// A waiter that queued behind the winning refresh sees its result
		// directly; re-check so the slot is only aggregated once per window.
		if ins, ok := c.fresh(); ok {
			return ins, nil
		}

		ins, err := c.gather(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cached = ins
		c.expiresAt = c.now().Add(c.ttl)
		c.mu.Unlock()
		return ins, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Insights), nil
}

func (c *Cache) fresh() (*Insights, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached != nil && c.now().Before(c.expiresAt) {
		return c.cached, true
	}
	return nil, false
}

func (c *Cache) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(result)
	}
}
