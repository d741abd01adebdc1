package ratelimit

import (
	"sync"
	"time"
)

// policyCache is a mutex-guarded snapshot of the current policy with a TTL.
// It exists to bound database load on the hot submission path; staleness is
// capped by the TTL, and the admin save path invalidates it synchronously.
type policyCache struct {
	mu        sync.RWMutex
	policy    *Policy
	fetchedAt time.Time
	ttl       time.Duration
}

func newPolicyCache(ttl time.Duration) *policyCache {
	return &policyCache{ttl: ttl}
}

// get returns the cached policy and whether it is still fresh.
func (c *policyCache) get() (*Policy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.policy == nil {
		return nil, false
	}
	return c.policy, time.Since(c.fetchedAt) < c.ttl
}

func (c *policyCache) set(policy *Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = policy
	c.fetchedAt = time.Now()
}

// invalidate clears the freshness timestamp but keeps the last-known policy
// so reads can still fall back to it if the store is unreachable.
func (c *policyCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchedAt = time.Time{}
}
