package bpcheckout

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// DeliveryCache suppresses duplicate webhook deliveries by remembering body
// hashes for a bounded window. Reconciliation is already idempotent, so the
// cache is an optional front guard that keeps provider retry storms from
// re-fetching the same invoice over and over.
type DeliveryCache struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

// NewDeliveryCache creates a delivery cache with the specified TTL. The TTL
// bounds the deduplication window; typical values are 5-15 minutes.
func NewDeliveryCache(ttl time.Duration) *DeliveryCache {
	return &DeliveryCache{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// DeliveryKey creates a unique key from the raw webhook body. The body
// carries the event name and invoice id, so identical re-deliveries map to
// the same key while distinct events never collide.
func DeliveryKey(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}

// CheckAndMark reports whether the key was already delivered inside the TTL
// window, marking it as seen otherwise.
func (c *DeliveryCache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if expiry, exists := c.seen[key]; exists {
		if now.Before(expiry) {
			return true
		}
		delete(c.seen, key)
	}

	c.seen[key] = now.Add(c.ttl)
	c.cleanupExpiredLocked(now)
	return false
}

// Fail removes a delivery marker without caching it, so a redelivery of the
// same body after a transient failure is processed instead of suppressed.
func (c *DeliveryCache) Fail(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.seen, key)
}

// cleanupExpiredLocked removes expired entries. Must be called with lock held.
func (c *DeliveryCache) cleanupExpiredLocked(now time.Time) {
	for key, expiry := range c.seen {
		if now.After(expiry) {
			delete(c.seen, key)
		}
	}
}
