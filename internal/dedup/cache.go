// Package dedup suppresses duplicate alert deliveries within a TTL
// window. The cache is volatile: a restarted process forgets every
// fingerprint it has seen.
package dedup

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options tune cache behaviour.
type Options struct {
	// TTL is how long a fingerprint counts as a duplicate.
	TTL time.Duration
	// CleanupThreshold triggers a bulk purge when the entry count
	// exceeds it. Purging is opportunistic, never timer-driven.
	CleanupThreshold int
}

// Cache is a mutex-protected map from alert fingerprint to the time it
// was first seen. Safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	ttl       time.Duration
	threshold int
	now       func() time.Time
	logger    zerolog.Logger
}

// New constructs a Cache.
func New(opts Options, logger zerolog.Logger) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.CleanupThreshold <= 0 {
		opts.CleanupThreshold = 100
	}
	return &Cache{
		entries:   make(map[string]time.Time),
		ttl:       opts.TTL,
		threshold: opts.CleanupThreshold,
		now:       time.Now,
		logger:    logger.With().Str("component", "dedup").Logger(),
	}
}

// CheckAndRecord reports whether key was already seen within the TTL
// window. When the key is unseen (or its entry has gone stale) it is
// stamped with the current time; a fresh duplicate is only reported,
// never re-stamped. Check and record happen under one lock acquisition
// so concurrent submissions of the same key cannot both pass.
func (c *Cache) CheckAndRecord(key string) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if seen, ok := c.entries[key]; ok {
		age := now.Sub(seen)
		if age < c.ttl {
			c.logger.Info().Str("key", key).Dur("age", age).Msg("duplicate alert detected")
			return true
		}
		// Stale entry: treat as unseen and refresh below.
		delete(c.entries, key)
	}

	c.entries[key] = now
	if len(c.entries) > c.threshold {
		c.cleanupLocked(now)
	}
	return false
}

// Cleanup removes every entry whose age meets or exceeds the TTL and
// returns the number removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleanupLocked(c.now())
}

func (c *Cache) cleanupLocked(now time.Time) int {
	removed := 0
	for key, seen := range c.entries {
		if now.Sub(seen) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug().Int("expired", removed).Int("remaining", len(c.entries)).Msg("cache cleanup completed")
	}
	return removed
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
