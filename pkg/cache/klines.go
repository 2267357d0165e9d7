// Package cache holds short-lived market data shared across request
// handlers.
package cache

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

const numShards = 16

// KlineCache is a sharded TTL cache for candle fetches. Backtests and
// strategy tests hammer the same venue/symbol/interval combinations, so a
// few seconds of reuse keeps the engine inside exchange rate limits.
type KlineCache struct {
	shards [numShards]*klineShard
}

type klineShard struct {
	mu    sync.RWMutex
	items map[string]klineEntry
}

type klineEntry struct {
	candles   []exchange.Candle
	updatedAt time.Time
}

func NewKlineCache() *KlineCache {
	c := &KlineCache{}
	for i := range c.shards {
		c.shards[i] = &klineShard{items: make(map[string]klineEntry)}
	}
	return c
}

// Key builds the cache key for one candle fetch.
func Key(venue, symbol, interval string, limit int) string {
	return fmt.Sprintf("%s|%s|%s|%d", venue, symbol, interval, limit)
}

func (c *KlineCache) getShard(key string) *klineShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%numShards]
}

// Get returns cached candles no older than maxAge. The returned slice is
// shared; callers must not mutate it.
func (c *KlineCache) Get(key string, maxAge time.Duration) ([]exchange.Candle, bool) {
	shard := c.getShard(key)
	shard.mu.RLock()
	entry, ok := shard.items[key]
	shard.mu.RUnlock()
	if !ok || time.Since(entry.updatedAt) > maxAge {
		return nil, false
	}
	return entry.candles, true
}

// Set stores candles under key, stamped now.
func (c *KlineCache) Set(key string, candles []exchange.Candle) {
	shard := c.getShard(key)
	shard.mu.Lock()
	shard.items[key] = klineEntry{candles: candles, updatedAt: time.Now()}
	shard.mu.Unlock()
}

// Len counts entries across all shards.
func (c *KlineCache) Len() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		total += len(shard.items)
		shard.mu.RUnlock()
	}
	return total
}

// Cleanup drops entries older than maxAge and reports how many were removed.
func (c *KlineCache) Cleanup(maxAge time.Duration) int {
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, shard := range c.shards {
		shard.mu.Lock()
		for key, entry := range shard.items {
			if entry.updatedAt.Before(cutoff) {
				delete(shard.items, key)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}
