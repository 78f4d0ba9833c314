package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ifmsabrazil/agadmin/internal/model"
)

// StatsCache is a small Redis cache in front of the modality
// active-registration count. Capacity checks run on every registration
// form render, so the count query is the hottest read in the system.
// The cache is advisory: entries are short-lived and invalidated on
// registration writes, and a nil client disables caching entirely so
// the service degrades to querying the database directly.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStatsCache constructs a StatsCache. A nil redis client is allowed
// and turns every method into a no-op miss.
func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &StatsCache{rdb: rdb, ttl: ttl}
}

func statsKey(modalityID uint64) string {
	return fmt.Sprintf("modality:stats:%d", modalityID)
}

// Get returns the cached stats for a modality, or (nil, false) on a
// miss, a disabled cache, or any Redis error.
func (c *StatsCache) Get(ctx context.Context, modalityID uint64) (*model.ModalityStats, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	bs, err := c.rdb.Get(ctx, statsKey(modalityID)).Bytes()
	if err != nil {
		return nil, false
	}
	var stats model.ModalityStats
	if err := json.Unmarshal(bs, &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

// Set stores computed stats under the configured TTL. Errors are
// swallowed; a failed cache write only costs a recomputation.
func (c *StatsCache) Set(ctx context.Context, stats *model.ModalityStats) {
	if c == nil || c.rdb == nil || stats == nil {
		return
	}
	bs, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, statsKey(stats.ModalityID), bs, c.ttl).Err()
}

// Invalidate drops the cached stats for a modality. Called after any
// registration write that could change the active count.
func (c *StatsCache) Invalidate(ctx context.Context, modalityID uint64) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, statsKey(modalityID)).Err()
}
