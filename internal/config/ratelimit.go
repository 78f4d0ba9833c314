package config

import "time"

// RateLimitConfig controls the token bucket applied to self check-in.
// The bucket is keyed per user and route, so one participant hammering
// the check-in button cannot starve the rest of the room.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// LoadRateLimitConfig reads the rate limit settings from environment
// variables. The TTL floor keeps bucket state alive long enough to be
// meaningful across refill intervals.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        boolOr("RATE_LIMIT_ENABLED", true),
		Capacity:       intOr("RATE_LIMIT_CAPACITY", 10),
		RefillTokens:   intOr("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: durationOr("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            durationOr("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         stringOr("RATE_LIMIT_PREFIX", "agadmin:rl"),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if min := 5 * cfg.RefillInterval; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}
