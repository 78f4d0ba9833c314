package config

import (
	"os"
	"strconv"
	"time"
)

// CacheConfig controls the Redis response cache applied to the admin
// list endpoints (assemblies, modalities, participants, sessions).
// Those lists are read far more often than they change during an
// assembly, so short TTLs buy a lot.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the cache settings from environment variables,
// with defaults suitable for an assembly weekend.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      boolOr("CACHE_ENABLED", true),
		TTL:          durationOr("CACHE_TTL", 30*time.Second),
		Prefix:       stringOr("CACHE_PREFIX", "agadmin:cache"),
		MaxBodyBytes: intOr("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func stringOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func boolOr(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
