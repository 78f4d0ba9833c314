package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ifmsabrazil/agadmin/internal/config"
)

// bucketScript is a token bucket evaluated atomically in Redis, shared
// across all server instances. It returns {allowed, remaining tokens,
// milliseconds until the next token}.
var bucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_s = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'refilled_ms')
	local tokens = tonumber(state[1])
	local refilled = tonumber(state[2])
	if tokens == nil or refilled == nil then
		tokens = capacity
		refilled = now_ms
	end

	local intervals = math.floor(math.max(0, now_ms - refilled) / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals * refill)
		refilled = refilled + intervals * interval_ms
	end

	local allowed = 0
	local wait_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		wait_ms = math.max(0, interval_ms - (now_ms - refilled))
	end

	redis.call('HMSET', key, 'tokens', tokens, 'refilled_ms', refilled)
	redis.call('EXPIRE', key, ttl_s)
	return { allowed, tokens, wait_ms }
`)

// NewTokenBucket returns a per-user, per-route rate limit middleware.
// It exists for self check-in, which hundreds of phones hit in the same
// minute when a plenária opens. When Redis is unreachable the limiter
// fails open: losing rate limiting is better than blocking check-in.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := cfg.Prefix + ":" + currentUserID(c) + ":" + c.Path()

			res, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				return next(c)
			}
			allowed, remaining, waitMs := res[0] == 1, res[1], res[2]

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if !allowed {
				secs := int(math.Ceil(float64(waitMs) / 1000))
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

// currentUserID reads the identity JWTAuth stored in the context, with
// "anon" keeping keys well-formed on unauthenticated routes.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}
