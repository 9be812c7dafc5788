package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-spot-reservation/internal/config"
)

// tokenBucketScript refills and consumes one token atomically. Keys:
// bucket hash. Args: capacity, refill tokens, refill interval ms, now ms,
// ttl ms. Returns {allowed, remaining, retry_after_ms}.
const tokenBucketScript = `
local key      = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill   = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now      = tonumber(ARGV[4])
local ttl      = tonumber(ARGV[5])

local data   = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(data[1])
local ts     = tonumber(data[2])

if tokens == nil then
  tokens = capacity
  ts = now
end

local elapsed = now - ts
if elapsed > 0 then
  local added = math.floor(elapsed / interval) * refill
  if added > 0 then
    tokens = math.min(capacity, tokens + added)
    ts = ts + math.floor(elapsed / interval) * interval
  end
end

local allowed = 0
local retry = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry = interval - (now - ts)
  if retry < 0 then retry = 0 end
end

redis.call('HMSET', key, 'tokens', tokens, 'ts', ts)
redis.call('PEXPIRE', key, ttl)
return {allowed, tokens, retry}
`

// buildRateKey derives the bucket key for a request according to the
// configured strategy.
func buildRateKey(c echo.Context, cfg config.RateLimitConfig) string {
	parts := []string{cfg.Prefix}
	switch cfg.KeyStrategy {
	case "ip":
		parts = append(parts, c.RealIP())
	case "user":
		parts = append(parts, currentUserID(c))
	case "ip_route":
		parts = append(parts, c.RealIP(), c.Path())
	default: // ip_user_route
		parts = append(parts, c.RealIP(), currentUserID(c), c.Path())
	}
	return strings.Join(parts, ":")
}

// NewTokenBucket returns a Redis-backed token bucket rate limiter. When
// Redis is unavailable the limiter fails open rather than rejecting
// traffic.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	script := redis.NewScript(tokenBucketScript)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Enabled || rdb == nil {
				return next(c)
			}

			key := buildRateKey(c, cfg)
			now := time.Now().UnixMilli()
			res, err := script.Run(c.Request().Context(), rdb, []string{key},
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				now,
				cfg.TTL.Milliseconds(),
			).Result()
			if err != nil {
				return next(c)
			}

			vals, ok := res.([]interface{})
			if !ok || len(vals) != 3 {
				return next(c)
			}
			allowed, _ := asInt64(vals[0])
			remaining, _ := asInt64(vals[1])
			retryMs, _ := asInt64(vals[2])

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if allowed != 1 {
				retry := (retryMs + 999) / 1000
				if retry < 1 {
					retry = 1
				}
				c.Response().Header().Set("Retry-After", strconv.FormatInt(retry, 10))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
