package middleware

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enrollment/internal/service"
	"github.com/noah-isme/course-enrollment/pkg/config"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
	"github.com/noah-isme/course-enrollment/pkg/response"
)

// tokenBucket refills whole intervals lazily and takes one token per request.
// It returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
    local elapsed = math.max(0, now_ms - last_refill)
    local intervals = math.floor(elapsed / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + (intervals * refill_tokens))
        last_refill = last_refill + (intervals * interval_ms)
    end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RateLimit throttles requests with a Redis token bucket keyed by rateKey. It
// is a pass-through when disabled or without Redis, and fails open when Redis
// errors.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client, metrics *service.MetricsService, log *zap.Logger) gin.HandlerFunc {
	if !cfg.Enabled || rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if log == nil {
		log = zap.NewNop()
	}
	ttl := int64(cfg.TTL / time.Second)
	if ttl < 1 {
		ttl = 1
	}

	return func(c *gin.Context) {
		key := rateKey(cfg.Prefix, c)
		vals, err := tokenBucket.Run(c.Request.Context(), rdb, []string{key},
			time.Now().UnixMilli(),
			cfg.Capacity,
			cfg.RefillTokens,
			cfg.RefillInterval.Milliseconds(),
			ttl,
		).Int64Slice()
		if err != nil || len(vals) != 3 {
			log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))
		if vals[0] != 1 {
			secs := int(math.Ceil(float64(vals[2]) / 1000.0))
			c.Header("Retry-After", strconv.Itoa(secs))
			metrics.RecordRateLimited()
			log.Info("rate limit exceeded", zap.String("key", key))
			response.Error(c, appErrors.Clone(appErrors.ErrTooManyRequests, "Too many enrollment attempts. Please wait and try again."))
			c.Abort()
			return
		}
		c.Next()
	}
}

// rateKey derives the bucket from values the server controls. Anonymous
// requests share one bucket per client IP, since a client can always drop its
// session cookie; signed-in visitors get their own bucket per IP.
func rateKey(prefix string, c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	identity := CurrentSession(c).Identity
	if !identity.Authenticated() {
		return fmt.Sprintf("%s:ip:%s", prefix, ip)
	}
	return fmt.Sprintf("%s:ip:%s:user:%s:%d", prefix, ip, strings.ToLower(string(identity.Role)), identity.UserID)
}
