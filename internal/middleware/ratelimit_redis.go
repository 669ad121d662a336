package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/skillswap/exchange-server-go/internal/audit"
	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
)

const (
	rateLimitKeyPrefix = "ratelimit:"
	rateLimitWindow    = 60 * time.Second
)

var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = 0
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    else
        resetAt = now + window
    end
    return {0, 0, resetAt}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

local remaining = limit - count - 1
local resetAt = now + window

return {1, remaining, resetAt}
`)

// Limiter is a sliding-window counter shared by every instance of the server.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, resetAt int64)
}

type RedisRateLimiter struct {
	client redis.Scripter
}

func NewRedisRateLimiter(client redis.Scripter) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

// Check fails open: a Redis outage must not lock users out.
func (rl *RedisRateLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (bool, int, int64) {
	now := time.Now().Unix()
	fullKey := rateLimitKeyPrefix + key
	seconds := int64(window.Seconds())

	result, err := rateLimitScript.Run(ctx, rl.client, []string{fullKey}, now, seconds, limit).Int64Slice()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis rate limit check failed, allowing request")
		return true, limit - 1, now + seconds
	}

	if len(result) != 3 {
		log.Warn().Str("key", key).Msg("unexpected redis rate limit result")
		return true, limit - 1, now + seconds
	}

	return result[0] == 1, int(result[1]), result[2]
}

// UserRateLimitMiddleware limits authenticated callers per user id. It must run
// after AuthMiddleware.
type UserRateLimitMiddleware struct {
	limiter Limiter
	limit   int
}

func NewUserRateLimitMiddleware(limiter Limiter, limit int) *UserRateLimitMiddleware {
	return &UserRateLimitMiddleware{limiter: limiter, limit: limit}
}

func (m *UserRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := GetUserID(r.Context())
		if userID == "" || m.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, resetAt := m.limiter.Check(r.Context(), "user:"+userID, m.limit, rateLimitWindow)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))

		if !allowed {
			log.Warn().Str("userId", userID).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", retryAfter(resetAt))
			writeError(w, apperrors.RateLimitExceeded())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func retryAfter(resetAt int64) string {
	secs := resetAt - time.Now().Unix()
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

var _ Limiter = (*RedisRateLimiter)(nil)

func auditRateLimit(r *http.Request, scope string) {
	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventRateLimitExceed,
		Details: map[string]interface{}{"scope": scope, "path": r.URL.Path},
	})
}
