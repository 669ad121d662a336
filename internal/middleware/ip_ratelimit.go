package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/skillswap/exchange-server-go/internal/audit"
	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
)

// IPRateLimitMiddleware limits anonymous endpoints such as login per client IP.
type IPRateLimitMiddleware struct {
	limiter Limiter
	limit   int
	window  time.Duration
	prefix  string
}

func NewIPRateLimitMiddleware(limiter Limiter, limit int, window time.Duration, prefix string) *IPRateLimitMiddleware {
	return &IPRateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
	}
}

func (m *IPRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("ip:%s:%s", m.prefix, audit.ClientIP(r))
		allowed, _, resetAt := m.limiter.Check(r.Context(), key, m.limit, m.window)

		if !allowed {
			auditRateLimit(r, m.prefix)
			w.Header().Set("Retry-After", retryAfter(resetAt))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
			writeError(w, apperrors.New(apperrors.ErrCodeRateLimitExceeded, "Too many attempts. Please try again later."))
			return
		}

		next.ServeHTTP(w, r)
	})
}
