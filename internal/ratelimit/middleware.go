package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-yard/internal/common"
)

// Middleware throttles requests per client IP using a Redis-backed limiter.
type Middleware struct {
	Limiter *limiter.Limiter
	// OnError is invoked when the limiter backend fails; the request is
	// allowed through so Redis outages do not take the API down.
	OnError func(error)
}

// PerMinute builds a rate of n requests per minute.
func PerMinute(n int) limiter.Rate {
	return limiter.Rate{Period: time.Minute, Limit: int64(n)}
}

// New wires a limiter middleware backed by Redis.
func New(rdb *redis.Client, rate limiter.Rate) (*Middleware, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "ratelimit"})
	if err != nil {
		return nil, err
	}
	return &Middleware{Limiter: limiter.New(store, rate)}, nil
}

// Handle enforces the limit before delegating to the next handler.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		lctx, err := m.Limiter.Get(r.Context(), common.ClientIP(r))
		if err != nil {
			if m.OnError != nil {
				m.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			retryAfter := lctx.Reset - time.Now().Unix()
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
