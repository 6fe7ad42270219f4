package web

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/weddingplanner/internal/logging"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const rateWindow = time.Minute

var errRateLimited = errors.New("rate limit exceeded")

// rateLimiter limits requests per client IP with a memory store.
type rateLimiter struct {
	limiter *limiter.Limiter
	now     func() time.Time
}

func newRateLimiter(requests int, window time.Duration) *rateLimiter {
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "guest_import",
		CleanUpInterval: window,
	})
	return &rateLimiter{
		limiter: limiter.New(store, limiter.Rate{Period: window, Limit: int64(requests)}),
		now:     time.Now,
	}
}

// middleware rate limits by client IP. RemoteAddr has already been
// rewritten by TrustedRealIP when the request came through a trusted proxy.
// A store failure lets the request through.
func (rl *rateLimiter) middleware(respond func(http.ResponseWriter, *http.Request, error, int)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, err := rl.limiter.Get(r.Context(), clientIP(r))
			if err != nil {
				logging.FromContext(r.Context()).Warn("rate limiter store failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(state.Remaining, 10))
			if state.Reached {
				w.Header().Set("Retry-After", strconv.FormatInt(rl.retryAfter(state.Reset), 10))
				respond(w, r, errRateLimited, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter converts the window reset (unix seconds) into whole seconds
// from now, never less than one.
func (rl *rateLimiter) retryAfter(reset int64) int64 {
	if wait := reset - rl.now().Unix(); wait > 1 {
		return wait
	}
	return 1
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
