package server

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// clientLimiters tracks one token bucket per client address.
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newClientLimiters(perMinute int) *clientLimiters {
	return &clientLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
	}
}

func (c *clientLimiters) get(client string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[client]
	if !ok {
		l = rate.NewLimiter(c.limit, c.burst)
		c.limiters[client] = l
	}
	return l
}

// rateLimit limits each client to perMinute requests per minute, with a
// burst of the full minute budget. Zero disables the limit.
func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiters := newClientLimiters(perMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				client = r.RemoteAddr
			}
			if !limiters.get(client).Allow() {
				s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
