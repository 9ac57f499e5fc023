package server

import (
	"net/http"
	"sync"
	"time"

	"agentsouk/internal/api"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Buckets idle longer than this are dropped by the pruner.
const clientIdleTTL = 3 * time.Minute

// throttle hands out one token bucket per client IP.
type throttle struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	limit   rate.Limit
	burst   int
}

type clientBucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

func newThrottle(rps float64, burst int) *throttle {
	t := &throttle{
		buckets: make(map[string]*clientBucket),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
	go t.prune(time.Minute)
	return t
}

func (t *throttle) prune(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-clientIdleTTL)
		t.mu.Lock()
		for ip, b := range t.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(t.buckets, ip)
			}
		}
		t.mu.Unlock()
	}
}

func (t *throttle) allow(ip string) bool {
	t.mu.Lock()
	b, ok := t.buckets[ip]
	if !ok {
		b = &clientBucket{tokens: rate.NewLimiter(t.limit, t.burst)}
		t.buckets[ip] = b
	}
	b.lastSeen = time.Now()
	t.mu.Unlock()

	return b.tokens.Allow()
}

// RateLimit throttles by client IP. Limits come from configuration. Routes
// the payment processor calls back on must be registered outside the
// throttled groups, since the processor retries failed deliveries in bursts.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	t := newThrottle(rps, burst)

	return func(c *gin.Context) {
		if !t.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, api.ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
