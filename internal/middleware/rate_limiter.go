package middleware

import (
	"net/http"
	"sync"
	"time"

	"tablepos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ── Per-IP token buckets ──────────────────────────────────────────────────────

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter holds one token bucket per client IP.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

// NewIPLimiter allows rps requests per second per IP with the given burst.
func NewIPLimiter(rps float64, burst int) *IPLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPLimiter{visitors: make(map[string]*visitor), rps: rate.Limit(rps), burst: burst}
}

func (l *IPLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Allow reports whether ip may make a request now.
func (l *IPLimiter) Allow(ip string) bool { return l.get(ip).Allow() }

// Purge drops buckets idle for longer than idle and returns how many went.
func (l *IPLimiter) Purge(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, v := range l.visitors {
		if time.Since(v.lastSeen) > idle {
			delete(l.visitors, ip)
			n++
		}
	}
	return n
}

// Middleware rejects requests over the limit with 429.
func (l *IPLimiter) Middleware(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// ── Shared limiters ───────────────────────────────────────────────────────────

const purgeInterval = 5 * time.Minute

// loginLimiter allows a burst of 20 login attempts, refilled at one every 3s.
var loginLimiter = NewIPLimiter(1.0/3, 20)

// LoginRateLimiter guards the credential endpoints.
func LoginRateLimiter() gin.HandlerFunc {
	return loginLimiter.Middleware("too many login attempts, try again in a minute")
}

// RateLimiter is the general API limiter. Idle buckets are purged in the
// background for the life of the process.
func RateLimiter(rps float64, burst int) gin.HandlerFunc {
	l := NewIPLimiter(rps, burst)
	go purgeLoop(l)
	return l.Middleware("too many requests, try again shortly")
}

func init() {
	go purgeLoop(loginLimiter)
}

func purgeLoop(l *IPLimiter) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for range ticker.C {
		if n := l.Purge(purgeInterval); n > 0 {
			log.Debug().Int("entries_purged", n).Msg("rate limiter purged")
		}
	}
}
