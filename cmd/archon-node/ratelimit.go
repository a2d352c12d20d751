package main

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/archon-systems/archon-core/pkg/apiproblem"
	"github.com/archon-systems/archon-core/pkg/archerr"
	"golang.org/x/time/rate"
)

// globalRateLimiter enforces a per-client-IP token bucket in front of
// the whole HTTP API, one limiter per IP created lazily on first
// request and reclaimed once idle.
type globalRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newGlobalRateLimiter builds a limiter allowing rps requests per
// second per IP with the given burst, and starts its background
// cleanup goroutine.
func newGlobalRateLimiter(rps float64, burst int) *globalRateLimiter {
	rl := &globalRateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	go rl.cleanupVisitors()
	return rl
}

func (rl *globalRateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		limiter := rate.NewLimiter(rl.rps, rl.burst)
		rl.visitors[ip] = &visitor{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupVisitors reclaims limiters idle past three minutes, checked
// once a minute, so the visitor map stays bounded by recent traffic
// rather than growing with every IP the node has ever seen.
func (rl *globalRateLimiter) cleanupVisitors() {
	for {
		time.Sleep(time.Minute)
		rl.evictIdleVisitors()
	}
}

// evictIdleVisitors is one cleanup pass: it drops every visitor whose
// last request is more than three minutes old.
func (rl *globalRateLimiter) evictIdleVisitors() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if time.Since(v.lastSeen) > 3*time.Minute {
			delete(rl.visitors, ip)
		}
	}
}

// Middleware rejects requests past the per-IP rate with 429, a backstop
// against a runaway client or misbehaving federation peer independent
// of whatever the contract engine admits at the application layer.
func (rl *globalRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = strings.TrimSuffix(strings.TrimPrefix(r.RemoteAddr, "["), "]")
		}
		if !rl.getVisitor(ip).Allow() {
			apiproblem.Write(w, r, archerr.New(archerr.RateLimited, "api.rate_limited", "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
