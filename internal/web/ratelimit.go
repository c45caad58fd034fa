// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package web

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default limits for the credential endpoints.
const (
	// DefaultBurst is how many signin or register attempts a client can
	// make back to back.
	DefaultBurst = 10

	// DefaultPerSecond is the sustained attempt rate per client.
	DefaultPerSecond = 0.5

	// MinPerSecond keeps the cooldown bounded.
	MinPerSecond = 0.01

	// DefaultCleanupInterval is how often idle clients are forgotten.
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultClientMaxAge is how long an idle client bucket is kept.
	DefaultClientMaxAge = time.Hour
)

// RateLimiterConfig configures a RateLimiter. Zero fields take defaults.
type RateLimiterConfig struct {
	Burst           int
	PerSecond       float64
	CleanupInterval time.Duration
	ClientMaxAge    time.Duration
}

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// RateLimiter keeps one token bucket per client. It is safe for concurrent use.
//
// A background goroutine drops idle clients; call Close to stop it.
type RateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*limiterEntry
	burst        int
	limit        rate.Limit
	clientMaxAge time.Duration
	now          func() time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRateLimiter creates a limiter and starts its cleanup goroutine.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	perSecond := cfg.PerSecond
	if perSecond <= 0 {
		perSecond = DefaultPerSecond
	}
	perSecond = max(perSecond, MinPerSecond)

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	maxAge := cfg.ClientMaxAge
	if maxAge <= 0 {
		maxAge = DefaultClientMaxAge
	}

	rl := &RateLimiter{
		clients:      make(map[string]*limiterEntry),
		burst:        burst,
		limit:        rate.Limit(perSecond),
		clientMaxAge: maxAge,
		now:          time.Now,
		stopChan:     make(chan struct{}),
	}
	rl.wg.Add(1)
	go rl.cleanupLoop(cleanupInterval)
	return rl
}

// Allow consumes one token for key. When no token is available it returns
// false and the wait until the next one.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.clients[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = e
	}
	e.lastUse = now

	r := e.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		// Rejected attempts must not eat into future tokens.
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// ClientCount returns the number of tracked clients.
func (rl *RateLimiter) ClientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Cleanup forgets clients idle for longer than maxAge.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-maxAge)
	for key, e := range rl.clients {
		if e.lastUse.Before(threshold) {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer rl.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.Cleanup(rl.clientMaxAge)
		}
	}
}

// Close stops the cleanup goroutine and waits for it to exit.
func (rl *RateLimiter) Close() {
	close(rl.stopChan)
	rl.wg.Wait()
}

// clientKey identifies the caller by remote IP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limit rejects credential attempts from clients over their budget.
func (h *Handler) limit(next http.Handler) http.Handler {
	if h.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, wait := h.limiter.Allow(clientKey(r))
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			h.writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Code:    codeRateLimited,
				Message: errorMessages[codeRateLimited],
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
