package shroudlib

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter limits a rate of new connections from the same IP address.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	lastUsed map[string]time.Time
	mu       sync.RWMutex
	r        rate.Limit
	b        int
	cleanup  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a new rate limiter. r is a count of connections
// per second, b is a burst size. Limiters of IPs which were not seen for
// 2 cleanup periods are dropped.
func NewRateLimiter(r rate.Limit, b int, cleanup time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastUsed: make(map[string]time.Time),
		r:        r,
		b:        b,
		cleanup:  cleanup,
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow checks if a new connection from the given IP should be allowed.
func (rl *RateLimiter) Allow(ip net.IP) bool {
	return rl.allowAt(ip, time.Now())
}

func (rl *RateLimiter) allowAt(ip net.IP, now time.Time) bool {
	// string(ip) дешевле ip.String(): сырые 4/16 байт без форматирования.
	key := string(ip.To16())

	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()

		if limiter, exists = rl.limiters[key]; !exists {
			limiter = rate.NewLimiter(rl.r, rl.b)
			rl.limiters[key] = limiter
		}

		rl.lastUsed[key] = now
		rl.mu.Unlock()
	}

	return limiter.AllowN(now, 1)
}

// Size returns a count of tracked IP addresses.
func (rl *RateLimiter) Size() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return len(rl.limiters)
}

// Stop stops the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case now := <-ticker.C:
			rl.prune(now)
		}
	}
}

func (rl *RateLimiter) prune(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, lastUsed := range rl.lastUsed {
		if now.Sub(lastUsed) > rl.cleanup*2 {
			delete(rl.limiters, key)
			delete(rl.lastUsed, key)
		}
	}
}
