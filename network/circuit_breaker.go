package network

import (
	"context"
	"sync"
	"time"

	"github.com/akab00m/shroud/essentials"
)

// cooldownDialer is a 2-state circuit breaker: available and cooldown.
//
// After openThreshold consecutive failures a dialer is not used for
// reconnectTimeout. Any success resets the counter.
type cooldownDialer struct {
	Dialer

	mu               sync.Mutex
	failuresCount    uint32
	cooldownUntil    time.Time
	openThreshold    uint32
	reconnectTimeout time.Duration
}

func (c *cooldownDialer) Dial(network, address string) (essentials.Conn, error) {
	return c.DialContext(context.Background(), network, address)
}

func (c *cooldownDialer) DialContext(ctx context.Context,
	network, address string,
) (essentials.Conn, error) {
	if c.inCooldown(time.Now()) {
		return nil, ErrCircuitBreakerOpened
	}

	conn, err := c.Dialer.DialContext(ctx, network, address)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if conn != nil {
			conn.Close()
		}

		return nil, ctxErr //nolint: wrapcheck
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.failuresCount = 0
		c.cooldownUntil = time.Time{}

		return conn, nil
	}

	c.failuresCount++

	if c.failuresCount >= c.openThreshold {
		c.cooldownUntil = time.Now().Add(c.reconnectTimeout)
		c.failuresCount = 0
	}

	return conn, err //nolint: wrapcheck
}

func (c *cooldownDialer) inCooldown(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.cooldownUntil.IsZero() && now.Before(c.cooldownUntil)
}

func newCooldownDialer(baseDialer Dialer,
	openThreshold uint32, reconnectTimeout time.Duration,
) Dialer {
	return &cooldownDialer{
		Dialer:           baseDialer,
		openThreshold:    openThreshold,
		reconnectTimeout: reconnectTimeout,
	}
}
