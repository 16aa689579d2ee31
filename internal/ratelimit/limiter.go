package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// SupplierLimiter throttles outbound calls per supplier so a burst of
// search traffic cannot exceed the rate a supplier allows us.
type SupplierLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	defaults Config
}

type Config struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10,
		BurstSize:         20,
	}
}

func NewSupplierLimiter(cfg Config) *SupplierLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg = DefaultConfig()
	}
	return &SupplierLimiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: cfg,
	}
}

// SetLimit overrides the default rate for one supplier.
func (l *SupplierLimiter) SetLimit(supplier string, rps float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.limiters[supplier] = rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks until the supplier's token bucket admits one call or the
// context is cancelled.
func (l *SupplierLimiter) Wait(ctx context.Context, supplier string) error {
	return l.limiterFor(supplier).Wait(ctx)
}

func (l *SupplierLimiter) limiterFor(supplier string) *rate.Limiter {
	l.mu.RLock()
	lim, exists := l.limiters[supplier]
	l.mu.RUnlock()

	if exists {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, exists = l.limiters[supplier]; exists {
		return lim
	}

	lim = rate.NewLimiter(rate.Limit(l.defaults.RequestsPerSecond), l.defaults.BurstSize)
	l.limiters[supplier] = lim
	return lim
}
