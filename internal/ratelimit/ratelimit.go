package ratelimit

import (
	"sync"
	"time"

	"newsrelay/internal/logger"
)

// Budget caps the number of model requests per day. An exhausted budget is
// reported to the gateway as a rate-limit-class failure so the usual
// fallback/propagation rules apply without a provider round trip.
type Budget struct {
	mu        sync.Mutex
	count     int
	max       int // 0 = unlimited
	resetTime time.Time
}

func NewBudget(maxPerDay int) *Budget {
	return &Budget{
		max:       maxPerDay,
		resetTime: time.Now().Add(24 * time.Hour),
	}
}

// Allow reports whether another model request fits in today's budget.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.max > 0 && b.count >= b.max {
		logger.Warn("model request budget exhausted", "used", b.count, "max", b.max)
		return false
	}
	return true
}

// Record counts one model request against the budget.
func (b *Budget) Record() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	b.count++
}

func (b *Budget) checkReset() {
	if time.Now().After(b.resetTime) {
		logger.Info("model request budget reset", "used", b.count)
		b.count = 0
		b.resetTime = time.Now().Add(24 * time.Hour)
	}
}

// Stats returns current usage for the metrics endpoint.
func (b *Budget) Stats() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]int{
		"used": b.count,
		"max":  b.max,
	}
}
