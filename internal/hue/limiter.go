package hue

import (
	"sync"

	"golang.org/x/time/rate"
)

// DefaultRateLimitRPS is the write rate a bridge handles without dropping commands.
const DefaultRateLimitRPS = 10.0

// Limiters hands out one write limiter per bridge address, so every client
// of a bridge shares the same budget.
type Limiters struct {
	mu     sync.Mutex
	rps    float64
	byAddr map[string]*rate.Limiter
}

// NewLimiters creates a registry allowing rps writes per second per bridge.
func NewLimiters(rps float64) *Limiters {
	if rps <= 0 {
		rps = DefaultRateLimitRPS
	}
	return &Limiters{
		rps:    rps,
		byAddr: make(map[string]*rate.Limiter),
	}
}

// For returns the limiter of a bridge, creating it on first use.
func (l *Limiters) For(address string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.byAddr[address]
	if !ok {
		burst := int(l.rps)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(l.rps), burst)
		l.byAddr[address] = lim
	}
	return lim
}
