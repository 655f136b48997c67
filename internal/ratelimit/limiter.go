// Package ratelimit throttles outbound requests to upstream book APIs.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/bookfinder/internal/metrics"
	"golang.org/x/time/rate"
)

// slowWait is the wait after which a limiter logs that it held a request.
const slowWait = time.Second

// Limiter is a named token bucket. Waits are recorded per name.
type Limiter struct {
	name   string
	bucket *rate.Limiter
}

// New allows perSecond requests a second with a burst of the same size.
func New(name string, perSecond int) *Limiter {
	return &Limiter{name: name, bucket: rate.NewLimiter(rate.Limit(perSecond), perSecond)}
}

// Every allows one request per interval after an initial burst, for quotas
// stated per minute such as the NYT Books API.
func Every(name string, interval time.Duration, burst int) *Limiter {
	return &Limiter{name: name, bucket: rate.NewLimiter(rate.Every(interval), max(burst, 1))}
}

// Unlimited never blocks.
func Unlimited(name string) *Limiter {
	return &Limiter{name: name, bucket: rate.NewLimiter(rate.Inf, 0)}
}

// Wait blocks until a request may go out. It fails early when ctx ends or
// its deadline would pass before a token is available.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}

	waited := time.Since(start)
	metrics.RateLimitWait.WithLabelValues(l.name).Observe(waited.Seconds())
	if waited >= slowWait {
		slog.Debug("Rate limiter delayed request", "limiter", l.name, "waited", waited)
	}
	return nil
}

// Allow takes a token if one is available right now.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}

func (l *Limiter) Name() string {
	return l.name
}
