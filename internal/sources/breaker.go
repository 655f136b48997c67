package sources

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/metrics"
	"github.com/sony/gobreaker/v2"
)

const (
	// breakerFailures is the number of consecutive failures that opens a breaker.
	breakerFailures = 5
	// breakerCooldown is how long an open breaker rejects calls before probing.
	breakerCooldown = 60 * time.Second
)

// breaker guards one upstream. An open breaker fails calls immediately.
type breaker struct {
	cb *gobreaker.CircuitBreaker[[]book.Record]
}

func newBreaker(name string) *breaker {
	metrics.RecordBreakerState(name, gobreaker.StateClosed)

	return &breaker{
		cb: gobreaker.NewCircuitBreaker[[]book.Record](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     breakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailures
			},
			// the caller giving up says nothing about the upstream
			IsSuccessful: func(err error) bool {
				return err == nil || stderrors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("Circuit breaker state change", "source", name, "from", from.String(), "to", to.String())
				metrics.RecordBreakerState(name, to)
			},
		}),
	}
}

func (b *breaker) execute(fn func() ([]book.Record, error)) ([]book.Record, error) {
	return b.cb.Execute(fn)
}

func (b *breaker) state() gobreaker.State {
	return b.cb.State()
}
