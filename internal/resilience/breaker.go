// Package resilience wraps outbound calls in circuit breakers.
package resilience

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"budgetfamille/internal/log"
)

// StateObserver receives breaker state changes, e.g. metrics.SetBreakerState.
type StateObserver func(name string, state int)

// NewCircuitBreaker trips after at least five calls in a 30s window with a
// failure ratio of 60% or more, and lets a trial request through after timeout.
func NewCircuitBreaker(name string, timeout time.Duration, observe StateObserver) *gobreaker.CircuitBreaker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && ratio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				log.FieldComponent, log.ComponentResilience,
				"breaker", name,
				"from", from.String(),
				"to", to.String())
			if observe != nil {
				observe(name, int(to))
			}
		},
	})
}
