// Package breaker guards the catalog store and event log with circuit
// breakers so a failing backend is shed quickly instead of stalling every
// query until its timeout.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"catalog-discovery/metrics"
)

// ErrOpen is returned when a call is rejected without reaching the backend.
var ErrOpen = errors.New("circuit breaker open")

// Settings tunes when a breaker opens and recovers.
type Settings struct {
	// MinRequests is the number of calls in an interval before the failure
	// ratio is considered.
	MinRequests  uint32
	FailureRatio float64
	// Interval resets the counts while closed.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
}

// DefaultSettings opens after 60% failures over at least 10 calls a minute
// and probes again after 30 seconds.
func DefaultSettings() Settings {
	return Settings{
		MinRequests:  10,
		FailureRatio: 0.6,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MaxRequests:  3,
	}
}

// Breaker is a named circuit breaker.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
	log  *zap.SugaredLogger
}

// New creates a breaker.
func New(name string, st Settings, log *zap.SugaredLogger) *Breaker {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	metrics.BreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: st.MaxRequests,
		Interval:    st.Interval,
		Timeout:     st.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < st.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= st.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("Circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		// A caller giving up is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{name: name, cb: cb, log: log}
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}

// call runs fn through the breaker and casts its result.
func call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.BreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return zero, fmt.Errorf("%w: %s: %w", ErrOpen, b.name, err)
		}
		metrics.BreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return zero, err
	}
	metrics.BreakerRequests.WithLabelValues(b.name, "success").Inc()
	typed, ok := result.(T)
	if !ok && result != nil {
		return zero, fmt.Errorf("circuit breaker %s: unexpected result type %T", b.name, result)
	}
	return typed, nil
}
