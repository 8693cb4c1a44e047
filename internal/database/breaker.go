package database

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apperr"
)

// breaker wraps gobreaker around datastore calls so a flapping database
// fails fast as unavailable instead of queueing callers. There are no
// retries anywhere in this flow; the breaker only shortens the failure path.
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(config *Config) *breaker {
	maxFailures := config.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := time.Duration(config.BreakerTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:    "entity-store",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A miss is a normal outcome, not a sign of connectivity trouble.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, sql.ErrNoRows)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	return &breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breaker) execute(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) { return nil, fn() })
	return err
}

// classify maps raw datastore errors onto the error taxonomy. Point-read
// misses become not-found, deadline expiry becomes timeout, and everything
// else on the transport path (including an open breaker and a handle closed
// mid-flight) becomes unavailable. Errors that already carry a kind pass
// through unchanged.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case apperr.KindOf(err) != apperr.KindUnknown:
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	case errors.Is(err, sql.ErrNoRows):
		return apperr.Wrap(apperr.KindNotFound, op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.KindTimeout, op, err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	default:
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	}
}
