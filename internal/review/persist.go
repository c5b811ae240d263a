package review

import (
	"context"
	"errors"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
)

// RetryPolicy bounds how hard the coordinator tries to make a transition
// durable before reporting it as failed.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy starts at 200ms and doubles up to 5s, three attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 200 * time.Millisecond, MaxBackoff: 5 * time.Second}
}

// persist writes the event's new state and waits for the gateway. Transient
// failures are retried with exponential backoff; a missing record is not.
func (c *Coordinator) persist(ctx context.Context, id domain.EventID, state string, at time.Time) error {
	start := time.Now()
	defer func() { c.metrics.PersistDuration.Observe(time.Since(start).Seconds()) }()

	maxAttempts := max(c.retry.MaxAttempts, 1)
	backoff := c.retry.InitialBackoff

	var lastErr error
	attempts := 0
	for attempts < maxAttempts {
		attempts++
		c.metrics.PersistAttempts.Inc()

		err := c.gateway.UpdateState(ctx, id, state, at)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, domain.ErrNotFound) || ctx.Err() != nil || attempts == maxAttempts {
			break
		}
		c.logger.Warn("state write failed, retrying",
			"event_id", id,
			"state", state,
			"attempt", attempts,
			"backoff", backoff,
			"error", err,
		)
		if !c.sleep(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, c.retry.MaxBackoff)
	}

	c.metrics.PersistFailures.Inc()
	return &PersistenceError{EventID: id, State: state, Attempts: attempts, Err: lastErr}
}

// sleep waits d on the coordinator's clock, returning false if ctx ends first.
func (c *Coordinator) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
