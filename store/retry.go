package store

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/vehicledb"
)

// RetryPolicy controls how the store retries transient backend
// failures. It is injected at construction; the zero value disables
// retries entirely.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int
	// BaseDelayMs is the base delay between attempts in milliseconds
	BaseDelayMs int
	// Backoff is the delay strategy ("LINEAR", "EXPONENTIAL", "NONE")
	Backoff string
}

// DefaultRetryPolicy retries transient failures twice with linear backoff
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelayMs: 200,
	Backoff:     "LINEAR",
}

// isTransient reports whether an error is worth retrying. Conditional
// check failures and transaction cancellations are never transient:
// they carry the outcome of a uniqueness or atomicity decision.
func isTransient(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	if errors.As(err, &throughput) {
		return true
	}
	var internal *types.InternalServerError
	if errors.As(err, &internal) {
		return true
	}
	var requestLimit *types.RequestLimitExceeded
	if errors.As(err, &requestLimit) {
		return true
	}
	var limit *types.LimitExceededException
	return errors.As(err, &limit)
}

// withRetry runs fn, retrying transient failures per the policy.
// Cancellation of ctx aborts between attempts.
func (d *DBDataAccess) withRetry(ctx context.Context, operation string, fn func() error) error {
	attempts := d.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if delay := vehicledb.CalculateBackoff(d.retry.BaseDelayMs, attempt, d.retry.Backoff); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		vehicledb.LogStoreError(d.logger, operation, err)
	}
	return err
}
