package store

import (
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/sicko7947/vehicledb"
)

// DBDataAccess implements vehicledb.DataAccess against a single
// DynamoDB table. It holds no mutable state beyond the client handle
// and table name, so one instance serves unbounded concurrent callers.
type DBDataAccess struct {
	client    DynamoDBClient
	tableName string
	logger    zerolog.Logger
	retry     RetryPolicy
	now       func() time.Time
}

// Verify the interface is fully implemented
var _ vehicledb.DataAccess = (*DBDataAccess)(nil)

// Option configures a DBDataAccess
type Option func(*DBDataAccess)

// WithLogger sets the structured logger (default: no-op)
func WithLogger(logger zerolog.Logger) Option {
	return func(d *DBDataAccess) {
		d.logger = logger
	}
}

// WithRetryPolicy sets the transient-error retry policy
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(d *DBDataAccess) {
		d.retry = policy
	}
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(d *DBDataAccess) {
		d.now = now
	}
}

// NewDBDataAccess creates a DynamoDB-backed DataAccess over the given
// client and table
func NewDBDataAccess(client DynamoDBClient, tableName string, opts ...Option) *DBDataAccess {
	d := &DBDataAccess{
		client:    client,
		tableName: tableName,
		logger:    zerolog.Nop(),
		retry:     DefaultRetryPolicy,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// conditionFailed reports whether err is a lost conditional write,
// either directly or as the cancellation reason of a transaction
func conditionFailed(err error) bool {
	var check *types.ConditionalCheckFailedException
	if errors.As(err, &check) {
		return true
	}
	var cancelled *types.TransactionCanceledException
	if errors.As(err, &cancelled) {
		for _, reason := range cancelled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}

// classify maps a raw store error onto the error taxonomy. Lost
// conditional writes on create paths are conflicts; everything else
// is a store failure.
func classify(err error, conflictMsg string) error {
	if conditionFailed(err) {
		return vehicledb.WrapError(vehicledb.ErrCodeConflict, conflictMsg, err)
	}
	return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "store request failed", err)
}
