package vehicledb

import "context"

// DataAccess is the capability interface consumed by the request
// handlers. It is defined here rather than in the store package so
// implementations and consumers can both depend on the root package
// without import cycles.
//
// Implementations:
//   - store.DBDataAccess: DynamoDB single-table backend
//   - store.MemoryDataAccess: in-memory backend for testing
type DataAccess interface {
	// Users
	CreateUser(ctx context.Context, user User) error
	Authenticate(ctx context.Context, user User) (*Session, error)
	ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error

	// Sessions
	RevokeSessions(ctx context.Context, token string) (string, error)

	// Vehicles
	AddVehicle(ctx context.Context, token string, vehicle Vehicle) error
	ListVehicles(ctx context.Context, token string) ([]Vehicle, error)
	ListVehiclesByFee(ctx context.Context, token string, feeType FeeType, due DueFilter) ([]Vehicle, error)
	SearchVehicles(ctx context.Context, token, fragment string) ([]string, error)

	// Fee payments
	PayFee(ctx context.Context, token string, feeType FeeType, update VehicleUpdate) error
	UpdateVehicle(ctx context.Context, token string, update VehicleUpdate) error

	// History
	ViewHistory(ctx context.Context, token string, days int) ([]TransactionHistory, error)
	UndoHistory(ctx context.Context, token string, record TransactionHistory) error
}
