package vehicledb

import (
	"github.com/rs/zerolog"
)

// Log event names
const (
	// Account events
	EventUserCreated     = "user_created"
	EventSessionCreated  = "session_created"
	EventSessionsRevoked = "sessions_revoked"
	EventPasswordChanged = "password_changed"

	// Vehicle events
	EventVehicleAdded   = "vehicle_added"
	EventVehicleUpdated = "vehicle_updated"

	// Fee events
	EventFeePaid       = "fee_paid"
	EventHistoryUndone = "history_undone"

	// Persistence events
	EventStoreError = "store_error"
)

// LogUserCreated logs a successful signup
func LogUserCreated(logger zerolog.Logger, username string) {
	logger.Info().
		Str("event", EventUserCreated).
		Str("username", username).
		Msg("User created")
}

// LogSessionCreated logs a successful login
func LogSessionCreated(logger zerolog.Logger, username string) {
	logger.Info().
		Str("event", EventSessionCreated).
		Str("username", username).
		Msg("Session created")
}

// LogSessionsRevoked logs a bulk session revocation
func LogSessionsRevoked(logger zerolog.Logger, username string, count int) {
	logger.Info().
		Str("event", EventSessionsRevoked).
		Str("username", username).
		Int("count", count).
		Msg("Sessions revoked")
}

// LogVehicleAdded logs a vehicle registration
func LogVehicleAdded(logger zerolog.Logger, vehicleNo, owner string) {
	logger.Info().
		Str("event", EventVehicleAdded).
		Str("vehicle_no", vehicleNo).
		Str("owner", owner).
		Msg("Vehicle added")
}

// LogVehicleUpdated logs an administrative vehicle correction
func LogVehicleUpdated(logger zerolog.Logger, vehicleNo string) {
	logger.Info().
		Str("event", EventVehicleUpdated).
		Str("vehicle_no", vehicleNo).
		Msg("Vehicle updated")
}

// LogFeePaid logs a completed fee payment
func LogFeePaid(logger zerolog.Logger, vehicleNo string, feeType FeeType, payer string) {
	logger.Info().
		Str("event", EventFeePaid).
		Str("vehicle_no", vehicleNo).
		Str("fee_type", feeType.String()).
		Str("payer", payer).
		Msg("Fee paid")
}

// LogHistoryUndone logs an undone payment
func LogHistoryUndone(logger zerolog.Logger, vehicleNo string, feeType FeeType) {
	logger.Info().
		Str("event", EventHistoryUndone).
		Str("vehicle_no", vehicleNo).
		Str("fee_type", feeType.String()).
		Msg("History undone")
}

// LogStoreError logs errors from the backing store
func LogStoreError(logger zerolog.Logger, operation string, err error) {
	logger.Error().
		Str("event", EventStoreError).
		Str("operation", operation).
		Err(err).
		Msg("Store error")
}
