package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sicko7947/vehicledb"
	"github.com/sicko7947/vehicledb/auth"
)

// MemoryDataAccess implements vehicledb.DataAccess using in-memory
// storage, for deterministic tests of the coordinator's atomicity
// logic. Session expiry is emulated at lookup time, mirroring the
// store-side TTL reclamation.
type MemoryDataAccess struct {
	users         map[string]memoryUser
	sessions      map[string]memorySession                             // token -> session
	vehicles      map[string]vehicledb.Vehicle                         // normalized plate -> vehicle
	searchEntries map[string]string                                    // normalized plate -> canonical plate
	history       map[string]map[string]vehicledb.TransactionHistory   // normalized plate -> SK -> record
	now           func() time.Time
	transactFault error
	mu            sync.RWMutex
}

type memoryUser struct {
	digest string
	phone  string
}

type memorySession struct {
	username  string
	expiredAt time.Time
}

// Verify the interface is fully implemented
var _ vehicledb.DataAccess = (*MemoryDataAccess)(nil)

// NewMemoryDataAccess creates a new in-memory DataAccess
func NewMemoryDataAccess() *MemoryDataAccess {
	return &MemoryDataAccess{
		users:         make(map[string]memoryUser),
		sessions:      make(map[string]memorySession),
		vehicles:      make(map[string]vehicledb.Vehicle),
		searchEntries: make(map[string]string),
		history:       make(map[string]map[string]vehicledb.TransactionHistory),
		now:           time.Now,
	}
}

// SetClock overrides the time source, for tests
func (m *MemoryDataAccess) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// FailNextTransaction makes the next transactional write (vehicle
// create, fee payment, vehicle update, undo) fail with err before any
// state changes, emulating a transaction rejected by the backend.
func (m *MemoryDataAccess) FailNextTransaction(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactFault = err
}

// takeFault consumes a pending transaction fault. Caller holds the lock.
func (m *MemoryDataAccess) takeFault() error {
	fault := m.transactFault
	m.transactFault = nil
	return fault
}

// resolveToken validates a session token. Caller holds at least a
// read lock. Expired sessions are treated as absent.
func (m *MemoryDataAccess) resolveToken(token string) (string, error) {
	session, ok := m.sessions[token]
	if !ok || !m.now().Before(session.expiredAt) {
		return "", vehicledb.NewError(vehicledb.ErrCodeUnauthorized, "invalid or expired session")
	}
	return session.username, nil
}

// Users

func (m *MemoryDataAccess) CreateUser(ctx context.Context, user vehicledb.User) error {
	if user.Username == "" || user.Password == "" {
		return vehicledb.NewError(vehicledb.ErrCodeValidation, "username and password are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.Username]; exists {
		return vehicledb.NewError(vehicledb.ErrCodeConflict, fmt.Sprintf("user %s already exists", user.Username))
	}

	digest, err := auth.HashPassword(user.Password)
	if err != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to hash password", err)
	}
	m.users[user.Username] = memoryUser{digest: digest, phone: user.Phone}
	return nil
}

func (m *MemoryDataAccess) Authenticate(ctx context.Context, user vehicledb.User) (*vehicledb.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.users[user.Username]
	if !exists || !auth.VerifyPassword(user.Password, stored.digest) {
		return nil, vehicledb.NewError(vehicledb.ErrCodeUnauthorized, "invalid credentials")
	}

	now := m.now()
	session := &vehicledb.Session{
		Token:     uuid.NewString(),
		Username:  user.Username,
		CreatedAt: now,
		ExpiredAt: now.Add(vehicledb.SessionDuration),
	}
	m.sessions[session.Token] = memorySession{username: user.Username, expiredAt: session.ExpiredAt}
	return session, nil
}

func (m *MemoryDataAccess) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error {
	if newPassword == "" {
		return vehicledb.NewError(vehicledb.ErrCodeValidation, "new password is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	username, err := m.resolveToken(token)
	if err != nil {
		return err
	}

	stored := m.users[username]
	if !auth.VerifyPassword(oldPassword, stored.digest) {
		return vehicledb.NewError(vehicledb.ErrCodeUnauthorized, "invalid credentials")
	}

	digest, err := auth.HashPassword(newPassword)
	if err != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to hash password", err)
	}
	stored.digest = digest
	m.users[username] = stored
	return nil
}

// Sessions

func (m *MemoryDataAccess) RevokeSessions(ctx context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	username, err := m.resolveToken(token)
	if err != nil {
		return "", err
	}

	for t, session := range m.sessions {
		if session.username == username {
			delete(m.sessions, t)
		}
	}
	return username, nil
}

// Vehicles

func (m *MemoryDataAccess) AddVehicle(ctx context.Context, token string, vehicle vehicledb.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.resolveToken(token); err != nil {
		return err
	}

	if vehicle.VehicleNo == "" || vehicle.Owner == "" {
		return vehicledb.NewError(vehicledb.ErrCodeValidation, "vehicle_no and owner are required")
	}
	for _, feeType := range vehicledb.FeeTypes() {
		date, err := vehicledb.CanonicalDate(vehicle.FeeDate(feeType))
		if err != nil {
			return err
		}
		vehicle.SetFeeDate(feeType, date)
	}

	plate := vehicledb.NormalizePlate(vehicle.VehicleNo)
	_, vehicleExists := m.vehicles[plate]
	_, entryExists := m.searchEntries[plate]
	if vehicleExists || entryExists {
		return vehicledb.NewError(vehicledb.ErrCodeConflict, fmt.Sprintf("vehicle %s already exists", vehicle.VehicleNo))
	}

	if fault := m.takeFault(); fault != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "vehicle create transaction failed", fault)
	}

	// Both writes or neither
	m.vehicles[plate] = vehicle
	m.searchEntries[plate] = vehicle.VehicleNo
	return nil
}

func (m *MemoryDataAccess) ListVehicles(ctx context.Context, token string) ([]vehicledb.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := m.resolveToken(token); err != nil {
		return nil, err
	}

	vehicles := make([]vehicledb.Vehicle, 0, len(m.vehicles))
	for _, vehicle := range m.vehicles {
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, nil
}

func (m *MemoryDataAccess) ListVehiclesByFee(ctx context.Context, token string, feeType vehicledb.FeeType, due vehicledb.DueFilter) ([]vehicledb.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := m.resolveToken(token); err != nil {
		return nil, err
	}

	today := m.now()
	var vehicles []vehicledb.Vehicle
	for _, vehicle := range m.vehicles {
		if due.Matches(vehicle.FeeDate(feeType), today) {
			vehicles = append(vehicles, vehicle)
		}
	}
	return vehicles, nil
}

func (m *MemoryDataAccess) SearchVehicles(ctx context.Context, token, fragment string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := m.resolveToken(token); err != nil {
		return nil, err
	}

	normalized := vehicledb.NormalizePlate(fragment)
	if normalized == "" {
		return nil, vehicledb.NewError(vehicledb.ErrCodeValidation, "search fragment is required")
	}

	var plates []string
	for plate, canonical := range m.searchEntries {
		if len(normalized) == 4 {
			if plateSuffix(plate) == normalized {
				plates = append(plates, canonical)
			}
		} else if len(plate) >= len(normalized) && plate[:len(normalized)] == normalized {
			plates = append(plates, canonical)
		}
	}
	sort.Strings(plates)
	return plates, nil
}

// Fee payments

func (m *MemoryDataAccess) PayFee(ctx context.Context, token string, feeType vehicledb.FeeType, update vehicledb.VehicleUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payer, err := m.resolveToken(token)
	if err != nil {
		return err
	}

	fields, err := update.SetFields()
	if err != nil {
		return err
	}

	plate := vehicledb.NormalizePlate(update.VehicleNo)
	vehicle, exists := m.vehicles[plate]
	if !exists {
		return vehicledb.NewError(vehicledb.ErrCodeNotFound, fmt.Sprintf("vehicle %s not found", update.VehicleNo))
	}
	previous := vehicle.FeeDate(feeType)
	if previous == "" {
		return vehicledb.NewError(vehicledb.ErrCodeValidation,
			fmt.Sprintf("vehicle %s has no %s date on record", update.VehicleNo, feeType))
	}

	if fault := m.takeFault(); fault != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "fee payment transaction failed", fault)
	}

	// Both writes or neither
	for _, field := range fields {
		vehicle.SetFeeDate(field.FeeType, *field.Value)
	}
	m.vehicles[plate] = vehicle

	if m.history[plate] == nil {
		m.history[plate] = make(map[string]vehicledb.TransactionHistory)
	}
	m.history[plate][historySK(previous, feeType)] = vehicledb.TransactionHistory{
		VehicleNo:       vehicle.VehicleNo,
		Date:            previous,
		TransactionType: feeType.String(),
		Payer:           payer,
	}
	return nil
}

func (m *MemoryDataAccess) UpdateVehicle(ctx context.Context, token string, update vehicledb.VehicleUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.resolveToken(token); err != nil {
		return err
	}

	fields, err := update.SetFields()
	if err != nil {
		return err
	}

	plate := vehicledb.NormalizePlate(update.VehicleNo)
	vehicle, exists := m.vehicles[plate]
	if !exists {
		return vehicledb.NewError(vehicledb.ErrCodeNotFound, fmt.Sprintf("vehicle %s not found", update.VehicleNo))
	}

	if fault := m.takeFault(); fault != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "vehicle update transaction failed", fault)
	}

	for _, field := range fields {
		vehicle.SetFeeDate(field.FeeType, *field.Value)
	}
	m.vehicles[plate] = vehicle
	return nil
}

// History

func (m *MemoryDataAccess) ViewHistory(ctx context.Context, token string, days int) ([]vehicledb.TransactionHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := m.resolveToken(token); err != nil {
		return nil, err
	}
	if days < 0 {
		return nil, vehicledb.NewError(vehicledb.ErrCodeValidation, "days must not be negative")
	}

	today := m.now().UTC().Format(vehicledb.DateLayout)
	start := m.now().UTC().AddDate(0, 0, -days).Format(vehicledb.DateLayout)

	var records []vehicledb.TransactionHistory
	for _, rows := range m.history {
		for _, record := range rows {
			if record.Date >= start && record.Date <= today {
				records = append(records, record)
			}
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date > records[j].Date
	})
	return records, nil
}

func (m *MemoryDataAccess) UndoHistory(ctx context.Context, token string, record vehicledb.TransactionHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.resolveToken(token); err != nil {
		return err
	}

	date, err := vehicledb.CanonicalDate(record.Date)
	if err != nil {
		return err
	}
	feeType := vehicledb.ParseFeeType(record.TransactionType)

	plate := vehicledb.NormalizePlate(record.VehicleNo)
	rows := m.history[plate]
	stored, exists := rows[historySK(date, feeType)]
	if !exists {
		return vehicledb.NewError(vehicledb.ErrCodeNotFound,
			fmt.Sprintf("history record for vehicle %s on %s not found", record.VehicleNo, date))
	}
	for _, other := range rows {
		if vehicledb.ParseFeeType(other.TransactionType) == feeType && other.Date > date {
			return vehicledb.NewError(vehicledb.ErrCodeValidation,
				fmt.Sprintf("a later %s payment exists for vehicle %s; undo it first", feeType, record.VehicleNo))
		}
	}

	vehicle, exists := m.vehicles[plate]
	if !exists {
		return vehicledb.NewError(vehicledb.ErrCodeNotFound, fmt.Sprintf("vehicle %s not found", record.VehicleNo))
	}

	if fault := m.takeFault(); fault != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "undo transaction failed", fault)
	}

	// Both writes or neither
	delete(rows, historySK(date, feeType))
	vehicle.SetFeeDate(feeType, stored.Date)
	m.vehicles[plate] = vehicle
	return nil
}
