package vehicledb

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FeeType identifies one of the recurring regulatory fees tracked per vehicle
type FeeType string

const (
	FeeTypeTax       FeeType = "TAX"
	FeeTypeFitness   FeeType = "FITNESS"
	FeeTypeInsurance FeeType = "INSURANCE"
	FeeTypeRoute     FeeType = "ROUTE"
)

// ParseFeeType maps a request string to a FeeType. Unknown values
// (including the legacy "expire" alias sent by the expiry endpoint)
// resolve to FeeTypeTax for wire compatibility with existing clients.
func ParseFeeType(s string) FeeType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TAX":
		return FeeTypeTax
	case "FITNESS":
		return FeeTypeFitness
	case "INSURANCE":
		return FeeTypeInsurance
	case "ROUTE":
		return FeeTypeRoute
	default:
		return FeeTypeTax
	}
}

// FeeTypes returns all supported fee types in their canonical order
func FeeTypes() []FeeType {
	return []FeeType{FeeTypeTax, FeeTypeFitness, FeeTypeInsurance, FeeTypeRoute}
}

// String returns the string representation
func (f FeeType) String() string {
	return string(f)
}

// User represents an account. Password carries the plaintext on input
// paths (signup, login) and the bcrypt digest when loaded from the
// store; it is never persisted as plaintext.
type User struct {
	Username string `json:"username" dynamodbav:"username"`
	Password string `json:"password" dynamodbav:"password"`
	Phone    string `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
}

// Session is an authenticated login. Token doubles as the bearer
// token handed to clients; its presence in the store is the sole
// proof of authentication.
type Session struct {
	Token     string    `json:"token" dynamodbav:"token"`
	Username  string    `json:"username" dynamodbav:"username"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
	ExpiredAt time.Time `json:"expiredAt" dynamodbav:"expired_at"`
}

// SessionDuration is how long a session stays valid. Expiry is
// enforced by the store's TTL reclamation, never client-side.
const SessionDuration = 7 * 24 * time.Hour

// Vehicle represents one registered vehicle. The four date fields are
// canonical YYYY-MM-DD strings; an absent attribute decodes to "".
type Vehicle struct {
	VehicleNo     string `json:"vehicle_no" dynamodbav:"vehicle_no"`
	Owner         string `json:"owner" dynamodbav:"owner"`
	TaxDate       string `json:"tax_date" dynamodbav:"tax_date"`
	FitnessDate   string `json:"fitness_date" dynamodbav:"fitness_date"`
	InsuranceDate string `json:"insurance_date" dynamodbav:"insurance_date"`
	RouteDate     string `json:"route_date" dynamodbav:"route_date"`
}

// FeeDate returns the due date for the given fee type
func (v *Vehicle) FeeDate(feeType FeeType) string {
	switch feeType {
	case FeeTypeFitness:
		return v.FitnessDate
	case FeeTypeInsurance:
		return v.InsuranceDate
	case FeeTypeRoute:
		return v.RouteDate
	default:
		return v.TaxDate
	}
}

// SetFeeDate sets the due date for the given fee type
func (v *Vehicle) SetFeeDate(feeType FeeType, date string) {
	switch feeType {
	case FeeTypeFitness:
		v.FitnessDate = date
	case FeeTypeInsurance:
		v.InsuranceDate = date
	case FeeTypeRoute:
		v.RouteDate = date
	default:
		v.TaxDate = date
	}
}

// VehicleUpdate is a partial update of a vehicle's fee dates. Nil
// fields are left untouched.
type VehicleUpdate struct {
	VehicleNo     string  `json:"vehicle_no"`
	TaxDate       *string `json:"tax_date,omitempty"`
	FitnessDate   *string `json:"fitness_date,omitempty"`
	InsuranceDate *string `json:"insurance_date,omitempty"`
	RouteDate     *string `json:"route_date,omitempty"`
}

// DateField is one optional fee-date field of an update
type DateField struct {
	FeeType FeeType
	Value   *string
}

// DateFields returns the update's fee-date fields in canonical order,
// nil and non-nil alike. Callers filter for set fields.
func (u *VehicleUpdate) DateFields() []DateField {
	return []DateField{
		{FeeTypeTax, u.TaxDate},
		{FeeTypeFitness, u.FitnessDate},
		{FeeTypeInsurance, u.InsuranceDate},
		{FeeTypeRoute, u.RouteDate},
	}
}

// SetFields returns only the fields that carry a value, each with its
// date re-emitted in canonical YYYY-MM-DD form. Fails with a
// validation error when no field is set or a date does not parse.
func (u *VehicleUpdate) SetFields() ([]DateField, error) {
	var set []DateField
	for _, f := range u.DateFields() {
		if f.Value == nil {
			continue
		}
		date, err := CanonicalDate(*f.Value)
		if err != nil {
			return nil, err
		}
		set = append(set, DateField{FeeType: f.FeeType, Value: &date})
	}
	if len(set) == 0 {
		return nil, NewError(ErrCodeValidation, "no date provided")
	}
	return set, nil
}

// TransactionHistory is one immutable audit row. Date is the fee
// type's due date as it stood immediately before the payment; it is
// both the row's sort-key component and the value an undo restores.
type TransactionHistory struct {
	VehicleNo       string `json:"vehicle_no" dynamodbav:"vehicle_no"`
	Date            string `json:"date" dynamodbav:"date"`
	TransactionType string `json:"transaction_type" dynamodbav:"transaction_type"`
	Payer           string `json:"payer" dynamodbav:"payer"`
}

// DueFilter selects vehicles by due-date window. The zero value
// matches only vehicles due today; construct with Overdue or
// DueWithin.
type DueFilter struct {
	overdue bool
	days    int
}

// Overdue selects vehicles whose date is strictly before today
func Overdue() DueFilter {
	return DueFilter{overdue: true}
}

// DueWithin selects vehicles whose date falls in [today, today+days]
func DueWithin(days int) DueFilter {
	return DueFilter{days: days}
}

// IsOverdue reports whether the filter selects overdue vehicles
func (d DueFilter) IsOverdue() bool {
	return d.overdue
}

// Matches reports whether a canonical date string falls inside the
// filter's window relative to today. Unparsable dates never match.
func (d DueFilter) Matches(date string, today time.Time) bool {
	due, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if d.overdue {
		return due.Before(day)
	}
	return !due.Before(day) && !due.After(day.AddDate(0, 0, d.days))
}

// DateLayout is the canonical date form used in keys and attributes
const DateLayout = "2006-01-02"

// CanonicalDate parses a Y-M-D date string, tolerating unpadded month
// and day, and re-emits it in canonical YYYY-MM-DD form.
func CanonicalDate(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return "", NewError(ErrCodeValidation, fmt.Sprintf("invalid date %q", s))
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", NewError(ErrCodeValidation, fmt.Sprintf("invalid date %q", s))
		}
		nums[i] = n
	}
	date := fmt.Sprintf("%04d-%02d-%02d", nums[0], nums[1], nums[2])
	if _, err := time.Parse(DateLayout, date); err != nil {
		return "", NewError(ErrCodeValidation, fmt.Sprintf("invalid date %q", s))
	}
	return date, nil
}
