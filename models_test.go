package vehicledb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeeType(t *testing.T) {
	assert.Equal(t, FeeTypeTax, ParseFeeType("tax"))
	assert.Equal(t, FeeTypeFitness, ParseFeeType("FITNESS"))
	assert.Equal(t, FeeTypeInsurance, ParseFeeType(" insurance "))
	assert.Equal(t, FeeTypeRoute, ParseFeeType("Route"))
}

func TestParseFeeType_FallsBackToTax(t *testing.T) {
	// Unknown types resolve to tax, including the legacy expire alias
	assert.Equal(t, FeeTypeTax, ParseFeeType("expire"))
	assert.Equal(t, FeeTypeTax, ParseFeeType(""))
	assert.Equal(t, FeeTypeTax, ParseFeeType("bogus"))
}

func TestCanonicalDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2026-08-28", "2026-08-28"},
		{"2026-1-5", "2026-01-05"},
		{" 2026-12-31 ", "2026-12-31"},
	}

	for _, tt := range tests {
		got, err := CanonicalDate(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestCanonicalDate_Invalid(t *testing.T) {
	for _, input := range []string{"", "2026-08", "2026/08/28", "not-a-date", "2026-13-01", "2026-02-30"} {
		_, err := CanonicalDate(input)
		assert.Error(t, err, "input %q", input)
		assert.True(t, IsValidation(err), "input %q", input)
	}
}

func TestVehicleFeeDate(t *testing.T) {
	vehicle := Vehicle{
		TaxDate:       "2026-01-01",
		FitnessDate:   "2026-02-02",
		InsuranceDate: "2026-03-03",
		RouteDate:     "2026-04-04",
	}

	assert.Equal(t, "2026-01-01", vehicle.FeeDate(FeeTypeTax))
	assert.Equal(t, "2026-02-02", vehicle.FeeDate(FeeTypeFitness))
	assert.Equal(t, "2026-03-03", vehicle.FeeDate(FeeTypeInsurance))
	assert.Equal(t, "2026-04-04", vehicle.FeeDate(FeeTypeRoute))

	vehicle.SetFeeDate(FeeTypeRoute, "2027-01-01")
	assert.Equal(t, "2027-01-01", vehicle.RouteDate)
}

func TestVehicleUpdateSetFields_NoneSet(t *testing.T) {
	update := VehicleUpdate{VehicleNo: "ABC-1234"}

	_, err := update.SetFields()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestVehicleUpdateSetFields_SingleField(t *testing.T) {
	update := VehicleUpdate{
		VehicleNo:   "ABC-1234",
		FitnessDate: ToPtr("2026-9-1"),
	}

	fields, err := update.SetFields()
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, FeeTypeFitness, fields[0].FeeType)
	assert.Equal(t, "2026-09-01", *fields[0].Value)
}

func TestVehicleUpdateSetFields_BadDate(t *testing.T) {
	update := VehicleUpdate{
		VehicleNo: "ABC-1234",
		TaxDate:   ToPtr("soon"),
	}

	_, err := update.SetFields()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestDueFilter_Overdue(t *testing.T) {
	today := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	filter := Overdue()

	assert.True(t, filter.Matches("2026-08-27", today), "yesterday is overdue")
	assert.False(t, filter.Matches("2026-08-28", today), "today is not strictly before today")
	assert.False(t, filter.Matches("2026-08-29", today))
	assert.False(t, filter.Matches("garbage", today))
}

func TestDueFilter_DueWithin(t *testing.T) {
	today := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	filter := DueWithin(5)

	assert.True(t, filter.Matches("2026-08-28", today), "window includes today")
	assert.True(t, filter.Matches("2026-09-02", today), "window includes today+5")
	assert.False(t, filter.Matches("2026-09-03", today), "today+6 is out")
	assert.False(t, filter.Matches("2026-08-27", today), "past dates are out")
}
