package vehicledb

import (
	"strings"
	"unicode"
)

// Canonical plate format
//
// Callers supply plates in the dashed display form, e.g.
// "DHA-12-AB-1234" or the short "ABC-1234". Storage keys use the
// normalized form with separators stripped. Denormalization re-inserts
// dashes at fixed offsets: 3-character series, then a 2-or-3 character
// group (2 when the character after the series is a digit), a
// 2-character group, and the remaining digits. Plates that leave 4 or
// fewer characters after the series take the short two-group form.
//
// This is a format contract, not a general parser: plates outside the
// canonical form do not round-trip.

// NormalizePlate strips the dash separators from a canonical plate
func NormalizePlate(plate string) string {
	return strings.ReplaceAll(plate, "-", "")
}

// DenormalizePlate re-inserts dashes into a normalized plate,
// recovering the canonical display form
func DenormalizePlate(normalized string) string {
	if len(normalized) <= 3 {
		return normalized
	}
	series := normalized[:3]
	rest := normalized[3:]
	if len(rest) <= 4 {
		return series + "-" + rest
	}

	mid := 3
	if unicode.IsDigit(rune(rest[0])) {
		mid = 2
	}
	if len(rest) < mid+2 {
		return series + "-" + rest
	}
	return strings.Join([]string{series, rest[:mid], rest[mid : mid+2], rest[mid+2:]}, "-")
}
