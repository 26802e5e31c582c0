package vehicledb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "DHA12AB1234", NormalizePlate("DHA-12-AB-1234"))
	assert.Equal(t, "ABC1234", NormalizePlate("ABC-1234"))
	assert.Equal(t, "ABC1234", NormalizePlate("ABC1234"))
}

func TestPlateRoundTrip(t *testing.T) {
	plates := []string{
		"DHA-12-AB-1234",
		"ABC-1234",
		"DHA-KHA-11-1234",
		"CTG-45-CD-9876",
	}

	for _, plate := range plates {
		t.Run(plate, func(t *testing.T) {
			assert.Equal(t, plate, DenormalizePlate(NormalizePlate(plate)))
		})
	}
}

func TestDenormalizePlate(t *testing.T) {
	tests := []struct {
		name       string
		normalized string
		want       string
	}{
		{
			name:       "numeric after series takes two-char group",
			normalized: "DHA12AB1234",
			want:       "DHA-12-AB-1234",
		},
		{
			name:       "letter after series takes three-char group",
			normalized: "DHAKHA111234",
			want:       "DHA-KHA-11-1234",
		},
		{
			name:       "short plate keeps two groups",
			normalized: "ABC1234",
			want:       "ABC-1234",
		},
		{
			name:       "series only",
			normalized: "ABC",
			want:       "ABC",
		},
		{
			name:       "empty",
			normalized: "",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DenormalizePlate(tt.normalized))
		})
	}
}
