package vehicledb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToPtr(t *testing.T) {
	date := ToPtr("2026-09-15")
	assert.Equal(t, "2026-09-15", *date)

	days := ToPtr(30)
	assert.Equal(t, 30, *days)
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name        string
		baseDelayMs int
		attempt     int
		strategy    string
		want        time.Duration
	}{
		{
			name:        "first attempt has no delay",
			baseDelayMs: 200,
			attempt:     0,
			strategy:    "LINEAR",
			want:        0,
		},
		{
			name:        "linear grows with attempt",
			baseDelayMs: 200,
			attempt:     2,
			strategy:    "LINEAR",
			want:        400 * time.Millisecond,
		},
		{
			name:        "exponential doubles",
			baseDelayMs: 100,
			attempt:     3,
			strategy:    "EXPONENTIAL",
			want:        400 * time.Millisecond,
		},
		{
			name:        "none is always zero",
			baseDelayMs: 200,
			attempt:     5,
			strategy:    "NONE",
			want:        0,
		},
		{
			name:        "unknown strategy falls back to linear",
			baseDelayMs: 100,
			attempt:     1,
			strategy:    "bogus",
			want:        100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateBackoff(tt.baseDelayMs, tt.attempt, tt.strategy))
		})
	}
}
