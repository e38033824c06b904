package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeCalculatorRoundsHalfUp(t *testing.T) {
	entry := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		duration  time.Duration
		unitPrice float64
		wantHours int
		wantFee   float64
	}{
		{"zero duration", 0, 4.0, 0, 0},
		{"just under half an hour", 29*time.Minute + 59*time.Second, 4.0, 0, 0},
		{"half an hour rounds up", 30 * time.Minute, 4.0, 1, 4.0},
		{"just under the next half hour", time.Hour + 29*time.Minute + 59*time.Second, 4.0, 1, 4.0},
		{"exactly on the half hour", time.Hour + 30*time.Minute, 4.0, 2, 8.0},
		{"ninety minutes at five per hour", 90 * time.Minute, 5.0, 2, 10.0},
		{"whole hours stay whole", 3 * time.Hour, 2.5, 3, 7.5},
	}

	var calc FeeCalculator
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hours, fee, err := calc.Compute(entry, entry.Add(tt.duration), tt.unitPrice)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHours, hours)
			assert.InDelta(t, tt.wantFee, fee, 1e-9)
		})
	}
}

func TestFeeCalculatorRejectsNegativeDuration(t *testing.T) {
	entry := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	var calc FeeCalculator
	_, _, err := calc.Compute(entry, entry.Add(-time.Minute), 4.0)
	assert.Error(t, err)
}
