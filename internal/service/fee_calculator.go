package service

import (
	"fmt"
	"math"
	"time"
)

// FeeCalculator maps (entry time, exit time, unit price) to a fee. Billing
// rounds to the nearest whole hour, half up: 1h29m59s bills one hour, 1h30m00s
// bills two. No side effects, no I/O.
type FeeCalculator struct{}

func (FeeCalculator) Compute(entryTime, exitTime time.Time, unitPrice float64) (billedHours int, fee float64, err error) {
	duration := exitTime.Sub(entryTime)
	if duration < 0 {
		return 0, 0, fmt.Errorf("exit time %v precedes entry time %v", exitTime, entryTime)
	}

	durationHours := duration.Seconds() / 3600.0
	billedHours = int(math.Floor(durationHours))
	if durationHours-float64(billedHours) >= 0.5 {
		billedHours++
	}
	if billedHours < 0 {
		billedHours = 0
	}
	return billedHours, float64(billedHours) * unitPrice, nil
}
