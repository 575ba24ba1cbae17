// Package charge computes a battery's state of charge from elapsed discharge time.
// Everything here is pure: callers sample the clock once and pass it in.
package charge

import (
	"math"
	"time"
)

const (
	MinCharge = 0
	MaxCharge = 100

	// BaseDrainRate is percentage points drained per hour at zero power.
	BaseDrainRate = 10.0
	// PowerFactor scales the drain rate up by 10% per kilowatt.
	PowerFactor = 0.1

	epsilon = 1e-9
)

// DrainRate returns percentage points per hour for a battery of the given power.
func DrainRate(powerWatts float64) float64 {
	if powerWatts < 0 || math.IsNaN(powerWatts) {
		powerWatts = 0
	}
	// 10 * (1 + kW*0.1), expanded so 1000W lands on exactly 11
	return BaseDrainRate + BaseDrainRate*PowerFactor*powerWatts/1000
}

// ElapsedHours is the non-negative real number of hours between start and now.
func ElapsedHours(start, now time.Time) float64 {
	d := now.Sub(start)
	if d <= 0 {
		return 0
	}
	return d.Seconds() / 3600
}

func Clamp(v int) int {
	if v < MinCharge {
		return MinCharge
	}
	if v > MaxCharge {
		return MaxCharge
	}
	return v
}

// Compute returns floor(max(0, baseline - elapsedHours*DrainRate(powerWatts))).
func Compute(baseline int, elapsedHours, powerWatts float64) int {
	baseline = Clamp(baseline)
	if elapsedHours <= 0 || math.IsNaN(elapsedHours) {
		return baseline
	}

	remaining := float64(baseline) - elapsedHours*DrainRate(powerWatts)
	if remaining <= 0 {
		return MinCharge
	}
	return Clamp(int(math.Floor(remaining + epsilon)))
}

// HoursRemaining estimates how long the given charge lasts at the battery's drain rate.
func HoursRemaining(charge int, powerWatts float64) float64 {
	charge = Clamp(charge)
	return float64(charge) / DrainRate(powerWatts)
}
