package vmath

import "math"

// --- Clamping ---

// Clamp constrains value to [min, max]
// Tolerates reversed bounds (min > max) by normalizing them first, so a
// descending target range still clamps into the correct interval
func Clamp(min, value, max float64) float64 {
	if max < min {
		min, max = max, min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// --- Interpolation ---

// Lerp performs linear interpolation between a and b
// t=0 returns a, t=1 returns b; t outside [0,1] extrapolates
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// ExtrapolateRange maps value's position within [domainLow, domainHigh]
// linearly onto [rangeLow, rangeHigh] without clamping
// The range may be descending (rangeLow > rangeHigh)
// A degenerate domain (domainHigh == domainLow) returns rangeLow
func ExtrapolateRange(value, domainLow, domainHigh, rangeLow, rangeHigh float64) float64 {
	span := domainHigh - domainLow
	if span == 0 {
		return rangeLow
	}
	return Lerp(rangeLow, rangeHigh, (value-domainLow)/span)
}

// ExtrapolateRangeClamp maps value as ExtrapolateRange does, then clamps the
// result into the target range, normalizing a descending range so the output
// never escapes [min(rangeLow,rangeHigh), max(rangeLow,rangeHigh)]
func ExtrapolateRangeClamp(value, domainLow, domainHigh, rangeLow, rangeHigh float64) float64 {
	return Clamp(rangeLow, ExtrapolateRange(value, domainLow, domainHigh, rangeLow, rangeHigh), rangeHigh)
}

// --- Rounding ---

// RoundToInt rounds to the nearest integer, halves away from zero
func RoundToInt(value float64) int {
	return int(math.Round(value))
}
