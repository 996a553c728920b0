package domain

import "math"

// Monetary amounts are stored in minor currency units (e.g. paise) as int64,
// matching the gateway's wire format. The only conversion happens at the
// create-order API boundary, which accepts major units.

// MinorUnits converts a major-unit amount to minor units, rounding to the
// nearest unit to absorb float noise from JSON decoding.
func MinorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}

// MajorUnits converts minor units back to a major-unit amount for display.
func MajorUnits(minor int64) float64 {
	return float64(minor) / 100
}
