package domain

import "math"

// Money is an amount in minor units (cents) of the single configured
// currency. The JSON surface speaks decimal numbers; conversion happens at
// the handler boundary.
type Money int64

// MoneyFromDecimal converts a decimal amount (e.g. 12.50) to minor units.
func MoneyFromDecimal(v float64) Money {
	return Money(math.Round(v * 100))
}

// Decimal converts back to a decimal amount for the JSON surface.
func (m Money) Decimal() float64 {
	return float64(m) / 100
}
