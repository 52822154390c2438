package money

import (
	"fmt"
	"math"
)

// Unit tags accepted on monetary API input.
const (
	UnitMinor = "minor"
	UnitMajor = "major"
)

// minorUnitThreshold: integers above this are assumed to already be minor
// units when no unit tag is available. Untagged input below the threshold is
// treated as a major-unit decimal.
const minorUnitThreshold = 1000

// NormalizeToMinorUnits converts an untagged price into minor units.
// Integers larger than the threshold pass through unchanged; everything else
// is treated as a major-unit amount and scaled by 100. Non-finite input
// normalizes to 0.
func NormalizeToMinorUnits(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v == math.Trunc(v) && v > minorUnitThreshold {
		return int64(v)
	}
	return int64(math.Round(v * 100))
}

// FromTagged converts a price carrying an explicit unit tag.
func FromTagged(v float64, unit string) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("money: non-finite amount")
	}
	switch unit {
	case UnitMinor:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("money: minor-unit amount must be an integer")
		}
		return int64(v), nil
	case UnitMajor:
		return int64(math.Round(v * 100)), nil
	case "":
		return NormalizeToMinorUnits(v), nil
	default:
		return 0, fmt.Errorf("money: unknown unit %q", unit)
	}
}

// ToMajorUnits is for display and email formatting only; stored totals stay
// in minor units.
func ToMajorUnits(cents int64) float64 {
	return float64(cents) / 100.0
}

// ConvertMinorUnits applies a spot rate to a minor-unit amount and returns
// the target currency's minor units, rounding once at the end.
func ConvertMinorUnits(cents int64, rate float64) int64 {
	return int64(math.Round(ToMajorUnits(cents) * rate * 100))
}

// Format renders a minor-unit amount with its currency symbol.
func Format(currency string, cents int64) string {
	major := ToMajorUnits(cents)
	switch currency {
	case "USD":
		return fmt.Sprintf("$%.2f", major)
	case "EUR":
		return fmt.Sprintf("€%.2f", major)
	case "NGN":
		return fmt.Sprintf("₦%.2f", major)
	default:
		return fmt.Sprintf("%.2f %s", major, currency)
	}
}
