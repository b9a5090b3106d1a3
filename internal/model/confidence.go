package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// ConfidencePlaces is the number of decimal places every confidence keeps.
const ConfidencePlaces = 4

// RoundConfidence clamps v to [0,1] and rounds it to four places, half away
// from zero. NaN and infinities collapse to zero.
func RoundConfidence(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return decimal.NewFromFloat(v).Round(ConfidencePlaces).InexactFloat64()
}

// ConfidenceGap returns a-b computed in decimal and rounded to four places,
// so margins such as 0.95-0.90 compare as exactly 0.05.
func ConfidenceGap(a, b float64) float64 {
	gap := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b))
	return gap.Round(ConfidencePlaces).InexactFloat64()
}

// SubcategoryPtr returns a pointer to a copy of id.
func SubcategoryPtr(id int64) *int64 {
	return &id
}

// SameSubcategory reports whether two optional subcategory ids are equal.
func SameSubcategory(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
