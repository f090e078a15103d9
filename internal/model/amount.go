package model

import (
	"github.com/shopspring/decimal"
)

// Amount is a rupee value with paise precision.
type Amount = decimal.Decimal

const AmountScale = 2

var maxAmount = decimal.New(1, 12)

func Zero() Amount {
	return decimal.Zero
}

func ParseAmount(s string) (Amount, error) {
	return decimal.NewFromString(s)
}

func MustAmount(s string) Amount {
	return decimal.RequireFromString(s)
}

// ValidAmount reports whether a is strictly positive, below the storage limit, and has no sub-paise digits.
func ValidAmount(a Amount) bool {
	return a.IsPositive() && a.LessThan(maxAmount) && a.Equal(a.Round(AmountScale))
}
