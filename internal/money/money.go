package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrTooManyDecimals   = errors.New("amount has too many decimal places")
	ErrNegativeAmount    = errors.New("amount must not be negative")
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrAmountTooLarge    = errors.New("amount is too large")
)

// Amounts are stored as NUMERIC(12,2).
const Scale = 2

var upperBound = decimal.New(1, 10)

// Check accepts zero and positive amounts with at most two decimal places.
func Check(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !amount.Equal(amount.Truncate(Scale)) {
		return ErrTooManyDecimals
	}
	if amount.GreaterThanOrEqual(upperBound) {
		return ErrAmountTooLarge
	}
	return nil
}

func CheckPositive(amount decimal.Decimal) error {
	if err := Check(amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrAmountNotPositive
	}
	return nil
}

// CheckOptional validates an amount only when it is present.
func CheckOptional(amount decimal.NullDecimal) error {
	if !amount.Valid {
		return nil
	}
	return Check(amount.Decimal)
}

// Format renders an amount with exactly two decimal places.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(Scale)
}
