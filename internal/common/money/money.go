package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

// Amount is a THB monetary value in satang (1 THB = 100 satang).
// All arithmetic inside the system happens on this fixed-point type;
// decimal strings appear only at the API and storage boundaries.
type Amount int64

// Zero is the zero amount.
const Zero Amount = 0

var hundred = decimal.NewFromInt(100)

// FromSatang creates an Amount from a raw satang value.
func FromSatang(v int64) Amount {
	return Amount(v)
}

// FromBaht creates an Amount from a whole-baht value.
func FromBaht(v int64) Amount {
	return Amount(v * 100)
}

// Parse converts a decimal baht string (e.g. "1234.50") into an Amount.
// Values with more than two fractional digits are rejected rather than
// rounded, so "0.005" can never slip through as a satang.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.NewValidationError("amount is required")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.NewValidationError(fmt.Sprintf("invalid amount %q", s))
	}

	return FromDecimal(d)
}

// FromDecimal converts a decimal baht value into an Amount, rejecting
// anything finer than satang precision.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	satang := d.Mul(hundred)
	if !satang.IsInteger() {
		return 0, errors.NewValidationError("amount must have at most two decimal places")
	}
	return Amount(satang.IntPart()), nil
}

// MustParse is Parse for test fixtures and seed data; it panics on bad input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Satang returns the raw satang value.
func (a Amount) Satang() int64 {
	return int64(a)
}

// Decimal returns the amount as a baht decimal.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

// String formats the amount as a baht string with exactly two decimals.
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return a + b
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return a - b
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a == 0
}

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool {
	return a > 0
}

// IsNegative reports whether the amount is less than zero.
func (a Amount) IsNegative() bool {
	return a < 0
}

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool {
	return a < b
}

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool {
	return a > b
}

// MarshalJSON encodes the amount as a fixed two-decimal baht string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
