// Package core provides the ledger data model.
//
// This file contains the Amount type: a signed decimal used for transaction
// amounts and wallet balances. Arithmetic is exact so that adding and then
// removing a transaction restores the previous balance without drift.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/errs"
)

// Amount is a signed decimal in the ledger's single implicit unit.
// Positive values are deposits, negative values are withdrawals.
type Amount struct {
	value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// NewAmount returns an amount of value * 10^exp.
func NewAmount(value int64, exp int32) Amount {
	return Amount{value: decimal.New(value, exp)}
}

// AmountFromInt returns a whole-unit amount.
func AmountFromInt(v int64) Amount { return Amount{value: decimal.NewFromInt(v)} }

// AmountFromFloat converts a float coming from an untyped boundary (JSON
// number, CLI flag). NaN and infinities are rejected.
func AmountFromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Amount{}, errs.NewValidationError("amount must be a finite number")
	}
	return Amount{value: decimal.NewFromFloat(f)}, nil
}

// ParseAmount parses a decimal string. Both dot (12.34) and comma (12,34)
// decimal separators are accepted, as well as a leading sign. Grouping
// separators are not: "1,000" and "1.000,50" are rejected rather than read
// as 1 and 1.0005.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, errs.NewValidationError("amount is required")
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		if strings.ContainsAny(s[i+1:], ",.") || strings.Contains(s[:i], ".") || isGroupOfThree(s[i+1:]) {
			return Amount{}, errs.NewValidationError("invalid amount %q: thousands separators are not supported", s)
		}
		s = s[:i] + "." + s[i+1:]
	}
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "nan", "inf", "infinity":
		return Amount{}, errs.NewValidationError("amount must be a finite number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, errs.NewValidationError("invalid amount %q", s)
	}
	return Amount{value: d}, nil
}

func isGroupOfThree(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MustParseAmount is like ParseAmount but panics on error.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err.Error())
	}
	return a
}

// ValidateNonZero rejects zero amounts, which carry no ledger meaning.
func (a Amount) ValidateNonZero() error {
	if a.value.IsZero() {
		return errs.NewValidationError("amount must not be zero")
	}
	return nil
}

func (a Amount) Add(b Amount) Amount             { return Amount{value: a.value.Add(b.value)} }
func (a Amount) Sub(b Amount) Amount             { return Amount{value: a.value.Sub(b.value)} }
func (a Amount) Neg() Amount                     { return Amount{value: a.value.Neg()} }
func (a Amount) Abs() Amount                     { return Amount{value: a.value.Abs()} }
func (a Amount) Equal(b Amount) bool             { return a.value.Equal(b.value) }
func (a Amount) GreaterThan(b Amount) bool       { return a.value.GreaterThan(b.value) }
func (a Amount) IsZero() bool                    { return a.value.IsZero() }
func (a Amount) IsNegative() bool                { return a.value.IsNegative() }
func (a Amount) IsPositive() bool                { return a.value.IsPositive() }
func (a Amount) String() string                  { return a.value.String() }
func (a Amount) Decimal() decimal.Decimal        { return a.value }
func (a Amount) StringFixed(places int32) string { return a.value.StringFixed(places) }

// Float64 returns the nearest float. Only for display and charting.
func (a Amount) Float64() float64 { return a.value.InexactFloat64() }

// Sum adds up amounts.
func Sum(amounts ...Amount) Amount {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.value)
	}
	return Amount{value: total}
}

// MarshalJSON writes the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.value.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return errs.NewValidationError("amount must not be null")
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return errs.NewValidationError("invalid amount %s", string(data))
	}
	a.value = d
	return nil
}
