// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents everywhere inside the engine. Decimal
// strings only appear at the edges (API payloads, logs) and are converted
// with shopspring/decimal so no float ever touches a stored value.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseMoney converts a decimal string to Money with half-up rounding on the
// third decimal place.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Negative
// values are rejected; zero is allowed.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,345") -> 1235 cents
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Money{}, &ValidationError{Field: "amount", Reason: "is required"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &ValidationError{Field: "amount", Reason: "not a decimal number"}
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal rounds d to cents.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<62)) {
		return Money{}, &ValidationError{Field: "amount", Reason: "out of range"}
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Split divides m into n shares of m/n cents. The residual cents left by the
// integer division go to the last share so the shares always sum to m.
func (m Money) Split(n int) ([]Money, error) {
	if n < 1 {
		return nil, &ValidationError{Field: "installments", Reason: "must be at least 1"}
	}
	if n > MaxInstallments {
		return nil, &ValidationError{Field: "installments", Reason: fmt.Sprintf("must be at most %d", MaxInstallments)}
	}
	if m.Cents < 0 {
		return nil, &ValidationError{Field: "total", Reason: "must not be negative"}
	}
	base := m.Cents / int64(n)
	shares := make([]Money, n)
	for i := range shares {
		shares[i] = Money{Cents: base}
	}
	shares[n-1].Cents += m.Cents - base*int64(n)
	return shares, nil
}
