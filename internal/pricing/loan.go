package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

var (
	ErrInvalidTerm  = errors.New("term must be at least one month")
	ErrNegativeRate = errors.New("interest rate cannot be negative")
)

// MonthlyPayment computes the amortizing-loan payment for a principal,
// a term in months and an annual interest rate in percent.
//
// With a zero rate the payment is plain division, principal / term. With a
// positive rate it is the standard PMT formula on the monthly rate
// r = annual/100/12:
//
//	payment = P * r(1+r)^n / ((1+r)^n - 1)
//
// The result is rounded half-up to the nearest cent.
func MonthlyPayment(principal core.Money, termMonths int, annualRatePercent decimal.Decimal) (core.Money, error) {
	if termMonths < 1 {
		return core.Money{}, ErrInvalidTerm
	}
	if annualRatePercent.IsNegative() {
		return core.Money{}, ErrNegativeRate
	}
	if principal.Cents < 0 {
		return core.Money{}, core.ErrInvalidAmount
	}

	p := decimal.NewFromInt(principal.Cents)
	n := decimal.NewFromInt(int64(termMonths))

	if annualRatePercent.IsZero() {
		return core.Money{Cents: p.Div(n).Round(0).IntPart()}, nil
	}

	r := annualRatePercent.Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(12))
	growth := decimal.NewFromInt(1).Add(r).Pow(n)
	payment := p.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	return core.Money{Cents: payment.Round(0).IntPart()}, nil
}
