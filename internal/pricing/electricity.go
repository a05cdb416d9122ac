// Package pricing holds the pure billing and amortization calculators.
// Nothing in here touches storage or clocks; every function is a plain
// computation over its inputs so the UI can preview amounts before
// committing them.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// TierLine is the per-tier slice of an electricity bill breakdown.
type TierLine struct {
	Units    int64
	Price    core.Money
	Subtotal core.Money
}

// ElectricityBill is the full breakdown of a tiered electricity charge.
type ElectricityBill struct {
	Lines []TierLine
	Base  core.Money
	VAT   core.Money
	Total core.Money
}

var (
	ErrNegativeUsage = errors.New("usage cannot be negative")
	ErrNoTiers       = errors.New("tariff table is empty")
	ErrTierOrder     = errors.New("unbounded tier must be last")
)

// ComputeElectricity allocates usage strictly sequentially across the
// ordered tier table: tier one fills up to its limit, then tier two, and
// so on; a tier with Limit 0 is unbounded and absorbs the remainder.
// Allocation stops when the usage is consumed or the tiers run out. VAT is
// rounded half-up to the nearest cent. Zero usage yields an all-zero
// breakdown, not an error.
func ComputeElectricity(usage int64, tiers []core.ElectricityTier, vatPercent decimal.Decimal) (ElectricityBill, error) {
	if usage < 0 {
		return ElectricityBill{}, ErrNegativeUsage
	}
	if len(tiers) == 0 {
		return ElectricityBill{}, ErrNoTiers
	}
	for _, tier := range tiers[:len(tiers)-1] {
		if tier.Limit <= 0 {
			return ElectricityBill{}, ErrTierOrder
		}
	}

	bill := ElectricityBill{}
	remaining := usage
	for _, tier := range tiers {
		units := remaining
		if tier.Limit > 0 && units > tier.Limit {
			units = tier.Limit
		}
		subtotal := units * tier.Price.Cents
		bill.Lines = append(bill.Lines, TierLine{
			Units:    units,
			Price:    tier.Price,
			Subtotal: core.Money{Cents: subtotal},
		})
		bill.Base.Cents += subtotal
		remaining -= units
		if remaining == 0 {
			break
		}
	}

	bill.VAT = vatOf(bill.Base, vatPercent)
	bill.Total = core.Money{Cents: bill.Base.Cents + bill.VAT.Cents}
	return bill, nil
}

// vatOf computes base x percent / 100 rounded half-up to the nearest cent.
// Half-up matches how the bills were rounded historically; changing the
// rounding mode changes stored totals.
func vatOf(base core.Money, percent decimal.Decimal) core.Money {
	if percent.IsZero() || base.Cents == 0 {
		return core.Money{}
	}
	vat := decimal.NewFromInt(base.Cents).
		Mul(percent).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return core.Money{Cents: vat.IntPart()}
}
