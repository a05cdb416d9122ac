package pricing

import "bilancio/internal/core"

// WaterBill is the flat-rate water charge for a period.
type WaterBill struct {
	Usage int64
	Price core.Money
	Total core.Money
	// IncludesVAT is carried through for display. The current tariff
	// treats the unit price as VAT-inclusive, so the flag does not alter
	// the formula; it is a documented simplification, not a hook.
	IncludesVAT bool
}

// ComputeWater bills usage at a single unit price: total = usage x price.
func ComputeWater(usage int64, unitPrice core.Money, includesVAT bool) (WaterBill, error) {
	if usage < 0 {
		return WaterBill{}, ErrNegativeUsage
	}
	return WaterBill{
		Usage:       usage,
		Price:       unitPrice,
		Total:       core.Money{Cents: usage * unitPrice.Cents},
		IncludesVAT: includesVAT,
	}, nil
}
