package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/pricing"
)

// UtilityService computes and stores tenant utility bills from meter
// readings and the stored electricity tariff.
type UtilityService struct {
	store UtilityStore
	// VAT percent applied to electricity bills; water is billed flat.
	vatPercent decimal.Decimal
	waterPrice core.Money
}

func NewUtilityService(store UtilityStore, vatPercent decimal.Decimal, waterPrice core.Money) *UtilityService {
	return &UtilityService{store: store, vatPercent: vatPercent, waterPrice: waterPrice}
}

func (s *UtilityService) CreateMeter(ctx context.Context, m core.UtilityMeter) (core.UtilityMeter, error) {
	if err := m.Validate(); err != nil {
		return core.UtilityMeter{}, core.NewValidationError("%s", err.Error())
	}
	return s.store.CreateMeter(ctx, m)
}

func (s *UtilityService) ListMeters(ctx context.Context) ([]core.UtilityMeter, error) {
	return s.store.ListMeters(ctx)
}

// SetTariff replaces the electricity tier table. Tiers must be in
// allocation order with only the last one unbounded.
func (s *UtilityService) SetTariff(ctx context.Context, tiers []core.ElectricityTier) error {
	if len(tiers) == 0 {
		return core.NewValidationError("tariff table cannot be empty")
	}
	for i, tier := range tiers {
		if tier.Limit <= 0 && i != len(tiers)-1 {
			return core.NewValidationError("unbounded tier must be last")
		}
		if err := tier.Price.Validate(); err != nil {
			return core.NewValidationError("tier %d: %s", i+1, err.Error())
		}
	}
	return s.store.ReplaceTiers(ctx, tiers)
}

// PreviewBill computes a bill from two readings without storing anything,
// so the UI can show the breakdown before committing.
func (s *UtilityService) PreviewBill(ctx context.Context, meterID, prevReading, currReading int64, start, end core.Date) (core.UtilityBill, error) {
	meter, err := s.store.GetMeter(ctx, meterID)
	if err != nil {
		return core.UtilityBill{}, err
	}
	if currReading < prevReading {
		return core.UtilityBill{}, core.NewValidationError("%s", core.ErrReadingsOutOfOrder.Error())
	}
	usage := currReading - prevReading

	bill := core.UtilityBill{
		MeterID:     meterID,
		Kind:        meter.Kind,
		PeriodStart: start,
		PeriodEnd:   end,
		PrevReading: prevReading,
		CurrReading: currReading,
		Usage:       usage,
	}

	switch meter.Kind {
	case core.UtilityElectricity:
		tiers, err := s.store.ListTiers(ctx)
		if err != nil {
			return core.UtilityBill{}, err
		}
		computed, err := pricing.ComputeElectricity(usage, tiers, s.vatPercent)
		if err != nil {
			return core.UtilityBill{}, fmt.Errorf("compute electricity bill: %w", err)
		}
		bill.Base = computed.Base
		bill.VAT = computed.VAT
		bill.Total = computed.Total
	case core.UtilityWater:
		computed, err := pricing.ComputeWater(usage, s.waterPrice, true)
		if err != nil {
			return core.UtilityBill{}, fmt.Errorf("compute water bill: %w", err)
		}
		bill.Base = computed.Total
		bill.Total = computed.Total
		bill.IncludesVAT = computed.IncludesVAT
	default:
		return core.UtilityBill{}, core.ErrUnknownUtility
	}

	return bill, nil
}

// CreateBill computes and stores a bill for the period.
func (s *UtilityService) CreateBill(ctx context.Context, meterID, prevReading, currReading int64, start, end core.Date) (core.UtilityBill, error) {
	bill, err := s.PreviewBill(ctx, meterID, prevReading, currReading, start, end)
	if err != nil {
		return core.UtilityBill{}, err
	}
	return s.store.InsertBill(ctx, bill)
}

func (s *UtilityService) BillsForMeter(ctx context.Context, meterID int64) ([]core.UtilityBill, error) {
	return s.store.ListBillsByMeter(ctx, meterID)
}
