package core

import "errors"

const (
	// MeterMain is the landlord's meter; tenant meters bill against it.
	MeterMain   MeterOwner = "main"
	MeterTenant MeterOwner = "tenant"

	UtilityElectricity UtilityKind = "electricity"
	UtilityWater       UtilityKind = "water"
)

type (
	MeterOwner  string
	UtilityKind string

	UtilityMeter struct {
		ID     int64
		Name   string
		Owner  MeterOwner
		Kind   UtilityKind
		Active bool
	}

	// ElectricityTier is one usage bracket of the tariff table. Limit is
	// the cap on units billable in this tier; 0 means unbounded, which is
	// only valid on the last tier.
	ElectricityTier struct {
		ID       int64
		Position int
		Limit    int64
		Price    Money
	}

	// UtilityBill is computed from two meter readings over a period. The
	// amounts are stored at creation and never recomputed.
	UtilityBill struct {
		ID          int64
		MeterID     int64
		Kind        UtilityKind
		PeriodStart Date
		PeriodEnd   Date
		PrevReading int64
		CurrReading int64
		Usage       int64
		Base        Money
		VAT         Money
		Total       Money
		IncludesVAT bool
	}
)

var (
	ErrReadingsOutOfOrder = errors.New("current reading below previous reading")
	ErrUnknownMeterOwner  = errors.New("unknown meter owner")
	ErrUnknownUtility     = errors.New("unknown utility kind")
)

func (m UtilityMeter) Validate() error {
	if m.Name == "" {
		return errors.New("empty meter name")
	}
	switch m.Owner {
	case MeterMain, MeterTenant:
	default:
		return ErrUnknownMeterOwner
	}
	switch m.Kind {
	case UtilityElectricity, UtilityWater:
	default:
		return ErrUnknownUtility
	}
	return nil
}
