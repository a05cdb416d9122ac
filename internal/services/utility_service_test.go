package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func seedMeter(t *testing.T, store *fakeUtilityStore, kind core.UtilityKind) core.UtilityMeter {
	t.Helper()
	meter, err := store.CreateMeter(context.Background(), core.UtilityMeter{
		Name:   "tenant " + string(kind),
		Owner:  core.MeterTenant,
		Kind:   kind,
		Active: true,
	})
	if err != nil {
		t.Fatalf("seed meter: %v", err)
	}
	return meter
}

func TestPreviewElectricityBill(t *testing.T) {
	store := newFakeUtilityStore()
	svc := NewUtilityService(store, decimal.NewFromInt(8), core.Money{Cents: 2500})
	meter := seedMeter(t, store, core.UtilityElectricity)

	err := svc.SetTariff(context.Background(), []core.ElectricityTier{
		{Position: 1, Limit: 150, Price: core.Money{Cents: 50}},
		{Position: 2, Limit: 100, Price: core.Money{Cents: 75}},
		{Position: 3, Limit: 0, Price: core.Money{Cents: 100}},
	})
	if err != nil {
		t.Fatalf("SetTariff: %v", err)
	}

	bill, err := svc.PreviewBill(context.Background(), meter.ID, 1000, 1300,
		core.NewDate(2025, 5, 1), core.NewDate(2025, 5, 31))
	if err != nil {
		t.Fatalf("PreviewBill: %v", err)
	}

	if bill.Usage != 300 {
		t.Errorf("usage = %d, want 300", bill.Usage)
	}
	// 150x50 + 100x75 + 50x100 = 20000, VAT 8% = 1600.
	if bill.Base.Cents != 20000 {
		t.Errorf("base = %d, want 20000", bill.Base.Cents)
	}
	if bill.VAT.Cents != 1600 {
		t.Errorf("vat = %d, want 1600", bill.VAT.Cents)
	}
	if bill.Total.Cents != 21600 {
		t.Errorf("total = %d, want 21600", bill.Total.Cents)
	}
	if len(store.bills) != 0 {
		t.Errorf("preview stored %d bills, want 0", len(store.bills))
	}
}

func TestCreateWaterBillIsFlatRate(t *testing.T) {
	store := newFakeUtilityStore()
	svc := NewUtilityService(store, decimal.NewFromInt(8), core.Money{Cents: 2500})
	meter := seedMeter(t, store, core.UtilityWater)

	bill, err := svc.CreateBill(context.Background(), meter.ID, 100, 104,
		core.NewDate(2025, 5, 1), core.NewDate(2025, 5, 31))
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}

	if bill.Usage != 4 {
		t.Errorf("usage = %d, want 4", bill.Usage)
	}
	if bill.Total.Cents != 10000 {
		t.Errorf("total = %d, want 10000", bill.Total.Cents)
	}
	if bill.VAT.Cents != 0 {
		t.Errorf("vat = %d, want 0 (unit price is VAT-inclusive)", bill.VAT.Cents)
	}
	if !bill.IncludesVAT {
		t.Error("IncludesVAT = false, want true")
	}

	stored, err := svc.BillsForMeter(context.Background(), meter.ID)
	if err != nil {
		t.Fatalf("BillsForMeter: %v", err)
	}
	if len(stored) != 1 || stored[0].ID == 0 {
		t.Errorf("stored bills = %+v, want one bill with an id", stored)
	}
}

func TestPreviewRejectsBackwardReadings(t *testing.T) {
	store := newFakeUtilityStore()
	svc := NewUtilityService(store, decimal.NewFromInt(8), core.Money{Cents: 2500})
	meter := seedMeter(t, store, core.UtilityWater)

	_, err := svc.PreviewBill(context.Background(), meter.ID, 200, 150,
		core.NewDate(2025, 5, 1), core.NewDate(2025, 5, 31))
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestPreviewUnknownMeter(t *testing.T) {
	store := newFakeUtilityStore()
	svc := NewUtilityService(store, decimal.NewFromInt(8), core.Money{Cents: 2500})

	_, err := svc.PreviewBill(context.Background(), 42, 0, 10,
		core.NewDate(2025, 5, 1), core.NewDate(2025, 5, 31))
	var nferr *core.NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestSetTariffValidation(t *testing.T) {
	store := newFakeUtilityStore()
	svc := NewUtilityService(store, decimal.NewFromInt(8), core.Money{Cents: 2500})

	tests := []struct {
		name  string
		tiers []core.ElectricityTier
	}{
		{"empty table", nil},
		{"unbounded tier not last", []core.ElectricityTier{
			{Position: 1, Limit: 0, Price: core.Money{Cents: 50}},
			{Position: 2, Limit: 100, Price: core.Money{Cents: 75}},
		}},
		{"zero price", []core.ElectricityTier{
			{Position: 1, Limit: 100, Price: core.Money{}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SetTariff(context.Background(), tt.tiers)
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestCreateMeterValidation(t *testing.T) {
	store := newFakeUtilityStore()
	svc := NewUtilityService(store, decimal.NewFromInt(8), core.Money{Cents: 2500})

	tests := []struct {
		name  string
		meter core.UtilityMeter
	}{
		{"empty name", core.UtilityMeter{Owner: core.MeterTenant, Kind: core.UtilityWater}},
		{"bad owner", core.UtilityMeter{Name: "m", Owner: "landlord", Kind: core.UtilityWater}},
		{"bad kind", core.UtilityMeter{Name: "m", Owner: core.MeterMain, Kind: "gas"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateMeter(context.Background(), tt.meter)
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}
