package core

import (
	"testing"
)

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Type:      Expense,
		Amount:    Money{Cents: 1500},
		AccountID: 1,
		Date:      NewDate(2025, 1, 15),
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"valid expense", func(tx *Transaction) {}, nil},
		{"zero amount", func(tx *Transaction) { tx.Amount.Cents = 0 }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount.Cents = -100 }, ErrInvalidAmount},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"missing account", func(tx *Transaction) { tx.AccountID = 0 }, ErrMissingAccount},
		{"transfer without destination", func(tx *Transaction) {
			tx.Type = Transfer
		}, ErrMissingDestination},
		{"transfer to itself", func(tx *Transaction) {
			tx.Type = Transfer
			tx.DestinationID = tx.AccountID
		}, ErrSameAccount},
		{"unknown type", func(tx *Transaction) { tx.Type = "refund" }, ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			if err := tx.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionEffects(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want []Effect
	}{
		{
			name: "income credits its account",
			tx:   Transaction{Type: Income, Amount: Money{Cents: 500}, AccountID: 1},
			want: []Effect{{AccountID: 1, Delta: 500}},
		},
		{
			name: "expense debits its account",
			tx:   Transaction{Type: Expense, Amount: Money{Cents: 500}, AccountID: 1},
			want: []Effect{{AccountID: 1, Delta: -500}},
		},
		{
			name: "transfer debits source and credits destination",
			tx:   Transaction{Type: Transfer, Amount: Money{Cents: 500}, AccountID: 1, DestinationID: 2},
			want: []Effect{{AccountID: 1, Delta: -500}, {AccountID: 2, Delta: 500}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.tx.Effects()
			if err != nil {
				t.Fatalf("Effects() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d effects, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("effect %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReverseEffectsCancelForward(t *testing.T) {
	tx := Transaction{Type: Transfer, Amount: Money{Cents: 750}, AccountID: 3, DestinationID: 9}

	forward, err := tx.Effects()
	if err != nil {
		t.Fatalf("Effects() error = %v", err)
	}
	reverse, err := tx.ReverseEffects()
	if err != nil {
		t.Fatalf("ReverseEffects() error = %v", err)
	}
	for i := range forward {
		if sum := forward[i].Delta + reverse[i].Delta; sum != 0 {
			t.Errorf("effect %d does not cancel: forward %d + reverse %d = %d",
				i, forward[i].Delta, reverse[i].Delta, sum)
		}
	}
}

func TestNextAfter(t *testing.T) {
	tests := []struct {
		name  string
		from  Date
		every RepetitionType
		want  Date
	}{
		{"daily", NewDate(2025, 1, 15), Daily, NewDate(2025, 1, 16)},
		{"weekly", NewDate(2025, 1, 28), Weekly, NewDate(2025, 2, 4)},
		{"monthly keeps the day", NewDate(2025, 1, 15), Monthly, NewDate(2025, 2, 15)},
		{"monthly clamps to short month", NewDate(2025, 1, 31), Monthly, NewDate(2025, 2, 28)},
		{"monthly across year end", NewDate(2025, 12, 15), Monthly, NewDate(2026, 1, 15)},
		{"yearly", NewDate(2025, 3, 10), Yearly, NewDate(2026, 3, 10)},
		{"yearly clamps leap day", NewDate(2024, 2, 29), Yearly, NewDate(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextAfter(tt.from, tt.every)
			if err != nil {
				t.Fatalf("NextAfter() error = %v", err)
			}
			if !got.Equal(tt.want.Time) {
				t.Errorf("NextAfter() = %s, want %s",
					got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}

	if _, err := NextAfter(NewDate(2025, 1, 1), "fortnightly"); err != ErrUnknownRepetition {
		t.Errorf("unknown repetition: err = %v, want %v", err, ErrUnknownRepetition)
	}
}

func TestNextAfterOnlyMovesForward(t *testing.T) {
	from := NewDate(2025, 6, 30)
	for _, every := range []RepetitionType{Daily, Weekly, Monthly, Yearly} {
		got, err := NextAfter(from, every)
		if err != nil {
			t.Fatalf("NextAfter(%s) error = %v", every, err)
		}
		if !got.After(from.Time) {
			t.Errorf("NextAfter(%s) = %s did not advance past %s",
				every, got.Format("2006-01-02"), from.Format("2006-01-02"))
		}
	}
}
