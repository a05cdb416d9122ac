package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	Monthly RepetitionType = "monthly"
	Yearly  RepetitionType = "yearly"
	Weekly  RepetitionType = "weekly"
	Daily   RepetitionType = "daily"
)

const (
	// OriginUser marks a transaction entered directly by the user.
	OriginUser TransactionOrigin = "user"
	// OriginRecurring marks a transaction materialized from a recurring rule.
	OriginRecurring TransactionOrigin = "recurring"
	// OriginAdjustment marks a reconciliation correction. Adjustment rows are
	// kept in the log for history display; the account balance after a
	// reconciliation is the user-confirmed value, not the replayed sum.
	OriginAdjustment TransactionOrigin = "adjustment"
)

type (
	TransactionType   string
	RepetitionType    string
	TransactionOrigin string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Account struct {
		ID       int64
		Name     string
		Balance  Money
		Currency string
		Active   bool
	}

	// Transaction is a single posted financial event. DestinationID is set
	// only for transfers; CategoryID and RuleID are 0 when absent.
	Transaction struct {
		ID            int64
		Type          TransactionType
		Amount        Money
		AccountID     int64
		DestinationID int64
		CategoryID    int64
		Date          Date
		Description   string
		Origin        TransactionOrigin
		RuleID        int64
	}

	RecurringRule struct {
		ID            int64
		Type          TransactionType
		Amount        Money
		AccountID     int64
		DestinationID int64
		CategoryID    int64
		Description   string
		Every         RepetitionType
		NextDate      Date
		LastGenerated Date
		Active        bool
	}

	Budget struct {
		ID         int64
		CategoryID int64
		Month      int
		Year       int
		Limit      Money
	}

	// Reconciliation is an append-only audit record. Difference is always
	// Actual minus System at the moment the user confirmed the balance.
	Reconciliation struct {
		ID           int64
		AccountID    int64
		Date         Date
		System       Money
		Actual       Money
		Difference   Money
		AdjustmentID int64
		Notes        string
	}

	Installment struct {
		ID             int64
		Name           string
		Total          Money
		TermMonths     int
		AnnualRate     decimal.Decimal
		MonthlyPayment Money
		Remaining      Money
		Active         bool
	}
)

// Effect is a signed balance delta against a single account. It is the
// only currency through which ledger operations change account state.
type Effect struct {
	AccountID int64
	Delta     int64
}

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyDescription   = errors.New("empty description")
	ErrMissingAccount     = errors.New("missing account")
	ErrMissingDestination = errors.New("transfer requires a destination account")
	ErrSameAccount        = errors.New("transfer source and destination must differ")
	ErrUnknownType        = errors.New("unknown transaction type")
	ErrUnknownRepetition  = errors.New("unknown repetition type")
)

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) Day() int   { return d.Time.Day() }
func (d Date) Month() int { return int(d.Time.Month()) }
func (d Date) Year() int  { return d.Time.Year() }

// IsEmpty reports whether the date was never set (optional dates).
func (d Date) IsEmpty() bool { return d.IsZero() }

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.AccountID == 0 {
		return ErrMissingAccount
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	switch t.Type {
	case Income, Expense:
		if t.DestinationID != 0 {
			return errors.New("destination account only valid for transfers")
		}
	case Transfer:
		if t.DestinationID == 0 {
			return ErrMissingDestination
		}
		if t.DestinationID == t.AccountID {
			return ErrSameAccount
		}
	default:
		return ErrUnknownType
	}
	return nil
}

// Effects returns the signed balance deltas this transaction applies when
// posted: income credits its account, expense debits it, and a transfer
// debits the source and credits the destination in the same operation.
func (t Transaction) Effects() ([]Effect, error) {
	switch t.Type {
	case Income:
		return []Effect{{AccountID: t.AccountID, Delta: t.Amount.Cents}}, nil
	case Expense:
		return []Effect{{AccountID: t.AccountID, Delta: -t.Amount.Cents}}, nil
	case Transfer:
		return []Effect{
			{AccountID: t.AccountID, Delta: -t.Amount.Cents},
			{AccountID: t.DestinationID, Delta: t.Amount.Cents},
		}, nil
	default:
		return nil, ErrUnknownType
	}
}

// ReverseEffects returns the deltas that undo this transaction.
func (t Transaction) ReverseEffects() ([]Effect, error) {
	effects, err := t.Effects()
	if err != nil {
		return nil, err
	}
	reversed := make([]Effect, len(effects))
	for i, e := range effects {
		reversed[i] = Effect{AccountID: e.AccountID, Delta: -e.Delta}
	}
	return reversed, nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("empty account name")
	}
	if a.Currency == "" {
		return errors.New("empty currency")
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if err := r.NextDate.Validate(); err != nil {
		return errors.New("invalid next date: " + err.Error())
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if r.AccountID == 0 {
		return ErrMissingAccount
	}
	switch r.Type {
	case Income, Expense:
	case Transfer:
		if r.DestinationID == 0 {
			return ErrMissingDestination
		}
		if r.DestinationID == r.AccountID {
			return ErrSameAccount
		}
	default:
		return ErrUnknownType
	}
	switch r.Every {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return ErrUnknownRepetition
	}
	if len(strings.TrimSpace(r.Description)) == 0 {
		return ErrEmptyDescription
	}
	return nil
}

// NextAfter advances a date by exactly one recurrence period from its
// previous value. Monthly and yearly steps clamp to the last day of the
// target month so a rule anchored on the 31st never skips a month.
func NextAfter(d Date, every RepetitionType) (Date, error) {
	switch every {
	case Daily:
		return DateOf(d.AddDate(0, 0, 1)), nil
	case Weekly:
		return DateOf(d.AddDate(0, 0, 7)), nil
	case Monthly:
		return addMonthsClamped(d, 1), nil
	case Yearly:
		return addMonthsClamped(d, 12), nil
	default:
		return Date{}, ErrUnknownRepetition
	}
}

func addMonthsClamped(d Date, months int) Date {
	year, month, day := d.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

func (b Budget) Validate() error {
	if b.CategoryID == 0 {
		return errors.New("missing category")
	}
	if b.Month < 1 || b.Month > 12 {
		return errors.New("invalid month")
	}
	if b.Year < 1 {
		return errors.New("invalid year")
	}
	if err := b.Limit.Validate(); err != nil {
		return err
	}
	return nil
}

func (i Installment) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return errors.New("empty installment name")
	}
	if err := i.Total.Validate(); err != nil {
		return err
	}
	if i.TermMonths < 1 {
		return errors.New("term must be at least one month")
	}
	if i.AnnualRate.IsNegative() {
		return errors.New("negative interest rate")
	}
	return nil
}
