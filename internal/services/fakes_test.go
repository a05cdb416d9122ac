package services

import (
	"context"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
)

// In-memory store fakes. They mirror the storage layer's semantics close
// enough for service tests: effects mutate balances, writes are atomic
// because nothing here is concurrent, and rule advances use the same
// compare-and-swap contract as the real store.

type fakeLedgerStore struct {
	accounts     map[int64]core.Account
	transactions map[int64]core.Transaction
	nextID       int64
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{
		accounts:     make(map[int64]core.Account),
		transactions: make(map[int64]core.Transaction),
		nextID:       1,
	}
}

func (f *fakeLedgerStore) addAccount(name string, balanceCents int64, active bool) core.Account {
	a := core.Account{
		ID:       f.nextID,
		Name:     name,
		Balance:  core.Money{Cents: balanceCents},
		Currency: "EUR",
		Active:   active,
	}
	f.nextID++
	f.accounts[a.ID] = a
	return a
}

func (f *fakeLedgerStore) applyEffects(effects []core.Effect) error {
	for _, e := range effects {
		a, ok := f.accounts[e.AccountID]
		if !ok {
			return &core.NotFoundError{Entity: "account", ID: e.AccountID}
		}
		a.Balance.Cents += e.Delta
		f.accounts[e.AccountID] = a
	}
	return nil
}

func (f *fakeLedgerStore) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	a.ID = f.nextID
	f.nextID++
	f.accounts[a.ID] = a
	return a, nil
}

func (f *fakeLedgerStore) GetAccount(_ context.Context, id int64) (core.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return core.Account{}, &core.NotFoundError{Entity: "account", ID: id}
	}
	return a, nil
}

func (f *fakeLedgerStore) ListAccounts(_ context.Context, includeInactive bool) ([]core.Account, error) {
	var out []core.Account
	for _, a := range f.accounts {
		if a.Active || includeInactive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeLedgerStore) DeactivateAccount(_ context.Context, id int64) error {
	a, ok := f.accounts[id]
	if !ok {
		return &core.NotFoundError{Entity: "account", ID: id}
	}
	a.Active = false
	f.accounts[id] = a
	return nil
}

func (f *fakeLedgerStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Origin == "" {
		t.Origin = core.OriginUser
	}
	t.ID = f.nextID
	f.nextID++
	effects, err := t.Effects()
	if err != nil {
		return core.Transaction{}, err
	}
	if err := f.applyEffects(effects); err != nil {
		return core.Transaction{}, err
	}
	f.transactions[t.ID] = t
	return t, nil
}

func (f *fakeLedgerStore) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	return t, nil
}

func (f *fakeLedgerStore) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	old, ok := f.transactions[t.ID]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: t.ID}
	}
	reverse, err := old.ReverseEffects()
	if err != nil {
		return core.Transaction{}, err
	}
	if err := f.applyEffects(reverse); err != nil {
		return core.Transaction{}, err
	}
	t.Origin = old.Origin
	t.RuleID = old.RuleID
	forward, err := t.Effects()
	if err != nil {
		return core.Transaction{}, err
	}
	if err := f.applyEffects(forward); err != nil {
		return core.Transaction{}, err
	}
	f.transactions[t.ID] = t
	return t, nil
}

func (f *fakeLedgerStore) DeleteTransaction(_ context.Context, id int64) error {
	t, ok := f.transactions[id]
	if !ok {
		return &core.NotFoundError{Entity: "transaction", ID: id}
	}
	reverse, err := t.ReverseEffects()
	if err != nil {
		return err
	}
	if err := f.applyEffects(reverse); err != nil {
		return err
	}
	delete(f.transactions, id)
	return nil
}

func (f *fakeLedgerStore) ListTransactionsByWindow(_ context.Context, from, to core.Date) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range f.transactions {
		if !t.Date.Before(from.Time) && t.Date.Before(to.Time) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeLedgerStore) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	from := core.NewDate(year, month, 1)
	return f.ListTransactionsByWindow(ctx, from, core.DateOf(from.AddDate(0, 1, 0)))
}

func (f *fakeLedgerStore) SumEffectsForAccount(_ context.Context, accountID int64) (int64, error) {
	var sum int64
	for _, t := range f.transactions {
		if t.Origin == core.OriginAdjustment {
			continue
		}
		effects, err := t.Effects()
		if err != nil {
			return 0, err
		}
		for _, e := range effects {
			if e.AccountID == accountID {
				sum += e.Delta
			}
		}
	}
	return sum, nil
}

type fakePublisher struct {
	messages []*amqp.LedgerEventMessage
	err      error
}

func (f *fakePublisher) PublishLedgerEvent(_ context.Context, msg *amqp.LedgerEventMessage) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakePublisher) eventNames() []string {
	names := make([]string, len(f.messages))
	for i, m := range f.messages {
		names[i] = m.Event
	}
	return names
}

type fakeRuleStore struct {
	ledger *fakeLedgerStore
	rules  map[int64]core.RecurringRule
	nextID int64
}

func newFakeRuleStore(ledger *fakeLedgerStore) *fakeRuleStore {
	return &fakeRuleStore{
		ledger: ledger,
		rules:  make(map[int64]core.RecurringRule),
		nextID: 1,
	}
}

func (f *fakeRuleStore) CreateRule(_ context.Context, rule core.RecurringRule) (core.RecurringRule, error) {
	rule.ID = f.nextID
	f.nextID++
	f.rules[rule.ID] = rule
	return rule, nil
}

func (f *fakeRuleStore) GetRule(_ context.Context, id int64) (core.RecurringRule, error) {
	rule, ok := f.rules[id]
	if !ok {
		return core.RecurringRule{}, &core.NotFoundError{Entity: "recurring rule", ID: id}
	}
	return rule, nil
}

func (f *fakeRuleStore) ListDueRules(_ context.Context, asOf core.Date) ([]core.RecurringRule, error) {
	var out []core.RecurringRule
	for _, rule := range f.rules {
		if rule.Active && !rule.NextDate.After(asOf.Time) {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (f *fakeRuleStore) SetRuleActive(_ context.Context, id int64, active bool) error {
	rule, ok := f.rules[id]
	if !ok {
		return &core.NotFoundError{Entity: "recurring rule", ID: id}
	}
	rule.Active = active
	f.rules[id] = rule
	return nil
}

func (f *fakeRuleStore) MaterializeRule(ctx context.Context, rule core.RecurringRule, newNext core.Date) (core.Transaction, bool, error) {
	stored, ok := f.rules[rule.ID]
	if !ok {
		return core.Transaction{}, false, &core.NotFoundError{Entity: "recurring rule", ID: rule.ID}
	}
	// Same compare-and-swap the real store runs in SQL.
	if !stored.Active || !stored.NextDate.Equal(rule.NextDate.Time) {
		return core.Transaction{}, false, nil
	}
	created, err := f.ledger.CreateTransaction(ctx, core.Transaction{
		Type:          rule.Type,
		Amount:        rule.Amount,
		AccountID:     rule.AccountID,
		DestinationID: rule.DestinationID,
		CategoryID:    rule.CategoryID,
		Date:          rule.NextDate,
		Description:   rule.Description,
		Origin:        core.OriginRecurring,
		RuleID:        rule.ID,
	})
	if err != nil {
		return core.Transaction{}, false, err
	}
	stored.LastGenerated = stored.NextDate
	stored.NextDate = newNext
	f.rules[rule.ID] = stored
	return created, true, nil
}

type fakeReconStore struct {
	ledger          *fakeLedgerStore
	reconciliations []core.Reconciliation
}

func (f *fakeReconStore) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return f.ledger.GetAccount(ctx, id)
}

func (f *fakeReconStore) Reconcile(ctx context.Context, accountID int64, actual core.Money, date core.Date, notes string) (core.Reconciliation, error) {
	account, err := f.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return core.Reconciliation{}, err
	}
	rec := core.Reconciliation{
		ID:         int64(len(f.reconciliations) + 1),
		AccountID:  accountID,
		Date:       date,
		System:     account.Balance,
		Actual:     actual,
		Difference: core.Money{Cents: actual.Cents - account.Balance.Cents},
		Notes:      notes,
	}
	if rec.Difference.Cents != 0 {
		adjType := core.Income
		amount := rec.Difference.Cents
		if amount < 0 {
			adjType = core.Expense
			amount = -amount
		}
		adj := core.Transaction{
			Type:        adjType,
			Amount:      core.Money{Cents: amount},
			AccountID:   accountID,
			Date:        date,
			Description: "Balance reconciliation",
			Origin:      core.OriginAdjustment,
		}
		adj.ID = f.ledger.nextID
		f.ledger.nextID++
		// Adjustment rows are logged without applying their effects; the
		// force-set below lands the account on the confirmed value.
		f.ledger.transactions[adj.ID] = adj
		rec.AdjustmentID = adj.ID

		account.Balance = actual
		f.ledger.accounts[accountID] = account
	}
	f.reconciliations = append(f.reconciliations, rec)
	return rec, nil
}

func (f *fakeReconStore) ListReconciliations(_ context.Context, accountID int64) ([]core.Reconciliation, error) {
	var out []core.Reconciliation
	for _, r := range f.reconciliations {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeBudgetStore struct {
	ledger  *fakeLedgerStore
	budgets map[int64]core.Budget
	nextID  int64
}

func newFakeBudgetStore(ledger *fakeLedgerStore) *fakeBudgetStore {
	return &fakeBudgetStore{ledger: ledger, budgets: make(map[int64]core.Budget), nextID: 1}
}

func (f *fakeBudgetStore) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	for id, existing := range f.budgets {
		if existing.CategoryID == b.CategoryID && existing.Month == b.Month && existing.Year == b.Year {
			b.ID = id
			f.budgets[id] = b
			return b, nil
		}
	}
	b.ID = f.nextID
	f.nextID++
	f.budgets[b.ID] = b
	return b, nil
}

func (f *fakeBudgetStore) DeleteBudget(_ context.Context, id int64) error {
	if _, ok := f.budgets[id]; !ok {
		return &core.NotFoundError{Entity: "budget", ID: id}
	}
	delete(f.budgets, id)
	return nil
}

func (f *fakeBudgetStore) ListBudgetsForMonth(_ context.Context, year, month int) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range f.budgets {
		if b.Year == year && b.Month == month {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBudgetStore) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	return f.ledger.ListTransactionsByMonth(ctx, year, month)
}

type fakeInstallmentStore struct {
	installments map[int64]core.Installment
	nextID       int64
}

func newFakeInstallmentStore() *fakeInstallmentStore {
	return &fakeInstallmentStore{installments: make(map[int64]core.Installment), nextID: 1}
}

func (f *fakeInstallmentStore) CreateInstallment(_ context.Context, i core.Installment) (core.Installment, error) {
	i.ID = f.nextID
	f.nextID++
	f.installments[i.ID] = i
	return i, nil
}

func (f *fakeInstallmentStore) GetInstallment(_ context.Context, id int64) (core.Installment, error) {
	i, ok := f.installments[id]
	if !ok {
		return core.Installment{}, &core.NotFoundError{Entity: "installment", ID: id}
	}
	return i, nil
}

func (f *fakeInstallmentStore) ListInstallments(_ context.Context, includeInactive bool) ([]core.Installment, error) {
	var out []core.Installment
	for _, i := range f.installments {
		if i.Active || includeInactive {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeInstallmentStore) RecordInstallmentPayment(_ context.Context, id, amountCents int64) (core.Installment, error) {
	i, ok := f.installments[id]
	if !ok {
		return core.Installment{}, &core.NotFoundError{Entity: "installment", ID: id}
	}
	i.Remaining.Cents -= amountCents
	if i.Remaining.Cents < 0 {
		i.Remaining.Cents = 0
	}
	i.Active = i.Remaining.Cents > 0
	f.installments[id] = i
	return i, nil
}

type fakeUtilityStore struct {
	meters map[int64]core.UtilityMeter
	tiers  []core.ElectricityTier
	bills  []core.UtilityBill
	nextID int64
}

func newFakeUtilityStore() *fakeUtilityStore {
	return &fakeUtilityStore{meters: make(map[int64]core.UtilityMeter), nextID: 1}
}

func (f *fakeUtilityStore) CreateMeter(_ context.Context, m core.UtilityMeter) (core.UtilityMeter, error) {
	m.ID = f.nextID
	f.nextID++
	f.meters[m.ID] = m
	return m, nil
}

func (f *fakeUtilityStore) GetMeter(_ context.Context, id int64) (core.UtilityMeter, error) {
	m, ok := f.meters[id]
	if !ok {
		return core.UtilityMeter{}, &core.NotFoundError{Entity: "utility meter", ID: id}
	}
	return m, nil
}

func (f *fakeUtilityStore) ListMeters(_ context.Context) ([]core.UtilityMeter, error) {
	var out []core.UtilityMeter
	for _, m := range f.meters {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeUtilityStore) ReplaceTiers(_ context.Context, tiers []core.ElectricityTier) error {
	f.tiers = tiers
	return nil
}

func (f *fakeUtilityStore) ListTiers(_ context.Context) ([]core.ElectricityTier, error) {
	return f.tiers, nil
}

func (f *fakeUtilityStore) InsertBill(_ context.Context, b core.UtilityBill) (core.UtilityBill, error) {
	b.ID = int64(len(f.bills) + 1)
	f.bills = append(f.bills, b)
	return b, nil
}

func (f *fakeUtilityStore) ListBillsByMeter(_ context.Context, meterID int64) ([]core.UtilityBill, error) {
	var out []core.UtilityBill
	for _, b := range f.bills {
		if b.MeterID == meterID {
			out = append(out, b)
		}
	}
	return out, nil
}
