package core

import "fmt"

// ValidationError rejects bad input before any mutation happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// NewValidationError wraps a reason into a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError signals that a referenced row no longer exists. Operations
// that hit it leave no partial effect behind.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConsistencyWarning is emitted when a reconciliation intentionally breaks
// replay-equivalence between the transaction log and the stored balance.
// It is informational: the operation that produced it still succeeded.
type ConsistencyWarning struct {
	AccountID  int64
	Difference Money
}

func (w *ConsistencyWarning) Error() string {
	return fmt.Sprintf("account %d balance diverges from log replay by %d cents after reconciliation",
		w.AccountID, w.Difference.Cents)
}
