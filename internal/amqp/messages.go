package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventTransactionPosted  = "transaction.posted"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
	// EventConsistencyWarning flags the intentional balance/log divergence
	// a reconciliation introduces, so downstream tooling can surface it.
	EventConsistencyWarning = "reconciliation.divergence"
)

// LedgerEventMessage is a lightweight notification: consumers fetch the
// full row from storage by ID instead of trusting a fat payload.
type LedgerEventMessage struct {
	EventID       string    `json:"event_id"`
	Event         string    `json:"event"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	AccountID     int64     `json:"account_id,omitempty"`
	DeltaCents    int64     `json:"delta_cents,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(event string, transactionID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		EventID:       uuid.NewString(),
		Event:         event,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// NewConsistencyWarningMessage builds the divergence notification emitted
// after a nonzero reconciliation.
func NewConsistencyWarningMessage(accountID, differenceCents int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		EventID:    uuid.NewString(),
		Event:      EventConsistencyWarning,
		AccountID:  accountID,
		DeltaCents: differenceCents,
		Timestamp:  time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
