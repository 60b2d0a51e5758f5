package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

type EventType string

const (
	EventWalletCreated      EventType = "wallet.created"
	EventWalletDeleted      EventType = "wallet.deleted"
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventLedgerImported     EventType = "ledger.imported"
	EventLedgerCleared      EventType = "ledger.cleared"
)

// Event notifies listeners that the ledger changed. It is informational:
// consumers cannot rebuild the ledger from events alone.
type Event struct {
	Type          EventType `json:"type"`
	WalletID      string    `json:"walletId,omitempty"`
	TransactionID string    `json:"transactionId,omitempty"`
	// Amount and Balance are decimal strings.
	Amount    string    `json:"amount,omitempty"`
	Balance   string    `json:"balance,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(t EventType, walletID string) *Event {
	return &Event{
		Type:      t,
		WalletID:  walletID,
		Timestamp: time.Now().UTC(),
	}
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" {
		return nil, errors.New("event without type")
	}
	return &e, nil
}
