// Package events publishes ledger changes to a message broker so that other
// systems (notifications, exports) can follow a group's expense log.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event types, one per expense log write.
const (
	ExpenseCreated  = "expense_created"
	ExpenseUpdated  = "expense_updated"
	ExpenseDeleted  = "expense_deleted"
	TransferCreated = "transfer_created"
)

// Event describes one write to a group's expense log.
type Event struct {
	Type       string    `json:"type"`
	GroupID    string    `json:"group_id"`
	ExpenseID  string    `json:"expense_id"`
	Version    int64     `json:"version"`
	Actor      string    `json:"actor"`
	Amount     string    `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType, groupID, expenseID string, version int64, actor string) Event {
	return Event{
		Type:       eventType,
		GroupID:    groupID,
		ExpenseID:  expenseID,
		Version:    version,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
