package events

import (
	"context"
	"testing"
	"time"
)

func TestEventJSON(t *testing.T) {
	event := NewEvent(ExpenseUpdated, "g1", "e1", 3, "alice@example.com")
	event.Amount = "12.50"

	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	got, err := EventFromJSON(data)
	if err != nil {
		t.Fatalf("EventFromJSON failed: %v", err)
	}
	if got.Type != ExpenseUpdated || got.GroupID != "g1" || got.ExpenseID != "e1" || got.Version != 3 {
		t.Errorf("got %+v, want %+v", got, event)
	}
	if got.Amount != "12.50" || got.Actor != "alice@example.com" {
		t.Errorf("got amount %s actor %s", got.Amount, got.Actor)
	}
	if !got.OccurredAt.Equal(event.OccurredAt) {
		t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, event.OccurredAt)
	}
}

func TestNewEventStampsTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	event := NewEvent(ExpenseCreated, "g1", "e1", 1, "bob")
	if event.OccurredAt.Before(before) {
		t.Errorf("OccurredAt %v is too old", event.OccurredAt)
	}
}

func TestEventFromJSON_Invalid(t *testing.T) {
	if _, err := EventFromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	events []Event
}

func (r *recordingPublisher) Publish(ctx context.Context, event Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func TestPublisherImplementations(t *testing.T) {
	var publishers = []Publisher{NopPublisher{}, &recordingPublisher{}}
	for _, p := range publishers {
		if err := p.Publish(context.Background(), NewEvent(ExpenseDeleted, "g", "e", 2, "x")); err != nil {
			t.Errorf("%T.Publish() = %v", p, err)
		}
		if err := p.Close(); err != nil {
			t.Errorf("%T.Close() = %v", p, err)
		}
	}
}
