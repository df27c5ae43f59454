package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/tripsplit/internal/calculator"
	"github.com/mmynk/tripsplit/internal/events"
	"github.com/mmynk/tripsplit/internal/metrics"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/websocket"
)

// Notifier tells watchers that a group's ledger changed. Websocket
// subscribers get a hint to refetch balances; the broker gets a durable event.
// Delivery failures are logged and never fail the write that caused them.
type Notifier struct {
	hub       *websocket.Hub
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// NewNotifier wires the hub and publisher. publisher may be events.NopPublisher.
func NewNotifier(hub *websocket.Hub, publisher events.Publisher, m *metrics.Metrics) *Notifier {
	return &Notifier{hub: hub, publisher: publisher, metrics: m}
}

// ExpenseChanged reports a write to one expense. action is "created",
// "updated" or "deleted".
func (n *Notifier) ExpenseChanged(ctx context.Context, action string, expense *models.Expense, actor string) {
	n.metrics.LedgerWrites.WithLabelValues(action).Inc()

	n.hub.Broadcast(websocket.NewMessage("expense", action, expense.GroupID, expense.ID, map[string]any{
		"kind":    string(expense.Kind),
		"version": expense.Version,
		"summary": expense.Description + " " + calculator.FormatMoney(expense.Amount),
		"actor":   actor,
	}))

	event := events.NewEvent(eventType(expense.Kind, action), expense.GroupID, expense.ID, expense.Version, actor)
	event.Amount = expense.Amount.StringFixed(2)
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.metrics.EventsPublished.WithLabelValues("error").Inc()
		slog.Warn("Failed to publish ledger event",
			"type", event.Type,
			"group_id", event.GroupID,
			"expense_id", event.ExpenseID,
			"error", err,
		)
		return
	}
	n.metrics.EventsPublished.WithLabelValues("ok").Inc()
}

// GroupChanged reports a roster change.
func (n *Notifier) GroupChanged(group *models.Group) {
	n.hub.Broadcast(websocket.NewMessage("group", "updated", group.ID, group.ID, map[string]any{
		"members": group.Members,
	}))
}

func eventType(kind models.ExpenseKind, action string) string {
	if kind == models.KindTransfer && action == "created" {
		return events.TransferCreated
	}
	switch action {
	case "updated":
		return events.ExpenseUpdated
	case "deleted":
		return events.ExpenseDeleted
	default:
		return events.ExpenseCreated
	}
}
