package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseKind distinguishes shared costs from repayments between members.
type ExpenseKind string

const (
	// KindExpense is a cost shared between the assigned members.
	KindExpense ExpenseKind = "expense"
	// KindTransfer records a debtor paying a creditor back. It is stored as an
	// expense paid by the debtor and assigned to the creditor alone.
	KindTransfer ExpenseKind = "transfer"
)

// Expense is one entry in a group's expense log.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Kind is KindExpense or KindTransfer.
	Kind ExpenseKind

	// Description is the human-readable label (e.g., "Ferry tickets").
	Description string

	// Amount is the positive amount paid, in cents precision.
	Amount decimal.Decimal

	// Payer is the member email that paid.
	Payer string

	// AssignedTo lists the member emails sharing the cost.
	// It is resolved at write time, so it is never empty for new expenses.
	AssignedTo []string

	// CreatedBy is the member email that recorded the expense.
	CreatedBy string

	// CreatedAt is the Unix timestamp of the expense, used for display ordering.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last edit.
	UpdatedAt int64

	// Version starts at 1 and increments on every edit or delete.
	// Writers pass the version they read to detect concurrent edits.
	Version int64

	// DeletedAt is the Unix timestamp of deletion, 0 while the expense is live.
	DeletedAt int64
}

// Date returns CreatedAt as a time.Time.
func (e *Expense) Date() time.Time {
	return time.Unix(e.CreatedAt, 0)
}
