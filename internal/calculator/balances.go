// Package calculator holds the shared-expense ledger: per-member balances and
// the transfers that settle them. Everything here is a pure function over the
// values it is handed, so it is safe to call concurrently and to re-run on
// every change to the expense list.
package calculator

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// BalanceRow is one member's position in the ledger.
type BalanceRow struct {
	Member string
	Paid   decimal.Decimal // Sum of amounts this member paid
	Owed   decimal.Decimal // Sum of this member's shares
	Net    decimal.Decimal // Paid - Owed. Positive = is owed money, negative = owes money
}

// tracker accumulates paid/owed totals and remembers discovery order.
type tracker struct {
	order []string
	paid  map[string]decimal.Decimal
	owed  map[string]decimal.Decimal
}

func newTracker(capacity int) *tracker {
	return &tracker{
		order: make([]string, 0, capacity),
		paid:  make(map[string]decimal.Decimal, capacity),
		owed:  make(map[string]decimal.Decimal, capacity),
	}
}

func (t *tracker) track(member string) {
	if _, ok := t.paid[member]; ok {
		return
	}
	t.order = append(t.order, member)
	t.paid[member] = decimal.Zero
	t.owed[member] = decimal.Zero
}

// ComputeBalances folds expenses into one BalanceRow per member.
//
// The member set is the union of members, every payer and every assignee, so a
// historical expense that references someone no longer in the group still
// yields a row for them. Rows are sorted by Net descending (creditors first);
// ties keep the order in which members were first seen.
//
// Algorithm:
// - Declared members start at zero
// - For each expense: payer paid +amount, each assignee owes amount/|assigned|
// - Every running total is rounded to cents after each step
// - An expense with no assignees adds to paid and to nobody's owed
//
// Expenses must already be validated; a non-positive amount or a blank payer
// fails the whole call with an *ExpenseError and no rows.
func ComputeBalances(members []string, expenses []Expense) ([]BalanceRow, error) {
	declared := uniqueIDs(members)
	t := newTracker(len(declared))
	for _, m := range declared {
		t.track(m)
	}

	for i, e := range expenses {
		if !e.Amount.IsPositive() {
			return nil, &ExpenseError{Index: i, ExpenseID: e.ID, Err: ErrInvalidAmount}
		}
		if strings.TrimSpace(e.Payer) == "" {
			return nil, &ExpenseError{Index: i, ExpenseID: e.ID, Err: ErrBlankPayer}
		}

		assigned := resolveAssigned(e, declared)

		t.track(e.Payer)
		for _, u := range assigned {
			t.track(u)
		}

		t.paid[e.Payer] = Round2(t.paid[e.Payer].Add(e.Amount))

		if len(assigned) == 0 {
			continue
		}
		share := e.Amount.Div(decimal.NewFromInt(int64(len(assigned))))
		for _, u := range assigned {
			t.owed[u] = Round2(t.owed[u].Add(share))
		}
	}

	rows := make([]BalanceRow, 0, len(t.order))
	for _, m := range t.order {
		paid := Round2(t.paid[m])
		owed := Round2(t.owed[m])
		rows = append(rows, BalanceRow{
			Member: m,
			Paid:   paid,
			Owed:   owed,
			Net:    Round2(paid.Sub(owed)),
		})
	}

	slices.SortStableFunc(rows, func(a, b BalanceRow) int {
		return b.Net.Cmp(a.Net)
	})

	return rows, nil
}
