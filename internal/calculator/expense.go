package calculator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount      = errors.New("amount must be a positive number")
	ErrEmptyApportionment = errors.New("expense has no members to split between")
	ErrBlankPayer         = errors.New("expense has no payer")
	ErrEmptyDescription   = errors.New("expense description is required")
)

// Expense is the minimal view of an expense the ledger needs.
type Expense struct {
	ID          string
	Description string
	Amount      decimal.Decimal
	Payer       string
	// AssignedTo lists the members sharing the cost. Empty means every
	// member of the group at calculation time.
	AssignedTo []string
	Date       time.Time
}

// ExpenseError ties a ledger error to the expense that caused it.
type ExpenseError struct {
	Index     int
	ExpenseID string
	Err       error
}

func (e *ExpenseError) Error() string {
	if e.ExpenseID != "" {
		return fmt.Sprintf("expense %s: %v", e.ExpenseID, e.Err)
	}
	return fmt.Sprintf("expense #%d: %v", e.Index, e.Err)
}

func (e *ExpenseError) Unwrap() error {
	return e.Err
}

// ValidateExpense normalizes e before it is written: the description and payer
// are trimmed, the amount is rounded to cents, and an empty AssignedTo is
// replaced by the current members. It fails when nothing is left to split
// between.
func ValidateExpense(e *Expense, members []string) error {
	e.Description = strings.TrimSpace(e.Description)
	if e.Description == "" {
		return ErrEmptyDescription
	}
	e.Payer = strings.TrimSpace(e.Payer)
	if e.Payer == "" {
		return ErrBlankPayer
	}
	e.Amount = Round2(e.Amount)
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}

	assigned := e.AssignedTo
	if len(assigned) == 0 {
		assigned = members
	}
	e.AssignedTo = uniqueIDs(assigned)
	if len(e.AssignedTo) == 0 {
		return ErrEmptyApportionment
	}
	return nil
}

// CheckApportionment returns one *ExpenseError per expense that resolves to
// zero assignees. Those expenses still count towards the payer's paid total
// but are owed by nobody, so callers should surface them as warnings.
func CheckApportionment(members []string, expenses []Expense) []error {
	var errs []error
	for i, e := range expenses {
		if len(resolveAssigned(e, members)) == 0 {
			errs = append(errs, &ExpenseError{Index: i, ExpenseID: e.ID, Err: ErrEmptyApportionment})
		}
	}
	return errs
}

func resolveAssigned(e Expense, members []string) []string {
	if len(e.AssignedTo) > 0 {
		return uniqueIDs(e.AssignedTo)
	}
	return uniqueIDs(members)
}

// uniqueIDs drops blank ids and duplicates, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
