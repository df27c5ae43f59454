package service

import (
	"github.com/mmynk/tripsplit/internal/calculator"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/pkg/api"
)

func toAPIUser(user *models.User) *api.User {
	return &api.User{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	}
}

func toAPIGroup(group *models.Group) *api.Group {
	return &api.Group{
		ID:          group.ID,
		Name:        group.Name,
		Destination: group.Destination,
		StartDate:   group.StartDate,
		EndDate:     group.EndDate,
		Members:     group.Members,
		CreatedBy:   group.CreatedBy,
		CreatedAt:   group.CreatedAt,
	}
}

func toAPIExpense(expense *models.Expense) *api.Expense {
	return &api.Expense{
		ID:          expense.ID,
		GroupID:     expense.GroupID,
		Kind:        string(expense.Kind),
		Description: expense.Description,
		Amount:      expense.Amount.StringFixed(2),
		Payer:       expense.Payer,
		AssignedTo:  expense.AssignedTo,
		CreatedBy:   expense.CreatedBy,
		CreatedAt:   expense.CreatedAt,
		UpdatedAt:   expense.UpdatedAt,
		Version:     expense.Version,
	}
}

func toAPIBalances(rows []calculator.BalanceRow) []*api.Balance {
	balances := make([]*api.Balance, len(rows))
	for i, row := range rows {
		balances[i] = &api.Balance{
			Member: row.Member,
			Paid:   row.Paid.StringFixed(2),
			Owed:   row.Owed.StringFixed(2),
			Net:    row.Net.StringFixed(2),
		}
	}
	return balances
}

func toAPISettlements(settlements []calculator.Settlement) []*api.Settlement {
	out := make([]*api.Settlement, len(settlements))
	for i, s := range settlements {
		out[i] = &api.Settlement{
			From:   s.From,
			To:     s.To,
			Amount: s.Amount.StringFixed(2),
		}
	}
	return out
}

// toLedgerExpenses converts stored expenses to the calculator's view.
func toLedgerExpenses(expenses []*models.Expense) []calculator.Expense {
	out := make([]calculator.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = calculator.Expense{
			ID:          e.ID,
			Description: e.Description,
			Amount:      e.Amount,
			Payer:       e.Payer,
			AssignedTo:  e.AssignedTo,
			Date:        e.Date(),
		}
	}
	return out
}
