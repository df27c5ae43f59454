package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsplit/internal/calculator"
	"github.com/mmynk/tripsplit/internal/metrics"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/pkg/api"
	"github.com/mmynk/tripsplit/pkg/api/apiconnect"
)

var (
	ErrVersionRequired = errors.New("version required")
	ErrSelfTransfer    = errors.New("cannot transfer money to yourself")
	ErrPayeeRequired   = errors.New("transfer recipient is required")
)

// LedgerService implements the Connect LedgerService: a group's expense log
// plus balances and settlement suggestions derived from it on every read.
type LedgerService struct {
	apiconnect.UnimplementedLedgerServiceHandler
	store    storage.Store
	notifier *Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(store storage.Store, notifier *Notifier, m *metrics.Metrics, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// expenseInput is an expense as the caller sent it, before validation.
type expenseInput struct {
	description string
	amount      string
	payer       string
	assignedTo  []string
}

// AddExpense appends an expense to a group's log.
func (s *LedgerService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	expense, err := s.addExpense(ctx, actor, req.Msg.GroupID, models.KindExpense, expenseInput{
		description: req.Msg.Description,
		amount:      req.Msg.Amount,
		payer:       req.Msg.Payer,
		assignedTo:  req.Msg.AssignedTo,
	})
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&api.AddExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// RecordTransfer books a repayment from one member to another. It is stored
// as an expense paid by the debtor and owed entirely by the creditor, which
// moves both balances towards zero.
func (s *LedgerService) RecordTransfer(ctx context.Context, req *connect.Request[api.RecordTransferRequest]) (*connect.Response[api.RecordTransferResponse], error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	from := strings.TrimSpace(req.Msg.From)
	if from == "" {
		from = actor
	}
	to := strings.TrimSpace(req.Msg.To)
	if to == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrPayeeRequired)
	}
	if from == to {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrSelfTransfer)
	}

	expense, err := s.addExpense(ctx, actor, req.Msg.GroupID, models.KindTransfer, expenseInput{
		description: fmt.Sprintf("Transfer from %s to %s", from, to),
		amount:      req.Msg.Amount,
		payer:       from,
		assignedTo:  []string{to},
	})
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&api.RecordTransferResponse{Expense: toAPIExpense(expense)}), nil
}

func (s *LedgerService) addExpense(ctx context.Context, actor, groupID string, kind models.ExpenseKind, in expenseInput) (*models.Expense, error) {
	s.logger.Info("AddExpense request received",
		"group_id", groupID,
		"kind", kind,
		"amount", in.amount,
		"actor", actor,
	)

	group, err := memberGroup(ctx, s.store, groupID, actor)
	if err != nil {
		return nil, err
	}

	entry, err := validateInput(group, actor, in)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		GroupID:     group.ID,
		Kind:        kind,
		Description: entry.Description,
		Amount:      entry.Amount,
		Payer:       entry.Payer,
		AssignedTo:  entry.AssignedTo,
		CreatedBy:   actor,
	}
	if err := s.store.AppendExpense(ctx, expense); err != nil {
		s.logger.Error("AppendExpense failed", "group_id", group.ID, "error", err)
		return nil, storageError(err)
	}

	s.logger.Info("Expense recorded",
		"group_id", group.ID,
		"expense_id", expense.ID,
		"amount", calculator.FormatMoney(expense.Amount),
	)
	s.notifier.ExpenseChanged(ctx, "created", expense, actor)

	return expense, nil
}

// UpdateExpense replaces an expense's contents if the caller saw its latest version.
func (s *LedgerService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("UpdateExpense request received",
		"expense_id", req.Msg.ExpenseID,
		"version", req.Msg.Version,
		"actor", actor,
	)

	if req.Msg.Version <= 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrVersionRequired)
	}

	expense, group, err := s.memberExpense(ctx, req.Msg.ExpenseID, actor)
	if err != nil {
		return nil, err
	}

	entry, err := validateInput(group, actor, expenseInput{
		description: req.Msg.Description,
		amount:      req.Msg.Amount,
		payer:       req.Msg.Payer,
		assignedTo:  req.Msg.AssignedTo,
	})
	if err != nil {
		return nil, err
	}

	expense.Description = entry.Description
	expense.Amount = entry.Amount
	expense.Payer = entry.Payer
	expense.AssignedTo = entry.AssignedTo
	expense.Version = req.Msg.Version

	if err := s.store.UpdateExpense(ctx, expense); err != nil {
		s.logger.Warn("UpdateExpense failed", "expense_id", expense.ID, "error", err)
		return nil, storageError(err)
	}

	s.notifier.ExpenseChanged(ctx, "updated", expense, actor)

	return connect.NewResponse(&api.UpdateExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// DeleteExpense tombstones an expense if the caller saw its latest version.
func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("DeleteExpense request received",
		"expense_id", req.Msg.ExpenseID,
		"version", req.Msg.Version,
		"actor", actor,
	)

	if req.Msg.Version <= 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrVersionRequired)
	}

	expense, _, err := s.memberExpense(ctx, req.Msg.ExpenseID, actor)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteExpense(ctx, expense.ID, req.Msg.Version); err != nil {
		s.logger.Warn("DeleteExpense failed", "expense_id", expense.ID, "error", err)
		return nil, storageError(err)
	}

	expense.Version = req.Msg.Version + 1
	s.notifier.ExpenseChanged(ctx, "deleted", expense, actor)

	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// ListExpenses returns a group's live expenses, newest first.
func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, actor)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpenses(ctx, group.ID)
	if err != nil {
		s.logger.Error("ListExpenses failed", "group_id", group.ID, "error", err)
		return nil, storageError(err)
	}

	out := make([]*api.Expense, len(expenses))
	for i, expense := range expenses {
		out[i] = toAPIExpense(expense)
	}

	return connect.NewResponse(&api.ListExpensesResponse{Expenses: out}), nil
}

// GetBalances recomputes every member's balance and the transfers that would
// settle them from the group's current expense log.
func (s *LedgerService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("GetBalances request received", "group_id", req.Msg.GroupID)

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, actor)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.ListExpenses(ctx, group.ID)
	if err != nil {
		s.logger.Error("GetBalances failed - could not list expenses", "group_id", group.ID, "error", err)
		return nil, storageError(err)
	}
	// Oldest first, so members outside the roster appear in the order they showed up
	slices.Reverse(stored)
	expenses := toLedgerExpenses(stored)

	var warnings []string
	for _, problem := range calculator.CheckApportionment(group.Members, expenses) {
		s.metrics.DataWarnings.Inc()
		s.logger.Warn("Expense has no one to split between", "group_id", group.ID, "error", problem)
		warnings = append(warnings, problem.Error())
	}

	rows, err := calculator.ComputeBalances(group.Members, expenses)
	if err != nil {
		// Stored expenses are validated on write, so this is corrupt data
		s.logger.Error("GetBalances failed - invalid stored expense", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	settlements := calculator.SuggestSettlements(rows)

	s.metrics.BalanceComputations.Inc()
	s.metrics.SettlementsPlanned.Observe(float64(len(settlements)))

	s.logger.Info("GetBalances successful",
		"group_id", group.ID,
		"expenses", len(expenses),
		"settlements", len(settlements),
	)

	return connect.NewResponse(&api.GetBalancesResponse{
		Balances:    toAPIBalances(rows),
		Settlements: toAPISettlements(settlements),
		Warnings:    warnings,
	}), nil
}

// memberExpense loads a live expense and its group, checking that actor is a member.
func (s *LedgerService) memberExpense(ctx context.Context, expenseID, actor string) (*models.Expense, *models.Group, error) {
	if expenseID == "" {
		return nil, nil, invalidArgument("expense_id required")
	}
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, nil, storageError(err)
	}
	group, err := memberGroup(ctx, s.store, expense.GroupID, actor)
	if err != nil {
		return nil, nil, err
	}
	return expense, group, nil
}

// validateInput normalizes an expense against the group's roster. The payer
// defaults to the actor and the assignees to every member.
func validateInput(group *models.Group, actor string, in expenseInput) (*calculator.Expense, error) {
	amount, err := calculator.ParseAmount(in.amount)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	payer := strings.TrimSpace(in.payer)
	if payer == "" {
		payer = actor
	}

	entry := &calculator.Expense{
		Description: in.description,
		Amount:      amount,
		Payer:       payer,
		AssignedTo:  trimMembers(in.assignedTo),
	}
	if err := calculator.ValidateExpense(entry, group.Members); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if !group.HasMember(entry.Payer) {
		return nil, invalidArgument("payer %s is not a member of the group", entry.Payer)
	}
	for _, member := range entry.AssignedTo {
		if !group.HasMember(member) {
			return nil, invalidArgument("assignee %s is not a member of the group", member)
		}
	}

	return entry, nil
}
