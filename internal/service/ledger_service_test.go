package service

import (
	"context"
	"slices"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/tripsplit/internal/events"
	"github.com/mmynk/tripsplit/pkg/api"
)

func TestAddExpense_Defaults(t *testing.T) {
	env := setupTestServer(t)
	group := env.createGroup(t, "alice", "bob", "carol")

	expense := env.addExpense(t, "alice", group.ID, "  Dinner ", "90", "")

	if expense.ID == "" {
		t.Error("expected expense ID to be generated")
	}
	if expense.Payer != "alice" {
		t.Errorf("Payer = %s, want the caller", expense.Payer)
	}
	if !slices.Equal(expense.AssignedTo, []string{"alice", "bob", "carol"}) {
		t.Errorf("AssignedTo = %v, want every member", expense.AssignedTo)
	}
	if expense.Description != "Dinner" {
		t.Errorf("Description = %q, want trimmed", expense.Description)
	}
	if expense.Amount != "90.00" {
		t.Errorf("Amount = %s, want 90.00", expense.Amount)
	}
	if expense.Kind != "expense" || expense.Version != 1 || expense.CreatedBy != "alice" {
		t.Errorf("got kind %s version %d created_by %s", expense.Kind, expense.Version, expense.CreatedBy)
	}

	if got := env.publisher.types(); !slices.Equal(got, []string{events.ExpenseCreated}) {
		t.Errorf("published %v, want [%s]", got, events.ExpenseCreated)
	}
	if got := testutil.ToFloat64(env.metrics.LedgerWrites.WithLabelValues("created")); got != 1 {
		t.Errorf("ledger writes = %v, want 1", got)
	}
}

func TestAddExpense_Validation(t *testing.T) {
	env := setupTestServer(t)
	group := env.createGroup(t, "alice", "bob")

	tests := []struct {
		name string
		req  *api.AddExpenseRequest
	}{
		{"blank description", &api.AddExpenseRequest{Description: "  ", Amount: "10"}},
		{"zero amount", &api.AddExpenseRequest{Description: "Snacks", Amount: "0"}},
		{"negative amount", &api.AddExpenseRequest{Description: "Snacks", Amount: "-5"}},
		{"amount rounds to zero", &api.AddExpenseRequest{Description: "Snacks", Amount: "0.001"}},
		{"not a number", &api.AddExpenseRequest{Description: "Snacks", Amount: "ten"}},
		{"payer outside group", &api.AddExpenseRequest{Description: "Snacks", Amount: "10", Payer: "mallory"}},
		{"assignee outside group", &api.AddExpenseRequest{Description: "Snacks", Amount: "10", AssignedTo: []string{"bob", "mallory"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.GroupID = group.ID
			_, err := env.ledger.AddExpense(context.Background(), as("alice", tt.req))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}

	t.Run("comma decimal separator", func(t *testing.T) {
		expense := env.addExpense(t, "alice", group.ID, "Coffee", "12,5", "bob", "alice")
		if expense.Amount != "12.50" {
			t.Errorf("Amount = %s, want 12.50", expense.Amount)
		}
	})

	t.Run("missing group id", func(t *testing.T) {
		_, err := env.ledger.AddExpense(context.Background(), as("alice", &api.AddExpenseRequest{
			Description: "Snacks", Amount: "10",
		}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})
}

func TestLedger_MembersOnly(t *testing.T) {
	env := setupTestServer(t)
	group := env.createGroup(t, "alice", "bob")
	expense := env.addExpense(t, "alice", group.ID, "Dinner", "40", "")
	ctx := context.Background()

	t.Run("outsider is denied", func(t *testing.T) {
		_, err := env.ledger.AddExpense(ctx, as("mallory", &api.AddExpenseRequest{
			GroupID: group.ID, Description: "Sneaky", Amount: "1",
		}))
		assertCode(t, err, connect.CodePermissionDenied)

		_, err = env.ledger.GetBalances(ctx, as("mallory", &api.GetBalancesRequest{GroupID: group.ID}))
		assertCode(t, err, connect.CodePermissionDenied)

		_, err = env.ledger.ListExpenses(ctx, as("mallory", &api.ListExpensesRequest{GroupID: group.ID}))
		assertCode(t, err, connect.CodePermissionDenied)

		_, err = env.ledger.DeleteExpense(ctx, as("mallory", &api.DeleteExpenseRequest{
			ExpenseID: expense.ID, Version: expense.Version,
		}))
		assertCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("anonymous caller is unauthenticated", func(t *testing.T) {
		_, err := env.ledger.GetBalances(ctx, connect.NewRequest(&api.GetBalancesRequest{GroupID: group.ID}))
		assertCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("unknown group is not found", func(t *testing.T) {
		_, err := env.ledger.GetBalances(ctx, as("alice", &api.GetBalancesRequest{GroupID: "missing"}))
		assertCode(t, err, connect.CodeNotFound)
	})
}

func TestGetBalances_Scenarios(t *testing.T) {
	t.Run("one payer three members", func(t *testing.T) {
		env := setupTestServer(t)
		group := env.createGroup(t, "alice", "bob", "carol")
		env.addExpense(t, "alice", group.ID, "Dinner", "90", "alice")

		resp := env.balances(t, "bob", group.ID)

		alice := balanceOf(t, resp.Balances, "alice")
		if alice.Paid != "90.00" || alice.Owed != "30.00" || alice.Net != "60.00" {
			t.Errorf("alice = %+v, want paid 90 owed 30 net 60", alice)
		}
		if resp.Balances[0].Member != "alice" {
			t.Errorf("first row = %s, want the largest creditor", resp.Balances[0].Member)
		}
		assertSettlements(t, resp.Settlements,
			api.Settlement{From: "bob", To: "alice", Amount: "30.00"},
			api.Settlement{From: "carol", To: "alice", Amount: "30.00"},
		)
	})

	t.Run("two expenses net out", func(t *testing.T) {
		env := setupTestServer(t)
		group := env.createGroup(t, "alice", "bob")
		env.addExpense(t, "alice", group.ID, "Hotel", "50", "alice")
		env.addExpense(t, "bob", group.ID, "Taxi", "20", "bob")

		resp := env.balances(t, "alice", group.ID)
		assertSettlements(t, resp.Settlements,
			api.Settlement{From: "bob", To: "alice", Amount: "15.00"},
		)
	})

	t.Run("no expenses", func(t *testing.T) {
		env := setupTestServer(t)
		group := env.createGroup(t, "alice", "bob", "carol")

		resp := env.balances(t, "alice", group.ID)
		if len(resp.Balances) != 3 {
			t.Fatalf("got %d balance rows, want 3", len(resp.Balances))
		}
		for _, b := range resp.Balances {
			if b.Net != "0.00" {
				t.Errorf("%s net = %s, want 0.00", b.Member, b.Net)
			}
		}
		if len(resp.Settlements) != 0 {
			t.Errorf("expected no settlements, got %v", resp.Settlements)
		}
	})

	t.Run("single assignee", func(t *testing.T) {
		env := setupTestServer(t)
		group := env.createGroup(t, "alice", "bob", "carol")
		env.addExpense(t, "alice", group.ID, "Tickets", "10", "alice", "bob")

		resp := env.balances(t, "carol", group.ID)
		assertSettlements(t, resp.Settlements,
			api.Settlement{From: "bob", To: "alice", Amount: "10.00"},
		)
		if carol := balanceOf(t, resp.Balances, "carol"); carol.Net != "0.00" {
			t.Errorf("carol net = %s, want 0.00", carol.Net)
		}
	})

	t.Run("uneven split rounds to cents", func(t *testing.T) {
		env := setupTestServer(t)
		group := env.createGroup(t, "alice", "bob", "carol")
		env.addExpense(t, "alice", group.ID, "Museum", "10", "alice")

		resp := env.balances(t, "alice", group.ID)
		if alice := balanceOf(t, resp.Balances, "alice"); alice.Net != "6.67" {
			t.Errorf("alice net = %s, want 6.67", alice.Net)
		}
		assertSettlements(t, resp.Settlements,
			api.Settlement{From: "bob", To: "alice", Amount: "3.33"},
			api.Settlement{From: "carol", To: "alice", Amount: "3.33"},
		)
	})

	t.Run("member who joins later is not charged for earlier expenses", func(t *testing.T) {
		env := setupTestServer(t)
		group := env.createGroup(t, "alice", "bob")
		env.addExpense(t, "alice", group.ID, "Hotel", "100", "alice")

		if _, err := env.groups.AddMember(context.Background(), as("alice", &api.AddMemberRequest{
			GroupID: group.ID, Members: []string{"carol"},
		})); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}

		resp := env.balances(t, "carol", group.ID)
		if carol := balanceOf(t, resp.Balances, "carol"); carol.Owed != "0.00" {
			t.Errorf("carol owed = %s, want 0.00", carol.Owed)
		}
		assertSettlements(t, resp.Settlements,
			api.Settlement{From: "bob", To: "alice", Amount: "50.00"},
		)
	})
}

func TestGetBalances_RecordsMetrics(t *testing.T) {
	env := setupTestServer(t)
	group := env.createGroup(t, "alice", "bob")
	env.addExpense(t, "alice", group.ID, "Dinner", "20", "alice")

	env.balances(t, "alice", group.ID)
	env.balances(t, "bob", group.ID)

	if got := testutil.ToFloat64(env.metrics.BalanceComputations); got != 2 {
		t.Errorf("balance computations = %v, want 2", got)
	}
}

func TestRecordTransfer(t *testing.T) {
	env := setupTestServer(t)
	group := env.createGroup(t, "alice", "bob", "carol")
	env.addExpense(t, "alice", group.ID, "Dinner", "90", "alice")
	ctx := context.Background()

	resp, err := env.ledger.RecordTransfer(ctx, as("bob", &api.RecordTransferRequest{
		GroupID: group.ID,
		To:      "alice",
		Amount:  "30",
	}))
	if err != nil {
		t.Fatalf("RecordTransfer failed: %v", err)
	}
	transfer := resp.Msg.Expense
	if transfer.Kind != "transfer" || transfer.Payer != "bob" {
		t.Errorf("got kind %s payer %s, want transfer from bob", transfer.Kind, transfer.Payer)
	}
	if !slices.Equal(transfer.AssignedTo, []string{"alice"}) {
		t.Errorf("AssignedTo = %v, want [alice]", transfer.AssignedTo)
	}

	balances := env.balances(t, "alice", group.ID)
	if bob := balanceOf(t, balances.Balances, "bob"); bob.Net != "0.00" {
		t.Errorf("bob net = %s, want 0.00 after repaying", bob.Net)
	}
	assertSettlements(t, balances.Settlements,
		api.Settlement{From: "carol", To: "alice", Amount: "30.00"},
	)

	if got := env.publisher.types(); !slices.Contains(got, events.TransferCreated) {
		t.Errorf("published %v, want a %s event", got, events.TransferCreated)
	}

	t.Run("to yourself", func(t *testing.T) {
		_, err := env.ledger.RecordTransfer(ctx, as("bob", &api.RecordTransferRequest{
			GroupID: group.ID, To: "bob", Amount: "5",
		}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("missing recipient", func(t *testing.T) {
		_, err := env.ledger.RecordTransfer(ctx, as("bob", &api.RecordTransferRequest{
			GroupID: group.ID, Amount: "5",
		}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("recipient outside group", func(t *testing.T) {
		_, err := env.ledger.RecordTransfer(ctx, as("bob", &api.RecordTransferRequest{
			GroupID: group.ID, To: "mallory", Amount: "5",
		}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})
}

func TestUpdateAndDeleteExpense_Versions(t *testing.T) {
	env := setupTestServer(t)
	group := env.createGroup(t, "alice", "bob")
	expense := env.addExpense(t, "alice", group.ID, "Taxi", "20", "alice")
	ctx := context.Background()

	updated, err := env.ledger.UpdateExpense(ctx, as("bob", &api.UpdateExpenseRequest{
		ExpenseID:   expense.ID,
		Version:     expense.Version,
		Description: "Airport taxi",
		Amount:      "24.50",
		Payer:       "alice",
	}))
	if err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}
	if updated.Msg.Expense.Version != 2 || updated.Msg.Expense.Amount != "24.50" {
		t.Errorf("got version %d amount %s, want 2 and 24.50",
			updated.Msg.Expense.Version, updated.Msg.Expense.Amount)
	}

	t.Run("stale update is aborted", func(t *testing.T) {
		_, err := env.ledger.UpdateExpense(ctx, as("alice", &api.UpdateExpenseRequest{
			ExpenseID:   expense.ID,
			Version:     expense.Version,
			Description: "Taxi home",
			Amount:      "30",
		}))
		assertCode(t, err, connect.CodeAborted)
	})

	t.Run("stale delete is aborted", func(t *testing.T) {
		_, err := env.ledger.DeleteExpense(ctx, as("alice", &api.DeleteExpenseRequest{
			ExpenseID: expense.ID,
			Version:   expense.Version,
		}))
		assertCode(t, err, connect.CodeAborted)
	})

	t.Run("missing version", func(t *testing.T) {
		_, err := env.ledger.DeleteExpense(ctx, as("alice", &api.DeleteExpenseRequest{ExpenseID: expense.ID}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	balances := env.balances(t, "alice", group.ID)
	assertSettlements(t, balances.Settlements,
		api.Settlement{From: "bob", To: "alice", Amount: "12.25"},
	)

	if _, err := env.ledger.DeleteExpense(ctx, as("alice", &api.DeleteExpenseRequest{
		ExpenseID: expense.ID,
		Version:   updated.Msg.Expense.Version,
	})); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}

	t.Run("deleted expense is gone", func(t *testing.T) {
		list, err := env.ledger.ListExpenses(ctx, as("alice", &api.ListExpensesRequest{GroupID: group.ID}))
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(list.Msg.Expenses) != 0 {
			t.Errorf("expected no expenses, got %d", len(list.Msg.Expenses))
		}

		_, err = env.ledger.UpdateExpense(ctx, as("alice", &api.UpdateExpenseRequest{
			ExpenseID:   expense.ID,
			Version:     3,
			Description: "Ghost",
			Amount:      "1",
		}))
		assertCode(t, err, connect.CodeNotFound)

		if got := env.balances(t, "alice", group.ID); len(got.Settlements) != 0 {
			t.Errorf("expected settled group, got %v", got.Settlements)
		}
	})

	want := []string{events.ExpenseCreated, events.ExpenseUpdated, events.ExpenseDeleted}
	if got := env.publisher.types(); !slices.Equal(got, want) {
		t.Errorf("published %v, want %v", got, want)
	}
}

func TestListExpenses_NewestFirst(t *testing.T) {
	env := setupTestServer(t)
	group := env.createGroup(t, "alice", "bob")
	env.addExpense(t, "alice", group.ID, "Breakfast", "10", "")
	env.addExpense(t, "alice", group.ID, "Lunch", "20", "")
	env.addExpense(t, "bob", group.ID, "Dinner", "30", "")

	resp, err := env.ledger.ListExpenses(context.Background(), as("bob", &api.ListExpensesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}

	var got []string
	for _, e := range resp.Msg.Expenses {
		got = append(got, e.Description)
	}
	if want := []string{"Dinner", "Lunch", "Breakfast"}; !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}
