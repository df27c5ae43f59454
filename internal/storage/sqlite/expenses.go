package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

const expenseColumns = `id, group_id, kind, description, amount, payer, created_by,
	created_at, updated_at, version, deleted_at`

// AppendExpense inserts one expense and its assignees in a single transaction.
// Concurrent appends never overwrite each other because nothing is rewritten.
func (s *SQLiteStore) AppendExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Kind == "" {
		expense.Kind = models.KindExpense
	}
	now := time.Now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = now
	expense.Version = 1
	expense.DeletedAt = 0

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, string(expense.Kind), expense.Description,
		expense.Amount.StringFixed(2), expense.Payer, expense.CreatedBy,
		expense.CreatedAt, expense.UpdatedAt, expense.Version, expense.DeletedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertAssignees(ctx, tx, expense.ID, expense.AssignedTo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetExpense retrieves a live expense by ID.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	var expense *models.Expense
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		var err error
		expense, err = scanExpense(tx.QueryRowContext(ctx,
			`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND deleted_at = 0`,
			expenseID,
		))
		if isNoRows(err) {
			return notFound("expense", expenseID)
		}
		if err != nil {
			return fmt.Errorf("failed to get expense: %w", err)
		}

		assignees, err := assigneesFor(ctx, tx, "expense_id = ?", expenseID)
		if err != nil {
			return err
		}
		expense.AssignedTo = assignees[expense.ID]
		return nil
	})
	if err != nil {
		return nil, err
	}

	return expense, nil
}

// UpdateExpense rewrites one expense if nobody else changed it first.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE expenses
		 SET description = ?, amount = ?, payer = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ? AND deleted_at = 0`,
		expense.Description, expense.Amount.StringFixed(2), expense.Payer, now,
		expense.ID, expense.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if err := checkVersioned(ctx, tx, result, expense.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM expense_assignees WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("failed to clear expense assignees: %w", err)
	}
	if err := insertAssignees(ctx, tx, expense.ID, expense.AssignedTo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	expense.Version++
	expense.UpdatedAt = now
	return nil
}

// DeleteExpense tombstones an expense. The row stays so that a concurrent
// editor holding an older version gets a conflict instead of resurrecting it.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string, version int64) error {
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ? AND deleted_at = 0`,
		now, now, expenseID, version,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if err := checkVersioned(ctx, tx, result, expenseID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListExpenses retrieves the live expenses of a group, newest first.
// Expenses recorded in the same second keep reverse insertion order.
// Rows and assignees are read from one snapshot, so a concurrent edit is
// seen either entirely or not at all.
func (s *SQLiteStore) ListExpenses(ctx context.Context, groupID string) ([]*models.Expense, error) {
	var expenses []*models.Expense
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+expenseColumns+` FROM expenses
			 WHERE group_id = ? AND deleted_at = 0
			 ORDER BY created_at DESC, rowid DESC`,
			groupID,
		)
		if err != nil {
			return fmt.Errorf("failed to list expenses: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			expense, err := scanExpense(rows)
			if err != nil {
				return fmt.Errorf("failed to scan expense: %w", err)
			}
			expenses = append(expenses, expense)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate expenses: %w", err)
		}
		rows.Close()

		assignees, err := assigneesFor(ctx, tx,
			"expense_id IN (SELECT id FROM expenses WHERE group_id = ? AND deleted_at = 0)", groupID)
		if err != nil {
			return err
		}
		for _, expense := range expenses {
			expense.AssignedTo = assignees[expense.ID]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return expenses, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	expense := &models.Expense{}
	var kind string
	err := row.Scan(&expense.ID, &expense.GroupID, &kind, &expense.Description,
		&expense.Amount, &expense.Payer, &expense.CreatedBy,
		&expense.CreatedAt, &expense.UpdatedAt, &expense.Version, &expense.DeletedAt)
	if err != nil {
		return nil, err
	}
	expense.Kind = models.ExpenseKind(kind)
	return expense, nil
}

// assigneesFor loads assignees keyed by expense ID for the expenses matching where.
func assigneesFor(ctx context.Context, tx *sql.Tx, where string, args ...any) (map[string][]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT expense_id, member FROM expense_assignees WHERE `+where+` ORDER BY expense_id, position`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense assignees: %w", err)
	}
	defer rows.Close()

	assignees := make(map[string][]string)
	for rows.Next() {
		var expenseID, member string
		if err := rows.Scan(&expenseID, &member); err != nil {
			return nil, fmt.Errorf("failed to scan expense assignee: %w", err)
		}
		assignees[expenseID] = append(assignees[expenseID], member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense assignees: %w", err)
	}

	return assignees, nil
}

func insertAssignees(ctx context.Context, tx *sql.Tx, expenseID string, members []string) error {
	for i, member := range members {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO expense_assignees (expense_id, member, position) VALUES (?, ?, ?)",
			expenseID, member, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense assignee: %w", err)
		}
	}
	return nil
}

// checkVersioned turns a zero-row versioned update into ErrNotFound or ErrVersionConflict.
func checkVersioned(ctx context.Context, tx *sql.Tx, result sql.Result, expenseID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var deletedAt int64
	err = tx.QueryRowContext(ctx, "SELECT deleted_at FROM expenses WHERE id = ?", expenseID).Scan(&deletedAt)
	if isNoRows(err) || (err == nil && deletedAt != 0) {
		return notFound("expense", expenseID)
	}
	if err != nil {
		return fmt.Errorf("failed to check expense existence: %w", err)
	}
	return fmt.Errorf("expense %s: %w", expenseID, storage.ErrVersionConflict)
}
