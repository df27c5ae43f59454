// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/tripsplit/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist (or is tombstoned).
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when an expense changed since it was read.
	ErrVersionConflict = errors.New("expense was modified concurrently")
	// ErrAlreadyExists is returned when a unique key is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// UserStore persists registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// GroupStore is the member directory.
type GroupStore interface {
	// CreateGroup persists a new group. ID and CreatedAt are populated if unset.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its roster.
	// Returns ErrNotFound if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsForMember returns every group whose roster contains member.
	ListGroupsForMember(ctx context.Context, member string) ([]*models.Group, error)

	// AddGroupMembers appends members to the roster. Existing members are ignored.
	AddGroupMembers(ctx context.Context, groupID string, members []string) error
}

// ExpenseStore is the append-only expense log of each group.
// Expenses are never rewritten as a list: each write touches one expense by ID.
type ExpenseStore interface {
	// AppendExpense inserts a new expense with Version 1.
	// ID and CreatedAt are populated if unset.
	AppendExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves a live expense by ID.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// UpdateExpense overwrites the editable fields of a live expense if its
	// stored version equals expense.Version, then bumps the version.
	// Returns ErrVersionConflict when the version moved on.
	UpdateExpense(ctx context.Context, expense *models.Expense) error

	// DeleteExpense tombstones an expense if its version equals version.
	DeleteExpense(ctx context.Context, expenseID string, version int64) error

	// ListExpenses returns the live expenses of a group, newest first.
	ListExpenses(ctx context.Context, groupID string) ([]*models.Expense, error)
}

// Store defines the full storage surface used by the services.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	GroupStore
	ExpenseStore

	// Close releases any resources held by the store.
	Close() error
}
