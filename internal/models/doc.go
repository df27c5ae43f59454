// Package models defines the stored records of tripsplit.
//
// # Records
//
//   - User: a registered account. Its Email is the member identifier used
//     everywhere else (group rosters, payers, assignees).
//   - Group: a trip with a roster of member emails.
//   - Expense: one entry in a group's append-only expense log.
//
// Balances and settlement suggestions are not stored; they are recomputed
// from a group's live expenses by the calculator package on every read.
//
// # Design Principles
//
// 1. **Stable identity**: every record has a generated UUID; expenses are
// edited and deleted by ID, never by position or date.
// 2. **Tombstones over removal**: a deleted expense keeps its row with
// DeletedAt set, so concurrent writers merge instead of clobbering each other.
// 3. **Avoid circular references**: relationships are ID strings, not pointers.
package models
