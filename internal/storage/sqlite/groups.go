package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tripsplit/internal/models"
)

// CreateGroup persists a new group and its initial roster.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, destination, start_date, end_date, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Destination, group.StartDate, group.EndDate, group.CreatedBy, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := insertMembers(ctx, tx, group.ID, group.Members); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetGroup retrieves a group by ID, including its roster in join order.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var group *models.Group
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		var err error
		group, err = getGroup(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return group, nil
}

// ListGroupsForMember retrieves every group the member belongs to, newest first.
func (s *SQLiteStore) ListGroupsForMember(ctx context.Context, member string) ([]*models.Group, error) {
	var groups []*models.Group
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT g.id FROM groups g
			 JOIN group_members gm ON gm.group_id = g.id
			 WHERE gm.member = ?
			 ORDER BY g.created_at DESC, g.rowid DESC`,
			member,
		)
		if err != nil {
			return fmt.Errorf("failed to list groups: %w", err)
		}

		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan group id: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate groups: %w", err)
		}

		groups = make([]*models.Group, 0, len(ids))
		for _, id := range ids {
			group, err := getGroup(ctx, tx, id)
			if err != nil {
				return err
			}
			groups = append(groups, group)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return groups, nil
}

// getGroup reads a group and its roster inside tx.
func getGroup(ctx context.Context, tx *sql.Tx, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := tx.QueryRowContext(ctx,
		`SELECT id, name, destination, start_date, end_date, created_by, created_at
		 FROM groups WHERE id = ?`,
		groupID,
	).Scan(&group.ID, &group.Name, &group.Destination, &group.StartDate, &group.EndDate,
		&group.CreatedBy, &group.CreatedAt)
	if isNoRows(err) {
		return nil, notFound("group", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	members, err := listMembers(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	group.Members = members

	return group, nil
}

// AddGroupMembers appends members to a group's roster, skipping existing ones.
func (s *SQLiteStore) AddGroupMembers(ctx context.Context, groupID string, members []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if isNoRows(err) {
		return notFound("group", groupID)
	}
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}

	if err := insertMembers(ctx, tx, groupID, members); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// insertMembers appends members after the current last position.
func insertMembers(ctx context.Context, tx *sql.Tx, groupID string, members []string) error {
	for _, member := range members {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO group_members (group_id, member, position)
			 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM group_members WHERE group_id = ?))`,
			groupID, member, groupID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}
	return nil
}

func listMembers(ctx context.Context, tx *sql.Tx, groupID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT member FROM group_members WHERE group_id = ? ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return members, nil
}
