package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sevenpast/campcore/internal/persistence"
)

const assignmentColumns = `id, guest_id, resource_kind, resource_id, category, state, assigned_by, notes, assigned_at, completed_at`

// CreateAssignment stores a new assignment. A guest can hold at most one
// active bed assignment, enforced by a partial unique index.
func (s *Store) CreateAssignment(ctx context.Context, assignment persistence.Assignment) error {
	return s.write(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO assignments (`+assignmentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			assignment.ID,
			assignment.GuestID,
			string(assignment.ResourceKind),
			assignment.ResourceID,
			assignment.Category,
			string(assignment.State),
			assignment.AssignedBy,
			assignment.Notes,
			encodeTime(assignment.AssignedAt),
			encodeNullTime(assignment.CompletedAt),
		)
		return err
	})
}

// GetAssignment retrieves an assignment by ID.
func (s *Store) GetAssignment(ctx context.Context, id string) (persistence.Assignment, error) {
	assignment, err := scanAssignment(s.pool.DB().QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id))
	if err != nil {
		return persistence.Assignment{}, s.mapper.MapError(err)
	}
	return assignment, nil
}

// CompleteAssignment transitions an active assignment to completed.
func (s *Store) CompleteAssignment(ctx context.Context, id string, completedAt time.Time) (persistence.Assignment, error) {
	var assignment persistence.Assignment
	err := s.writeTx(ctx, func(tx *sql.Tx) error {
		affected, err := execCount(ctx, tx, `
			UPDATE assignments
			SET state = ?, completed_at = ?
			WHERE id = ? AND state = ?
		`, string(persistence.AssignmentStateCompleted), encodeTime(completedAt), id, string(persistence.AssignmentStateActive))
		if err != nil {
			return err
		}

		assignment, err = scanAssignment(tx.QueryRowContext(ctx,
			`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("sqlite: assignment %s is %s: %w", id, assignment.State, persistence.ErrConflict)
		}
		return nil
	})
	return assignment, err
}

// ListAssignments returns matching assignments ordered by assignment time.
func (s *Store) ListAssignments(ctx context.Context, filter persistence.AssignmentFilter) ([]persistence.Assignment, error) {
	var w where
	if filter.GuestID != "" {
		w.add("guest_id = ?", filter.GuestID)
	}
	if filter.ResourceKind != "" {
		w.add("resource_kind = ?", string(filter.ResourceKind))
	}
	if filter.ResourceID != "" {
		w.add("resource_id = ?", filter.ResourceID)
	}
	if filter.Category != "" {
		w.add("category = ?", filter.Category)
	}
	if filter.ActiveOnly {
		w.add("state = ?", string(persistence.AssignmentStateActive))
	}

	rows, err := s.pool.DB().QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments`+w.String()+` ORDER BY assigned_at, id`, w.args...)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	out := make([]persistence.Assignment, 0)
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, assignment)
	}
	return out, rows.Err()
}

func scanAssignment(row rowScanner) (persistence.Assignment, error) {
	var (
		a            persistence.Assignment
		resourceKind string
		state        string
		assignedAt   string
		completedAt  sql.NullString
	)
	if err := row.Scan(
		&a.ID,
		&a.GuestID,
		&resourceKind,
		&a.ResourceID,
		&a.Category,
		&state,
		&a.AssignedBy,
		&a.Notes,
		&assignedAt,
		&completedAt,
	); err != nil {
		return persistence.Assignment{}, err
	}
	a.ResourceKind = persistence.ResourceKind(resourceKind)
	a.State = persistence.AssignmentState(state)

	var err error
	if a.AssignedAt, err = decodeTime(assignedAt); err != nil {
		return persistence.Assignment{}, err
	}
	if a.CompletedAt, err = decodeNullTime(completedAt); err != nil {
		return persistence.Assignment{}, err
	}
	return a, nil
}
