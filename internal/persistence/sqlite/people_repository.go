package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sevenpast/campcore/internal/persistence"
)

// EnsureCamp stores camp unless a camp with the same name already exists.
func (s *Store) EnsureCamp(ctx context.Context, camp persistence.Camp) (persistence.Camp, bool, error) {
	var (
		result  persistence.Camp
		created bool
	)
	err := s.writeTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanCamp(tx.QueryRowContext(ctx, `
			SELECT id, name, timezone, created_at
			FROM camps
			WHERE name = ? COLLATE NOCASE
		`, camp.Name))
		if err == nil {
			result, created = existing, false
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO camps (id, name, timezone, created_at)
			VALUES (?, ?, ?, ?)
		`, camp.ID, camp.Name, camp.Timezone, encodeTime(camp.CreatedAt)); err != nil {
			return err
		}
		result, created = camp, true
		return nil
	})
	if err != nil {
		return persistence.Camp{}, false, err
	}
	return result, created, nil
}

// GetCamp retrieves a camp by ID.
func (s *Store) GetCamp(ctx context.Context, id string) (persistence.Camp, error) {
	camp, err := scanCamp(s.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, timezone, created_at
		FROM camps
		WHERE id = ?
	`, id))
	if err != nil {
		return persistence.Camp{}, s.mapper.MapError(err)
	}
	return camp, nil
}

func scanCamp(row rowScanner) (persistence.Camp, error) {
	var (
		camp      persistence.Camp
		createdAt string
	)
	if err := row.Scan(&camp.ID, &camp.Name, &camp.Timezone, &createdAt); err != nil {
		return persistence.Camp{}, err
	}
	var err error
	if camp.CreatedAt, err = decodeTime(createdAt); err != nil {
		return persistence.Camp{}, err
	}
	return camp, nil
}

// CreateGuest stores a new guest.
func (s *Store) CreateGuest(ctx context.Context, guest persistence.Guest) error {
	return s.write(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO guests (id, name, is_active, created_at)
			VALUES (?, ?, ?, ?)
		`, guest.ID, guest.Name, guest.IsActive, encodeTime(guest.CreatedAt))
		return err
	})
}

// GetGuest retrieves a guest by ID.
func (s *Store) GetGuest(ctx context.Context, id string) (persistence.Guest, error) {
	var (
		guest     persistence.Guest
		createdAt string
	)
	err := s.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, is_active, created_at
		FROM guests
		WHERE id = ?
	`, id).Scan(&guest.ID, &guest.Name, &guest.IsActive, &createdAt)
	if err != nil {
		return persistence.Guest{}, s.mapper.MapError(err)
	}
	if guest.CreatedAt, err = decodeTime(createdAt); err != nil {
		return persistence.Guest{}, err
	}
	return guest, nil
}

// SetGuestActive toggles the active flag of a guest.
func (s *Store) SetGuestActive(ctx context.Context, id string, active bool) error {
	return s.write(ctx, func(q querier) error {
		return execOne(ctx, q, `UPDATE guests SET is_active = ? WHERE id = ?`, active, id)
	})
}

// CreateStaff stores a new staff member.
func (s *Store) CreateStaff(ctx context.Context, staff persistence.Staff) error {
	return s.write(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO staff (id, name, is_active, created_at)
			VALUES (?, ?, ?, ?)
		`, staff.ID, staff.Name, staff.IsActive, encodeTime(staff.CreatedAt))
		return err
	})
}

// GetStaff retrieves a staff member by ID.
func (s *Store) GetStaff(ctx context.Context, id string) (persistence.Staff, error) {
	var (
		staff     persistence.Staff
		createdAt string
	)
	err := s.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, is_active, created_at
		FROM staff
		WHERE id = ?
	`, id).Scan(&staff.ID, &staff.Name, &staff.IsActive, &createdAt)
	if err != nil {
		return persistence.Staff{}, s.mapper.MapError(err)
	}
	if staff.CreatedAt, err = decodeTime(createdAt); err != nil {
		return persistence.Staff{}, err
	}
	return staff, nil
}
