package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sevenpast/campcore/internal/persistence"
)

const bedColumns = `id, room_id, label, capacity, current_occupancy, is_active, created_at`

const equipmentColumns = `id, name, category, status, is_active, created_at`

// CreateRoom stores a new room.
func (s *Store) CreateRoom(ctx context.Context, room persistence.Room) error {
	return s.write(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO rooms (id, name, is_active, created_at)
			VALUES (?, ?, ?, ?)
		`, room.ID, room.Name, room.IsActive, encodeTime(room.CreatedAt))
		return err
	})
}

// GetRoom retrieves a room by ID.
func (s *Store) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	var (
		room      persistence.Room
		createdAt string
	)
	err := s.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, is_active, created_at
		FROM rooms
		WHERE id = ?
	`, id).Scan(&room.ID, &room.Name, &room.IsActive, &createdAt)
	if err != nil {
		return persistence.Room{}, s.mapper.MapError(err)
	}
	if room.CreatedAt, err = decodeTime(createdAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

// SetRoomActive toggles the active flag of a room.
func (s *Store) SetRoomActive(ctx context.Context, id string, active bool) error {
	return s.write(ctx, func(q querier) error {
		return execOne(ctx, q, `UPDATE rooms SET is_active = ? WHERE id = ?`, active, id)
	})
}

// CreateBed stores a new bed. The room must exist.
func (s *Store) CreateBed(ctx context.Context, bed persistence.Bed) error {
	if bed.Capacity < 1 || bed.CurrentOccupancy < 0 || bed.CurrentOccupancy > bed.Capacity {
		return persistence.ErrConstraintViolation
	}
	return s.write(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO beds (`+bedColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, bed.ID, bed.RoomID, bed.Label, bed.Capacity, bed.CurrentOccupancy, bed.IsActive, encodeTime(bed.CreatedAt))
		return err
	})
}

// GetBed retrieves a bed by ID.
func (s *Store) GetBed(ctx context.Context, id string) (persistence.Bed, error) {
	bed, err := scanBed(s.pool.DB().QueryRowContext(ctx, `SELECT `+bedColumns+` FROM beds WHERE id = ?`, id))
	if err != nil {
		return persistence.Bed{}, s.mapper.MapError(err)
	}
	return bed, nil
}

// ListBeds returns beds ordered by room and label.
func (s *Store) ListBeds(ctx context.Context, roomID string) ([]persistence.Bed, error) {
	var w where
	if roomID != "" {
		w.add("room_id = ?", roomID)
	}
	rows, err := s.pool.DB().QueryContext(ctx,
		`SELECT `+bedColumns+` FROM beds`+w.String()+` ORDER BY room_id, label, id`, w.args...)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	beds := make([]persistence.Bed, 0)
	for rows.Next() {
		bed, err := scanBed(rows)
		if err != nil {
			return nil, err
		}
		beds = append(beds, bed)
	}
	return beds, rows.Err()
}

// AdjustBedOccupancy applies delta with a guarded UPDATE so the counter never
// exceeds capacity. Decrements clamp at zero.
func (s *Store) AdjustBedOccupancy(ctx context.Context, id string, delta int) (persistence.Bed, error) {
	var bed persistence.Bed
	err := s.writeTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE beds
			SET current_occupancy = MAX(0, current_occupancy + ?)
			WHERE id = ? AND (? <= 0 OR current_occupancy + ? <= capacity)
		`, delta, id, delta, delta)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		bed, err = scanBed(tx.QueryRowContext(ctx, `SELECT `+bedColumns+` FROM beds WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("sqlite: bed %s at %d/%d: %w", id, bed.CurrentOccupancy, bed.Capacity, persistence.ErrConflict)
		}
		return nil
	})
	return bed, err
}

// SetBedOccupancy overwrites the occupancy counter.
func (s *Store) SetBedOccupancy(ctx context.Context, id string, occupancy int) error {
	return s.write(ctx, func(q querier) error {
		return execOne(ctx, q, `UPDATE beds SET current_occupancy = ? WHERE id = ?`, occupancy, id)
	})
}

// SetBedActive toggles the active flag of a bed.
func (s *Store) SetBedActive(ctx context.Context, id string, active bool) error {
	return s.write(ctx, func(q querier) error {
		return execOne(ctx, q, `UPDATE beds SET is_active = ? WHERE id = ?`, active, id)
	})
}

func scanBed(row rowScanner) (persistence.Bed, error) {
	var (
		bed       persistence.Bed
		createdAt string
	)
	if err := row.Scan(&bed.ID, &bed.RoomID, &bed.Label, &bed.Capacity, &bed.CurrentOccupancy, &bed.IsActive, &createdAt); err != nil {
		return persistence.Bed{}, err
	}
	var err error
	if bed.CreatedAt, err = decodeTime(createdAt); err != nil {
		return persistence.Bed{}, err
	}
	return bed, nil
}

// CreateEquipment stores a new equipment item.
func (s *Store) CreateEquipment(ctx context.Context, item persistence.Equipment) error {
	if item.Status == "" {
		item.Status = persistence.EquipmentStatusAvailable
	}
	return s.write(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO equipment (`+equipmentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)
		`, item.ID, item.Name, item.Category, string(item.Status), item.IsActive, encodeTime(item.CreatedAt))
		return err
	})
}

// GetEquipment retrieves an equipment item by ID.
func (s *Store) GetEquipment(ctx context.Context, id string) (persistence.Equipment, error) {
	item, err := scanEquipment(s.pool.DB().QueryRowContext(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = ?`, id))
	if err != nil {
		return persistence.Equipment{}, s.mapper.MapError(err)
	}
	return item, nil
}

// ListEquipment returns every equipment item ordered by category and name.
func (s *Store) ListEquipment(ctx context.Context) ([]persistence.Equipment, error) {
	rows, err := s.pool.DB().QueryContext(ctx, `SELECT `+equipmentColumns+` FROM equipment ORDER BY category, name, id`)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	items := make([]persistence.Equipment, 0)
	for rows.Next() {
		item, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SetEquipmentStatus performs a compare-and-set on the status column.
func (s *Store) SetEquipmentStatus(ctx context.Context, id string, from, to persistence.EquipmentStatus) error {
	return s.write(ctx, func(q querier) error {
		affected, err := execCount(ctx, q, `UPDATE equipment SET status = ? WHERE id = ? AND status = ?`, string(to), id, string(from))
		if err != nil {
			return err
		}
		if affected > 0 {
			return nil
		}

		var current string
		if err := q.QueryRowContext(ctx, `SELECT status FROM equipment WHERE id = ?`, id).Scan(&current); err != nil {
			return err
		}
		return fmt.Errorf("sqlite: equipment %s is %s, not %s: %w", id, current, from, persistence.ErrConflict)
	})
}

// SetEquipmentActive toggles the active flag of an equipment item.
func (s *Store) SetEquipmentActive(ctx context.Context, id string, active bool) error {
	return s.write(ctx, func(q querier) error {
		return execOne(ctx, q, `UPDATE equipment SET is_active = ? WHERE id = ?`, active, id)
	})
}

func scanEquipment(row rowScanner) (persistence.Equipment, error) {
	var (
		item      persistence.Equipment
		status    string
		createdAt string
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Category, &status, &item.IsActive, &createdAt); err != nil {
		return persistence.Equipment{}, err
	}
	item.Status = persistence.EquipmentStatus(status)
	var err error
	if item.CreatedAt, err = decodeTime(createdAt); err != nil {
		return persistence.Equipment{}, err
	}
	return item, nil
}
