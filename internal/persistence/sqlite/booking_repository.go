package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sevenpast/campcore/internal/persistence"
)

const seriesColumns = `id, kind, frequency, interval_count, days_of_week, day_of_month, end_date, max_occurrences, created_at`

const bookableColumns = `id, kind, category, title, date, series_id, cutoff_time, cutoff_enabled, reset_time, reset_enabled, is_booking_active, reopened_at, created_at`

// CreateSeries stores a new recurrence series.
func (s *Store) CreateSeries(ctx context.Context, series persistence.Series) error {
	return s.write(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO series (`+seriesColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			series.ID,
			series.Kind,
			series.Frequency,
			series.Interval,
			encodeWeekdays(series.DaysOfWeek),
			series.DayOfMonth,
			encodeNullTime(series.EndDate),
			series.MaxOccurrences,
			encodeTime(series.CreatedAt),
		)
		return err
	})
}

// GetSeries retrieves a series by ID.
func (s *Store) GetSeries(ctx context.Context, id string) (persistence.Series, error) {
	var (
		series    persistence.Series
		days      string
		endDate   sql.NullString
		createdAt string
	)
	err := s.pool.DB().QueryRowContext(ctx, `SELECT `+seriesColumns+` FROM series WHERE id = ?`, id).Scan(
		&series.ID,
		&series.Kind,
		&series.Frequency,
		&series.Interval,
		&days,
		&series.DayOfMonth,
		&endDate,
		&series.MaxOccurrences,
		&createdAt,
	)
	if err != nil {
		return persistence.Series{}, s.mapper.MapError(err)
	}
	if series.DaysOfWeek, err = decodeWeekdays(days); err != nil {
		return persistence.Series{}, err
	}
	if series.EndDate, err = decodeNullTime(endDate); err != nil {
		return persistence.Series{}, err
	}
	if series.CreatedAt, err = decodeTime(createdAt); err != nil {
		return persistence.Series{}, err
	}
	return series, nil
}

// DeleteSeries removes a series record. Occurrences must be deleted first.
func (s *Store) DeleteSeries(ctx context.Context, id string) error {
	return s.write(ctx, func(q querier) error {
		return execOne(ctx, q, `DELETE FROM series WHERE id = ?`, id)
	})
}

// CreateBookables stores the batch in a single transaction.
func (s *Store) CreateBookables(ctx context.Context, bookables []persistence.Bookable) error {
	if len(bookables) == 0 {
		return nil
	}
	return s.writeTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO bookables (`+bookableColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range bookables {
			if _, err := stmt.ExecContext(ctx,
				b.ID,
				string(b.Kind),
				b.Category,
				b.Title,
				encodeDate(b.Date),
				encodeNullString(b.SeriesID),
				b.Policy.CutoffTime,
				b.Policy.CutoffEnabled,
				b.Policy.ResetTime,
				b.Policy.ResetEnabled,
				b.Policy.IsBookingActive,
				encodeNullTime(b.Policy.ReopenedAt),
				encodeTime(b.CreatedAt),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetBookable retrieves a bookable by ID.
func (s *Store) GetBookable(ctx context.Context, id string) (persistence.Bookable, error) {
	b, err := scanBookable(s.pool.DB().QueryRowContext(ctx, `SELECT `+bookableColumns+` FROM bookables WHERE id = ?`, id))
	if err != nil {
		return persistence.Bookable{}, s.mapper.MapError(err)
	}
	return b, nil
}

// ListBookables returns matching bookables ordered by date and title.
func (s *Store) ListBookables(ctx context.Context, filter persistence.BookableFilter) ([]persistence.Bookable, error) {
	var w where
	if filter.Kind != "" {
		w.add("kind = ?", string(filter.Kind))
	}
	if filter.Category != "" {
		w.add("category = ?", filter.Category)
	}
	if filter.SeriesID != "" {
		w.add("series_id = ?", filter.SeriesID)
	}
	if filter.Date != nil {
		w.add("date = ?", encodeDate(*filter.Date))
	}

	rows, err := s.pool.DB().QueryContext(ctx,
		`SELECT `+bookableColumns+` FROM bookables`+w.String()+` ORDER BY date, title, id`, w.args...)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	out := make([]persistence.Bookable, 0)
	for rows.Next() {
		b, err := scanBookable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SetBookingActive updates the stored booking flag and re-open timestamp.
func (s *Store) SetBookingActive(ctx context.Context, id string, active bool, reopenedAt *time.Time) (persistence.Bookable, error) {
	var b persistence.Bookable
	err := s.writeTx(ctx, func(tx *sql.Tx) error {
		if err := execOne(ctx, tx, `
			UPDATE bookables
			SET is_booking_active = ?, reopened_at = ?
			WHERE id = ?
		`, active, encodeNullTime(reopenedAt), id); err != nil {
			return err
		}
		var err error
		b, err = scanBookable(tx.QueryRowContext(ctx, `SELECT `+bookableColumns+` FROM bookables WHERE id = ?`, id))
		return err
	})
	if err != nil {
		return persistence.Bookable{}, err
	}
	return b, nil
}

// RenameBookables updates the title of every occurrence in a series.
func (s *Store) RenameBookables(ctx context.Context, seriesID, title string) (int, error) {
	var updated int
	err := s.write(ctx, func(q querier) error {
		var err error
		updated, err = execCount(ctx, q, `UPDATE bookables SET title = ? WHERE series_id = ?`, title, seriesID)
		return err
	})
	return updated, err
}

// DeleteBookable removes a single occurrence.
func (s *Store) DeleteBookable(ctx context.Context, id string) error {
	return s.write(ctx, func(q querier) error {
		return execOne(ctx, q, `DELETE FROM bookables WHERE id = ?`, id)
	})
}

// DeleteBookablesBySeries removes every occurrence of a series.
func (s *Store) DeleteBookablesBySeries(ctx context.Context, seriesID string) (int, error) {
	var deleted int
	err := s.write(ctx, func(q querier) error {
		var err error
		deleted, err = execCount(ctx, q, `DELETE FROM bookables WHERE series_id = ?`, seriesID)
		return err
	})
	return deleted, err
}

func scanBookable(row rowScanner) (persistence.Bookable, error) {
	var (
		b          persistence.Bookable
		kind       string
		date       string
		seriesID   sql.NullString
		reopenedAt sql.NullString
		createdAt  string
	)
	if err := row.Scan(
		&b.ID,
		&kind,
		&b.Category,
		&b.Title,
		&date,
		&seriesID,
		&b.Policy.CutoffTime,
		&b.Policy.CutoffEnabled,
		&b.Policy.ResetTime,
		&b.Policy.ResetEnabled,
		&b.Policy.IsBookingActive,
		&reopenedAt,
		&createdAt,
	); err != nil {
		return persistence.Bookable{}, err
	}
	b.Kind = persistence.BookableKind(kind)
	b.SeriesID = decodeNullString(seriesID)

	var err error
	if b.Date, err = decodeDate(date); err != nil {
		return persistence.Bookable{}, err
	}
	if b.Policy.ReopenedAt, err = decodeNullTime(reopenedAt); err != nil {
		return persistence.Bookable{}, err
	}
	if b.CreatedAt, err = decodeTime(createdAt); err != nil {
		return persistence.Bookable{}, err
	}
	return b, nil
}
