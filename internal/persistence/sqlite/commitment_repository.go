package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sevenpast/campcore/internal/persistence"
)

const commitmentColumns = `id, kind, actor_id, category, label, lesson_id, series_id, start_at, end_at, created_by, created_at`

// CreateCommitments stores the batch in a single transaction.
func (s *Store) CreateCommitments(ctx context.Context, commitments []persistence.Commitment) error {
	for _, c := range commitments {
		if !c.EndAt.After(c.StartAt) {
			return persistence.ErrConstraintViolation
		}
	}
	if len(commitments) == 0 {
		return nil
	}
	return s.writeTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO commitments (`+commitmentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range commitments {
			if _, err := stmt.ExecContext(ctx,
				c.ID,
				string(c.Kind),
				c.ActorID,
				c.Category,
				c.Label,
				encodeNullString(c.LessonID),
				encodeNullString(c.SeriesID),
				encodeTime(c.StartAt),
				encodeTime(c.EndAt),
				c.CreatedBy,
				encodeTime(c.CreatedAt),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListCommitments returns matching commitments ordered by start time.
func (s *Store) ListCommitments(ctx context.Context, filter persistence.CommitmentFilter) ([]persistence.Commitment, error) {
	var w where
	if filter.ActorID != "" {
		w.add("actor_id = ?", filter.ActorID)
	}
	if filter.Kind != "" {
		w.add("kind = ?", string(filter.Kind))
	}
	if filter.Category != "" {
		w.add("category = ?", filter.Category)
	}
	if filter.LessonID != "" {
		w.add("lesson_id = ?", filter.LessonID)
	}
	if filter.SeriesID != "" {
		w.add("series_id = ?", filter.SeriesID)
	}
	if filter.From != nil {
		w.add("end_at > ?", encodeTime(*filter.From))
	}
	if filter.To != nil {
		w.add("start_at < ?", encodeTime(*filter.To))
	}

	rows, err := s.pool.DB().QueryContext(ctx,
		`SELECT `+commitmentColumns+` FROM commitments`+w.String()+` ORDER BY start_at, id`, w.args...)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	out := make([]persistence.Commitment, 0)
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCommitments removes the given commitments and returns how many existed.
func (s *Store) DeleteCommitments(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	var deleted int
	err := s.write(ctx, func(q querier) error {
		var err error
		deleted, err = execCount(ctx, q, `DELETE FROM commitments WHERE id IN (`+placeholders+`)`, args...)
		return err
	})
	return deleted, err
}

// DeleteCommitmentsBySeries removes every commitment generated by a series.
func (s *Store) DeleteCommitmentsBySeries(ctx context.Context, seriesID string) (int, error) {
	var deleted int
	err := s.write(ctx, func(q querier) error {
		var err error
		deleted, err = execCount(ctx, q, `DELETE FROM commitments WHERE series_id = ?`, seriesID)
		return err
	})
	return deleted, err
}

func scanCommitment(row rowScanner) (persistence.Commitment, error) {
	var (
		c         persistence.Commitment
		kind      string
		lessonID  sql.NullString
		seriesID  sql.NullString
		startAt   string
		endAt     string
		createdAt string
	)
	if err := row.Scan(
		&c.ID,
		&kind,
		&c.ActorID,
		&c.Category,
		&c.Label,
		&lessonID,
		&seriesID,
		&startAt,
		&endAt,
		&c.CreatedBy,
		&createdAt,
	); err != nil {
		return persistence.Commitment{}, err
	}
	c.Kind = persistence.CommitmentKind(kind)
	c.LessonID = decodeNullString(lessonID)
	c.SeriesID = decodeNullString(seriesID)

	var err error
	if c.StartAt, err = decodeTime(startAt); err != nil {
		return persistence.Commitment{}, err
	}
	if c.EndAt, err = decodeTime(endAt); err != nil {
		return persistence.Commitment{}, err
	}
	if c.CreatedAt, err = decodeTime(createdAt); err != nil {
		return persistence.Commitment{}, err
	}
	return c, nil
}

// CreateLesson stores a new lesson.
func (s *Store) CreateLesson(ctx context.Context, lesson persistence.Lesson) error {
	return s.write(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO lessons (id, title, category, start_at, end_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, lesson.ID, lesson.Title, lesson.Category, encodeTime(lesson.StartAt), encodeTime(lesson.EndAt), encodeTime(lesson.CreatedAt))
		return err
	})
}

// GetLesson retrieves a lesson by ID.
func (s *Store) GetLesson(ctx context.Context, id string) (persistence.Lesson, error) {
	var (
		lesson    persistence.Lesson
		startAt   string
		endAt     string
		createdAt string
	)
	err := s.pool.DB().QueryRowContext(ctx, `
		SELECT id, title, category, start_at, end_at, created_at
		FROM lessons
		WHERE id = ?
	`, id).Scan(&lesson.ID, &lesson.Title, &lesson.Category, &startAt, &endAt, &createdAt)
	if err != nil {
		return persistence.Lesson{}, s.mapper.MapError(err)
	}
	if lesson.StartAt, err = decodeTime(startAt); err != nil {
		return persistence.Lesson{}, err
	}
	if lesson.EndAt, err = decodeTime(endAt); err != nil {
		return persistence.Lesson{}, err
	}
	if lesson.CreatedAt, err = decodeTime(createdAt); err != nil {
		return persistence.Lesson{}, err
	}
	return lesson, nil
}
