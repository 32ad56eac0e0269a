package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sevenpast/campcore/internal/persistence"
	"github.com/sevenpast/campcore/internal/recurrence"
	"github.com/sevenpast/campcore/internal/scheduler"
)

// CommitmentStore captures the persistence operations needed by the commitment service.
type CommitmentStore interface {
	GetGuest(ctx context.Context, id string) (persistence.Guest, error)
	GetStaff(ctx context.Context, id string) (persistence.Staff, error)
	GetLesson(ctx context.Context, id string) (persistence.Lesson, error)
	CreateCommitments(ctx context.Context, commitments []persistence.Commitment) error
	ListCommitments(ctx context.Context, filter persistence.CommitmentFilter) ([]persistence.Commitment, error)
	DeleteCommitments(ctx context.Context, ids []string) (int, error)
	DeleteCommitmentsBySeries(ctx context.Context, seriesID string) (int, error)
	CreateSeries(ctx context.Context, series persistence.Series) error
	GetSeries(ctx context.Context, id string) (persistence.Series, error)
	DeleteSeries(ctx context.Context, id string) error
}

// CommitmentService schedules staff shifts and guest lesson assignments after
// checking them for temporal and category conflicts.
type CommitmentService struct {
	store       CommitmentStore
	engine      *recurrence.Engine
	policy      SchedulingPolicy
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCommitmentService constructs a commitment service with the provided dependencies.
func NewCommitmentService(store CommitmentStore, policy SchedulingPolicy, idGenerator func() string, now func() time.Time) *CommitmentService {
	return NewCommitmentServiceWithLogger(store, policy, idGenerator, now, nil)
}

// NewCommitmentServiceWithLogger constructs a commitment service with a specified logger.
func NewCommitmentServiceWithLogger(store CommitmentStore, policy SchedulingPolicy, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CommitmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CommitmentService{
		store:       store,
		engine:      recurrence.NewEngine(policy.location()),
		policy:      policy,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CommitmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CommitmentService", operation, attrs...)
}

// CreateShift schedules a shift for a staff member. With a recurrence rule every
// generated occurrence is checked first and the whole series is rejected when any
// of them conflicts.
func (s *CommitmentService) CreateShift(ctx context.Context, params CreateShiftParams) (result ShiftResult, err error) {
	if s == nil {
		err = fmt.Errorf("CommitmentService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("commitment store not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateShift",
		"staff_id", params.StaffID,
		"actor_id", params.ActorID,
		"recurring", params.Recurrence != nil,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create shift", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("shift_id", result.Shift.ID, "occurrences", 1+len(result.Siblings)).InfoContext(ctx, "shift created")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.StaffID) == "" {
		vErr.add("staff_id", "staff_id is required")
	}
	if strings.TrimSpace(params.RoleLabel) == "" {
		vErr.add("role_label", "role_label is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	loc := s.policy.location()
	if verr := scheduler.ValidateSameDay(params.StartAt, params.EndAt, loc); verr != nil {
		err = fmt.Errorf("%w: shift must start and end on the same day", ErrInvalidInterval)
		return
	}

	var staff persistence.Staff
	staff, err = s.store.GetStaff(ctx, params.StaffID)
	if err != nil {
		err = mapStoreError(err, fmt.Errorf("%w: staff %s", ErrNotFound, params.StaffID))
		return
	}
	if !staff.IsActive {
		err = fmt.Errorf("%w: staff %s", ErrInactive, staff.ID)
		return
	}

	intervals := []scheduler.Interval{{Start: params.StartAt, End: params.EndAt}}
	var rule recurrence.Rule
	if params.Recurrence != nil {
		rule, err = toRecurrenceRule(s.idGenerator(), *params.Recurrence)
		if err != nil {
			return
		}
		var occurrences []recurrence.Occurrence
		occurrences, err = expandBounded(s.engine, rule, recurrence.Template{Start: params.StartAt, End: params.EndAt}, s.policy.maxOccurrences())
		if err != nil {
			return
		}
		if len(occurrences) == 0 {
			err = fmt.Errorf("%w: rule generates no occurrences", ErrInvalidRecurrence)
			return
		}
		intervals = intervals[:0]
		for _, occ := range occurrences {
			if verr := scheduler.ValidateSameDay(occ.Start, occ.End, loc); verr != nil {
				err = fmt.Errorf("%w: occurrence on %s crosses midnight", ErrInvalidInterval, occ.Date.Format(time.DateOnly))
				return
			}
			intervals = append(intervals, scheduler.Interval{Start: occ.Start, End: occ.End})
		}
	}

	var existing []persistence.Commitment
	from, to := intervals[0].Start, intervals[len(intervals)-1].End
	existing, err = s.store.ListCommitments(ctx, persistence.CommitmentFilter{ActorID: staff.ID, From: &from, To: &to})
	if err != nil {
		err = mapStoreError(err, nil)
		return
	}
	candidates := toSchedulerCommitments(existing)

	report := ConflictReport{}
	recurring := params.Recurrence != nil
	for _, iv := range intervals {
		for _, c := range scheduler.FindConflicts(candidates, staff.ID, iv.Start, iv.End, "") {
			entry := ConflictEntry{ActorID: staff.ID, Reason: ConflictReasonOverlap, ConflictingCommitmentID: c.ID}
			if recurring {
				start := iv.Start
				entry.OccurrenceStart = &start
			}
			report.Entries = append(report.Entries, entry)
		}
	}
	if len(report.Entries) > 0 {
		err = &ConflictError{Report: report}
		return
	}

	now := s.now()
	var seriesID *string
	if recurring {
		series := toSeries(rule.ID, string(persistence.CommitmentKindShift), rule, now)
		if err = s.store.CreateSeries(ctx, series); err != nil {
			err = mapStoreError(err, nil)
			return
		}
		seriesID = stringPtr(series.ID)
		result.SeriesID = series.ID
	}

	shifts := make([]persistence.Commitment, 0, len(intervals))
	for _, iv := range intervals {
		shifts = append(shifts, persistence.Commitment{
			ID:        s.idGenerator(),
			Kind:      persistence.CommitmentKindShift,
			ActorID:   staff.ID,
			Category:  string(persistence.CommitmentKindShift),
			Label:     strings.TrimSpace(params.RoleLabel),
			SeriesID:  seriesID,
			StartAt:   iv.Start,
			EndAt:     iv.End,
			CreatedBy: params.ActorID,
			CreatedAt: now,
		})
	}
	if err = s.store.CreateCommitments(ctx, shifts); err != nil {
		err = mapStoreError(err, nil)
		if seriesID != nil {
			if derr := s.store.DeleteSeries(ctx, *seriesID); derr != nil {
				logger.WarnContext(ctx, "failed to remove orphaned series", "series_id", *seriesID, "error", derr)
			}
		}
		result = ShiftResult{}
		return
	}

	result.Shift = shifts[0]
	result.Siblings = shifts[1:]
	return
}

// CreateLessonAssignment assigns a batch of guests to a lesson. A guest may not
// overlap another commitment nor hold a second lesson of the same category on the
// same day. Without Override the whole batch is rejected with every conflict;
// with Override the reported conflicting commitments are removed first.
func (s *CommitmentService) CreateLessonAssignment(ctx context.Context, params CreateLessonAssignmentParams) (result LessonAssignmentResult, err error) {
	if s == nil {
		err = fmt.Errorf("CommitmentService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("commitment store not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateLessonAssignment",
		"lesson_id", params.LessonID,
		"guest_count", len(params.GuestIDs),
		"override", params.Override,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to assign lesson", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "lesson assigned",
			"created", len(result.Created),
			"already_assigned", len(result.AlreadyAssigned),
			"replaced", len(result.Replaced),
		)
	}()

	guestIDs := uniqueNonEmpty(params.GuestIDs)
	if len(guestIDs) == 0 {
		vErr := &ValidationError{}
		vErr.add("guest_ids", "at least one guest is required")
		err = vErr
		return
	}

	var lesson persistence.Lesson
	lesson, err = s.store.GetLesson(ctx, params.LessonID)
	if err != nil {
		err = mapStoreError(err, fmt.Errorf("%w: lesson %s", ErrNotFound, params.LessonID))
		return
	}
	loc := s.policy.location()
	if verr := scheduler.ValidateSameDay(lesson.StartAt, lesson.EndAt, loc); verr != nil {
		err = fmt.Errorf("%w: lesson %s", ErrInvalidInterval, lesson.ID)
		return
	}
	dayStart, dayEnd := dayBounds(lesson.StartAt, loc)

	report := ConflictReport{}
	pending := make([]persistence.Commitment, 0, len(guestIDs))
	replace := make([]string, 0)
	seenReplace := make(map[string]struct{})
	now := s.now()

	for _, guestID := range guestIDs {
		var guest persistence.Guest
		guest, err = s.store.GetGuest(ctx, guestID)
		if err != nil {
			err = mapStoreError(err, fmt.Errorf("%w: guest %s", ErrNotFound, guestID))
			return
		}
		if !guest.IsActive {
			err = fmt.Errorf("%w: %s", ErrGuestInactive, guestID)
			return
		}

		var existing []persistence.Commitment
		existing, err = s.store.ListCommitments(ctx, persistence.CommitmentFilter{ActorID: guestID, From: &dayStart, To: &dayEnd})
		if err != nil {
			err = mapStoreError(err, nil)
			return
		}
		if holdsLesson(existing, lesson.ID) {
			result.AlreadyAssigned = append(result.AlreadyAssigned, guestID)
			continue
		}

		candidate := scheduler.Commitment{
			ActorID:  guestID,
			Category: lesson.Category,
			Interval: scheduler.Interval{Start: lesson.StartAt, End: lesson.EndAt},
		}
		for _, conflict := range scheduler.DetectConflicts(toSchedulerCommitments(existing), candidate, true, loc) {
			reason := ConflictReasonOverlap
			if conflict.Type == scheduler.ConflictTypeCategory {
				reason = ConflictReasonCategorySameDay
			}
			report.Entries = append(report.Entries, ConflictEntry{
				ActorID:                 guestID,
				Reason:                  reason,
				ConflictingCommitmentID: conflict.WithCommitmentID,
			})
			if _, ok := seenReplace[conflict.WithCommitmentID]; !ok {
				seenReplace[conflict.WithCommitmentID] = struct{}{}
				replace = append(replace, conflict.WithCommitmentID)
			}
		}

		pending = append(pending, persistence.Commitment{
			ID:        s.idGenerator(),
			Kind:      persistence.CommitmentKindLesson,
			ActorID:   guestID,
			Category:  lesson.Category,
			Label:     lesson.Title,
			LessonID:  stringPtr(lesson.ID),
			StartAt:   lesson.StartAt,
			EndAt:     lesson.EndAt,
			CreatedBy: params.ActorID,
			CreatedAt: now,
		})
	}

	if len(report.Entries) > 0 {
		if !params.Override {
			err = &ConflictError{Report: report}
			return
		}
		if _, err = s.store.DeleteCommitments(ctx, replace); err != nil {
			err = mapStoreError(err, nil)
			return
		}
		result.Replaced = replace
		logger.WarnContext(ctx, "conflicting commitments replaced by override", "commitment_ids", replace)
	}

	if len(pending) > 0 {
		if err = s.store.CreateCommitments(ctx, pending); err != nil {
			err = mapStoreError(err, nil)
			return
		}
	}
	result.Created = pending
	return
}

// ExpandRecurrence returns the ordered occurrences of a rule without persisting them.
func (s *CommitmentService) ExpandRecurrence(ctx context.Context, params ExpandRecurrenceParams) (occurrences []recurrence.Occurrence, err error) {
	if s == nil {
		err = fmt.Errorf("CommitmentService is nil")
		return
	}
	logger := s.loggerWith(ctx, "ExpandRecurrence", "frequency", params.Rule.Frequency)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to expand recurrence", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "recurrence expanded", "result_count", len(occurrences))
	}()

	var rule recurrence.Rule
	rule, err = toRecurrenceRule("", params.Rule)
	if err != nil {
		return
	}
	occurrences, err = expandBounded(s.engine, rule, recurrence.Template{Start: params.StartAt, End: params.EndAt}, s.policy.maxOccurrences())
	return
}

// ListCommitments returns commitments matching filter ordered by start time.
func (s *CommitmentService) ListCommitments(ctx context.Context, filter persistence.CommitmentFilter) ([]persistence.Commitment, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("commitment store not configured")
	}
	commitments, err := s.store.ListCommitments(ctx, filter)
	if err != nil {
		err = mapStoreError(err, nil)
		s.loggerWith(ctx, "ListCommitments").ErrorContext(ctx, "failed to list commitments", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return commitments, nil
}

// DeleteCommitment removes a single shift or lesson assignment.
func (s *CommitmentService) DeleteCommitment(ctx context.Context, commitmentID string) (err error) {
	logger := s.loggerWith(ctx, "DeleteCommitment", "commitment_id", commitmentID)
	defer logOutcome(ctx, logger, &err, "commitment deleted", "failed to delete commitment")

	var deleted int
	deleted, err = s.store.DeleteCommitments(ctx, []string{commitmentID})
	if err != nil {
		err = mapStoreError(err, nil)
		return
	}
	if deleted == 0 {
		err = fmt.Errorf("%w: commitment %s", ErrNotFound, commitmentID)
	}
	return
}

// DeleteShiftSeries removes a recurring shift series and every generated shift.
func (s *CommitmentService) DeleteShiftSeries(ctx context.Context, seriesID string) (deleted int, err error) {
	logger := s.loggerWith(ctx, "DeleteShiftSeries", "series_id", seriesID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete shift series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "shift series deleted", "deleted", deleted)
	}()

	var series persistence.Series
	series, err = s.store.GetSeries(ctx, seriesID)
	if err != nil {
		err = mapStoreError(err, fmt.Errorf("%w: series %s", ErrNotFound, seriesID))
		return
	}
	if series.Kind != string(persistence.CommitmentKindShift) {
		err = fmt.Errorf("%w: shift series %s", ErrNotFound, seriesID)
		return
	}
	deleted, err = s.store.DeleteCommitmentsBySeries(ctx, seriesID)
	if err != nil {
		err = mapStoreError(err, nil)
		return
	}
	if derr := s.store.DeleteSeries(ctx, seriesID); derr != nil && !errors.Is(derr, persistence.ErrNotFound) {
		err = mapStoreError(derr, nil)
	}
	return
}

func toSchedulerCommitments(commitments []persistence.Commitment) []scheduler.Commitment {
	out := make([]scheduler.Commitment, 0, len(commitments))
	for _, c := range commitments {
		out = append(out, scheduler.Commitment{
			ID:       c.ID,
			ActorID:  c.ActorID,
			Category: c.Category,
			Interval: scheduler.Interval{Start: c.StartAt, End: c.EndAt},
		})
	}
	return out
}

func holdsLesson(commitments []persistence.Commitment, lessonID string) bool {
	for _, c := range commitments {
		if c.LessonID != nil && *c.LessonID == lessonID {
			return true
		}
	}
	return false
}

func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
