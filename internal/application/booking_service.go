package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sevenpast/campcore/internal/cutoff"
	"github.com/sevenpast/campcore/internal/persistence"
	"github.com/sevenpast/campcore/internal/recurrence"
)

// BookingStore captures the persistence operations needed by the booking service.
type BookingStore interface {
	CreateSeries(ctx context.Context, series persistence.Series) error
	GetSeries(ctx context.Context, id string) (persistence.Series, error)
	DeleteSeries(ctx context.Context, id string) error
	CreateBookables(ctx context.Context, bookables []persistence.Bookable) error
	GetBookable(ctx context.Context, id string) (persistence.Bookable, error)
	ListBookables(ctx context.Context, filter persistence.BookableFilter) ([]persistence.Bookable, error)
	SetBookingActive(ctx context.Context, id string, active bool, reopenedAt *time.Time) (persistence.Bookable, error)
	RenameBookables(ctx context.Context, seriesID, title string) (int, error)
	DeleteBookable(ctx context.Context, id string) error
	DeleteBookablesBySeries(ctx context.Context, seriesID string) (int, error)
}

// BookingService manages meal and event occurrences and their booking windows.
type BookingService struct {
	store       BookingStore
	engine      *recurrence.Engine
	policy      SchedulingPolicy
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(store BookingStore, policy SchedulingPolicy, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(store, policy, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(store BookingStore, policy SchedulingPolicy, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		store:       store,
		engine:      recurrence.NewEngine(policy.location()),
		policy:      policy,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBookable publishes a meal or event. A recurrence rule generates one
// occurrence per date, all sharing a series. Booking starts open.
func (s *BookingService) CreateBookable(ctx context.Context, params CreateBookableParams) (bookables []persistence.Bookable, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBookable",
		"kind", params.Kind,
		"category", params.Category,
		"recurring", params.Recurrence != nil,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create bookable", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "bookable created", "result_count", len(bookables))
	}()

	vErr := &ValidationError{}
	switch params.Kind {
	case persistence.BookableKindMeal, persistence.BookableKindEvent:
	default:
		vErr.add("kind", "kind must be meal or event")
	}
	if strings.TrimSpace(params.Title) == "" {
		vErr.add("title", "title is required")
	}
	if params.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err = validatePolicyInput(params.Policy); err != nil {
		return
	}

	dates := []time.Time{persistence.CivilDate(params.Date)}
	var seriesID *string
	now := s.now()

	if params.Recurrence != nil {
		var rule recurrence.Rule
		rule, err = toRecurrenceRule(s.idGenerator(), *params.Recurrence)
		if err != nil {
			return
		}
		anchor := civilInLocation(params.Date, s.policy.location())
		var occurrences []recurrence.Occurrence
		occurrences, err = expandBounded(s.engine, rule, recurrence.Template{Start: anchor}, s.policy.maxOccurrences())
		if err != nil {
			return
		}
		if len(occurrences) == 0 {
			err = fmt.Errorf("%w: rule generates no occurrences", ErrInvalidRecurrence)
			return
		}
		dates = dates[:0]
		for _, occ := range occurrences {
			dates = append(dates, persistence.CivilDate(occ.Date))
		}
		series := toSeries(rule.ID, string(params.Kind), rule, now)
		if err = s.store.CreateSeries(ctx, series); err != nil {
			err = mapStoreError(err, nil)
			return
		}
		seriesID = stringPtr(series.ID)
	}

	created := make([]persistence.Bookable, 0, len(dates))
	for _, date := range dates {
		created = append(created, persistence.Bookable{
			ID:       s.idGenerator(),
			Kind:     params.Kind,
			Category: strings.TrimSpace(params.Category),
			Title:    strings.TrimSpace(params.Title),
			Date:     date,
			SeriesID: seriesID,
			Policy: persistence.CutoffPolicy{
				CutoffTime:      strings.TrimSpace(params.Policy.CutoffTime),
				CutoffEnabled:   params.Policy.CutoffEnabled,
				ResetTime:       strings.TrimSpace(params.Policy.ResetTime),
				ResetEnabled:    params.Policy.ResetEnabled,
				IsBookingActive: true,
			},
			CreatedAt: now,
		})
	}
	if err = s.store.CreateBookables(ctx, created); err != nil {
		err = mapStoreError(err, nil)
		if seriesID != nil {
			if derr := s.store.DeleteSeries(ctx, *seriesID); derr != nil {
				logger.WarnContext(ctx, "failed to remove orphaned series", "series_id", *seriesID, "error", derr)
			}
		}
		return
	}
	bookables = created
	return
}

// EvaluateCutoff derives the booking status of a bookable at the given instant.
// A zero at means now. A malformed cutoff time returns the error together with
// a fail-safe active evaluation.
func (s *BookingService) EvaluateCutoff(ctx context.Context, bookableID string, at time.Time) (evaluation CutoffEvaluation, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}
	if at.IsZero() {
		at = s.now()
	}

	var bookable persistence.Bookable
	bookable, err = s.store.GetBookable(ctx, bookableID)
	if err != nil {
		err = mapStoreError(err, fmt.Errorf("%w: bookable %s", ErrNotFound, bookableID))
		s.loggerWith(ctx, "EvaluateCutoff", "bookable_id", bookableID).
			ErrorContext(ctx, "failed to evaluate cutoff", "error", err, "error_kind", ErrorKind(err))
		return
	}
	return s.evaluate(ctx, bookable, at)
}

// ListBookables returns bookables matching filter with their current evaluation.
func (s *BookingService) ListBookables(ctx context.Context, filter persistence.BookableFilter) ([]persistence.Bookable, []CutoffEvaluation, error) {
	if s == nil || s.store == nil {
		return nil, nil, fmt.Errorf("booking store not configured")
	}
	bookables, err := s.store.ListBookables(ctx, filter)
	if err != nil {
		return nil, nil, mapStoreError(err, nil)
	}
	at := s.now()
	evaluations := make([]CutoffEvaluation, 0, len(bookables))
	for _, b := range bookables {
		evaluation, _ := s.evaluate(ctx, b, at)
		evaluations = append(evaluations, evaluation)
	}
	return bookables, evaluations, nil
}

func (s *BookingService) evaluate(ctx context.Context, bookable persistence.Bookable, at time.Time) (CutoffEvaluation, error) {
	loc := s.policy.location()
	date := civilInLocation(bookable.Date, loc)
	result, err := cutoff.Evaluate(toCutoffPolicy(bookable.Policy), date, at, loc)
	evaluation := CutoffEvaluation{
		BookableID:  bookable.ID,
		Date:        bookable.Date,
		Status:      result.Status,
		CanBook:     result.CanBook,
		Reason:      result.Reason,
		EvaluatedAt: at,
	}
	if err != nil {
		err = fmt.Errorf("%w: bookable %s: %w", ErrInvalidTimeFormat, bookable.ID, err)
		s.loggerWith(ctx, "EvaluateCutoff", "bookable_id", bookable.ID).
			WarnContext(ctx, "cutoff time could not be parsed, reporting active", "error", err, "error_kind", ErrorKind(err))
		return evaluation, err
	}
	return evaluation, nil
}

// ResetCutoffs re-opens booking for every matching bookable whose reset is due
// and returns how many were re-opened. The reset instant is stamped as the
// re-open time, so a cutoff that passed before it no longer applies. Bookables
// with malformed reset times are skipped and logged.
func (s *BookingService) ResetCutoffs(ctx context.Context, filter ResetFilter) (count int, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	logger := s.loggerWith(ctx, "ResetCutoffs", "kind", filter.Kind, "category", filter.Category)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reset cutoffs", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "cutoffs reset", "reset_count", count)
	}()

	var bookables []persistence.Bookable
	bookables, err = s.store.ListBookables(ctx, persistence.BookableFilter{
		Kind:     filter.Kind,
		Category: filter.Category,
		Date:     filter.Date,
	})
	if err != nil {
		err = mapStoreError(err, nil)
		return
	}

	loc := s.policy.location()
	now := s.now()
	for _, b := range bookables {
		due, derr := cutoff.ResetDue(toCutoffPolicy(b.Policy), civilInLocation(b.Date, loc), now, loc)
		if derr != nil {
			logger.WarnContext(ctx, "skipping bookable with malformed reset time", "bookable_id", b.ID, "error", derr)
			continue
		}
		if !due {
			continue
		}
		if _, err = s.store.SetBookingActive(ctx, b.ID, true, &now); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				err = nil
				continue
			}
			err = mapStoreError(err, nil)
			return
		}
		count++
	}
	return
}

// SetBookingActive applies a manual staff override. Re-opening stamps the
// instant so the override wins over a cutoff that passed before it.
func (s *BookingService) SetBookingActive(ctx context.Context, bookableID string, active bool) (bookable persistence.Bookable, err error) {
	logger := s.loggerWith(ctx, "SetBookingActive", "bookable_id", bookableID, "active", active)
	defer logOutcome(ctx, logger, &err, "booking flag updated", "failed to update booking flag")

	var reopenedAt *time.Time
	if active {
		now := s.now()
		reopenedAt = &now
	}
	bookable, err = s.store.SetBookingActive(ctx, bookableID, active, reopenedAt)
	if err != nil {
		err = mapStoreError(err, fmt.Errorf("%w: bookable %s", ErrNotFound, bookableID))
	}
	return
}

// RenameSeries updates the title of every occurrence in a series.
func (s *BookingService) RenameSeries(ctx context.Context, seriesID, title string) (updated int, err error) {
	logger := s.loggerWith(ctx, "RenameSeries", "series_id", seriesID)
	defer logOutcome(ctx, logger, &err, "series renamed", "failed to rename series")

	title = strings.TrimSpace(title)
	if title == "" {
		vErr := &ValidationError{}
		vErr.add("title", "title is required")
		err = vErr
		return
	}
	if _, err = s.store.GetSeries(ctx, seriesID); err != nil {
		err = mapStoreError(err, fmt.Errorf("%w: series %s", ErrNotFound, seriesID))
		return
	}
	updated, err = s.store.RenameBookables(ctx, seriesID, title)
	err = mapStoreError(err, nil)
	return
}

// DeleteSeries removes a series and every occurrence it generated.
func (s *BookingService) DeleteSeries(ctx context.Context, seriesID string) (deleted int, err error) {
	logger := s.loggerWith(ctx, "DeleteSeries", "series_id", seriesID)
	defer logOutcome(ctx, logger, &err, "series deleted", "failed to delete series")

	if _, err = s.store.GetSeries(ctx, seriesID); err != nil {
		err = mapStoreError(err, fmt.Errorf("%w: series %s", ErrNotFound, seriesID))
		return
	}
	deleted, err = s.store.DeleteBookablesBySeries(ctx, seriesID)
	if err != nil {
		err = mapStoreError(err, nil)
		return
	}
	err = mapStoreError(s.store.DeleteSeries(ctx, seriesID), nil)
	return
}

// DeleteOccurrence removes a single occurrence, leaving its series intact.
func (s *BookingService) DeleteOccurrence(ctx context.Context, bookableID string) (err error) {
	logger := s.loggerWith(ctx, "DeleteOccurrence", "bookable_id", bookableID)
	defer logOutcome(ctx, logger, &err, "occurrence deleted", "failed to delete occurrence")

	err = mapStoreError(s.store.DeleteBookable(ctx, bookableID), fmt.Errorf("%w: bookable %s", ErrNotFound, bookableID))
	return
}

func validatePolicyInput(input CutoffPolicyInput) error {
	if input.CutoffEnabled || strings.TrimSpace(input.CutoffTime) != "" {
		if _, err := cutoff.ParseClock(input.CutoffTime); err != nil {
			return fmt.Errorf("%w: cutoff_time: %w", ErrInvalidTimeFormat, err)
		}
	}
	if input.ResetEnabled || strings.TrimSpace(input.ResetTime) != "" {
		if _, err := cutoff.ParseClock(input.ResetTime); err != nil {
			return fmt.Errorf("%w: reset_time: %w", ErrInvalidTimeFormat, err)
		}
	}
	return nil
}

func toCutoffPolicy(p persistence.CutoffPolicy) cutoff.Policy {
	return cutoff.Policy{
		CutoffTime:      p.CutoffTime,
		CutoffEnabled:   p.CutoffEnabled,
		ResetTime:       p.ResetTime,
		ResetEnabled:    p.ResetEnabled,
		IsBookingActive: p.IsBookingActive,
		ReopenedAt:      p.ReopenedAt,
	}
}

// civilInLocation places the calendar date of d at midnight in loc.
func civilInLocation(d time.Time, loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}
