package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sevenpast/campcore/internal/application"
	"github.com/sevenpast/campcore/internal/persistence"
)

type bookingService interface {
	CreateBookable(ctx context.Context, params application.CreateBookableParams) ([]persistence.Bookable, error)
	ListBookables(ctx context.Context, filter persistence.BookableFilter) ([]application.BookableStatus, error)
	EvaluateCutoff(ctx context.Context, bookableID string, at time.Time) (application.CutoffEvaluation, error)
	ResetCutoffs(ctx context.Context, filter application.ResetFilter) (int, error)
	SetBookingActive(ctx context.Context, bookableID string, active bool) (persistence.Bookable, error)
	RenameSeries(ctx context.Context, seriesID, title string) (int, error)
	DeleteSeries(ctx context.Context, seriesID string) (int, error)
	DeleteOccurrence(ctx context.Context, bookableID string) error
}

// BookingHandler serves meal and event endpoints including booking cutoffs.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

func NewBookingHandler(service bookingService, now func() time.Time, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	if now == nil {
		now = time.Now
	}
	return &BookingHandler{service: service, responder: newResponder(base), logger: base, now: now}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookableRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode bookable request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	params, err := req.toParams()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create", "kind", params.Kind, "category", params.Category)
	bookables, err := h.service.CreateBookable(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "bookable creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(bookables)).InfoContext(r.Context(), "bookables created")
	out := make([]bookableDTO, 0, len(bookables))
	for _, b := range bookables {
		out = append(out, toBookableDTO(b, nil))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, listBookablesResponse{Bookables: out})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date, err := parseOptionalDate(query.Get("date"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("date must use the %s layout", dateLayout))
		return
	}
	filter := persistence.BookableFilter{
		Kind:     persistence.BookableKind(strings.TrimSpace(query.Get("kind"))),
		Category: strings.TrimSpace(query.Get("category")),
		SeriesID: strings.TrimSpace(query.Get("series_id")),
		Date:     date,
	}

	logger := h.log(r.Context(), "List", "kind", filter.Kind, "category", filter.Category)
	statuses, err := h.service.ListBookables(r.Context(), filter)
	if err != nil {
		logger.ErrorContext(r.Context(), "bookable list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(statuses)).InfoContext(r.Context(), "bookables listed")
	out := make([]bookableDTO, 0, len(statuses))
	for _, status := range statuses {
		evaluation := status.Evaluation
		out = append(out, toBookableDTO(status.Bookable, &evaluation))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookablesResponse{Bookables: out})
}

// Cutoff evaluates the booking state at the "at" query parameter, or now.
func (h *BookingHandler) Cutoff(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}
	at, err := parseOptionalTimestamp(r.URL.Query(), "at")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	instant := h.now()
	if at != nil {
		instant = *at
	}

	evaluation, err := h.service.EvaluateCutoff(r.Context(), id, instant)
	if errors.Is(err, application.ErrInvalidTimeFormat) && evaluation.BookableID != "" {
		// The fail-safe evaluation is still the answer; the error travels with it.
		h.log(r.Context(), "Cutoff", "bookable_id", id).WarnContext(r.Context(), "cutoff time is malformed, reporting fail-safe status", "error", err)
		dto := toEvaluationDTO(evaluation)
		dto.ErrorCode = application.ErrorKind(err)
		dto.Message = err.Error()
		h.responder.writeJSON(r.Context(), w, http.StatusOK, dto)
		return
	}
	if err != nil {
		h.log(r.Context(), "Cutoff", "bookable_id", id).ErrorContext(r.Context(), "cutoff evaluation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEvaluationDTO(evaluation))
}

func (h *BookingHandler) SetBookingActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}
	var req bookingToggleRequest
	if err := decodeJSON(r, &req); err != nil || req.Active == nil {
		h.log(r.Context(), "SetBookingActive", "bookable_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking toggle", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "SetBookingActive", "bookable_id", id, "active", *req.Active)
	bookable, err := h.service.SetBookingActive(r.Context(), id, *req.Active)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking toggle failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking toggled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookableResponse{Bookable: toBookableDTO(bookable, nil)})
}

func (h *BookingHandler) ResetCutoffs(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "ResetCutoffs", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reset request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("date must use the %s layout", dateLayout))
		return
	}

	filter := application.ResetFilter{
		Kind:     persistence.BookableKind(strings.TrimSpace(req.Kind)),
		Category: strings.TrimSpace(req.Category),
		Date:     date,
	}
	logger := h.log(r.Context(), "ResetCutoffs", "kind", filter.Kind, "category", filter.Category)
	count, err := h.service.ResetCutoffs(r.Context(), filter)
	if err != nil {
		logger.ErrorContext(r.Context(), "cutoff reset failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "cutoffs reset", "reset_count", count)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{Count: count})
}

func (h *BookingHandler) DeleteOccurrence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	logger := h.log(r.Context(), "DeleteOccurrence", "bookable_id", id)
	if err := h.service.DeleteOccurrence(r.Context(), id); err != nil {
		logger.ErrorContext(r.Context(), "occurrence delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "occurrence deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *BookingHandler) RenameSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}
	var req renameSeriesRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "RenameSeries", "series_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode rename request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "RenameSeries", "series_id", id)
	updated, err := h.service.RenameSeries(r.Context(), id, strings.TrimSpace(req.Title))
	if err != nil {
		logger.ErrorContext(r.Context(), "series rename failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "series renamed", "updated", updated)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{Count: updated})
}

func (h *BookingHandler) DeleteSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	logger := h.log(r.Context(), "DeleteSeries", "series_id", id)
	deleted, err := h.service.DeleteSeries(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "series delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "series deleted", "deleted", deleted)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{Count: deleted})
}

type bookableRequest struct {
	Kind          string             `json:"kind"`
	Category      string             `json:"category"`
	Title         string             `json:"title"`
	Date          string             `json:"date"`
	CutoffTime    string             `json:"cutoff_time"`
	CutoffEnabled bool               `json:"cutoff_enabled"`
	ResetTime     string             `json:"reset_time"`
	ResetEnabled  bool               `json:"reset_enabled"`
	Recurrence    *recurrenceRequest `json:"recurrence"`
}

func (r bookableRequest) toParams() (application.CreateBookableParams, error) {
	var date time.Time
	if strings.TrimSpace(r.Date) != "" {
		parsed, err := parseDate(r.Date)
		if err != nil {
			return application.CreateBookableParams{}, fmt.Errorf("date must use the %s layout", dateLayout)
		}
		date = parsed
	}
	rule, err := r.Recurrence.toInput()
	if err != nil {
		return application.CreateBookableParams{}, err
	}
	return application.CreateBookableParams{
		Kind:     persistence.BookableKind(strings.TrimSpace(r.Kind)),
		Category: r.Category,
		Title:    r.Title,
		Date:     date,
		Policy: application.CutoffPolicyInput{
			CutoffTime:    strings.TrimSpace(r.CutoffTime),
			CutoffEnabled: r.CutoffEnabled,
			ResetTime:     strings.TrimSpace(r.ResetTime),
			ResetEnabled:  r.ResetEnabled,
		},
		Recurrence: rule,
	}, nil
}

type bookingToggleRequest struct {
	Active *bool `json:"active"`
}

type resetRequest struct {
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

type renameSeriesRequest struct {
	Title string `json:"title"`
}

type bookableResponse struct {
	Bookable bookableDTO `json:"bookable"`
}

type listBookablesResponse struct {
	Bookables []bookableDTO `json:"bookables"`
}

type bookableDTO struct {
	ID              string         `json:"id"`
	Kind            string         `json:"kind"`
	Category        string         `json:"category,omitempty"`
	Title           string         `json:"title"`
	Date            string         `json:"date"`
	SeriesID        string         `json:"series_id,omitempty"`
	CutoffTime      string         `json:"cutoff_time,omitempty"`
	CutoffEnabled   bool           `json:"cutoff_enabled"`
	ResetTime       string         `json:"reset_time,omitempty"`
	ResetEnabled    bool           `json:"reset_enabled"`
	IsBookingActive bool           `json:"is_booking_active"`
	ReopenedAt      string         `json:"reopened_at,omitempty"`
	Evaluation      *evaluationDTO `json:"evaluation,omitempty"`
}

type evaluationDTO struct {
	BookableID  string `json:"bookable_id"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	CanBook     bool   `json:"can_book"`
	Reason      string `json:"reason"`
	EvaluatedAt string `json:"evaluated_at"`
	ErrorCode   string `json:"error_code,omitempty"`
	Message     string `json:"message,omitempty"`
}

func toBookableDTO(b persistence.Bookable, evaluation *application.CutoffEvaluation) bookableDTO {
	dto := bookableDTO{
		ID:              b.ID,
		Kind:            string(b.Kind),
		Category:        b.Category,
		Title:           b.Title,
		Date:            b.Date.UTC().Format(dateLayout),
		CutoffTime:      b.Policy.CutoffTime,
		CutoffEnabled:   b.Policy.CutoffEnabled,
		ResetTime:       b.Policy.ResetTime,
		ResetEnabled:    b.Policy.ResetEnabled,
		IsBookingActive: b.Policy.IsBookingActive,
	}
	if b.SeriesID != nil {
		dto.SeriesID = *b.SeriesID
	}
	if b.Policy.ReopenedAt != nil {
		dto.ReopenedAt = formatTimestamp(*b.Policy.ReopenedAt)
	}
	if evaluation != nil {
		e := toEvaluationDTO(*evaluation)
		dto.Evaluation = &e
	}
	return dto
}

func toEvaluationDTO(e application.CutoffEvaluation) evaluationDTO {
	return evaluationDTO{
		BookableID:  e.BookableID,
		Date:        e.Date.UTC().Format(dateLayout),
		Status:      string(e.Status),
		CanBook:     e.CanBook,
		Reason:      e.Reason,
		EvaluatedAt: formatTimestamp(e.EvaluatedAt),
	}
}
