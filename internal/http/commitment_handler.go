package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sevenpast/campcore/internal/application"
	"github.com/sevenpast/campcore/internal/persistence"
	"github.com/sevenpast/campcore/internal/recurrence"
)

type commitmentService interface {
	CreateShift(ctx context.Context, params application.CreateShiftParams) (application.ShiftResult, error)
	CreateLessonAssignment(ctx context.Context, params application.CreateLessonAssignmentParams) (application.LessonAssignmentResult, error)
	ExpandRecurrence(ctx context.Context, params application.ExpandRecurrenceParams) ([]recurrence.Occurrence, error)
	ListCommitments(ctx context.Context, filter persistence.CommitmentFilter) ([]persistence.Commitment, error)
	DeleteCommitment(ctx context.Context, commitmentID string) error
	DeleteShiftSeries(ctx context.Context, seriesID string) (int, error)
}

// CommitmentHandler serves shift, lesson assignment and recurrence endpoints.
type CommitmentHandler struct {
	service   commitmentService
	responder responder
	logger    *slog.Logger
}

func NewCommitmentHandler(service commitmentService, logger *slog.Logger) *CommitmentHandler {
	base := defaultLogger(logger)
	return &CommitmentHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CommitmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "CommitmentHandler", operation, attrs...)
}

func (h *CommitmentHandler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req shiftRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "CreateShift", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode shift request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	rule, err := req.Recurrence.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "CreateShift", "staff_id", req.StaffID, "recurring", rule != nil)
	result, err := h.service.CreateShift(r.Context(), application.CreateShiftParams{
		StaffID:    strings.TrimSpace(req.StaffID),
		RoleLabel:  strings.TrimSpace(req.RoleLabel),
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Recurrence: rule,
		ActorID:    actorID(r),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "shift creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("shift_id", result.Shift.ID, "occurrences", 1+len(result.Siblings)).InfoContext(r.Context(), "shift created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, shiftResponse{
		Shift:    toCommitmentDTO(result.Shift),
		Siblings: toCommitmentDTOs(result.Siblings),
		SeriesID: result.SeriesID,
	})
}

func (h *CommitmentHandler) CreateLessonAssignment(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}
	var req lessonAssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "CreateLessonAssignment", "lesson_id", lessonID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode lesson assignment", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateLessonAssignment", "lesson_id", lessonID, "guests", len(req.GuestIDs), "override", req.Override)
	result, err := h.service.CreateLessonAssignment(r.Context(), application.CreateLessonAssignmentParams{
		LessonID: lessonID,
		GuestIDs: req.GuestIDs,
		ActorID:  actorID(r),
		Override: req.Override,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "lesson assignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "lesson assigned", "created", len(result.Created), "replaced", len(result.Replaced))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, lessonAssignmentResponse{
		Created:         toCommitmentDTOs(result.Created),
		AlreadyAssigned: result.AlreadyAssigned,
		Replaced:        result.Replaced,
	})
}

func (h *CommitmentHandler) ExpandRecurrence(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "ExpandRecurrence", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode expansion request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	rule, err := req.Rule.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	if rule == nil {
		rule = &application.RecurrenceInput{}
	}

	occurrences, err := h.service.ExpandRecurrence(r.Context(), application.ExpandRecurrenceParams{
		Rule:    *rule,
		StartAt: req.StartAt,
		EndAt:   req.EndAt,
	})
	if err != nil {
		h.log(r.Context(), "ExpandRecurrence").ErrorContext(r.Context(), "expansion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]occurrenceDTO, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, occurrenceDTO{
			Sequence: occ.Sequence,
			Date:     occ.Date.Format(dateLayout),
			StartAt:  formatTimestamp(occ.Start),
			EndAt:    formatTimestamp(occ.End),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, expandResponse{Occurrences: out})
}

func (h *CommitmentHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := parseOptionalTimestamp(query, "from")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	to, err := parseOptionalTimestamp(query, "to")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	filter := persistence.CommitmentFilter{
		ActorID:  strings.TrimSpace(query.Get("actor_id")),
		Kind:     persistence.CommitmentKind(strings.TrimSpace(query.Get("kind"))),
		Category: strings.TrimSpace(query.Get("category")),
		LessonID: strings.TrimSpace(query.Get("lesson_id")),
		SeriesID: strings.TrimSpace(query.Get("series_id")),
		From:     from,
		To:       to,
	}
	logger := h.log(r.Context(), "List", "filter_actor_id", filter.ActorID)
	commitments, err := h.service.ListCommitments(r.Context(), filter)
	if err != nil {
		logger.ErrorContext(r.Context(), "commitment list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(commitments)).InfoContext(r.Context(), "commitments listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCommitmentsResponse{Commitments: toCommitmentDTOs(commitments)})
}

func (h *CommitmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	logger := h.log(r.Context(), "Delete", "commitment_id", id)
	if err := h.service.DeleteCommitment(r.Context(), id); err != nil {
		logger.ErrorContext(r.Context(), "commitment delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "commitment deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *CommitmentHandler) DeleteShiftSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	logger := h.log(r.Context(), "DeleteShiftSeries", "series_id", id)
	deleted, err := h.service.DeleteShiftSeries(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "shift series delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "shift series deleted", "deleted", deleted)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{Count: deleted})
}

type shiftRequest struct {
	StaffID    string             `json:"staff_id"`
	RoleLabel  string             `json:"role_label"`
	StartAt    time.Time          `json:"start_at"`
	EndAt      time.Time          `json:"end_at"`
	Recurrence *recurrenceRequest `json:"recurrence"`
}

type lessonAssignmentRequest struct {
	GuestIDs []string `json:"guest_ids"`
	Override bool     `json:"override"`
}

type expandRequest struct {
	Rule    *recurrenceRequest `json:"rule"`
	StartAt time.Time          `json:"start_at"`
	EndAt   time.Time          `json:"end_at"`
}

type shiftResponse struct {
	Shift    commitmentDTO   `json:"shift"`
	Siblings []commitmentDTO `json:"siblings,omitempty"`
	SeriesID string          `json:"series_id,omitempty"`
}

type lessonAssignmentResponse struct {
	Created         []commitmentDTO `json:"created"`
	AlreadyAssigned []string        `json:"already_assigned,omitempty"`
	Replaced        []string        `json:"replaced,omitempty"`
}

type expandResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
}

type listCommitmentsResponse struct {
	Commitments []commitmentDTO `json:"commitments"`
}

type countResponse struct {
	Count int `json:"count"`
}

type occurrenceDTO struct {
	Sequence int    `json:"sequence"`
	Date     string `json:"date"`
	StartAt  string `json:"start_at"`
	EndAt    string `json:"end_at"`
}

type commitmentDTO struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	ActorID   string `json:"actor_id"`
	Category  string `json:"category"`
	Label     string `json:"label,omitempty"`
	LessonID  string `json:"lesson_id,omitempty"`
	SeriesID  string `json:"series_id,omitempty"`
	StartAt   string `json:"start_at"`
	EndAt     string `json:"end_at"`
	CreatedBy string `json:"created_by,omitempty"`
}

func toCommitmentDTO(c persistence.Commitment) commitmentDTO {
	dto := commitmentDTO{
		ID:        c.ID,
		Kind:      string(c.Kind),
		ActorID:   c.ActorID,
		Category:  c.Category,
		Label:     c.Label,
		StartAt:   formatTimestamp(c.StartAt),
		EndAt:     formatTimestamp(c.EndAt),
		CreatedBy: c.CreatedBy,
	}
	if c.LessonID != nil {
		dto.LessonID = *c.LessonID
	}
	if c.SeriesID != nil {
		dto.SeriesID = *c.SeriesID
	}
	return dto
}

func toCommitmentDTOs(commitments []persistence.Commitment) []commitmentDTO {
	out := make([]commitmentDTO, 0, len(commitments))
	for _, c := range commitments {
		out = append(out, toCommitmentDTO(c))
	}
	return out
}
