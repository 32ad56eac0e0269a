package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sevenpast/campcore/internal/application"
)

var (
	errBadRequestBody = errors.New("request body is not valid JSON")
	errMissingID      = errors.New("resource identifier is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError renders an application error with the status its kind
// maps to. Conflict reports and field errors are included in the body.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	kind := application.ErrorKind(err)
	status := statusForKind(kind)
	body := errorResponse{ErrorCode: kind, Message: err.Error()}
	if status == http.StatusInternalServerError {
		body.Message = http.StatusText(status)
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		body.Message = "request validation failed"
		body.Errors = vErr.FieldErrors
	}
	var cErr *application.ConflictError
	if errors.As(err, &cErr) {
		body.Conflicts = toConflictDTOs(cErr.Report)
	}

	r.writeJSON(ctx, w, status, body)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusForKind(kind string) int {
	switch kind {
	case "not_found":
		return http.StatusNotFound
	case "validation", "invalid_interval", "invalid_recurrence", "invalid_time_format":
		return http.StatusUnprocessableEntity
	case "inactive", "capacity_exceeded", "unavailable", "temporal_conflict", "category_conflict",
		"already_exists", "resource_in_use", "assignment_closed":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflicts []conflictDTO     `json:"conflicts,omitempty"`
}

type conflictDTO struct {
	ActorID                 string `json:"actor_id"`
	Reason                  string `json:"reason"`
	ConflictingCommitmentID string `json:"conflicting_commitment_id"`
	OccurrenceStart         string `json:"occurrence_start,omitempty"`
}

func toConflictDTOs(report application.ConflictReport) []conflictDTO {
	if len(report.Entries) == 0 {
		return nil
	}
	out := make([]conflictDTO, 0, len(report.Entries))
	for _, entry := range report.Entries {
		dto := conflictDTO{
			ActorID:                 entry.ActorID,
			Reason:                  string(entry.Reason),
			ConflictingCommitmentID: entry.ConflictingCommitmentID,
		}
		if entry.OccurrenceStart != nil {
			dto.OccurrenceStart = formatTimestamp(*entry.OccurrenceStart)
		}
		out = append(out, dto)
	}
	return out
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
