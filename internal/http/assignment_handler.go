package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sevenpast/campcore/internal/application"
	"github.com/sevenpast/campcore/internal/persistence"
)

type assignmentService interface {
	AssignBed(ctx context.Context, params application.AssignBedParams) (persistence.Assignment, error)
	ReleaseBed(ctx context.Context, assignmentID string) (persistence.Assignment, error)
	AssignEquipment(ctx context.Context, params application.AssignEquipmentParams) (persistence.Assignment, error)
	ReleaseEquipment(ctx context.Context, assignmentID string) (persistence.Assignment, error)
	DeactivateBed(ctx context.Context, bedID string) error
	DeactivateEquipment(ctx context.Context, equipmentID string) error
	DeactivateRoom(ctx context.Context, roomID string) error
	ReconcileOccupancy(ctx context.Context) (application.ReconcileResult, error)
}

// AssignmentHandler serves bed and equipment assignment endpoints.
type AssignmentHandler struct {
	service   assignmentService
	responder responder
	logger    *slog.Logger
}

func NewAssignmentHandler(service assignmentService, logger *slog.Logger) *AssignmentHandler {
	base := defaultLogger(logger)
	return &AssignmentHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AssignmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AssignmentHandler", operation, attrs...)
}

func (h *AssignmentHandler) AssignBed(w http.ResponseWriter, r *http.Request) {
	var req bedAssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "AssignBed", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode bed assignment", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AssignBed", "guest_id", req.GuestID, "bed_id", req.BedID)
	assignment, err := h.service.AssignBed(r.Context(), application.AssignBedParams{
		GuestID: strings.TrimSpace(req.GuestID),
		BedID:   strings.TrimSpace(req.BedID),
		ActorID: actorID(r),
		Notes:   strings.TrimSpace(req.Notes),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "bed assignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("assignment_id", assignment.ID).InfoContext(r.Context(), "bed assigned")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, assignmentResponse{Assignment: toAssignmentDTO(assignment)})
}

func (h *AssignmentHandler) ReleaseBed(w http.ResponseWriter, r *http.Request) {
	h.release(w, r, "ReleaseBed", h.service.ReleaseBed)
}

func (h *AssignmentHandler) AssignEquipment(w http.ResponseWriter, r *http.Request) {
	var req equipmentAssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "AssignEquipment", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode equipment assignment", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AssignEquipment", "guest_id", req.GuestID, "equipment_id", req.EquipmentID)
	assignment, err := h.service.AssignEquipment(r.Context(), application.AssignEquipmentParams{
		EquipmentID: strings.TrimSpace(req.EquipmentID),
		GuestID:     strings.TrimSpace(req.GuestID),
		ActorID:     actorID(r),
		Notes:       strings.TrimSpace(req.Notes),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "equipment assignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("assignment_id", assignment.ID).InfoContext(r.Context(), "equipment assigned")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, assignmentResponse{Assignment: toAssignmentDTO(assignment)})
}

func (h *AssignmentHandler) ReleaseEquipment(w http.ResponseWriter, r *http.Request) {
	h.release(w, r, "ReleaseEquipment", h.service.ReleaseEquipment)
}

func (h *AssignmentHandler) release(w http.ResponseWriter, r *http.Request, operation string, fn func(context.Context, string) (persistence.Assignment, error)) {
	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	logger := h.log(r.Context(), operation, "assignment_id", id)
	assignment, err := fn(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "release failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "assignment released")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, assignmentResponse{Assignment: toAssignmentDTO(assignment)})
}

func (h *AssignmentHandler) DeactivateBed(w http.ResponseWriter, r *http.Request) {
	h.deactivate(w, r, "DeactivateBed", h.service.DeactivateBed)
}

func (h *AssignmentHandler) DeactivateEquipment(w http.ResponseWriter, r *http.Request) {
	h.deactivate(w, r, "DeactivateEquipment", h.service.DeactivateEquipment)
}

func (h *AssignmentHandler) DeactivateRoom(w http.ResponseWriter, r *http.Request) {
	h.deactivate(w, r, "DeactivateRoom", h.service.DeactivateRoom)
}

func (h *AssignmentHandler) deactivate(w http.ResponseWriter, r *http.Request, operation string, fn func(context.Context, string) error) {
	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	logger := h.log(r.Context(), operation, "resource_id", id)
	if err := fn(r.Context(), id); err != nil {
		logger.ErrorContext(r.Context(), "deactivation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "resource deactivated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AssignmentHandler) ReconcileOccupancy(w http.ResponseWriter, r *http.Request) {
	logger := h.log(r.Context(), "ReconcileOccupancy")
	result, err := h.service.ReconcileOccupancy(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "reconciliation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "occupancy reconciled", "beds_corrected", result.BedsCorrected, "equipment_corrected", result.EquipmentCorrected)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reconcileResponse{
		BedsCorrected:      result.BedsCorrected,
		EquipmentCorrected: result.EquipmentCorrected,
	})
}

type bedAssignmentRequest struct {
	GuestID string `json:"guest_id"`
	BedID   string `json:"bed_id"`
	Notes   string `json:"notes"`
}

type equipmentAssignmentRequest struct {
	GuestID     string `json:"guest_id"`
	EquipmentID string `json:"equipment_id"`
	Notes       string `json:"notes"`
}

type assignmentResponse struct {
	Assignment assignmentDTO `json:"assignment"`
}

type reconcileResponse struct {
	BedsCorrected      int `json:"beds_corrected"`
	EquipmentCorrected int `json:"equipment_corrected"`
}

type assignmentDTO struct {
	ID           string `json:"id"`
	GuestID      string `json:"guest_id"`
	ResourceKind string `json:"resource_kind"`
	ResourceID   string `json:"resource_id"`
	Category     string `json:"category,omitempty"`
	State        string `json:"state"`
	AssignedBy   string `json:"assigned_by,omitempty"`
	Notes        string `json:"notes,omitempty"`
	AssignedAt   string `json:"assigned_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

func toAssignmentDTO(a persistence.Assignment) assignmentDTO {
	dto := assignmentDTO{
		ID:           a.ID,
		GuestID:      a.GuestID,
		ResourceKind: string(a.ResourceKind),
		ResourceID:   a.ResourceID,
		Category:     a.Category,
		State:        string(a.State),
		AssignedBy:   a.AssignedBy,
		Notes:        a.Notes,
		AssignedAt:   formatTimestamp(a.AssignedAt),
	}
	if a.CompletedAt != nil {
		dto.CompletedAt = formatTimestamp(*a.CompletedAt)
	}
	return dto
}
