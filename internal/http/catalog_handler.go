package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sevenpast/campcore/internal/application"
	"github.com/sevenpast/campcore/internal/persistence"
)

type catalogService interface {
	RegisterGuest(ctx context.Context, params application.RegisterGuestParams) (persistence.Guest, error)
	GetGuest(ctx context.Context, id string) (persistence.Guest, error)
	DeactivateGuest(ctx context.Context, guestID string) error
	RegisterStaff(ctx context.Context, params application.RegisterStaffParams) (persistence.Staff, error)
	GetStaff(ctx context.Context, id string) (persistence.Staff, error)
	AddRoom(ctx context.Context, params application.AddRoomParams) (persistence.Room, error)
	AddBed(ctx context.Context, params application.AddBedParams) (persistence.Bed, error)
	GetBed(ctx context.Context, id string) (persistence.Bed, error)
	ListBeds(ctx context.Context, roomID string) ([]persistence.Bed, error)
	AddEquipment(ctx context.Context, params application.AddEquipmentParams) (persistence.Equipment, error)
	GetEquipment(ctx context.Context, id string) (persistence.Equipment, error)
	ListEquipment(ctx context.Context) ([]persistence.Equipment, error)
	ScheduleLesson(ctx context.Context, params application.ScheduleLessonParams) (persistence.Lesson, error)
	GetLesson(ctx context.Context, id string) (persistence.Lesson, error)
}

// CatalogHandler serves registration of people, rooms, beds, equipment and lessons.
type CatalogHandler struct {
	service   catalogService
	responder responder
	logger    *slog.Logger
}

func NewCatalogHandler(service catalogService, logger *slog.Logger) *CatalogHandler {
	base := defaultLogger(logger)
	return &CatalogHandler{service: service, responder: newResponder(base), logger: base}
}

// create decodes a request into req, calls fn and renders its result with 201.
func create[Req any, Res any](h *CatalogHandler, w http.ResponseWriter, r *http.Request, operation string, fn func(context.Context, Req) (Res, error), render func(Res) any) {
	var req Req
	if err := decodeJSON(r, &req); err != nil {
		handlerLogger(r.Context(), h.logger, "CatalogHandler", operation, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := handlerLogger(r.Context(), h.logger, "CatalogHandler", operation)
	result, err := fn(r.Context(), req)
	if err != nil {
		logger.ErrorContext(r.Context(), "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, render(result))
}

// get renders the record fn returns for the path identifier.
func get[Res any](h *CatalogHandler, w http.ResponseWriter, r *http.Request, operation string, fn func(context.Context, string) (Res, error), render func(Res) any) {
	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}
	result, err := fn(r.Context(), id)
	if err != nil {
		handlerLogger(r.Context(), h.logger, "CatalogHandler", operation, "id", id).
			ErrorContext(r.Context(), "lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, render(result))
}

func (h *CatalogHandler) RegisterGuest(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, "RegisterGuest", func(ctx context.Context, req nameRequest) (persistence.Guest, error) {
		return h.service.RegisterGuest(ctx, application.RegisterGuestParams{Name: req.Name})
	}, func(g persistence.Guest) any { return personResponse{Person: toGuestDTO(g)} })
}

func (h *CatalogHandler) GetGuest(w http.ResponseWriter, r *http.Request) {
	get(h, w, r, "GetGuest", h.service.GetGuest, func(g persistence.Guest) any { return personResponse{Person: toGuestDTO(g)} })
}

func (h *CatalogHandler) DeactivateGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}
	logger := handlerLogger(r.Context(), h.logger, "CatalogHandler", "DeactivateGuest", "guest_id", id)
	if err := h.service.DeactivateGuest(r.Context(), id); err != nil {
		logger.ErrorContext(r.Context(), "guest deactivation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "guest deactivated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *CatalogHandler) RegisterStaff(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, "RegisterStaff", func(ctx context.Context, req nameRequest) (persistence.Staff, error) {
		return h.service.RegisterStaff(ctx, application.RegisterStaffParams{Name: req.Name})
	}, func(s persistence.Staff) any { return personResponse{Person: toStaffDTO(s)} })
}

func (h *CatalogHandler) GetStaff(w http.ResponseWriter, r *http.Request) {
	get(h, w, r, "GetStaff", h.service.GetStaff, func(s persistence.Staff) any { return personResponse{Person: toStaffDTO(s)} })
}

func (h *CatalogHandler) AddRoom(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, "AddRoom", func(ctx context.Context, req nameRequest) (persistence.Room, error) {
		return h.service.AddRoom(ctx, application.AddRoomParams{Name: req.Name})
	}, func(room persistence.Room) any {
		return roomResponse{Room: roomDTO{ID: room.ID, Name: room.Name, IsActive: room.IsActive, CreatedAt: formatTimestamp(room.CreatedAt)}}
	})
}

func (h *CatalogHandler) AddBed(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}
	create(h, w, r, "AddBed", func(ctx context.Context, req bedRequest) (persistence.Bed, error) {
		return h.service.AddBed(ctx, application.AddBedParams{RoomID: roomID, Label: req.Label, Capacity: req.Capacity})
	}, func(b persistence.Bed) any { return bedResponse{Bed: toBedDTO(b)} })
}

func (h *CatalogHandler) ListBeds(w http.ResponseWriter, r *http.Request) {
	get(h, w, r, "ListBeds", h.service.ListBeds, func(beds []persistence.Bed) any {
		out := make([]bedDTO, 0, len(beds))
		for _, b := range beds {
			out = append(out, toBedDTO(b))
		}
		return listBedsResponse{Beds: out}
	})
}

func (h *CatalogHandler) GetBed(w http.ResponseWriter, r *http.Request) {
	get(h, w, r, "GetBed", h.service.GetBed, func(b persistence.Bed) any { return bedResponse{Bed: toBedDTO(b)} })
}

func (h *CatalogHandler) AddEquipment(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, "AddEquipment", func(ctx context.Context, req equipmentRequest) (persistence.Equipment, error) {
		return h.service.AddEquipment(ctx, application.AddEquipmentParams{Name: req.Name, Category: req.Category})
	}, func(e persistence.Equipment) any { return equipmentResponse{Equipment: toEquipmentDTO(e)} })
}

func (h *CatalogHandler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	get(h, w, r, "GetEquipment", h.service.GetEquipment, func(e persistence.Equipment) any { return equipmentResponse{Equipment: toEquipmentDTO(e)} })
}

func (h *CatalogHandler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListEquipment(r.Context())
	if err != nil {
		handlerLogger(r.Context(), h.logger, "CatalogHandler", "ListEquipment").
			ErrorContext(r.Context(), "equipment list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]equipmentDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toEquipmentDTO(item))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEquipmentResponse{Equipment: out})
}

func (h *CatalogHandler) ScheduleLesson(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, "ScheduleLesson", func(ctx context.Context, req lessonRequest) (persistence.Lesson, error) {
		return h.service.ScheduleLesson(ctx, application.ScheduleLessonParams{
			Title:    req.Title,
			Category: req.Category,
			StartAt:  req.StartAt,
			EndAt:    req.EndAt,
		})
	}, func(l persistence.Lesson) any { return lessonResponse{Lesson: toLessonDTO(l)} })
}

func (h *CatalogHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	get(h, w, r, "GetLesson", h.service.GetLesson, func(l persistence.Lesson) any { return lessonResponse{Lesson: toLessonDTO(l)} })
}

type nameRequest struct {
	Name string `json:"name"`
}

type bedRequest struct {
	Label    string `json:"label"`
	Capacity int    `json:"capacity"`
}

type equipmentRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type lessonRequest struct {
	Title    string    `json:"title"`
	Category string    `json:"category"`
	StartAt  time.Time `json:"start_at"`
	EndAt    time.Time `json:"end_at"`
}

type personResponse struct {
	Person personDTO `json:"person"`
}

type personDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func toGuestDTO(g persistence.Guest) personDTO {
	return personDTO{ID: g.ID, Name: g.Name, IsActive: g.IsActive, CreatedAt: formatTimestamp(g.CreatedAt)}
}

func toStaffDTO(s persistence.Staff) personDTO {
	return personDTO{ID: s.ID, Name: s.Name, IsActive: s.IsActive, CreatedAt: formatTimestamp(s.CreatedAt)}
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type roomDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

type bedResponse struct {
	Bed bedDTO `json:"bed"`
}

type listBedsResponse struct {
	Beds []bedDTO `json:"beds"`
}

type bedDTO struct {
	ID               string `json:"id"`
	RoomID           string `json:"room_id"`
	Label            string `json:"label"`
	Capacity         int    `json:"capacity"`
	CurrentOccupancy int    `json:"current_occupancy"`
	IsActive         bool   `json:"is_active"`
}

func toBedDTO(b persistence.Bed) bedDTO {
	return bedDTO{
		ID:               b.ID,
		RoomID:           b.RoomID,
		Label:            b.Label,
		Capacity:         b.Capacity,
		CurrentOccupancy: b.CurrentOccupancy,
		IsActive:         b.IsActive,
	}
}

type equipmentResponse struct {
	Equipment equipmentDTO `json:"equipment"`
}

type listEquipmentResponse struct {
	Equipment []equipmentDTO `json:"equipment"`
}

type equipmentDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   string `json:"status"`
	IsActive bool   `json:"is_active"`
}

func toEquipmentDTO(e persistence.Equipment) equipmentDTO {
	return equipmentDTO{ID: e.ID, Name: e.Name, Category: e.Category, Status: string(e.Status), IsActive: e.IsActive}
}

type lessonResponse struct {
	Lesson lessonDTO `json:"lesson"`
}

type lessonDTO struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	StartAt  string `json:"start_at"`
	EndAt    string `json:"end_at"`
}

func toLessonDTO(l persistence.Lesson) lessonDTO {
	return lessonDTO{ID: l.ID, Title: l.Title, Category: l.Category, StartAt: formatTimestamp(l.StartAt), EndAt: formatTimestamp(l.EndAt)}
}
