package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sevenpast/campcore/internal/persistence"
	"github.com/sevenpast/campcore/internal/scheduler"
)

// CatalogStore captures the persistence operations needed by the catalog service.
type CatalogStore interface {
	EnsureCamp(ctx context.Context, camp persistence.Camp) (persistence.Camp, bool, error)
	CreateGuest(ctx context.Context, guest persistence.Guest) error
	GetGuest(ctx context.Context, id string) (persistence.Guest, error)
	SetGuestActive(ctx context.Context, id string, active bool) error
	CreateStaff(ctx context.Context, staff persistence.Staff) error
	GetStaff(ctx context.Context, id string) (persistence.Staff, error)
	CreateRoom(ctx context.Context, room persistence.Room) error
	GetRoom(ctx context.Context, id string) (persistence.Room, error)
	CreateBed(ctx context.Context, bed persistence.Bed) error
	GetBed(ctx context.Context, id string) (persistence.Bed, error)
	ListBeds(ctx context.Context, roomID string) ([]persistence.Bed, error)
	CreateEquipment(ctx context.Context, item persistence.Equipment) error
	GetEquipment(ctx context.Context, id string) (persistence.Equipment, error)
	ListEquipment(ctx context.Context) ([]persistence.Equipment, error)
	CreateLesson(ctx context.Context, lesson persistence.Lesson) error
	GetLesson(ctx context.Context, id string) (persistence.Lesson, error)
}

// CatalogService registers the people, resources and lessons the scheduling
// services operate on.
type CatalogService struct {
	store       CatalogStore
	policy      SchedulingPolicy
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCatalogService constructs a catalog service with the provided dependencies.
func NewCatalogService(store CatalogStore, policy SchedulingPolicy, idGenerator func() string, now func() time.Time) *CatalogService {
	return NewCatalogServiceWithLogger(store, policy, idGenerator, now, nil)
}

// NewCatalogServiceWithLogger constructs a catalog service with a specified logger.
func NewCatalogServiceWithLogger(store CatalogStore, policy SchedulingPolicy, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CatalogService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CatalogService{store: store, policy: policy, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *CatalogService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CatalogService", operation, attrs...)
}

// EnsureCamp creates the camp tenant on first start and returns the existing
// record on every later call.
func (s *CatalogService) EnsureCamp(ctx context.Context, name, timezone string) (camp persistence.Camp, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("catalog store not configured")
		return
	}

	logger := s.loggerWith(ctx, "EnsureCamp", "camp_name", name)
	created := false
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to ensure camp", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "camp ready", "camp_id", camp.ID, "created", created)
	}()

	name = strings.TrimSpace(name)
	vErr := &ValidationError{}
	if name == "" {
		vErr.add("name", "name is required")
	}
	if _, lerr := time.LoadLocation(timezone); lerr != nil {
		vErr.add("timezone", "timezone must be a valid IANA zone name")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	camp, created, err = s.store.EnsureCamp(ctx, persistence.Camp{
		ID:        s.idGenerator(),
		Name:      name,
		Timezone:  timezone,
		CreatedAt: s.now(),
	})
	err = mapStoreError(err, nil)
	return
}

// RegisterGuest adds an active guest.
func (s *CatalogService) RegisterGuest(ctx context.Context, params RegisterGuestParams) (guest persistence.Guest, err error) {
	logger := s.loggerWith(ctx, "RegisterGuest")
	defer logOutcome(ctx, logger, &err, "guest registered", "failed to register guest")

	if err = requireName(params.Name); err != nil {
		return
	}
	guest = persistence.Guest{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(params.Name),
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err = s.store.CreateGuest(ctx, guest); err != nil {
		err = mapStoreError(err, nil)
		guest = persistence.Guest{}
	}
	return
}

// DeactivateGuest marks a guest inactive. Existing assignments are kept.
func (s *CatalogService) DeactivateGuest(ctx context.Context, guestID string) (err error) {
	logger := s.loggerWith(ctx, "DeactivateGuest", "guest_id", guestID)
	defer logOutcome(ctx, logger, &err, "guest deactivated", "failed to deactivate guest")

	err = mapStoreError(s.store.SetGuestActive(ctx, guestID, false), fmt.Errorf("%w: guest %s", ErrNotFound, guestID))
	return
}

// RegisterStaff adds an active staff member.
func (s *CatalogService) RegisterStaff(ctx context.Context, params RegisterStaffParams) (staff persistence.Staff, err error) {
	logger := s.loggerWith(ctx, "RegisterStaff")
	defer logOutcome(ctx, logger, &err, "staff registered", "failed to register staff")

	if err = requireName(params.Name); err != nil {
		return
	}
	staff = persistence.Staff{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(params.Name),
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err = s.store.CreateStaff(ctx, staff); err != nil {
		err = mapStoreError(err, nil)
		staff = persistence.Staff{}
	}
	return
}

// AddRoom adds an active room.
func (s *CatalogService) AddRoom(ctx context.Context, params AddRoomParams) (room persistence.Room, err error) {
	logger := s.loggerWith(ctx, "AddRoom")
	defer logOutcome(ctx, logger, &err, "room added", "failed to add room")

	if err = requireName(params.Name); err != nil {
		return
	}
	room = persistence.Room{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(params.Name),
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err = s.store.CreateRoom(ctx, room); err != nil {
		err = mapStoreError(err, nil)
		room = persistence.Room{}
	}
	return
}

// AddBed adds an empty bed to an existing room.
func (s *CatalogService) AddBed(ctx context.Context, params AddBedParams) (bed persistence.Bed, err error) {
	logger := s.loggerWith(ctx, "AddBed", "room_id", params.RoomID)
	defer logOutcome(ctx, logger, &err, "bed added", "failed to add bed")

	vErr := &ValidationError{}
	if strings.TrimSpace(params.Label) == "" {
		vErr.add("label", "label is required")
	}
	if params.Capacity < 1 {
		vErr.add("capacity", "capacity must be at least 1")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if _, err = s.store.GetRoom(ctx, params.RoomID); err != nil {
		err = mapStoreError(err, fmt.Errorf("%w: room %s", ErrResourceNotFound, params.RoomID))
		return
	}

	bed = persistence.Bed{
		ID:        s.idGenerator(),
		RoomID:    params.RoomID,
		Label:     strings.TrimSpace(params.Label),
		Capacity:  params.Capacity,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err = s.store.CreateBed(ctx, bed); err != nil {
		err = mapStoreError(err, nil)
		bed = persistence.Bed{}
	}
	return
}

// AddEquipment adds an available equipment item.
func (s *CatalogService) AddEquipment(ctx context.Context, params AddEquipmentParams) (item persistence.Equipment, err error) {
	logger := s.loggerWith(ctx, "AddEquipment", "category", params.Category)
	defer logOutcome(ctx, logger, &err, "equipment added", "failed to add equipment")

	vErr := &ValidationError{}
	if strings.TrimSpace(params.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(params.Category) == "" {
		vErr.add("category", "category is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	item = persistence.Equipment{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(params.Name),
		Category:  strings.TrimSpace(params.Category),
		Status:    persistence.EquipmentStatusAvailable,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err = s.store.CreateEquipment(ctx, item); err != nil {
		err = mapStoreError(err, nil)
		item = persistence.Equipment{}
	}
	return
}

// ScheduleLesson adds a lesson guests can be assigned to. Lessons must start and
// end on the same calendar day in the camp timezone.
func (s *CatalogService) ScheduleLesson(ctx context.Context, params ScheduleLessonParams) (lesson persistence.Lesson, err error) {
	logger := s.loggerWith(ctx, "ScheduleLesson", "category", params.Category)
	defer logOutcome(ctx, logger, &err, "lesson scheduled", "failed to schedule lesson")

	vErr := &ValidationError{}
	if strings.TrimSpace(params.Title) == "" {
		vErr.add("title", "title is required")
	}
	if strings.TrimSpace(params.Category) == "" {
		vErr.add("category", "category is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if scheduler.ValidateSameDay(params.StartAt, params.EndAt, s.policy.location()) != nil {
		err = fmt.Errorf("%w: lesson must start before it ends on the same day", ErrInvalidInterval)
		return
	}

	lesson = persistence.Lesson{
		ID:        s.idGenerator(),
		Title:     strings.TrimSpace(params.Title),
		Category:  strings.TrimSpace(params.Category),
		StartAt:   params.StartAt,
		EndAt:     params.EndAt,
		CreatedAt: s.now(),
	}
	if err = s.store.CreateLesson(ctx, lesson); err != nil {
		err = mapStoreError(err, nil)
		lesson = persistence.Lesson{}
	}
	return
}

// GetGuest returns a guest by id.
func (s *CatalogService) GetGuest(ctx context.Context, id string) (persistence.Guest, error) {
	guest, err := s.store.GetGuest(ctx, id)
	return guest, mapStoreError(err, fmt.Errorf("%w: guest %s", ErrNotFound, id))
}

// GetStaff returns a staff member by id.
func (s *CatalogService) GetStaff(ctx context.Context, id string) (persistence.Staff, error) {
	staff, err := s.store.GetStaff(ctx, id)
	return staff, mapStoreError(err, fmt.Errorf("%w: staff %s", ErrNotFound, id))
}

// GetBed returns a bed with its current occupancy.
func (s *CatalogService) GetBed(ctx context.Context, id string) (persistence.Bed, error) {
	bed, err := s.store.GetBed(ctx, id)
	return bed, mapStoreError(err, fmt.Errorf("%w: bed %s", ErrResourceNotFound, id))
}

// ListBeds returns every bed, or the beds of roomID when it is not empty.
func (s *CatalogService) ListBeds(ctx context.Context, roomID string) ([]persistence.Bed, error) {
	beds, err := s.store.ListBeds(ctx, roomID)
	return beds, mapStoreError(err, nil)
}

// GetEquipment returns an equipment item with its current status.
func (s *CatalogService) GetEquipment(ctx context.Context, id string) (persistence.Equipment, error) {
	item, err := s.store.GetEquipment(ctx, id)
	return item, mapStoreError(err, fmt.Errorf("%w: equipment %s", ErrResourceNotFound, id))
}

// ListEquipment returns every equipment item.
func (s *CatalogService) ListEquipment(ctx context.Context) ([]persistence.Equipment, error) {
	items, err := s.store.ListEquipment(ctx)
	return items, mapStoreError(err, nil)
}

// GetLesson returns a lesson by id.
func (s *CatalogService) GetLesson(ctx context.Context, id string) (persistence.Lesson, error) {
	lesson, err := s.store.GetLesson(ctx, id)
	return lesson, mapStoreError(err, fmt.Errorf("%w: lesson %s", ErrNotFound, id))
}

func requireName(name string) error {
	if strings.TrimSpace(name) != "" {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("name", "name is required")
	return vErr
}
