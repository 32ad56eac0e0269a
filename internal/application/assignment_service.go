package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sevenpast/campcore/internal/persistence"
)

// AssignmentStore captures the persistence operations needed by the assignment service.
type AssignmentStore interface {
	GetGuest(ctx context.Context, id string) (persistence.Guest, error)
	GetRoom(ctx context.Context, id string) (persistence.Room, error)
	SetRoomActive(ctx context.Context, id string, active bool) error
	GetBed(ctx context.Context, id string) (persistence.Bed, error)
	ListBeds(ctx context.Context, roomID string) ([]persistence.Bed, error)
	AdjustBedOccupancy(ctx context.Context, id string, delta int) (persistence.Bed, error)
	SetBedOccupancy(ctx context.Context, id string, occupancy int) error
	SetBedActive(ctx context.Context, id string, active bool) error
	GetEquipment(ctx context.Context, id string) (persistence.Equipment, error)
	ListEquipment(ctx context.Context) ([]persistence.Equipment, error)
	SetEquipmentStatus(ctx context.Context, id string, from, to persistence.EquipmentStatus) error
	SetEquipmentActive(ctx context.Context, id string, active bool) error
	CreateAssignment(ctx context.Context, assignment persistence.Assignment) error
	GetAssignment(ctx context.Context, id string) (persistence.Assignment, error)
	CompleteAssignment(ctx context.Context, id string, completedAt time.Time) (persistence.Assignment, error)
	ListAssignments(ctx context.Context, filter persistence.AssignmentFilter) ([]persistence.Assignment, error)
}

// AssignmentService assigns beds and equipment to guests under capacity and
// exclusivity rules. Assignment rows are authoritative; bed counters and
// equipment statuses are derived values maintained on a best-effort basis.
type AssignmentService struct {
	store       AssignmentStore
	policy      AssignmentPolicy
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAssignmentService constructs an assignment service with the provided dependencies.
func NewAssignmentService(store AssignmentStore, policy AssignmentPolicy, idGenerator func() string, now func() time.Time) *AssignmentService {
	return NewAssignmentServiceWithLogger(store, policy, idGenerator, now, nil)
}

// NewAssignmentServiceWithLogger constructs an assignment service with a specified logger.
func NewAssignmentServiceWithLogger(store AssignmentStore, policy AssignmentPolicy, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AssignmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AssignmentService{store: store, policy: policy, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *AssignmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AssignmentService", operation, attrs...)
}

// AssignBed places a guest in a bed. A guest moving from another bed has the
// previous assignment completed. Assigning a guest to the bed they already hold
// returns the existing assignment unchanged.
//
// The slot is reserved with a capacity-guarded increment before the assignment
// is recorded, so concurrent requests cannot both take the last slot. If the
// counter itself is unavailable the assignment proceeds unreserved.
func (s *AssignmentService) AssignBed(ctx context.Context, params AssignBedParams) (assignment persistence.Assignment, err error) {
	if s == nil {
		err = fmt.Errorf("AssignmentService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("assignment store not configured")
		return
	}

	logger := s.loggerWith(ctx, "AssignBed",
		"guest_id", params.GuestID,
		"bed_id", params.BedID,
		"actor_id", params.ActorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to assign bed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("assignment_id", assignment.ID).InfoContext(ctx, "bed assigned")
	}()

	if err = s.requireActiveGuest(ctx, params.GuestID); err != nil {
		return
	}

	var bed persistence.Bed
	bed, err = s.store.GetBed(ctx, params.BedID)
	if err != nil {
		err = mapStoreError(err, ErrResourceNotFound)
		return
	}
	if !bed.IsActive {
		err = fmt.Errorf("%w: bed %s", ErrResourceInactive, bed.ID)
		return
	}
	var room persistence.Room
	room, err = s.store.GetRoom(ctx, bed.RoomID)
	if err != nil {
		err = mapStoreError(err, ErrResourceNotFound)
		return
	}
	if !room.IsActive {
		err = fmt.Errorf("%w: room %s", ErrResourceInactive, room.ID)
		return
	}

	var prior []persistence.Assignment
	prior, err = s.store.ListAssignments(ctx, persistence.AssignmentFilter{
		GuestID:      params.GuestID,
		ResourceKind: persistence.ResourceKindBed,
		ActiveOnly:   true,
	})
	if err != nil {
		err = mapStoreError(err, nil)
		return
	}
	for _, existing := range prior {
		if existing.ResourceID == bed.ID {
			assignment = existing
			logger.DebugContext(ctx, "guest already holds bed")
			return
		}
	}

	if bed.CurrentOccupancy >= bed.Capacity {
		err = fmt.Errorf("%w: bed %s occupancy %d/%d", ErrResourceFull, bed.ID, bed.CurrentOccupancy, bed.Capacity)
		return
	}

	reserved := true
	if current, rerr := s.store.AdjustBedOccupancy(ctx, bed.ID, 1); rerr != nil {
		if errors.Is(rerr, persistence.ErrConflict) {
			if current.ID == "" {
				current = bed
				current.CurrentOccupancy = bed.Capacity
			}
			err = fmt.Errorf("%w: bed %s occupancy %d/%d", ErrResourceFull, bed.ID, current.CurrentOccupancy, current.Capacity)
			return
		}
		reserved = false
		logger.WarnContext(ctx, "failed to reserve bed slot, continuing unreserved", "error", rerr)
	}
	unreserve := func() {
		if reserved {
			s.adjustOccupancy(ctx, logger, bed.ID, -1)
		}
	}

	now := s.now()
	for _, existing := range prior {
		if _, cerr := s.store.CompleteAssignment(ctx, existing.ID, now); cerr != nil && !errors.Is(cerr, persistence.ErrConflict) {
			err = fmt.Errorf("complete previous bed assignment %s: %w", existing.ID, mapStoreError(cerr, nil))
			unreserve()
			return
		}
		s.adjustOccupancy(ctx, logger, existing.ResourceID, -1)
	}

	assignment = persistence.Assignment{
		ID:           s.idGenerator(),
		GuestID:      params.GuestID,
		ResourceKind: persistence.ResourceKindBed,
		ResourceID:   bed.ID,
		State:        persistence.AssignmentStateActive,
		AssignedBy:   params.ActorID,
		Notes:        strings.TrimSpace(params.Notes),
		AssignedAt:   now,
	}
	if err = s.store.CreateAssignment(ctx, assignment); err != nil {
		err = mapStoreError(err, nil)
		assignment = persistence.Assignment{}
		unreserve()
		return
	}
	return
}

// ReleaseBed completes a bed assignment and frees its slot.
func (s *AssignmentService) ReleaseBed(ctx context.Context, assignmentID string) (persistence.Assignment, error) {
	return s.release(ctx, "ReleaseBed", persistence.ResourceKindBed, assignmentID)
}

// AssignEquipment hands an available equipment item to a guest. The item's
// status is claimed with a compare-and-set before the assignment is recorded so
// two concurrent requests cannot both succeed.
func (s *AssignmentService) AssignEquipment(ctx context.Context, params AssignEquipmentParams) (assignment persistence.Assignment, err error) {
	if s == nil {
		err = fmt.Errorf("AssignmentService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("assignment store not configured")
		return
	}

	logger := s.loggerWith(ctx, "AssignEquipment",
		"guest_id", params.GuestID,
		"equipment_id", params.EquipmentID,
		"actor_id", params.ActorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to assign equipment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("assignment_id", assignment.ID).InfoContext(ctx, "equipment assigned")
	}()

	if err = s.requireActiveGuest(ctx, params.GuestID); err != nil {
		return
	}

	var item persistence.Equipment
	item, err = s.store.GetEquipment(ctx, params.EquipmentID)
	if err != nil {
		err = mapStoreError(err, ErrResourceNotFound)
		return
	}
	if !item.IsActive {
		err = fmt.Errorf("%w: equipment %s", ErrResourceInactive, item.ID)
		return
	}
	if item.Status != persistence.EquipmentStatusAvailable {
		err = fmt.Errorf("%w: equipment %s is %s", ErrResourceUnavailable, item.ID, item.Status)
		return
	}

	if s.policy.exclusive(item.Category) {
		var held []persistence.Assignment
		held, err = s.store.ListAssignments(ctx, persistence.AssignmentFilter{
			GuestID:      params.GuestID,
			ResourceKind: persistence.ResourceKindEquipment,
			Category:     item.Category,
			ActiveOnly:   true,
		})
		if err != nil {
			err = mapStoreError(err, nil)
			return
		}
		if len(held) > 0 {
			err = fmt.Errorf("%w: guest %s already holds %s equipment %s", ErrCategoryConflict, params.GuestID, item.Category, held[0].ResourceID)
			return
		}
	}

	if err = s.store.SetEquipmentStatus(ctx, item.ID, persistence.EquipmentStatusAvailable, persistence.EquipmentStatusAssigned); err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			err = fmt.Errorf("%w: equipment %s was claimed concurrently", ErrResourceUnavailable, item.ID)
			return
		}
		err = mapStoreError(err, ErrResourceNotFound)
		return
	}

	assignment = persistence.Assignment{
		ID:           s.idGenerator(),
		GuestID:      params.GuestID,
		ResourceKind: persistence.ResourceKindEquipment,
		ResourceID:   item.ID,
		Category:     item.Category,
		State:        persistence.AssignmentStateActive,
		AssignedBy:   params.ActorID,
		Notes:        strings.TrimSpace(params.Notes),
		AssignedAt:   s.now(),
	}
	if err = s.store.CreateAssignment(ctx, assignment); err != nil {
		err = mapStoreError(err, nil)
		assignment = persistence.Assignment{}
		if rerr := s.store.SetEquipmentStatus(ctx, item.ID, persistence.EquipmentStatusAssigned, persistence.EquipmentStatusAvailable); rerr != nil {
			logger.WarnContext(ctx, "failed to release equipment claim", "error", rerr)
		}
		return
	}
	return
}

// ReleaseEquipment completes an equipment assignment and makes the item available.
func (s *AssignmentService) ReleaseEquipment(ctx context.Context, assignmentID string) (persistence.Assignment, error) {
	return s.release(ctx, "ReleaseEquipment", persistence.ResourceKindEquipment, assignmentID)
}

func (s *AssignmentService) release(ctx context.Context, operation string, kind persistence.ResourceKind, assignmentID string) (assignment persistence.Assignment, err error) {
	if s == nil {
		err = fmt.Errorf("AssignmentService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("assignment store not configured")
		return
	}

	logger := s.loggerWith(ctx, operation, "assignment_id", assignmentID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to release assignment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", assignment.ResourceID).InfoContext(ctx, "assignment released")
	}()

	var existing persistence.Assignment
	existing, err = s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		err = mapStoreError(err, nil)
		return
	}
	if existing.ResourceKind != kind {
		err = fmt.Errorf("%w: %s assignment %s", ErrNotFound, kind, assignmentID)
		return
	}
	if existing.State != persistence.AssignmentStateActive {
		err = fmt.Errorf("%w: %s", ErrAssignmentClosed, assignmentID)
		return
	}

	assignment, err = s.store.CompleteAssignment(ctx, assignmentID, s.now())
	if err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			err = fmt.Errorf("%w: %s", ErrAssignmentClosed, assignmentID)
		} else {
			err = mapStoreError(err, nil)
		}
		assignment = persistence.Assignment{}
		return
	}

	switch kind {
	case persistence.ResourceKindBed:
		s.adjustOccupancy(ctx, logger, assignment.ResourceID, -1)
	case persistence.ResourceKindEquipment:
		if serr := s.store.SetEquipmentStatus(ctx, assignment.ResourceID, persistence.EquipmentStatusAssigned, persistence.EquipmentStatusAvailable); serr != nil {
			logger.WarnContext(ctx, "failed to mark equipment available", "equipment_id", assignment.ResourceID, "error", serr)
		}
	}
	return
}

// DeactivateBed soft-deletes a bed. Occupied beds cannot be deactivated.
func (s *AssignmentService) DeactivateBed(ctx context.Context, bedID string) (err error) {
	logger := s.loggerWith(ctx, "DeactivateBed", "bed_id", bedID)
	defer logOutcome(ctx, logger, &err, "bed deactivated", "failed to deactivate bed")

	var bed persistence.Bed
	bed, err = s.store.GetBed(ctx, bedID)
	if err != nil {
		err = mapStoreError(err, ErrResourceNotFound)
		return
	}
	if err = s.ensureBedFree(ctx, bed); err != nil {
		return
	}
	err = mapStoreError(s.store.SetBedActive(ctx, bedID, false), ErrResourceNotFound)
	return
}

// DeactivateEquipment soft-deletes an equipment item. Assigned items cannot be deactivated.
func (s *AssignmentService) DeactivateEquipment(ctx context.Context, equipmentID string) (err error) {
	logger := s.loggerWith(ctx, "DeactivateEquipment", "equipment_id", equipmentID)
	defer logOutcome(ctx, logger, &err, "equipment deactivated", "failed to deactivate equipment")

	var item persistence.Equipment
	item, err = s.store.GetEquipment(ctx, equipmentID)
	if err != nil {
		err = mapStoreError(err, ErrResourceNotFound)
		return
	}
	var active []persistence.Assignment
	active, err = s.store.ListAssignments(ctx, persistence.AssignmentFilter{
		ResourceKind: persistence.ResourceKindEquipment,
		ResourceID:   equipmentID,
		ActiveOnly:   true,
	})
	if err != nil {
		err = mapStoreError(err, nil)
		return
	}
	if item.Status == persistence.EquipmentStatusAssigned || len(active) > 0 {
		err = fmt.Errorf("%w: equipment %s is assigned", ErrResourceInUse, equipmentID)
		return
	}
	err = mapStoreError(s.store.SetEquipmentActive(ctx, equipmentID, false), ErrResourceNotFound)
	return
}

// DeactivateRoom soft-deletes a room. A room with any occupied bed cannot be deactivated.
func (s *AssignmentService) DeactivateRoom(ctx context.Context, roomID string) (err error) {
	logger := s.loggerWith(ctx, "DeactivateRoom", "room_id", roomID)
	defer logOutcome(ctx, logger, &err, "room deactivated", "failed to deactivate room")

	if _, err = s.store.GetRoom(ctx, roomID); err != nil {
		err = mapStoreError(err, ErrResourceNotFound)
		return
	}
	var beds []persistence.Bed
	beds, err = s.store.ListBeds(ctx, roomID)
	if err != nil {
		err = mapStoreError(err, nil)
		return
	}
	for _, bed := range beds {
		if err = s.ensureBedFree(ctx, bed); err != nil {
			err = fmt.Errorf("room %s: %w", roomID, err)
			return
		}
	}
	err = mapStoreError(s.store.SetRoomActive(ctx, roomID, false), ErrResourceNotFound)
	return
}

// ReconcileOccupancy recomputes every bed counter and equipment status from the
// active assignments and returns how many records were corrected.
func (s *AssignmentService) ReconcileOccupancy(ctx context.Context) (result ReconcileResult, err error) {
	logger := s.loggerWith(ctx, "ReconcileOccupancy")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reconcile occupancy", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "occupancy reconciled",
			"beds_corrected", result.BedsCorrected,
			"equipment_corrected", result.EquipmentCorrected,
		)
	}()

	var active []persistence.Assignment
	active, err = s.store.ListAssignments(ctx, persistence.AssignmentFilter{ActiveOnly: true})
	if err != nil {
		err = mapStoreError(err, nil)
		return
	}
	bedCounts := make(map[string]int)
	heldEquipment := make(map[string]bool)
	for _, a := range active {
		switch a.ResourceKind {
		case persistence.ResourceKindBed:
			bedCounts[a.ResourceID]++
		case persistence.ResourceKindEquipment:
			heldEquipment[a.ResourceID] = true
		}
	}

	var beds []persistence.Bed
	beds, err = s.store.ListBeds(ctx, "")
	if err != nil {
		err = mapStoreError(err, nil)
		return
	}
	for _, bed := range beds {
		want := min(bedCounts[bed.ID], bed.Capacity)
		if bed.CurrentOccupancy == want {
			continue
		}
		if err = s.store.SetBedOccupancy(ctx, bed.ID, want); err != nil {
			err = fmt.Errorf("reconcile bed %s: %w", bed.ID, mapStoreError(err, ErrResourceNotFound))
			return
		}
		logger.WarnContext(ctx, "bed occupancy drift corrected", "bed_id", bed.ID, "stored", bed.CurrentOccupancy, "actual", want)
		result.BedsCorrected++
	}

	var items []persistence.Equipment
	items, err = s.store.ListEquipment(ctx)
	if err != nil {
		err = mapStoreError(err, nil)
		return
	}
	for _, item := range items {
		var want persistence.EquipmentStatus
		switch {
		case heldEquipment[item.ID] && item.Status != persistence.EquipmentStatusAssigned:
			want = persistence.EquipmentStatusAssigned
		case !heldEquipment[item.ID] && item.Status == persistence.EquipmentStatusAssigned:
			want = persistence.EquipmentStatusAvailable
		default:
			continue
		}
		if serr := s.store.SetEquipmentStatus(ctx, item.ID, item.Status, want); serr != nil {
			if errors.Is(serr, persistence.ErrConflict) {
				logger.WarnContext(ctx, "equipment status changed during reconciliation", "equipment_id", item.ID)
				continue
			}
			err = fmt.Errorf("reconcile equipment %s: %w", item.ID, mapStoreError(serr, ErrResourceNotFound))
			return
		}
		result.EquipmentCorrected++
	}
	return
}

func (s *AssignmentService) requireActiveGuest(ctx context.Context, guestID string) error {
	guest, err := s.store.GetGuest(ctx, guestID)
	if err != nil {
		return mapStoreError(err, fmt.Errorf("%w: guest %s", ErrNotFound, guestID))
	}
	if !guest.IsActive {
		return fmt.Errorf("%w: %s", ErrGuestInactive, guestID)
	}
	return nil
}

func (s *AssignmentService) ensureBedFree(ctx context.Context, bed persistence.Bed) error {
	if bed.CurrentOccupancy > 0 {
		return fmt.Errorf("%w: bed %s occupancy %d/%d", ErrResourceInUse, bed.ID, bed.CurrentOccupancy, bed.Capacity)
	}
	active, err := s.store.ListAssignments(ctx, persistence.AssignmentFilter{
		ResourceKind: persistence.ResourceKindBed,
		ResourceID:   bed.ID,
		ActiveOnly:   true,
	})
	if err != nil {
		return mapStoreError(err, nil)
	}
	if len(active) > 0 {
		return fmt.Errorf("%w: bed %s has %d active assignment(s)", ErrResourceInUse, bed.ID, len(active))
	}
	return nil
}

// adjustOccupancy updates a bed counter after the assignment change has been
// recorded. Failures are logged and never fail the caller.
func (s *AssignmentService) adjustOccupancy(ctx context.Context, logger *slog.Logger, bedID string, delta int) {
	if _, err := s.store.AdjustBedOccupancy(ctx, bedID, delta); err != nil {
		logger.WarnContext(ctx, "failed to update bed occupancy", "bed_id", bedID, "delta", delta, "error", err)
	}
}

func logOutcome(ctx context.Context, logger *slog.Logger, errp *error, success, failure string) {
	if errp != nil && *errp != nil {
		logger.ErrorContext(ctx, failure, "error", *errp, "error_kind", ErrorKind(*errp))
		return
	}
	logger.InfoContext(ctx, success)
}
