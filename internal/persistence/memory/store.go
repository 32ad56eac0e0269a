// Package memory provides a mutex-guarded in-memory implementation of the
// persistence repositories. It backs tests and single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sevenpast/campcore/internal/persistence"
)

// Storage keeps every record in maps guarded by a single RWMutex.
type Storage struct {
	mu          sync.RWMutex
	camps       map[string]persistence.Camp
	guests      map[string]persistence.Guest
	staff       map[string]persistence.Staff
	rooms       map[string]persistence.Room
	beds        map[string]persistence.Bed
	equipment   map[string]persistence.Equipment
	assignments map[string]persistence.Assignment
	commitments map[string]persistence.Commitment
	lessons     map[string]persistence.Lesson
	series      map[string]persistence.Series
	bookables   map[string]persistence.Bookable
}

var _ persistence.Store = (*Storage)(nil)

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		camps:       make(map[string]persistence.Camp),
		guests:      make(map[string]persistence.Guest),
		staff:       make(map[string]persistence.Staff),
		rooms:       make(map[string]persistence.Room),
		beds:        make(map[string]persistence.Bed),
		equipment:   make(map[string]persistence.Equipment),
		assignments: make(map[string]persistence.Assignment),
		commitments: make(map[string]persistence.Commitment),
		lessons:     make(map[string]persistence.Lesson),
		series:      make(map[string]persistence.Series),
		bookables:   make(map[string]persistence.Bookable),
	}
}

// Close is a no-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// --- CampRepository implementation ---

// EnsureCamp stores camp unless a camp with the same name already exists.
func (s *Storage) EnsureCamp(ctx context.Context, camp persistence.Camp) (persistence.Camp, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.camps {
		if strings.EqualFold(existing.Name, camp.Name) {
			return existing, false, nil
		}
	}
	if _, ok := s.camps[camp.ID]; ok {
		return persistence.Camp{}, false, fmt.Errorf("memory: camp %s: %w", camp.ID, persistence.ErrDuplicate)
	}
	s.camps[camp.ID] = camp
	return camp, true, nil
}

// GetCamp retrieves a camp by ID.
func (s *Storage) GetCamp(ctx context.Context, id string) (persistence.Camp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	camp, ok := s.camps[id]
	if !ok {
		return persistence.Camp{}, persistence.ErrNotFound
	}
	return camp, nil
}

// --- PeopleRepository implementation ---

// CreateGuest stores a new guest.
func (s *Storage) CreateGuest(ctx context.Context, guest persistence.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.guests[guest.ID]; ok {
		return fmt.Errorf("memory: guest %s: %w", guest.ID, persistence.ErrDuplicate)
	}
	s.guests[guest.ID] = guest
	return nil
}

// GetGuest retrieves a guest by ID.
func (s *Storage) GetGuest(ctx context.Context, id string) (persistence.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	guest, ok := s.guests[id]
	if !ok {
		return persistence.Guest{}, persistence.ErrNotFound
	}
	return guest, nil
}

// SetGuestActive toggles the active flag of a guest.
func (s *Storage) SetGuestActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	guest, ok := s.guests[id]
	if !ok {
		return persistence.ErrNotFound
	}
	guest.IsActive = active
	s.guests[id] = guest
	return nil
}

// CreateStaff stores a new staff member.
func (s *Storage) CreateStaff(ctx context.Context, staff persistence.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.staff[staff.ID]; ok {
		return fmt.Errorf("memory: staff %s: %w", staff.ID, persistence.ErrDuplicate)
	}
	s.staff[staff.ID] = staff
	return nil
}

// GetStaff retrieves a staff member by ID.
func (s *Storage) GetStaff(ctx context.Context, id string) (persistence.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	staff, ok := s.staff[id]
	if !ok {
		return persistence.Staff{}, persistence.ErrNotFound
	}
	return staff, nil
}

// --- ResourceRepository implementation ---

// CreateRoom stores a new room.
func (s *Storage) CreateRoom(ctx context.Context, room persistence.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return fmt.Errorf("memory: room %s: %w", room.ID, persistence.ErrDuplicate)
	}
	s.rooms[room.ID] = room
	return nil
}

// GetRoom retrieves a room by ID.
func (s *Storage) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

// SetRoomActive toggles the active flag of a room.
func (s *Storage) SetRoomActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.ErrNotFound
	}
	room.IsActive = active
	s.rooms[id] = room
	return nil
}

// CreateBed stores a new bed. The room must exist.
func (s *Storage) CreateBed(ctx context.Context, bed persistence.Bed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.beds[bed.ID]; ok {
		return fmt.Errorf("memory: bed %s: %w", bed.ID, persistence.ErrDuplicate)
	}
	if _, ok := s.rooms[bed.RoomID]; !ok {
		return fmt.Errorf("memory: room %s: %w", bed.RoomID, persistence.ErrForeignKeyViolation)
	}
	if bed.Capacity < 1 || bed.CurrentOccupancy < 0 || bed.CurrentOccupancy > bed.Capacity {
		return persistence.ErrConstraintViolation
	}
	s.beds[bed.ID] = bed
	return nil
}

// GetBed retrieves a bed by ID.
func (s *Storage) GetBed(ctx context.Context, id string) (persistence.Bed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bed, ok := s.beds[id]
	if !ok {
		return persistence.Bed{}, persistence.ErrNotFound
	}
	return bed, nil
}

// ListBeds returns beds ordered by room and label.
func (s *Storage) ListBeds(ctx context.Context, roomID string) ([]persistence.Bed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	beds := make([]persistence.Bed, 0, len(s.beds))
	for _, bed := range s.beds {
		if roomID != "" && bed.RoomID != roomID {
			continue
		}
		beds = append(beds, bed)
	}
	sort.Slice(beds, func(i, j int) bool {
		if beds[i].RoomID != beds[j].RoomID {
			return beds[i].RoomID < beds[j].RoomID
		}
		if beds[i].Label != beds[j].Label {
			return beds[i].Label < beds[j].Label
		}
		return beds[i].ID < beds[j].ID
	})
	return beds, nil
}

// AdjustBedOccupancy applies delta to the occupancy counter under the lock.
func (s *Storage) AdjustBedOccupancy(ctx context.Context, id string, delta int) (persistence.Bed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bed, ok := s.beds[id]
	if !ok {
		return persistence.Bed{}, persistence.ErrNotFound
	}
	next := bed.CurrentOccupancy + delta
	if delta > 0 && next > bed.Capacity {
		return bed, fmt.Errorf("memory: bed %s at %d/%d: %w", id, bed.CurrentOccupancy, bed.Capacity, persistence.ErrConflict)
	}
	if next < 0 {
		next = 0
	}
	bed.CurrentOccupancy = next
	s.beds[id] = bed
	return bed, nil
}

// SetBedOccupancy overwrites the occupancy counter.
func (s *Storage) SetBedOccupancy(ctx context.Context, id string, occupancy int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bed, ok := s.beds[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if occupancy < 0 || occupancy > bed.Capacity {
		return persistence.ErrConstraintViolation
	}
	bed.CurrentOccupancy = occupancy
	s.beds[id] = bed
	return nil
}

// SetBedActive toggles the active flag of a bed.
func (s *Storage) SetBedActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bed, ok := s.beds[id]
	if !ok {
		return persistence.ErrNotFound
	}
	bed.IsActive = active
	s.beds[id] = bed
	return nil
}

// CreateEquipment stores a new equipment item.
func (s *Storage) CreateEquipment(ctx context.Context, item persistence.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.equipment[item.ID]; ok {
		return fmt.Errorf("memory: equipment %s: %w", item.ID, persistence.ErrDuplicate)
	}
	if item.Status == "" {
		item.Status = persistence.EquipmentStatusAvailable
	}
	s.equipment[item.ID] = item
	return nil
}

// GetEquipment retrieves an equipment item by ID.
func (s *Storage) GetEquipment(ctx context.Context, id string) (persistence.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.equipment[id]
	if !ok {
		return persistence.Equipment{}, persistence.ErrNotFound
	}
	return item, nil
}

// ListEquipment returns every equipment item ordered by category and name.
func (s *Storage) ListEquipment(ctx context.Context) ([]persistence.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]persistence.Equipment, 0, len(s.equipment))
	for _, item := range s.equipment {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// SetEquipmentStatus performs a compare-and-set on the status.
func (s *Storage) SetEquipmentStatus(ctx context.Context, id string, from, to persistence.EquipmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.equipment[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if item.Status != from {
		return fmt.Errorf("memory: equipment %s is %s, not %s: %w", id, item.Status, from, persistence.ErrConflict)
	}
	item.Status = to
	s.equipment[id] = item
	return nil
}

// SetEquipmentActive toggles the active flag of an equipment item.
func (s *Storage) SetEquipmentActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.equipment[id]
	if !ok {
		return persistence.ErrNotFound
	}
	item.IsActive = active
	s.equipment[id] = item
	return nil
}

// --- AssignmentRepository implementation ---

// CreateAssignment stores a new assignment.
func (s *Storage) CreateAssignment(ctx context.Context, assignment persistence.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignments[assignment.ID]; ok {
		return fmt.Errorf("memory: assignment %s: %w", assignment.ID, persistence.ErrDuplicate)
	}
	if _, ok := s.guests[assignment.GuestID]; !ok {
		return fmt.Errorf("memory: guest %s: %w", assignment.GuestID, persistence.ErrForeignKeyViolation)
	}
	if assignment.State == persistence.AssignmentStateActive && assignment.ResourceKind == persistence.ResourceKindBed {
		for _, existing := range s.assignments {
			if existing.GuestID == assignment.GuestID &&
				existing.ResourceKind == persistence.ResourceKindBed &&
				existing.State == persistence.AssignmentStateActive {
				return fmt.Errorf("memory: guest %s already holds bed assignment %s: %w", assignment.GuestID, existing.ID, persistence.ErrDuplicate)
			}
		}
	}
	s.assignments[assignment.ID] = cloneAssignment(assignment)
	return nil
}

// GetAssignment retrieves an assignment by ID.
func (s *Storage) GetAssignment(ctx context.Context, id string) (persistence.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assignment, ok := s.assignments[id]
	if !ok {
		return persistence.Assignment{}, persistence.ErrNotFound
	}
	return cloneAssignment(assignment), nil
}

// CompleteAssignment transitions an active assignment to completed.
func (s *Storage) CompleteAssignment(ctx context.Context, id string, completedAt time.Time) (persistence.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignment, ok := s.assignments[id]
	if !ok {
		return persistence.Assignment{}, persistence.ErrNotFound
	}
	if assignment.State != persistence.AssignmentStateActive {
		return cloneAssignment(assignment), fmt.Errorf("memory: assignment %s is %s: %w", id, assignment.State, persistence.ErrConflict)
	}
	assignment.State = persistence.AssignmentStateCompleted
	at := completedAt
	assignment.CompletedAt = &at
	s.assignments[id] = assignment
	return cloneAssignment(assignment), nil
}

// ListAssignments returns matching assignments ordered by AssignedAt.
func (s *Storage) ListAssignments(ctx context.Context, filter persistence.AssignmentFilter) ([]persistence.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Assignment, 0)
	for _, assignment := range s.assignments {
		if !matchesAssignmentFilter(assignment, filter) {
			continue
		}
		out = append(out, cloneAssignment(assignment))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AssignedAt.Before(out[j].AssignedAt)
	})
	return out, nil
}

// --- CommitmentRepository implementation ---

// CreateCommitments stores the batch atomically.
func (s *Storage) CreateCommitments(ctx context.Context, commitments []persistence.Commitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(commitments))
	for _, c := range commitments {
		if _, ok := s.commitments[c.ID]; ok {
			return fmt.Errorf("memory: commitment %s: %w", c.ID, persistence.ErrDuplicate)
		}
		if _, ok := seen[c.ID]; ok {
			return fmt.Errorf("memory: commitment %s: %w", c.ID, persistence.ErrDuplicate)
		}
		seen[c.ID] = struct{}{}
		if !c.EndAt.After(c.StartAt) {
			return persistence.ErrConstraintViolation
		}
		if c.SeriesID != nil {
			if _, ok := s.series[*c.SeriesID]; !ok {
				return fmt.Errorf("memory: series %s: %w", *c.SeriesID, persistence.ErrForeignKeyViolation)
			}
		}
	}
	for _, c := range commitments {
		s.commitments[c.ID] = cloneCommitment(c)
	}
	return nil
}

// ListCommitments returns matching commitments ordered by start time.
func (s *Storage) ListCommitments(ctx context.Context, filter persistence.CommitmentFilter) ([]persistence.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Commitment, 0)
	for _, c := range s.commitments {
		if !matchesCommitmentFilter(c, filter) {
			continue
		}
		out = append(out, cloneCommitment(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartAt.Before(out[j].StartAt)
	})
	return out, nil
}

// DeleteCommitments removes the given commitments and returns how many existed.
func (s *Storage) DeleteCommitments(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if _, ok := s.commitments[id]; ok {
			delete(s.commitments, id)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteCommitmentsBySeries removes every commitment generated by a series.
func (s *Storage) DeleteCommitmentsBySeries(ctx context.Context, seriesID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, c := range s.commitments {
		if c.SeriesID != nil && *c.SeriesID == seriesID {
			delete(s.commitments, id)
			deleted++
		}
	}
	return deleted, nil
}

// CreateLesson stores a new lesson.
func (s *Storage) CreateLesson(ctx context.Context, lesson persistence.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lessons[lesson.ID]; ok {
		return fmt.Errorf("memory: lesson %s: %w", lesson.ID, persistence.ErrDuplicate)
	}
	s.lessons[lesson.ID] = lesson
	return nil
}

// GetLesson retrieves a lesson by ID.
func (s *Storage) GetLesson(ctx context.Context, id string) (persistence.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lesson, ok := s.lessons[id]
	if !ok {
		return persistence.Lesson{}, persistence.ErrNotFound
	}
	return lesson, nil
}

// --- SeriesRepository implementation ---

// CreateSeries stores a new recurrence series.
func (s *Storage) CreateSeries(ctx context.Context, series persistence.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.series[series.ID]; ok {
		return fmt.Errorf("memory: series %s: %w", series.ID, persistence.ErrDuplicate)
	}
	s.series[series.ID] = cloneSeries(series)
	return nil
}

// GetSeries retrieves a series by ID.
func (s *Storage) GetSeries(ctx context.Context, id string) (persistence.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.series[id]
	if !ok {
		return persistence.Series{}, persistence.ErrNotFound
	}
	return cloneSeries(series), nil
}

// DeleteSeries removes a series record. Occurrences are deleted separately.
func (s *Storage) DeleteSeries(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.series[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.series, id)
	return nil
}

// --- BookableRepository implementation ---

// CreateBookables stores the batch atomically.
func (s *Storage) CreateBookables(ctx context.Context, bookables []persistence.Bookable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(bookables))
	for _, b := range bookables {
		if _, ok := s.bookables[b.ID]; ok {
			return fmt.Errorf("memory: bookable %s: %w", b.ID, persistence.ErrDuplicate)
		}
		if _, ok := seen[b.ID]; ok {
			return fmt.Errorf("memory: bookable %s: %w", b.ID, persistence.ErrDuplicate)
		}
		seen[b.ID] = struct{}{}
		if b.SeriesID != nil {
			if _, ok := s.series[*b.SeriesID]; !ok {
				return fmt.Errorf("memory: series %s: %w", *b.SeriesID, persistence.ErrForeignKeyViolation)
			}
		}
	}
	for _, b := range bookables {
		b.Date = persistence.CivilDate(b.Date)
		s.bookables[b.ID] = cloneBookable(b)
	}
	return nil
}

// GetBookable retrieves a bookable by ID.
func (s *Storage) GetBookable(ctx context.Context, id string) (persistence.Bookable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookables[id]
	if !ok {
		return persistence.Bookable{}, persistence.ErrNotFound
	}
	return cloneBookable(b), nil
}

// ListBookables returns matching bookables ordered by date and title.
func (s *Storage) ListBookables(ctx context.Context, filter persistence.BookableFilter) ([]persistence.Bookable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Bookable, 0)
	for _, b := range s.bookables {
		if !matchesBookableFilter(b, filter) {
			continue
		}
		out = append(out, cloneBookable(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SetBookingActive updates the stored booking flag and re-open timestamp.
func (s *Storage) SetBookingActive(ctx context.Context, id string, active bool, reopenedAt *time.Time) (persistence.Bookable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookables[id]
	if !ok {
		return persistence.Bookable{}, persistence.ErrNotFound
	}
	b.Policy.IsBookingActive = active
	b.Policy.ReopenedAt = cloneTime(reopenedAt)
	s.bookables[id] = b
	return cloneBookable(b), nil
}

// RenameBookables updates the title of every occurrence in a series.
func (s *Storage) RenameBookables(ctx context.Context, seriesID, title string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for id, b := range s.bookables {
		if b.SeriesID == nil || *b.SeriesID != seriesID {
			continue
		}
		b.Title = title
		s.bookables[id] = b
		updated++
	}
	return updated, nil
}

// DeleteBookable removes a single occurrence.
func (s *Storage) DeleteBookable(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookables[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.bookables, id)
	return nil
}

// DeleteBookablesBySeries removes every occurrence of a series.
func (s *Storage) DeleteBookablesBySeries(ctx context.Context, seriesID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, b := range s.bookables {
		if b.SeriesID != nil && *b.SeriesID == seriesID {
			delete(s.bookables, id)
			deleted++
		}
	}
	return deleted, nil
}

// --- Helpers ---

func matchesAssignmentFilter(a persistence.Assignment, filter persistence.AssignmentFilter) bool {
	if filter.GuestID != "" && a.GuestID != filter.GuestID {
		return false
	}
	if filter.ResourceKind != "" && a.ResourceKind != filter.ResourceKind {
		return false
	}
	if filter.ResourceID != "" && a.ResourceID != filter.ResourceID {
		return false
	}
	if filter.Category != "" && a.Category != filter.Category {
		return false
	}
	if filter.ActiveOnly && a.State != persistence.AssignmentStateActive {
		return false
	}
	return true
}

func matchesCommitmentFilter(c persistence.Commitment, filter persistence.CommitmentFilter) bool {
	if filter.ActorID != "" && c.ActorID != filter.ActorID {
		return false
	}
	if filter.Kind != "" && c.Kind != filter.Kind {
		return false
	}
	if filter.Category != "" && c.Category != filter.Category {
		return false
	}
	if filter.LessonID != "" && (c.LessonID == nil || *c.LessonID != filter.LessonID) {
		return false
	}
	if filter.SeriesID != "" && (c.SeriesID == nil || *c.SeriesID != filter.SeriesID) {
		return false
	}
	if filter.From != nil && !c.EndAt.After(*filter.From) {
		return false
	}
	if filter.To != nil && !c.StartAt.Before(*filter.To) {
		return false
	}
	return true
}

func matchesBookableFilter(b persistence.Bookable, filter persistence.BookableFilter) bool {
	if filter.Kind != "" && b.Kind != filter.Kind {
		return false
	}
	if filter.Category != "" && b.Category != filter.Category {
		return false
	}
	if filter.SeriesID != "" && (b.SeriesID == nil || *b.SeriesID != filter.SeriesID) {
		return false
	}
	if filter.Date != nil && !persistence.SameCivilDate(b.Date, *filter.Date) {
		return false
	}
	return true
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copy := *value
	return &copy
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copy := *value
	return &copy
}

func cloneAssignment(a persistence.Assignment) persistence.Assignment {
	a.CompletedAt = cloneTime(a.CompletedAt)
	return a
}

func cloneCommitment(c persistence.Commitment) persistence.Commitment {
	c.LessonID = cloneString(c.LessonID)
	c.SeriesID = cloneString(c.SeriesID)
	return c
}

func cloneSeries(series persistence.Series) persistence.Series {
	days := make([]time.Weekday, len(series.DaysOfWeek))
	copy(days, series.DaysOfWeek)
	series.DaysOfWeek = days
	series.EndDate = cloneTime(series.EndDate)
	return series
}

func cloneBookable(b persistence.Bookable) persistence.Bookable {
	b.SeriesID = cloneString(b.SeriesID)
	b.Policy.ReopenedAt = cloneTime(b.Policy.ReopenedAt)
	return b
}
