package persistence

import (
	"context"
	"time"
)

// CampRepository stores the tenant record.
type CampRepository interface {
	// EnsureCamp creates camp when no camp with the same name exists and
	// reports whether it was created.
	EnsureCamp(ctx context.Context, camp Camp) (Camp, bool, error)
	GetCamp(ctx context.Context, id string) (Camp, error)
}

// PeopleRepository stores guests and staff.
type PeopleRepository interface {
	CreateGuest(ctx context.Context, guest Guest) error
	GetGuest(ctx context.Context, id string) (Guest, error)
	SetGuestActive(ctx context.Context, id string, active bool) error
	CreateStaff(ctx context.Context, staff Staff) error
	GetStaff(ctx context.Context, id string) (Staff, error)
}

// ResourceRepository stores rooms, beds and equipment. Occupancy and status
// changes are conditional writes.
type ResourceRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	SetRoomActive(ctx context.Context, id string, active bool) error

	CreateBed(ctx context.Context, bed Bed) error
	GetBed(ctx context.Context, id string) (Bed, error)
	// ListBeds returns every bed, or the beds of roomID when it is not empty.
	ListBeds(ctx context.Context, roomID string) ([]Bed, error)
	// AdjustBedOccupancy adds delta to the bed counter. An increment that would
	// exceed capacity fails with ErrConflict; a decrement clamps at zero.
	AdjustBedOccupancy(ctx context.Context, id string, delta int) (Bed, error)
	SetBedOccupancy(ctx context.Context, id string, occupancy int) error
	SetBedActive(ctx context.Context, id string, active bool) error

	CreateEquipment(ctx context.Context, item Equipment) error
	GetEquipment(ctx context.Context, id string) (Equipment, error)
	ListEquipment(ctx context.Context) ([]Equipment, error)
	// SetEquipmentStatus moves the item from one status to another and fails
	// with ErrConflict when the current status is not from.
	SetEquipmentStatus(ctx context.Context, id string, from, to EquipmentStatus) error
	SetEquipmentActive(ctx context.Context, id string, active bool) error
}

// AssignmentFilter narrows assignment queries. Zero fields match everything.
type AssignmentFilter struct {
	GuestID      string
	ResourceKind ResourceKind
	ResourceID   string
	Category     string
	ActiveOnly   bool
}

// AssignmentRepository stores resource assignments.
type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, assignment Assignment) error
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	// CompleteAssignment marks an active assignment completed and fails with
	// ErrConflict when it is already completed.
	CompleteAssignment(ctx context.Context, id string, completedAt time.Time) (Assignment, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
}

// CommitmentFilter narrows commitment queries. From and To select commitments
// overlapping the half-open window [From, To).
type CommitmentFilter struct {
	ActorID  string
	Kind     CommitmentKind
	Category string
	LessonID string
	SeriesID string
	From     *time.Time
	To       *time.Time
}

// CommitmentRepository stores shifts and lesson assignments.
type CommitmentRepository interface {
	// CreateCommitments stores every commitment or none of them.
	CreateCommitments(ctx context.Context, commitments []Commitment) error
	ListCommitments(ctx context.Context, filter CommitmentFilter) ([]Commitment, error)
	DeleteCommitments(ctx context.Context, ids []string) (int, error)
	DeleteCommitmentsBySeries(ctx context.Context, seriesID string) (int, error)

	CreateLesson(ctx context.Context, lesson Lesson) error
	GetLesson(ctx context.Context, id string) (Lesson, error)
}

// SeriesRepository stores recurrence series.
type SeriesRepository interface {
	CreateSeries(ctx context.Context, series Series) error
	GetSeries(ctx context.Context, id string) (Series, error)
	DeleteSeries(ctx context.Context, id string) error
}

// BookableFilter narrows bookable queries. Date matches on the civil date.
type BookableFilter struct {
	Kind     BookableKind
	Category string
	SeriesID string
	Date     *time.Time
}

// BookableRepository stores meal and event occurrences.
type BookableRepository interface {
	// CreateBookables stores every bookable or none of them.
	CreateBookables(ctx context.Context, bookables []Bookable) error
	GetBookable(ctx context.Context, id string) (Bookable, error)
	ListBookables(ctx context.Context, filter BookableFilter) ([]Bookable, error)
	SetBookingActive(ctx context.Context, id string, active bool, reopenedAt *time.Time) (Bookable, error)
	RenameBookables(ctx context.Context, seriesID, title string) (int, error)
	DeleteBookable(ctx context.Context, id string) error
	DeleteBookablesBySeries(ctx context.Context, seriesID string) (int, error)
}

// Store is the full set of repositories a storage adapter provides.
type Store interface {
	CampRepository
	PeopleRepository
	ResourceRepository
	AssignmentRepository
	CommitmentRepository
	SeriesRepository
	BookableRepository
	Close() error
}
