package persistence

import "time"

// ResourceKind identifies the type of physical resource an assignment holds.
type ResourceKind string

const (
	ResourceKindBed       ResourceKind = "bed"
	ResourceKindEquipment ResourceKind = "equipment"
)

// AssignmentState is the lifecycle state of an assignment.
type AssignmentState string

const (
	AssignmentStateActive    AssignmentState = "active"
	AssignmentStateCompleted AssignmentState = "completed"
)

// EquipmentStatus is the availability of an equipment item.
type EquipmentStatus string

const (
	EquipmentStatusAvailable   EquipmentStatus = "available"
	EquipmentStatusAssigned    EquipmentStatus = "assigned"
	EquipmentStatusMaintenance EquipmentStatus = "maintenance"
)

// CommitmentKind distinguishes staff shifts from guest lesson assignments.
type CommitmentKind string

const (
	CommitmentKindShift  CommitmentKind = "shift"
	CommitmentKindLesson CommitmentKind = "lesson"
)

// BookableKind distinguishes meals from events.
type BookableKind string

const (
	BookableKindMeal  BookableKind = "meal"
	BookableKindEvent BookableKind = "event"
)

// Camp is the tenant every other record belongs to.
type Camp struct {
	ID        string
	Name      string
	Timezone  string
	CreatedAt time.Time
}

// Guest is a person staying at the camp.
type Guest struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// Staff is a camp employee who can be scheduled for shifts.
type Staff struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// Room groups beds.
type Room struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// Bed is a capacity-bounded resource inside a room.
type Bed struct {
	ID               string
	RoomID           string
	Label            string
	Capacity         int
	CurrentOccupancy int
	IsActive         bool
	CreatedAt        time.Time
}

// Equipment is an exclusive resource with an implicit capacity of one.
type Equipment struct {
	ID        string
	Name      string
	Category  string
	Status    EquipmentStatus
	IsActive  bool
	CreatedAt time.Time
}

// Assignment binds a guest to a bed or equipment item.
type Assignment struct {
	ID           string
	GuestID      string
	ResourceKind ResourceKind
	ResourceID   string
	Category     string
	State        AssignmentState
	AssignedBy   string
	Notes        string
	AssignedAt   time.Time
	CompletedAt  *time.Time
}

// Commitment binds a staff member or guest to a half-open time interval.
type Commitment struct {
	ID        string
	Kind      CommitmentKind
	ActorID   string
	Category  string
	Label     string
	LessonID  *string
	SeriesID  *string
	StartAt   time.Time
	EndAt     time.Time
	CreatedBy string
	CreatedAt time.Time
}

// Lesson is a scheduled activity guests can be assigned to.
type Lesson struct {
	ID        string
	Title     string
	Category  string
	StartAt   time.Time
	EndAt     time.Time
	CreatedAt time.Time
}

// Series is a persisted recurrence rule that owns its generated occurrences.
type Series struct {
	ID             string
	Kind           string
	Frequency      string
	Interval       int
	DaysOfWeek     []time.Weekday
	DayOfMonth     int
	EndDate        *time.Time
	MaxOccurrences int
	CreatedAt      time.Time
}

// CutoffPolicy is the stored booking window configuration of a bookable.
type CutoffPolicy struct {
	CutoffTime      string
	CutoffEnabled   bool
	ResetTime       string
	ResetEnabled    bool
	IsBookingActive bool
	ReopenedAt      *time.Time
}

// Bookable is a dated meal or event occurrence. Date is a civil date stored at
// midnight UTC.
type Bookable struct {
	ID        string
	Kind      BookableKind
	Category  string
	Title     string
	Date      time.Time
	SeriesID  *string
	Policy    CutoffPolicy
	CreatedAt time.Time
}

// CivilDate returns the calendar date of t (in t's own location) at midnight UTC.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameCivilDate reports whether a and b carry the same calendar date.
func SameCivilDate(a, b time.Time) bool {
	return CivilDate(a).Equal(CivilDate(b))
}
