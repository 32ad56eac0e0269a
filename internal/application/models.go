package application

import (
	"time"

	"github.com/sevenpast/campcore/internal/cutoff"
	"github.com/sevenpast/campcore/internal/persistence"
)

// AssignBedParams wraps the data required to place a guest in a bed.
type AssignBedParams struct {
	GuestID string
	BedID   string
	ActorID string
	Notes   string
}

// AssignEquipmentParams wraps the data required to hand an equipment item to a guest.
type AssignEquipmentParams struct {
	EquipmentID string
	GuestID     string
	ActorID     string
	Notes       string
}

// RecurrenceInput is the caller-facing form of a recurrence rule.
type RecurrenceInput struct {
	Frequency      string
	Interval       int
	DaysOfWeek     []int
	DayOfMonth     int
	EndDate        *time.Time
	MaxOccurrences int
}

// CreateShiftParams wraps the data required to schedule a staff shift.
type CreateShiftParams struct {
	StaffID    string
	RoleLabel  string
	StartAt    time.Time
	EndAt      time.Time
	Recurrence *RecurrenceInput
	ActorID    string
}

// ShiftResult is the anchor shift and, for recurring requests, every sibling
// occurrence sharing its series.
type ShiftResult struct {
	Shift    persistence.Commitment
	Siblings []persistence.Commitment
	SeriesID string
}

// CreateLessonAssignmentParams wraps a batch assignment of guests to a lesson.
// Override replaces the reported conflicting commitments instead of rejecting.
type CreateLessonAssignmentParams struct {
	LessonID string
	GuestIDs []string
	ActorID  string
	Override bool
}

// LessonAssignmentResult lists the created commitments, the guests that already
// held the lesson and the commitments removed by an override.
type LessonAssignmentResult struct {
	Created         []persistence.Commitment
	AlreadyAssigned []string
	Replaced        []string
}

// ExpandRecurrenceParams wraps a rule and the anchor occurrence it repeats.
type ExpandRecurrenceParams struct {
	Rule    RecurrenceInput
	StartAt time.Time
	EndAt   time.Time
}

// CutoffPolicyInput is the caller-facing form of a booking window.
type CutoffPolicyInput struct {
	CutoffTime    string
	CutoffEnabled bool
	ResetTime     string
	ResetEnabled  bool
}

// CreateBookableParams wraps the data required to publish a meal or event.
type CreateBookableParams struct {
	Kind       persistence.BookableKind
	Category   string
	Title      string
	Date       time.Time
	Policy     CutoffPolicyInput
	Recurrence *RecurrenceInput
}

// CutoffEvaluation is the derived booking state of a bookable at a given instant.
type CutoffEvaluation struct {
	BookableID  string
	Date        time.Time
	Status      cutoff.Status
	CanBook     bool
	Reason      string
	EvaluatedAt time.Time
}

// ResetFilter scopes a cutoff reset. Zero fields match every bookable.
type ResetFilter struct {
	Kind     persistence.BookableKind
	Category string
	Date     *time.Time
}

// RegisterGuestParams wraps the data required to register a guest.
type RegisterGuestParams struct {
	Name string
}

// RegisterStaffParams wraps the data required to register a staff member.
type RegisterStaffParams struct {
	Name string
}

// AddRoomParams wraps the data required to add a room.
type AddRoomParams struct {
	Name string
}

// AddBedParams wraps the data required to add a bed to a room.
type AddBedParams struct {
	RoomID   string
	Label    string
	Capacity int
}

// AddEquipmentParams wraps the data required to add an equipment item.
type AddEquipmentParams struct {
	Name     string
	Category string
}

// ScheduleLessonParams wraps the data required to schedule a lesson.
type ScheduleLessonParams struct {
	Title    string
	Category string
	StartAt  time.Time
	EndAt    time.Time
}

// ReconcileResult reports the counters corrected by a reconciliation pass.
type ReconcileResult struct {
	BedsCorrected      int
	EquipmentCorrected int
}

// Total returns the number of corrected records.
func (r ReconcileResult) Total() int {
	return r.BedsCorrected + r.EquipmentCorrected
}

// BookableStatus pairs a bookable with its evaluation at listing time.
type BookableStatus struct {
	Bookable   persistence.Bookable
	Evaluation CutoffEvaluation
}
