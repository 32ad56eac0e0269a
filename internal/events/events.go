// Package events publishes domain events describing completed camp operations.
// Delivery is best-effort: callers log publish failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event names published after successful mutating operations.
const (
	BedAssigned         = "assignment.bed.assigned"
	BedReleased         = "assignment.bed.released"
	EquipmentAssigned   = "assignment.equipment.assigned"
	EquipmentReleased   = "assignment.equipment.released"
	ResourceDeactivated = "resource.deactivated"
	OccupancyReconciled = "resource.reconciled"
	ShiftCreated        = "schedule.shift.created"
	ShiftSeriesDeleted  = "schedule.shift.series_deleted"
	LessonAssigned      = "schedule.lesson.assigned"
	CommitmentDeleted   = "schedule.commitment.deleted"
	BookableCreated     = "booking.bookable.created"
	BookingToggled      = "booking.flag.updated"
	CutoffsReset        = "booking.cutoffs.reset"
	SeriesRenamed       = "booking.series.renamed"
	SeriesDeleted       = "booking.series.deleted"
	OccurrenceDeleted   = "booking.occurrence.deleted"
)

// Event is a single domain event. Name doubles as the routing key.
type Event struct {
	Name       string         `json:"name"`
	SubjectID  string         `json:"subject_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Publisher delivers events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

func encode(event Event) ([]byte, error) {
	if event.Name == "" {
		return nil, fmt.Errorf("events: event name is required")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("events: marshal %s: %w", event.Name, err)
	}
	return body, nil
}
