package application

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sevenpast/campcore/internal/events"
	"github.com/sevenpast/campcore/internal/persistence"
	"github.com/sevenpast/campcore/internal/recurrence"
)

// TracerName identifies spans started by the facade.
const TracerName = "github.com/sevenpast/campcore/internal/application"

// FacadeConfig wires the facade and the services behind it.
type FacadeConfig struct {
	Store       persistence.Store
	Scheduling  SchedulingPolicy
	Assignment  AssignmentPolicy
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Publisher   events.Publisher
}

// Facade is the single entry point transports use. It sequences the services,
// traces every call and publishes an event after each successful change.
type Facade struct {
	Catalog     *CatalogService
	Assignments *AssignmentService
	Commitments *CommitmentService
	Bookings    *BookingService

	tracer    trace.Tracer
	publisher events.Publisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewFacade constructs the services over cfg.Store.
func NewFacade(cfg FacadeConfig) *Facade {
	logger := defaultLogger(cfg.Logger)
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Facade{
		Catalog:     NewCatalogServiceWithLogger(cfg.Store, cfg.Scheduling, cfg.IDGenerator, now, logger),
		Assignments: NewAssignmentServiceWithLogger(cfg.Store, cfg.Assignment, cfg.IDGenerator, now, logger),
		Commitments: NewCommitmentServiceWithLogger(cfg.Store, cfg.Scheduling, cfg.IDGenerator, now, logger),
		Bookings:    NewBookingServiceWithLogger(cfg.Store, cfg.Scheduling, cfg.IDGenerator, now, logger),
		tracer:      tracer,
		publisher:   publisher,
		now:         now,
		logger:      logger,
	}
}

func traced[T any](ctx context.Context, f *Facade, name string, fn func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := f.tracer.Start(ctx, "Facade."+name, trace.WithAttributes(attrs...))
	defer span.End()

	result, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
	}
	return result, err
}

func (f *Facade) publish(ctx context.Context, event events.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = f.now().UTC()
	}
	if err := f.publisher.Publish(ctx, event); err != nil {
		serviceLogger(ctx, f.logger, "Facade", "publish").
			WarnContext(ctx, "failed to publish event", "event", event.Name, "subject_id", event.SubjectID, "error", err)
	}
}

// EnsureCamp initialises the camp tenant.
func (f *Facade) EnsureCamp(ctx context.Context, name, timezone string) (persistence.Camp, error) {
	return traced(ctx, f, "EnsureCamp", func(ctx context.Context) (persistence.Camp, error) {
		return f.Catalog.EnsureCamp(ctx, name, timezone)
	})
}

// AssignBed places a guest in a bed.
func (f *Facade) AssignBed(ctx context.Context, params AssignBedParams) (persistence.Assignment, error) {
	return traced(ctx, f, "AssignBed", func(ctx context.Context) (persistence.Assignment, error) {
		assignment, err := f.Assignments.AssignBed(ctx, params)
		if err == nil {
			f.publish(ctx, events.Event{
				Name:       events.BedAssigned,
				SubjectID:  assignment.ID,
				ActorID:    params.ActorID,
				Attributes: map[string]any{"guest_id": assignment.GuestID, "bed_id": assignment.ResourceID},
			})
		}
		return assignment, err
	}, attribute.String("guest.id", params.GuestID), attribute.String("bed.id", params.BedID))
}

// ReleaseBed completes a bed assignment.
func (f *Facade) ReleaseBed(ctx context.Context, assignmentID string) (persistence.Assignment, error) {
	return traced(ctx, f, "ReleaseBed", func(ctx context.Context) (persistence.Assignment, error) {
		assignment, err := f.Assignments.ReleaseBed(ctx, assignmentID)
		if err == nil {
			f.publish(ctx, events.Event{
				Name:       events.BedReleased,
				SubjectID:  assignment.ID,
				Attributes: map[string]any{"guest_id": assignment.GuestID, "bed_id": assignment.ResourceID},
			})
		}
		return assignment, err
	}, attribute.String("assignment.id", assignmentID))
}

// AssignEquipment hands an equipment item to a guest.
func (f *Facade) AssignEquipment(ctx context.Context, params AssignEquipmentParams) (persistence.Assignment, error) {
	return traced(ctx, f, "AssignEquipment", func(ctx context.Context) (persistence.Assignment, error) {
		assignment, err := f.Assignments.AssignEquipment(ctx, params)
		if err == nil {
			f.publish(ctx, events.Event{
				Name:       events.EquipmentAssigned,
				SubjectID:  assignment.ID,
				ActorID:    params.ActorID,
				Attributes: map[string]any{"guest_id": assignment.GuestID, "equipment_id": assignment.ResourceID, "category": assignment.Category},
			})
		}
		return assignment, err
	}, attribute.String("guest.id", params.GuestID), attribute.String("equipment.id", params.EquipmentID))
}

// ReleaseEquipment completes an equipment assignment.
func (f *Facade) ReleaseEquipment(ctx context.Context, assignmentID string) (persistence.Assignment, error) {
	return traced(ctx, f, "ReleaseEquipment", func(ctx context.Context) (persistence.Assignment, error) {
		assignment, err := f.Assignments.ReleaseEquipment(ctx, assignmentID)
		if err == nil {
			f.publish(ctx, events.Event{
				Name:       events.EquipmentReleased,
				SubjectID:  assignment.ID,
				Attributes: map[string]any{"guest_id": assignment.GuestID, "equipment_id": assignment.ResourceID},
			})
		}
		return assignment, err
	}, attribute.String("assignment.id", assignmentID))
}

// DeactivateBed soft-deletes an empty bed.
func (f *Facade) DeactivateBed(ctx context.Context, bedID string) error {
	return f.deactivate(ctx, "DeactivateBed", "bed", bedID, f.Assignments.DeactivateBed)
}

// DeactivateEquipment soft-deletes an unassigned equipment item.
func (f *Facade) DeactivateEquipment(ctx context.Context, equipmentID string) error {
	return f.deactivate(ctx, "DeactivateEquipment", "equipment", equipmentID, f.Assignments.DeactivateEquipment)
}

// DeactivateRoom soft-deletes a room whose beds are all empty.
func (f *Facade) DeactivateRoom(ctx context.Context, roomID string) error {
	return f.deactivate(ctx, "DeactivateRoom", "room", roomID, f.Assignments.DeactivateRoom)
}

func (f *Facade) deactivate(ctx context.Context, name, kind, id string, fn func(context.Context, string) error) error {
	_, err := traced(ctx, f, name, func(ctx context.Context) (struct{}, error) {
		if err := fn(ctx, id); err != nil {
			return struct{}{}, err
		}
		f.publish(ctx, events.Event{Name: events.ResourceDeactivated, SubjectID: id, Attributes: map[string]any{"kind": kind}})
		return struct{}{}, nil
	}, attribute.String("resource.kind", kind), attribute.String("resource.id", id))
	return err
}

// ReconcileOccupancy recomputes derived resource state from active assignments.
func (f *Facade) ReconcileOccupancy(ctx context.Context) (ReconcileResult, error) {
	return traced(ctx, f, "ReconcileOccupancy", func(ctx context.Context) (ReconcileResult, error) {
		result, err := f.Assignments.ReconcileOccupancy(ctx)
		if err == nil && result.Total() > 0 {
			f.publish(ctx, events.Event{
				Name:       events.OccupancyReconciled,
				Attributes: map[string]any{"beds": result.BedsCorrected, "equipment": result.EquipmentCorrected},
			})
		}
		return result, err
	})
}

// CreateShift schedules a staff shift, optionally recurring.
func (f *Facade) CreateShift(ctx context.Context, params CreateShiftParams) (ShiftResult, error) {
	return traced(ctx, f, "CreateShift", func(ctx context.Context) (ShiftResult, error) {
		result, err := f.Commitments.CreateShift(ctx, params)
		if err == nil {
			f.publish(ctx, events.Event{
				Name:      events.ShiftCreated,
				SubjectID: result.Shift.ID,
				ActorID:   params.ActorID,
				Attributes: map[string]any{
					"staff_id":    params.StaffID,
					"series_id":   result.SeriesID,
					"occurrences": 1 + len(result.Siblings),
				},
			})
		}
		return result, err
	}, attribute.String("staff.id", params.StaffID), attribute.Bool("recurring", params.Recurrence != nil))
}

// CreateLessonAssignment assigns a batch of guests to a lesson.
func (f *Facade) CreateLessonAssignment(ctx context.Context, params CreateLessonAssignmentParams) (LessonAssignmentResult, error) {
	return traced(ctx, f, "CreateLessonAssignment", func(ctx context.Context) (LessonAssignmentResult, error) {
		result, err := f.Commitments.CreateLessonAssignment(ctx, params)
		if err == nil && len(result.Created) > 0 {
			f.publish(ctx, events.Event{
				Name:      events.LessonAssigned,
				SubjectID: params.LessonID,
				ActorID:   params.ActorID,
				Attributes: map[string]any{
					"created":  len(result.Created),
					"replaced": len(result.Replaced),
				},
			})
		}
		return result, err
	}, attribute.String("lesson.id", params.LessonID), attribute.Int("guests", len(params.GuestIDs)), attribute.Bool("override", params.Override))
}

// ExpandRecurrence previews the occurrences of a rule without persisting them.
func (f *Facade) ExpandRecurrence(ctx context.Context, params ExpandRecurrenceParams) ([]recurrence.Occurrence, error) {
	return traced(ctx, f, "ExpandRecurrence", func(ctx context.Context) ([]recurrence.Occurrence, error) {
		return f.Commitments.ExpandRecurrence(ctx, params)
	}, attribute.String("frequency", params.Rule.Frequency))
}

// ListCommitments returns shifts and lesson assignments matching filter.
func (f *Facade) ListCommitments(ctx context.Context, filter persistence.CommitmentFilter) ([]persistence.Commitment, error) {
	return traced(ctx, f, "ListCommitments", func(ctx context.Context) ([]persistence.Commitment, error) {
		return f.Commitments.ListCommitments(ctx, filter)
	}, attribute.String("actor.id", filter.ActorID))
}

// DeleteCommitment removes a single shift or lesson assignment.
func (f *Facade) DeleteCommitment(ctx context.Context, commitmentID string) error {
	_, err := traced(ctx, f, "DeleteCommitment", func(ctx context.Context) (struct{}, error) {
		if err := f.Commitments.DeleteCommitment(ctx, commitmentID); err != nil {
			return struct{}{}, err
		}
		f.publish(ctx, events.Event{Name: events.CommitmentDeleted, SubjectID: commitmentID})
		return struct{}{}, nil
	}, attribute.String("commitment.id", commitmentID))
	return err
}

// DeleteShiftSeries removes a recurring shift series with every occurrence.
func (f *Facade) DeleteShiftSeries(ctx context.Context, seriesID string) (int, error) {
	return traced(ctx, f, "DeleteShiftSeries", func(ctx context.Context) (int, error) {
		deleted, err := f.Commitments.DeleteShiftSeries(ctx, seriesID)
		if err == nil {
			f.publish(ctx, events.Event{Name: events.ShiftSeriesDeleted, SubjectID: seriesID, Attributes: map[string]any{"deleted": deleted}})
		}
		return deleted, err
	}, attribute.String("series.id", seriesID))
}

// CreateBookable publishes a meal or event, optionally recurring.
func (f *Facade) CreateBookable(ctx context.Context, params CreateBookableParams) ([]persistence.Bookable, error) {
	return traced(ctx, f, "CreateBookable", func(ctx context.Context) ([]persistence.Bookable, error) {
		bookables, err := f.Bookings.CreateBookable(ctx, params)
		if err == nil && len(bookables) > 0 {
			event := events.Event{
				Name:       events.BookableCreated,
				SubjectID:  bookables[0].ID,
				Attributes: map[string]any{"kind": string(params.Kind), "occurrences": len(bookables)},
			}
			if bookables[0].SeriesID != nil {
				event.Attributes["series_id"] = *bookables[0].SeriesID
			}
			f.publish(ctx, event)
		}
		return bookables, err
	}, attribute.String("kind", string(params.Kind)), attribute.Bool("recurring", params.Recurrence != nil))
}

// EvaluateCutoff derives the booking status of a bookable at the given instant.
func (f *Facade) EvaluateCutoff(ctx context.Context, bookableID string, at time.Time) (CutoffEvaluation, error) {
	return traced(ctx, f, "EvaluateCutoff", func(ctx context.Context) (CutoffEvaluation, error) {
		return f.Bookings.EvaluateCutoff(ctx, bookableID, at)
	}, attribute.String("bookable.id", bookableID))
}

// ListBookables returns matching bookables with their booking state right now.
func (f *Facade) ListBookables(ctx context.Context, filter persistence.BookableFilter) ([]BookableStatus, error) {
	return traced(ctx, f, "ListBookables", func(ctx context.Context) ([]BookableStatus, error) {
		bookables, evaluations, err := f.Bookings.ListBookables(ctx, filter)
		if err != nil {
			return nil, err
		}
		out := make([]BookableStatus, 0, len(bookables))
		for i, b := range bookables {
			out = append(out, BookableStatus{Bookable: b, Evaluation: evaluations[i]})
		}
		return out, nil
	}, attribute.String("kind", string(filter.Kind)), attribute.String("category", filter.Category))
}

// ResetCutoffs re-opens booking for every matching bookable whose reset is due.
func (f *Facade) ResetCutoffs(ctx context.Context, filter ResetFilter) (int, error) {
	return traced(ctx, f, "ResetCutoffs", func(ctx context.Context) (int, error) {
		count, err := f.Bookings.ResetCutoffs(ctx, filter)
		if err == nil && count > 0 {
			f.publish(ctx, events.Event{
				Name:       events.CutoffsReset,
				Attributes: map[string]any{"count": count, "kind": string(filter.Kind), "category": filter.Category},
			})
		}
		return count, err
	}, attribute.String("kind", string(filter.Kind)), attribute.String("category", filter.Category))
}

// SetBookingActive applies a manual staff override to a bookable.
func (f *Facade) SetBookingActive(ctx context.Context, bookableID string, active bool) (persistence.Bookable, error) {
	return traced(ctx, f, "SetBookingActive", func(ctx context.Context) (persistence.Bookable, error) {
		bookable, err := f.Bookings.SetBookingActive(ctx, bookableID, active)
		if err == nil {
			f.publish(ctx, events.Event{Name: events.BookingToggled, SubjectID: bookableID, Attributes: map[string]any{"active": active}})
		}
		return bookable, err
	}, attribute.String("bookable.id", bookableID), attribute.Bool("active", active))
}

// RenameSeries retitles every occurrence in a meal or event series.
func (f *Facade) RenameSeries(ctx context.Context, seriesID, title string) (int, error) {
	return traced(ctx, f, "RenameSeries", func(ctx context.Context) (int, error) {
		updated, err := f.Bookings.RenameSeries(ctx, seriesID, title)
		if err == nil {
			f.publish(ctx, events.Event{Name: events.SeriesRenamed, SubjectID: seriesID, Attributes: map[string]any{"updated": updated}})
		}
		return updated, err
	}, attribute.String("series.id", seriesID))
}

// DeleteSeries removes a meal or event series with every occurrence.
func (f *Facade) DeleteSeries(ctx context.Context, seriesID string) (int, error) {
	return traced(ctx, f, "DeleteSeries", func(ctx context.Context) (int, error) {
		deleted, err := f.Bookings.DeleteSeries(ctx, seriesID)
		if err == nil {
			f.publish(ctx, events.Event{Name: events.SeriesDeleted, SubjectID: seriesID, Attributes: map[string]any{"deleted": deleted}})
		}
		return deleted, err
	}, attribute.String("series.id", seriesID))
}

// DeleteOccurrence removes one meal or event occurrence.
func (f *Facade) DeleteOccurrence(ctx context.Context, bookableID string) error {
	_, err := traced(ctx, f, "DeleteOccurrence", func(ctx context.Context) (struct{}, error) {
		if err := f.Bookings.DeleteOccurrence(ctx, bookableID); err != nil {
			return struct{}{}, err
		}
		f.publish(ctx, events.Event{Name: events.OccurrenceDeleted, SubjectID: bookableID})
		return struct{}{}, nil
	}, attribute.String("bookable.id", bookableID))
	return err
}
