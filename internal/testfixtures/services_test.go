package testfixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/sevenpast/campcore/internal/application"
	"github.com/sevenpast/campcore/internal/events"
)

func TestServiceFactoryNewFacade(t *testing.T) {
	factory := NewServiceFactory(WithIDGenerator(NewIDGenerator("asg")))
	publisher := &RecordingPublisher{}
	facade := factory.NewFacade(FacadeDeps{Publisher: publisher})
	ctx := context.Background()

	guest, err := facade.Catalog.RegisterGuest(ctx, application.RegisterGuestParams{Name: "Ana"})
	if err != nil {
		t.Fatalf("RegisterGuest returned error: %v", err)
	}
	if guest.ID != "asg-1" {
		t.Fatalf("expected generated ID asg-1, got %q", guest.ID)
	}
	if !guest.CreatedAt.Equal(ReferenceTime()) {
		t.Fatalf("expected clock time %v, got %v", ReferenceTime(), guest.CreatedAt)
	}

	room, err := facade.Catalog.AddRoom(ctx, application.AddRoomParams{Name: "Dune"})
	if err != nil {
		t.Fatalf("AddRoom returned error: %v", err)
	}
	bed, err := facade.Catalog.AddBed(ctx, application.AddBedParams{RoomID: room.ID, Label: "A", Capacity: 1})
	if err != nil {
		t.Fatalf("AddBed returned error: %v", err)
	}

	assignment, err := facade.AssignBed(ctx, application.AssignBedParams{GuestID: guest.ID, BedID: bed.ID, ActorID: "staff-1"})
	if err != nil {
		t.Fatalf("AssignBed returned error: %v", err)
	}
	if assignment.ID != "asg-4" {
		t.Fatalf("expected assignment ID asg-4, got %q", assignment.ID)
	}

	names := publisher.Names()
	if len(names) != 1 || names[0] != events.BedAssigned {
		t.Fatalf("expected a single %s event, got %v", events.BedAssigned, names)
	}
}

func TestServiceFactoryNewFacadeWithSQLite(t *testing.T) {
	harness := NewSQLiteHarness(t)
	facade := NewServiceFactory().NewFacade(FacadeDeps{Store: harness.Store})
	ctx := context.Background()

	seed := SeedCamp(t, harness.Store)
	if _, err := facade.AssignBed(ctx, application.AssignBedParams{GuestID: seed.Guests[0].ID, BedID: seed.Beds[0].ID}); err != nil {
		t.Fatalf("AssignBed returned error: %v", err)
	}
	_, err := facade.AssignBed(ctx, application.AssignBedParams{GuestID: seed.Guests[1].ID, BedID: seed.Beds[0].ID})
	if !errors.Is(err, application.ErrResourceFull) {
		t.Fatalf("expected ErrResourceFull, got %v", err)
	}
}

func TestRecordingPublisherReturnsConfiguredError(t *testing.T) {
	publishErr := errors.New("broker down")
	publisher := &RecordingPublisher{Err: publishErr}

	if err := publisher.Publish(context.Background(), events.Event{Name: events.CutoffsReset}); !errors.Is(err, publishErr) {
		t.Fatalf("expected configured error, got %v", err)
	}
	if got := publisher.Events(); len(got) != 1 || got[0].Name != events.CutoffsReset {
		t.Fatalf("expected the event to be recorded, got %+v", got)
	}
}
