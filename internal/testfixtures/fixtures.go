package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sevenpast/campcore/internal/persistence"
)

var (
	guestCounter     uint64
	staffCounter     uint64
	roomCounter      uint64
	bedCounter       uint64
	equipmentCounter uint64
	lessonCounter    uint64
	bookableCounter  uint64
)

var referenceTime = time.Date(2024, time.July, 1, 7, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- People fixtures -----------------------------

// GuestFixture represents a deterministic guest record.
type GuestFixture struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// GuestOption configures the generated guest fixture.
type GuestOption func(*GuestFixture)

// NewGuestFixture returns an active guest fixture with optional overrides.
func NewGuestFixture(opts ...GuestOption) GuestFixture {
	idx := atomic.AddUint64(&guestCounter, 1)
	fixture := GuestFixture{
		ID:        fmt.Sprintf("guest-%03d", idx),
		Name:      fmt.Sprintf("Guest %03d", idx),
		IsActive:  true,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithGuestID overrides the generated guest ID.
func WithGuestID(id string) GuestOption {
	return func(f *GuestFixture) {
		f.ID = id
	}
}

// WithGuestInactive marks the guest as checked out.
func WithGuestInactive() GuestOption {
	return func(f *GuestFixture) {
		f.IsActive = false
	}
}

// Persistence returns the fixture as a persistence.Guest value.
func (f GuestFixture) Persistence() persistence.Guest {
	return persistence.Guest{ID: f.ID, Name: f.Name, IsActive: f.IsActive, CreatedAt: f.CreatedAt}
}

// StaffFixture represents a deterministic staff record.
type StaffFixture struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// NewStaffFixture returns an active staff fixture.
func NewStaffFixture() StaffFixture {
	idx := atomic.AddUint64(&staffCounter, 1)
	return StaffFixture{
		ID:        fmt.Sprintf("staff-%03d", idx),
		Name:      fmt.Sprintf("Staff %03d", idx),
		IsActive:  true,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
}

// Persistence returns the fixture as a persistence.Staff value.
func (f StaffFixture) Persistence() persistence.Staff {
	return persistence.Staff{ID: f.ID, Name: f.Name, IsActive: f.IsActive, CreatedAt: f.CreatedAt}
}

// ----------------------------- Resource fixtures -----------------------------

// RoomFixture represents a deterministic room record.
type RoomFixture struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// NewRoomFixture returns an active room fixture.
func NewRoomFixture() RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	return RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Room %03d", idx),
		IsActive:  true,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Hour),
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{ID: f.ID, Name: f.Name, IsActive: f.IsActive, CreatedAt: f.CreatedAt}
}

// BedFixture represents a deterministic bed record.
type BedFixture struct {
	ID               string
	RoomID           string
	Label            string
	Capacity         int
	CurrentOccupancy int
	IsActive         bool
	CreatedAt        time.Time
}

// BedOption configures the generated bed fixture.
type BedOption func(*BedFixture)

// NewBedFixture returns an empty, active single bed in roomID.
func NewBedFixture(roomID string, opts ...BedOption) BedFixture {
	idx := atomic.AddUint64(&bedCounter, 1)
	fixture := BedFixture{
		ID:        fmt.Sprintf("bed-%03d", idx),
		RoomID:    roomID,
		Label:     fmt.Sprintf("Bed %03d", idx),
		Capacity:  1,
		IsActive:  true,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBedCapacity overrides the bed capacity.
func WithBedCapacity(capacity int) BedOption {
	return func(f *BedFixture) {
		f.Capacity = capacity
	}
}

// WithBedOccupancy overrides the stored occupancy counter.
func WithBedOccupancy(occupancy int) BedOption {
	return func(f *BedFixture) {
		f.CurrentOccupancy = occupancy
	}
}

// WithBedInactive marks the bed as taken out of service.
func WithBedInactive() BedOption {
	return func(f *BedFixture) {
		f.IsActive = false
	}
}

// Persistence returns the fixture as a persistence.Bed value.
func (f BedFixture) Persistence() persistence.Bed {
	return persistence.Bed{
		ID:               f.ID,
		RoomID:           f.RoomID,
		Label:            f.Label,
		Capacity:         f.Capacity,
		CurrentOccupancy: f.CurrentOccupancy,
		IsActive:         f.IsActive,
		CreatedAt:        f.CreatedAt,
	}
}

// EquipmentFixture represents a deterministic equipment record.
type EquipmentFixture struct {
	ID        string
	Name      string
	Category  string
	Status    persistence.EquipmentStatus
	IsActive  bool
	CreatedAt time.Time
}

// EquipmentOption configures the generated equipment fixture.
type EquipmentOption func(*EquipmentFixture)

// NewEquipmentFixture returns an available surfboard unless overridden.
func NewEquipmentFixture(opts ...EquipmentOption) EquipmentFixture {
	idx := atomic.AddUint64(&equipmentCounter, 1)
	fixture := EquipmentFixture{
		ID:        fmt.Sprintf("equipment-%03d", idx),
		Name:      fmt.Sprintf("Board %03d", idx),
		Category:  "surfboard",
		Status:    persistence.EquipmentStatusAvailable,
		IsActive:  true,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEquipmentCategory overrides the equipment category.
func WithEquipmentCategory(category string) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.Category = category
	}
}

// WithEquipmentStatus overrides the equipment status.
func WithEquipmentStatus(status persistence.EquipmentStatus) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.Status = status
	}
}

// Persistence returns the fixture as a persistence.Equipment value.
func (f EquipmentFixture) Persistence() persistence.Equipment {
	return persistence.Equipment{
		ID:        f.ID,
		Name:      f.Name,
		Category:  f.Category,
		Status:    f.Status,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
	}
}

// ----------------------------- Scheduling fixtures -----------------------------

// LessonFixture represents a deterministic lesson record.
type LessonFixture struct {
	ID        string
	Title     string
	Category  string
	StartAt   time.Time
	EndAt     time.Time
	CreatedAt time.Time
}

// NewLessonFixture returns a lesson of category running [start, end).
func NewLessonFixture(category string, start, end time.Time) LessonFixture {
	idx := atomic.AddUint64(&lessonCounter, 1)
	return LessonFixture{
		ID:        fmt.Sprintf("lesson-%03d", idx),
		Title:     fmt.Sprintf("Lesson %03d", idx),
		Category:  category,
		StartAt:   start,
		EndAt:     end,
		CreatedAt: referenceTime,
	}
}

// Persistence returns the fixture as a persistence.Lesson value.
func (f LessonFixture) Persistence() persistence.Lesson {
	return persistence.Lesson{
		ID:        f.ID,
		Title:     f.Title,
		Category:  f.Category,
		StartAt:   f.StartAt,
		EndAt:     f.EndAt,
		CreatedAt: f.CreatedAt,
	}
}

// BookableFixture represents a deterministic meal or event occurrence.
type BookableFixture struct {
	ID        string
	Kind      persistence.BookableKind
	Category  string
	Title     string
	Date      time.Time
	SeriesID  *string
	Policy    persistence.CutoffPolicy
	CreatedAt time.Time
}

// BookableOption configures the generated bookable fixture.
type BookableOption func(*BookableFixture)

// NewBookableFixture returns an open dinner on date with no cutoff configured.
func NewBookableFixture(date time.Time, opts ...BookableOption) BookableFixture {
	idx := atomic.AddUint64(&bookableCounter, 1)
	fixture := BookableFixture{
		ID:        fmt.Sprintf("bookable-%03d", idx),
		Kind:      persistence.BookableKindMeal,
		Category:  "dinner",
		Title:     fmt.Sprintf("Dinner %03d", idx),
		Date:      persistence.CivilDate(date),
		Policy:    persistence.CutoffPolicy{IsBookingActive: true},
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookableCutoff enables a cutoff at clock (HH:MM).
func WithBookableCutoff(clock string) BookableOption {
	return func(f *BookableFixture) {
		f.Policy.CutoffTime = clock
		f.Policy.CutoffEnabled = true
	}
}

// WithBookableReset enables an automatic reset at clock (HH:MM).
func WithBookableReset(clock string) BookableOption {
	return func(f *BookableFixture) {
		f.Policy.ResetTime = clock
		f.Policy.ResetEnabled = true
	}
}

// WithBookingClosed stores the bookable with booking deactivated.
func WithBookingClosed() BookableOption {
	return func(f *BookableFixture) {
		f.Policy.IsBookingActive = false
	}
}

// WithBookableSeries attaches the bookable to a series.
func WithBookableSeries(seriesID string) BookableOption {
	return func(f *BookableFixture) {
		f.SeriesID = &seriesID
	}
}

// WithBookableKind overrides the kind and category.
func WithBookableKind(kind persistence.BookableKind, category string) BookableOption {
	return func(f *BookableFixture) {
		f.Kind = kind
		f.Category = category
	}
}

// Persistence returns the fixture as a persistence.Bookable value.
func (f BookableFixture) Persistence() persistence.Bookable {
	return persistence.Bookable{
		ID:        f.ID,
		Kind:      f.Kind,
		Category:  f.Category,
		Title:     f.Title,
		Date:      f.Date,
		SeriesID:  copyStringPtr(f.SeriesID),
		Policy:    f.Policy,
		CreatedAt: f.CreatedAt,
	}
}

// ----------------------------- Seeding -----------------------------

// CampSeed lists the records created by SeedCamp.
type CampSeed struct {
	Room      RoomFixture
	Beds      []BedFixture
	Guests    []GuestFixture
	Staff     []StaffFixture
	Equipment []EquipmentFixture
}

// SeedCamp stores one room with a single and a double bed, three active
// guests, two staff members and two available surfboards.
func SeedCamp(tb testing.TB, store persistence.Store) CampSeed {
	tb.Helper()
	ctx := context.Background()

	seed := CampSeed{Room: NewRoomFixture()}
	if err := store.CreateRoom(ctx, seed.Room.Persistence()); err != nil {
		tb.Fatalf("seed room: %v", err)
	}
	seed.Beds = []BedFixture{
		NewBedFixture(seed.Room.ID),
		NewBedFixture(seed.Room.ID, WithBedCapacity(2)),
	}
	for _, bed := range seed.Beds {
		if err := store.CreateBed(ctx, bed.Persistence()); err != nil {
			tb.Fatalf("seed bed %s: %v", bed.ID, err)
		}
	}
	for i := 0; i < 3; i++ {
		guest := NewGuestFixture()
		if err := store.CreateGuest(ctx, guest.Persistence()); err != nil {
			tb.Fatalf("seed guest %s: %v", guest.ID, err)
		}
		seed.Guests = append(seed.Guests, guest)
	}
	for i := 0; i < 2; i++ {
		staff := NewStaffFixture()
		if err := store.CreateStaff(ctx, staff.Persistence()); err != nil {
			tb.Fatalf("seed staff %s: %v", staff.ID, err)
		}
		seed.Staff = append(seed.Staff, staff)
	}
	for i := 0; i < 2; i++ {
		item := NewEquipmentFixture()
		if err := store.CreateEquipment(ctx, item.Persistence()); err != nil {
			tb.Fatalf("seed equipment %s: %v", item.ID, err)
		}
		seed.Equipment = append(seed.Equipment, item)
	}
	return seed
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
