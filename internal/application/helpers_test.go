package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sevenpast/campcore/internal/persistence"
	"github.com/sevenpast/campcore/internal/persistence/memory"
)

var testNow = time.Date(2024, time.July, 2, 8, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustGuest(t *testing.T, store *memory.Storage, id string, active bool) {
	t.Helper()
	if err := store.CreateGuest(context.Background(), persistence.Guest{ID: id, Name: "Guest " + id, IsActive: active, CreatedAt: testNow}); err != nil {
		t.Fatalf("CreateGuest(%s) failed: %v", id, err)
	}
}

func mustStaff(t *testing.T, store *memory.Storage, id string, active bool) {
	t.Helper()
	if err := store.CreateStaff(context.Background(), persistence.Staff{ID: id, Name: "Staff " + id, IsActive: active, CreatedAt: testNow}); err != nil {
		t.Fatalf("CreateStaff(%s) failed: %v", id, err)
	}
}

func mustRoom(t *testing.T, store *memory.Storage, id string, active bool) {
	t.Helper()
	if err := store.CreateRoom(context.Background(), persistence.Room{ID: id, Name: "Room " + id, IsActive: active, CreatedAt: testNow}); err != nil {
		t.Fatalf("CreateRoom(%s) failed: %v", id, err)
	}
}

func mustBed(t *testing.T, store *memory.Storage, roomID, id string, capacity int, active bool) {
	t.Helper()
	bed := persistence.Bed{ID: id, RoomID: roomID, Label: "Bed " + id, Capacity: capacity, IsActive: active, CreatedAt: testNow}
	if err := store.CreateBed(context.Background(), bed); err != nil {
		t.Fatalf("CreateBed(%s) failed: %v", id, err)
	}
}

func mustEquipment(t *testing.T, store *memory.Storage, id, category string) {
	t.Helper()
	item := persistence.Equipment{
		ID:        id,
		Name:      "Item " + id,
		Category:  category,
		Status:    persistence.EquipmentStatusAvailable,
		IsActive:  true,
		CreatedAt: testNow,
	}
	if err := store.CreateEquipment(context.Background(), item); err != nil {
		t.Fatalf("CreateEquipment(%s) failed: %v", id, err)
	}
}

func mustLesson(t *testing.T, store *memory.Storage, id, category string, start, end time.Time) {
	t.Helper()
	lesson := persistence.Lesson{ID: id, Title: "Lesson " + id, Category: category, StartAt: start, EndAt: end, CreatedAt: testNow}
	if err := store.CreateLesson(context.Background(), lesson); err != nil {
		t.Fatalf("CreateLesson(%s) failed: %v", id, err)
	}
}

func mustCommitment(t *testing.T, store *memory.Storage, c persistence.Commitment) {
	t.Helper()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = testNow
	}
	if err := store.CreateCommitments(context.Background(), []persistence.Commitment{c}); err != nil {
		t.Fatalf("CreateCommitments(%s) failed: %v", c.ID, err)
	}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.July, day, hour, minute, 0, 0, time.UTC)
}
