package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.Now(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
}

func TestClockCampDayHelpers(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	// 07:00 in Tokyo is still June 30th in UTC.
	clock := NewClock(time.Date(2024, time.July, 1, 7, 0, 0, 0, tokyo))

	evening := clock.SetTimeOfDay(20, 0)
	if want := time.Date(2024, time.July, 1, 20, 0, 0, 0, tokyo); !evening.Equal(want) {
		t.Fatalf("expected %v, got %v", want, evening)
	}

	next := clock.NextDay()
	if want := time.Date(2024, time.July, 2, 20, 0, 0, 0, tokyo); !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestClockNowFunc(t *testing.T) {
	clock := NewClock(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	nowFn := clock.NowFunc()

	clock.Advance(time.Minute)
	if got := nowFn(); !got.Equal(clock.Now()) {
		t.Fatalf("expected updated time %v, got %v", clock.Now(), got)
	}

	var missing *Clock
	if missing.NowFunc() == nil {
		t.Fatal("expected a nil clock to fall back to time.Now")
	}
}
