package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sevenpast/campcore/internal/application"
	"github.com/sevenpast/campcore/internal/events"
	"github.com/sevenpast/campcore/internal/persistence"
	"github.com/sevenpast/campcore/internal/persistence/memory"
	"github.com/sevenpast/campcore/internal/testfixtures"
)

type apiFixture struct {
	handler   http.Handler
	store     *memory.Storage
	seed      testfixtures.CampSeed
	publisher *testfixtures.RecordingPublisher
	clock     *testfixtures.Clock
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	seed := testfixtures.SeedCamp(t, store)

	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	factory := testfixtures.NewServiceFactory(testfixtures.WithClock(clock), testfixtures.WithIDGenerator(testfixtures.NewIDGenerator("api")))
	publisher := &testfixtures.RecordingPublisher{}
	facade := factory.NewFacade(testfixtures.FacadeDeps{
		Store:      store,
		Assignment: application.AssignmentPolicy{ExclusiveCategories: []string{"surfboard"}},
		Publisher:  publisher,
		Logger:     logger,
	})

	handler := NewRouter(RouterConfig{
		Catalog:     NewCatalogHandler(facade.Catalog, logger),
		Assignments: NewAssignmentHandler(facade, logger),
		Commitments: NewCommitmentHandler(facade, logger),
		Bookings:    NewBookingHandler(facade, clock.NowFunc(), logger),
		Middleware:  []func(http.Handler) http.Handler{RequestLogger(logger), ActorFromHeader},
	})
	return apiFixture{handler: handler, store: store, seed: seed, publisher: publisher, clock: clock}
}

func (f apiFixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(ActorHeader, "staff-admin")
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(recorder.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, recorder.Code, recorder.Body.String())
	}
}

func TestAssignmentHandlers(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	guestA, guestB := fx.seed.Guests[0].ID, fx.seed.Guests[1].ID
	singleBed := fx.seed.Beds[0].ID

	created := fx.do(t, http.MethodPost, "/assignments/beds", map[string]string{"guest_id": guestA, "bed_id": singleBed})
	expectStatus(t, created, http.StatusCreated)
	assignment := decodeBody[assignmentResponse](t, created).Assignment
	if assignment.State != "active" || assignment.AssignedBy != "staff-admin" || assignment.ResourceKind != "bed" {
		t.Fatalf("unexpected assignment: %+v", assignment)
	}

	t.Run("full bed maps to conflict", func(t *testing.T) {
		recorder := fx.do(t, http.MethodPost, "/assignments/beds", map[string]string{"guest_id": guestB, "bed_id": singleBed})
		expectStatus(t, recorder, http.StatusConflict)
		if body := decodeBody[errorResponse](t, recorder); body.ErrorCode != "capacity_exceeded" {
			t.Fatalf("expected capacity_exceeded, got %+v", body)
		}
	})

	t.Run("unknown guest maps to not found", func(t *testing.T) {
		recorder := fx.do(t, http.MethodPost, "/assignments/beds", map[string]string{"guest_id": "nobody", "bed_id": singleBed})
		expectStatus(t, recorder, http.StatusNotFound)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		expectStatus(t, fx.do(t, http.MethodPost, "/assignments/beds", "{"), http.StatusBadRequest)
		expectStatus(t, fx.do(t, http.MethodPost, "/assignments/beds", `{"guest":"x"}`), http.StatusBadRequest)
	})

	t.Run("occupied room cannot be deactivated", func(t *testing.T) {
		recorder := fx.do(t, http.MethodDelete, "/rooms/"+fx.seed.Room.ID, nil)
		expectStatus(t, recorder, http.StatusConflict)
		if body := decodeBody[errorResponse](t, recorder); body.ErrorCode != "resource_in_use" {
			t.Fatalf("expected resource_in_use, got %+v", body)
		}
	})

	t.Run("equipment is exclusive per category", func(t *testing.T) {
		first := fx.do(t, http.MethodPost, "/assignments/equipment", map[string]string{"guest_id": guestA, "equipment_id": fx.seed.Equipment[0].ID})
		expectStatus(t, first, http.StatusCreated)
		second := fx.do(t, http.MethodPost, "/assignments/equipment", map[string]string{"guest_id": guestA, "equipment_id": fx.seed.Equipment[1].ID})
		expectStatus(t, second, http.StatusConflict)

		id := decodeBody[assignmentResponse](t, first).Assignment.ID
		expectStatus(t, fx.do(t, http.MethodPost, "/assignments/equipment/"+id+"/release", nil), http.StatusOK)
		expectStatus(t, fx.do(t, http.MethodDelete, "/equipment/"+fx.seed.Equipment[0].ID, nil), http.StatusNoContent)
	})

	released := fx.do(t, http.MethodPost, "/assignments/beds/"+assignment.ID+"/release", nil)
	expectStatus(t, released, http.StatusOK)
	if body := decodeBody[assignmentResponse](t, released).Assignment; body.State != "completed" || body.CompletedAt == "" {
		t.Fatalf("expected completed assignment, got %+v", body)
	}
	expectStatus(t, fx.do(t, http.MethodPost, "/assignments/beds/"+assignment.ID+"/release", nil), http.StatusConflict)
	expectStatus(t, fx.do(t, http.MethodDelete, "/rooms/"+fx.seed.Room.ID, nil), http.StatusNoContent)

	if names := fx.publisher.Names(); len(names) == 0 || names[0] != events.BedAssigned {
		t.Fatalf("expected the bed assignment to be published first, got %v", names)
	}

	reconciled := fx.do(t, http.MethodPost, "/occupancy/reconcile", nil)
	expectStatus(t, reconciled, http.StatusOK)
	if body := decodeBody[reconcileResponse](t, reconciled); body.BedsCorrected != 0 || body.EquipmentCorrected != 0 {
		t.Fatalf("expected consistent counters, got %+v", body)
	}
}

func TestCommitmentHandlers(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	staffID := fx.seed.Staff[0].ID
	shift := map[string]any{
		"staff_id":   staffID,
		"role_label": "Bar",
		"start_at":   "2024-07-02T09:00:00Z",
		"end_at":     "2024-07-02T12:00:00Z",
	}

	created := fx.do(t, http.MethodPost, "/shifts", shift)
	expectStatus(t, created, http.StatusCreated)
	shiftID := decodeBody[shiftResponse](t, created).Shift.ID

	t.Run("overlap reports every blocked actor", func(t *testing.T) {
		overlapping := map[string]any{
			"staff_id":   staffID,
			"role_label": "Kitchen",
			"start_at":   "2024-07-02T11:00:00Z",
			"end_at":     "2024-07-02T13:00:00Z",
		}
		recorder := fx.do(t, http.MethodPost, "/shifts", overlapping)
		expectStatus(t, recorder, http.StatusConflict)
		body := decodeBody[errorResponse](t, recorder)
		if body.ErrorCode != "temporal_conflict" || len(body.Conflicts) != 1 {
			t.Fatalf("expected a single overlap, got %+v", body)
		}
		if c := body.Conflicts[0]; c.ActorID != staffID || c.Reason != "overlap" || c.ConflictingCommitmentID != shiftID {
			t.Fatalf("unexpected conflict entry: %+v", c)
		}
	})

	t.Run("inverted interval is unprocessable", func(t *testing.T) {
		inverted := map[string]any{
			"staff_id": staffID,
			"start_at": "2024-07-03T12:00:00Z",
			"end_at":   "2024-07-03T09:00:00Z",
		}
		recorder := fx.do(t, http.MethodPost, "/shifts", inverted)
		expectStatus(t, recorder, http.StatusUnprocessableEntity)
	})

	t.Run("lists and deletes commitments", func(t *testing.T) {
		listed := fx.do(t, http.MethodGet, "/commitments?actor_id="+staffID, nil)
		expectStatus(t, listed, http.StatusOK)
		if body := decodeBody[listCommitmentsResponse](t, listed); len(body.Commitments) != 1 || body.Commitments[0].Label != "Bar" {
			t.Fatalf("expected the bar shift, got %+v", body)
		}
		expectStatus(t, fx.do(t, http.MethodGet, "/commitments?from=yesterday", nil), http.StatusBadRequest)
		expectStatus(t, fx.do(t, http.MethodDelete, "/commitments/"+shiftID, nil), http.StatusNoContent)
		expectStatus(t, fx.do(t, http.MethodDelete, "/commitments/"+shiftID, nil), http.StatusNotFound)
	})

	t.Run("expands a weekly rule", func(t *testing.T) {
		recorder := fx.do(t, http.MethodPost, "/recurrence/expand", map[string]any{
			"rule":     map[string]any{"frequency": "weekly", "days_of_week": []int{1, 3}, "max_occurrences": 4},
			"start_at": "2024-07-01T09:00:00Z",
			"end_at":   "2024-07-01T10:00:00Z",
		})
		expectStatus(t, recorder, http.StatusOK)
		body := decodeBody[expandResponse](t, recorder)
		want := []string{"2024-07-01", "2024-07-03", "2024-07-08", "2024-07-10"}
		if len(body.Occurrences) != len(want) {
			t.Fatalf("expected %d occurrences, got %+v", len(want), body.Occurrences)
		}
		for i, date := range want {
			if body.Occurrences[i].Date != date {
				t.Fatalf("occurrence %d: expected %s, got %s", i, date, body.Occurrences[i].Date)
			}
		}
	})

	t.Run("unbounded rule is unprocessable", func(t *testing.T) {
		recorder := fx.do(t, http.MethodPost, "/recurrence/expand", map[string]any{
			"rule":     map[string]any{"frequency": "daily"},
			"start_at": "2024-07-01T09:00:00Z",
			"end_at":   "2024-07-01T10:00:00Z",
		})
		expectStatus(t, recorder, http.StatusUnprocessableEntity)
		if body := decodeBody[errorResponse](t, recorder); body.ErrorCode != "invalid_recurrence" {
			t.Fatalf("expected invalid_recurrence, got %+v", body)
		}
	})
}

func TestBookingHandlers(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)

	created := fx.do(t, http.MethodPost, "/bookables", map[string]any{
		"kind":           "meal",
		"category":       "lunch",
		"title":          "Lunch",
		"date":           "2024-07-01",
		"cutoff_time":    "12:00",
		"cutoff_enabled": true,
		"reset_time":     "20:00",
		"reset_enabled":  true,
	})
	expectStatus(t, created, http.StatusCreated)
	bookables := decodeBody[listBookablesResponse](t, created).Bookables
	if len(bookables) != 1 || !bookables[0].IsBookingActive || bookables[0].Date != "2024-07-01" {
		t.Fatalf("unexpected bookables: %+v", bookables)
	}
	id := bookables[0].ID

	t.Run("cutoff applies on the day", func(t *testing.T) {
		before := fx.do(t, http.MethodGet, "/bookables/"+id+"/cutoff?at=2024-07-01T11:00:00Z", nil)
		expectStatus(t, before, http.StatusOK)
		if body := decodeBody[evaluationDTO](t, before); !body.CanBook || body.Status != "active" {
			t.Fatalf("expected booking open before cutoff, got %+v", body)
		}

		after := fx.do(t, http.MethodGet, "/bookables/"+id+"/cutoff?at=2024-07-01T13:00:00Z", nil)
		expectStatus(t, after, http.StatusOK)
		if body := decodeBody[evaluationDTO](t, after); body.CanBook || body.Status != "cutoff_reached" || body.Reason != "cutoff_passed" {
			t.Fatalf("expected cutoff reached, got %+v", body)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		bad := fx.do(t, http.MethodPost, "/bookables", map[string]any{"kind": "meal", "title": "Dinner", "date": "01/07/2024"})
		expectStatus(t, bad, http.StatusBadRequest)

		malformed := fx.do(t, http.MethodPost, "/bookables", map[string]any{
			"kind": "meal", "title": "Dinner", "date": "2024-07-01", "cutoff_time": "25:00", "cutoff_enabled": true,
		})
		expectStatus(t, malformed, http.StatusUnprocessableEntity)
		if body := decodeBody[errorResponse](t, malformed); body.ErrorCode != "invalid_time_format" {
			t.Fatalf("expected invalid_time_format, got %+v", body)
		}
		expectStatus(t, fx.do(t, http.MethodPut, "/bookables/"+id+"/booking", map[string]any{}), http.StatusBadRequest)
		expectStatus(t, fx.do(t, http.MethodGet, "/bookables/missing/cutoff", nil), http.StatusNotFound)
	})

	t.Run("malformed stored cutoff reports active with the error", func(t *testing.T) {
		err := fx.store.CreateBookables(context.Background(), []persistence.Bookable{{
			ID:     "legacy-dinner",
			Kind:   persistence.BookableKindEvent,
			Title:  "Campfire",
			Date:   time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
			Policy: persistence.CutoffPolicy{CutoffTime: "6pm", CutoffEnabled: true, IsBookingActive: true},
		}})
		if err != nil {
			t.Fatalf("failed to seed bookable: %v", err)
		}
		recorder := fx.do(t, http.MethodGet, "/bookables/legacy-dinner/cutoff?at=2024-07-01T19:00:00Z", nil)
		expectStatus(t, recorder, http.StatusOK)
		body := decodeBody[evaluationDTO](t, recorder)
		if body.Status != "active" || !body.CanBook || body.ErrorCode != "invalid_time_format" || body.Message == "" {
			t.Fatalf("expected fail-safe active evaluation with the error, got %+v", body)
		}
		if body.BookableID != "legacy-dinner" {
			t.Fatalf("expected evaluation for legacy-dinner, got %+v", body)
		}
	})

	t.Run("toggle, list and reset", func(t *testing.T) {
		toggled := fx.do(t, http.MethodPut, "/bookables/"+id+"/booking", map[string]bool{"active": false})
		expectStatus(t, toggled, http.StatusOK)
		if body := decodeBody[bookableResponse](t, toggled); body.Bookable.IsBookingActive {
			t.Fatalf("expected booking closed, got %+v", body.Bookable)
		}

		listed := fx.do(t, http.MethodGet, "/bookables?kind=meal&date=2024-07-01", nil)
		expectStatus(t, listed, http.StatusOK)
		entries := decodeBody[listBookablesResponse](t, listed).Bookables
		if len(entries) != 1 || entries[0].Evaluation == nil || entries[0].Evaluation.Reason != "booking_closed" {
			t.Fatalf("expected closed lunch with evaluation, got %+v", entries)
		}

		early := fx.do(t, http.MethodPost, "/bookables/reset", map[string]string{"category": "lunch"})
		expectStatus(t, early, http.StatusOK)
		if body := decodeBody[countResponse](t, early); body.Count != 0 {
			t.Fatalf("expected no reset before 20:00, got %d", body.Count)
		}

		fx.clock.SetTimeOfDay(20, 30)
		late := fx.do(t, http.MethodPost, "/bookables/reset", map[string]string{"category": "lunch", "date": "2024-07-01"})
		expectStatus(t, late, http.StatusOK)
		if body := decodeBody[countResponse](t, late); body.Count != 1 {
			t.Fatalf("expected one reset after 20:00, got %d", body.Count)
		}
	})

	t.Run("series operations", func(t *testing.T) {
		series := fx.do(t, http.MethodPost, "/bookables", map[string]any{
			"kind":       "event",
			"title":      "Yoga",
			"date":       "2024-07-02",
			"recurrence": map[string]any{"frequency": "daily", "max_occurrences": 3},
		})
		expectStatus(t, series, http.StatusCreated)
		occurrences := decodeBody[listBookablesResponse](t, series).Bookables
		if len(occurrences) != 3 || occurrences[0].SeriesID == "" {
			t.Fatalf("expected three linked occurrences, got %+v", occurrences)
		}
		seriesID := occurrences[0].SeriesID

		renamed := fx.do(t, http.MethodPut, "/series/"+seriesID, map[string]string{"title": "Sunrise Yoga"})
		expectStatus(t, renamed, http.StatusOK)
		if body := decodeBody[countResponse](t, renamed); body.Count != 3 {
			t.Fatalf("expected three renamed, got %d", body.Count)
		}
		expectStatus(t, fx.do(t, http.MethodDelete, "/bookables/"+occurrences[2].ID, nil), http.StatusNoContent)
		deleted := fx.do(t, http.MethodDelete, "/series/"+seriesID, nil)
		expectStatus(t, deleted, http.StatusOK)
		if body := decodeBody[countResponse](t, deleted); body.Count != 2 {
			t.Fatalf("expected two deleted, got %d", body.Count)
		}
	})
}

func TestCatalogHandlers(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)

	invalid := fx.do(t, http.MethodPost, "/guests", map[string]string{"name": " "})
	expectStatus(t, invalid, http.StatusUnprocessableEntity)
	if body := decodeBody[errorResponse](t, invalid); body.ErrorCode != "validation" || body.Errors["name"] == "" {
		t.Fatalf("expected field error for name, got %+v", body)
	}

	created := fx.do(t, http.MethodPost, "/guests", map[string]string{"name": "Ana"})
	expectStatus(t, created, http.StatusCreated)
	guest := decodeBody[personResponse](t, created).Person
	expectStatus(t, fx.do(t, http.MethodGet, "/guests/"+guest.ID, nil), http.StatusOK)
	expectStatus(t, fx.do(t, http.MethodDelete, "/guests/"+guest.ID, nil), http.StatusNoContent)
	expectStatus(t, fx.do(t, http.MethodGet, "/guests/missing", nil), http.StatusNotFound)

	room := decodeBody[roomResponse](t, fx.do(t, http.MethodPost, "/rooms", map[string]string{"name": "Dune"})).Room
	bed := fx.do(t, http.MethodPost, "/rooms/"+room.ID+"/beds", map[string]any{"label": "Bunk", "capacity": 2})
	expectStatus(t, bed, http.StatusCreated)
	beds := fx.do(t, http.MethodGet, "/rooms/"+room.ID+"/beds", nil)
	expectStatus(t, beds, http.StatusOK)
	if body := decodeBody[listBedsResponse](t, beds); len(body.Beds) != 1 || body.Beds[0].Capacity != 2 {
		t.Fatalf("expected one double bed, got %+v", body)
	}

	lesson := fx.do(t, http.MethodPost, "/lessons", map[string]any{
		"title": "Beginners", "category": "surf", "start_at": "2024-07-02T09:00:00Z", "end_at": "2024-07-02T11:00:00Z",
	})
	expectStatus(t, lesson, http.StatusCreated)
	lessonID := decodeBody[lessonResponse](t, lesson).Lesson.ID

	assigned := fx.do(t, http.MethodPost, "/lessons/"+lessonID+"/assignments", map[string]any{
		"guest_ids": []string{fx.seed.Guests[0].ID, fx.seed.Guests[1].ID},
	})
	expectStatus(t, assigned, http.StatusCreated)
	if body := decodeBody[lessonAssignmentResponse](t, assigned); len(body.Created) != 2 {
		t.Fatalf("expected two lesson commitments, got %+v", body)
	}
}

func TestRouterBehaviour(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)

	t.Run("unsupported method", func(t *testing.T) {
		recorder := fx.do(t, http.MethodPatch, "/shifts", nil)
		expectStatus(t, recorder, http.StatusMethodNotAllowed)
	})

	t.Run("request id is echoed or generated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		recorder := httptest.NewRecorder()
		fx.handler.ServeHTTP(recorder, req)
		expectStatus(t, recorder, http.StatusNoContent)
		if got := recorder.Header().Get(RequestIDHeader); got != "req-42" {
			t.Fatalf("expected echoed request id, got %q", got)
		}

		generated := fx.do(t, http.MethodGet, "/healthz", nil)
		if generated.Header().Get(RequestIDHeader) == "" {
			t.Fatal("expected a generated request id")
		}
	})

	t.Run("actor header reaches the context", func(t *testing.T) {
		var seen string
		handler := ActorFromHeader(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = ActorIDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(ActorHeader, "  staff-7 ")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if seen != "staff-7" {
			t.Fatalf("expected staff-7, got %q", seen)
		}
	})
}
