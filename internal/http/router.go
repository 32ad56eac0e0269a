package http

import (
	"net/http"
)

type RouterConfig struct {
	Catalog     *CatalogHandler
	Assignments *AssignmentHandler
	Commitments *CommitmentHandler
	Bookings    *BookingHandler
	Middleware  []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if cfg.Catalog != nil {
		mux.HandleFunc("POST /guests", cfg.Catalog.RegisterGuest)
		mux.HandleFunc("GET /guests/{id}", cfg.Catalog.GetGuest)
		mux.HandleFunc("DELETE /guests/{id}", cfg.Catalog.DeactivateGuest)
		mux.HandleFunc("POST /staff", cfg.Catalog.RegisterStaff)
		mux.HandleFunc("GET /staff/{id}", cfg.Catalog.GetStaff)
		mux.HandleFunc("POST /rooms", cfg.Catalog.AddRoom)
		mux.HandleFunc("POST /rooms/{id}/beds", cfg.Catalog.AddBed)
		mux.HandleFunc("GET /rooms/{id}/beds", cfg.Catalog.ListBeds)
		mux.HandleFunc("GET /beds/{id}", cfg.Catalog.GetBed)
		mux.HandleFunc("POST /equipment", cfg.Catalog.AddEquipment)
		mux.HandleFunc("GET /equipment", cfg.Catalog.ListEquipment)
		mux.HandleFunc("GET /equipment/{id}", cfg.Catalog.GetEquipment)
		mux.HandleFunc("POST /lessons", cfg.Catalog.ScheduleLesson)
		mux.HandleFunc("GET /lessons/{id}", cfg.Catalog.GetLesson)
	}

	if cfg.Assignments != nil {
		mux.HandleFunc("POST /assignments/beds", cfg.Assignments.AssignBed)
		mux.HandleFunc("POST /assignments/beds/{id}/release", cfg.Assignments.ReleaseBed)
		mux.HandleFunc("POST /assignments/equipment", cfg.Assignments.AssignEquipment)
		mux.HandleFunc("POST /assignments/equipment/{id}/release", cfg.Assignments.ReleaseEquipment)
		mux.HandleFunc("DELETE /beds/{id}", cfg.Assignments.DeactivateBed)
		mux.HandleFunc("DELETE /equipment/{id}", cfg.Assignments.DeactivateEquipment)
		mux.HandleFunc("DELETE /rooms/{id}", cfg.Assignments.DeactivateRoom)
		mux.HandleFunc("POST /occupancy/reconcile", cfg.Assignments.ReconcileOccupancy)
	}

	if cfg.Commitments != nil {
		mux.HandleFunc("POST /shifts", cfg.Commitments.CreateShift)
		mux.HandleFunc("DELETE /shifts/series/{id}", cfg.Commitments.DeleteShiftSeries)
		mux.HandleFunc("POST /lessons/{id}/assignments", cfg.Commitments.CreateLessonAssignment)
		mux.HandleFunc("GET /commitments", cfg.Commitments.List)
		mux.HandleFunc("DELETE /commitments/{id}", cfg.Commitments.Delete)
		mux.HandleFunc("POST /recurrence/expand", cfg.Commitments.ExpandRecurrence)
	}

	if cfg.Bookings != nil {
		mux.HandleFunc("POST /bookables", cfg.Bookings.Create)
		mux.HandleFunc("GET /bookables", cfg.Bookings.List)
		mux.HandleFunc("GET /bookables/{id}/cutoff", cfg.Bookings.Cutoff)
		mux.HandleFunc("PUT /bookables/{id}/booking", cfg.Bookings.SetBookingActive)
		mux.HandleFunc("DELETE /bookables/{id}", cfg.Bookings.DeleteOccurrence)
		mux.HandleFunc("POST /bookables/reset", cfg.Bookings.ResetCutoffs)
		mux.HandleFunc("PUT /series/{id}", cfg.Bookings.RenameSeries)
		mux.HandleFunc("DELETE /series/{id}", cfg.Bookings.DeleteSeries)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
