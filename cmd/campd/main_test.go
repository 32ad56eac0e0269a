package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sevenpast/campcore/internal/bootstrap"
	"github.com/sevenpast/campcore/internal/config"
)

func newTestRuntime(t *testing.T) *bootstrap.Runtime {
	t.Helper()
	cfg := config.Config{
		SQLitePath:           filepath.Join(t.TempDir(), "camp.db"),
		CampName:             "Surf Camp",
		Timezone:             "UTC",
		Location:             time.UTC,
		MaxSeriesOccurrences: 366,
		ResetLeaseTTL:        time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	rt, err := bootstrap.Build(context.Background(), cfg, logger, bootstrap.Options{ServiceName: "campd-test"})
	if err != nil {
		t.Fatalf("failed to build runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

func TestHandlerServesAgainstSQLite(t *testing.T) {
	t.Parallel()

	handler := newHandler(newTestRuntime(t))

	health := httptest.NewRecorder()
	handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if health.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from healthz, got %d", health.Code)
	}
	if health.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header from the logging middleware")
	}

	created := httptest.NewRecorder()
	handler.ServeHTTP(created, httptest.NewRequest(http.MethodPost, "/guests", strings.NewReader(`{"name":"Ana"}`)))
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}
	var body struct {
		Person struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"person"`
	}
	if err := json.Unmarshal(created.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode guest: %v", err)
	}
	guest := body.Person
	if guest.ID == "" || guest.Name != "Ana" {
		t.Fatalf("unexpected guest: %+v", guest)
	}

	fetched := httptest.NewRecorder()
	handler.ServeHTTP(fetched, httptest.NewRequest(http.MethodGet, "/guests/"+guest.ID, nil))
	if fetched.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", fetched.Code)
	}
}

func TestNewServerTimeouts(t *testing.T) {
	t.Parallel()

	server := newServer(":0", http.NotFoundHandler())
	if server.Addr != ":0" {
		t.Fatalf("unexpected addr %q", server.Addr)
	}
	if server.ReadHeaderTimeout == 0 || server.WriteTimeout == 0 || server.IdleTimeout == 0 {
		t.Fatalf("expected timeouts to be set, got %+v", server)
	}
}
