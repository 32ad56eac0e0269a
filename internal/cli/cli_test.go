package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sevenpast/campcore/internal/application"
	"github.com/sevenpast/campcore/internal/persistence"
	"github.com/sevenpast/campcore/internal/persistence/sqlite/migration"
	"github.com/sevenpast/campcore/internal/recurrence"
	"github.com/sevenpast/campcore/internal/trigger"
)

type backendStub struct {
	resetFilter application.ResetFilter
	resetCount  int
	resetErr    error
	reconciled  application.ReconcileResult
	expandParam application.ExpandRecurrenceParams
	occurrences []recurrence.Occurrence
}

func (b *backendStub) ResetCutoffs(_ context.Context, filter application.ResetFilter) (int, error) {
	b.resetFilter = filter
	return b.resetCount, b.resetErr
}

func (b *backendStub) ReconcileOccupancy(context.Context) (application.ReconcileResult, error) {
	return b.reconciled, nil
}

func (b *backendStub) ExpandRecurrence(_ context.Context, params application.ExpandRecurrenceParams) ([]recurrence.Occurrence, error) {
	b.expandParam = params
	return b.occurrences, nil
}

type guardStub struct {
	jobs []string
	held bool
}

func (g *guardStub) Run(ctx context.Context, job string, fn func(context.Context) error) error {
	g.jobs = append(g.jobs, job)
	if g.held {
		return trigger.ErrLeaseHeld
	}
	return fn(ctx)
}

type migrationStoreStub struct {
	status   migration.Status
	migrated bool
	closed   bool
}

func (m *migrationStoreStub) Migrate(context.Context) (int, error) {
	m.migrated = true
	applied := len(m.status.Pending)
	m.status.CurrentVersion = "001"
	m.status.Pending = nil
	return applied, nil
}

func (m *migrationStoreStub) MigrationStatus(context.Context) (migration.Status, error) {
	return m.status, nil
}

func (m *migrationStoreStub) Close() error {
	m.closed = true
	return nil
}

type cliFixture struct {
	backend *backendStub
	guard   *guardStub
	store   *migrationStoreStub
	closed  int
}

func newCLIFixture() *cliFixture {
	return &cliFixture{
		backend: &backendStub{},
		guard:   &guardStub{},
		store: &migrationStoreStub{status: migration.Status{
			Pending: []migration.Migration{{Version: "001", Description: "initial schema"}},
		}},
	}
}

func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	deps := Dependencies{
		Open: func(context.Context) (*Session, error) {
			return &Session{
				Backend: f.backend,
				Guard:   f.guard,
				Close: func() error {
					f.closed++
					return nil
				},
			}, nil
		},
		OpenStore: func(context.Context) (MigrationStore, error) {
			return f.store, nil
		},
	}
	cmd := NewRootCommand(deps, "1.2.3")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResetCutoffsCommand(t *testing.T) {
	t.Parallel()

	t.Run("passes the filter and reports the count", func(t *testing.T) {
		t.Parallel()
		fx := newCLIFixture()
		fx.backend.resetCount = 3

		out, err := fx.run(t, "reset-cutoffs", "--kind", "meal", "--category", "Dinner", "--date", "2024-07-02")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !strings.Contains(out, "Reopened 3 bookables") {
			t.Fatalf("unexpected output %q", out)
		}
		filter := fx.backend.resetFilter
		if filter.Kind != persistence.BookableKindMeal || filter.Category != "Dinner" {
			t.Fatalf("unexpected filter %+v", filter)
		}
		if filter.Date == nil || !filter.Date.Equal(time.Date(2024, time.July, 2, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected date %v", filter.Date)
		}
		if len(fx.guard.jobs) != 1 || fx.guard.jobs[0] != "reset-cutoffs:meal:dinner:2024-07-02" {
			t.Fatalf("unexpected lease jobs %v", fx.guard.jobs)
		}
		if fx.closed != 1 {
			t.Fatalf("expected session to be closed once, got %d", fx.closed)
		}
	})

	t.Run("held lease is skipped without error", func(t *testing.T) {
		t.Parallel()
		fx := newCLIFixture()
		fx.guard.held = true

		out, err := fx.run(t, "reset-cutoffs", "--json")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		var report skippedReport
		if err := json.Unmarshal([]byte(out), &report); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", out, err)
		}
		if !report.Skipped || report.Job != "reset-cutoffs" {
			t.Fatalf("unexpected report %+v", report)
		}
		if fx.backend.resetFilter != (application.ResetFilter{}) {
			t.Fatalf("expected reset not to run, got filter %+v", fx.backend.resetFilter)
		}
	})

	t.Run("invalid flags", func(t *testing.T) {
		t.Parallel()
		fx := newCLIFixture()
		if _, err := fx.run(t, "reset-cutoffs", "--kind", "spa"); err == nil || !strings.Contains(err.Error(), "--kind") {
			t.Fatalf("expected kind error, got %v", err)
		}
		if _, err := fx.run(t, "reset-cutoffs", "--date", "02/07/2024"); err == nil || !strings.Contains(err.Error(), "--date") {
			t.Fatalf("expected date error, got %v", err)
		}
		if fx.closed != 0 {
			t.Fatalf("expected no session to be opened, got %d closes", fx.closed)
		}
	})

	t.Run("backend errors surface", func(t *testing.T) {
		t.Parallel()
		fx := newCLIFixture()
		fx.backend.resetErr = errors.New("disk full")
		if _, err := fx.run(t, "reset-cutoffs"); err == nil || err.Error() != "disk full" {
			t.Fatalf("expected backend error, got %v", err)
		}
	})
}

func TestReconcileCommand(t *testing.T) {
	t.Parallel()

	fx := newCLIFixture()
	fx.backend.reconciled = application.ReconcileResult{BedsCorrected: 2}

	out, err := fx.run(t, "reconcile", "--json")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	var report reconcileReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", out, err)
	}
	if report.Beds != 2 || report.Equipment != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(fx.guard.jobs) != 1 || fx.guard.jobs[0] != "reconcile-occupancy" {
		t.Fatalf("unexpected lease jobs %v", fx.guard.jobs)
	}

	fx.backend.reconciled = application.ReconcileResult{}
	out, err = fx.run(t, "reconcile")
	if err != nil || !strings.Contains(out, "already consistent") {
		t.Fatalf("expected consistent message, got %q, err %v", out, err)
	}
}

func TestExpandCommand(t *testing.T) {
	t.Parallel()

	fx := newCLIFixture()
	start := time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC)
	fx.backend.occurrences = []recurrence.Occurrence{
		{Sequence: 1, Date: start, Start: start, End: start.Add(2 * time.Hour)},
		{Sequence: 2, Date: start.AddDate(0, 0, 2), Start: start.AddDate(0, 0, 2), End: start.AddDate(0, 0, 2).Add(2 * time.Hour)},
	}

	out, err := fx.run(t, "expand",
		"--start", "2024-07-01T09:00:00Z", "--end", "2024-07-01T11:00:00Z",
		"--frequency", "weekly", "--days", "1,3", "--until", "2024-07-31")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !strings.Contains(out, "2 occurrences") || !strings.Contains(out, "2024-07-03 09:00-11:00") {
		t.Fatalf("unexpected output %q", out)
	}

	params := fx.backend.expandParam
	if params.Rule.Frequency != "weekly" || params.Rule.Interval != 1 {
		t.Fatalf("unexpected rule %+v", params.Rule)
	}
	if len(params.Rule.DaysOfWeek) != 2 || params.Rule.DaysOfWeek[0] != 1 || params.Rule.DaysOfWeek[1] != 3 {
		t.Fatalf("unexpected weekdays %v", params.Rule.DaysOfWeek)
	}
	if params.Rule.EndDate == nil || params.Rule.EndDate.Day() != 31 {
		t.Fatalf("unexpected end date %v", params.Rule.EndDate)
	}
	if !params.StartAt.Equal(start) {
		t.Fatalf("unexpected start %v", params.StartAt)
	}

	if _, err := fx.run(t, "expand", "--start", "tomorrow", "--end", "2024-07-01T11:00:00Z", "--frequency", "daily"); err == nil {
		t.Fatal("expected an error for a malformed start")
	}
	if _, err := fx.run(t, "expand", "--start", "2024-07-01T09:00:00Z"); err == nil {
		t.Fatal("expected an error for missing required flags")
	}
}

func TestMigrateCommand(t *testing.T) {
	t.Parallel()

	t.Run("status only", func(t *testing.T) {
		t.Parallel()
		fx := newCLIFixture()
		out, err := fx.run(t, "migrate", "--status")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if fx.store.migrated {
			t.Fatal("expected --status not to apply migrations")
		}
		if !strings.Contains(out, "1 migration pending") || !strings.Contains(out, "001 initial schema") {
			t.Fatalf("unexpected output %q", out)
		}
		if !fx.store.closed {
			t.Fatal("expected store to be closed")
		}
	})

	t.Run("apply", func(t *testing.T) {
		t.Parallel()
		fx := newCLIFixture()
		out, err := fx.run(t, "migrate", "--json")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		var report migrateReport
		if err := json.Unmarshal([]byte(out), &report); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", out, err)
		}
		if report.Applied != 1 || report.CurrentVersion != "001" || len(report.Pending) != 0 {
			t.Fatalf("unexpected report %+v", report)
		}
	})
}

func TestVersionAndUnknownCommands(t *testing.T) {
	t.Parallel()

	fx := newCLIFixture()
	out, err := fx.run(t, "version")
	if err != nil || strings.TrimSpace(out) != "1.2.3" {
		t.Fatalf("expected version output, got %q, err %v", out, err)
	}
	out, err = fx.run(t, "--version")
	if err != nil || strings.TrimSpace(out) != "1.2.3" {
		t.Fatalf("expected --version output, got %q, err %v", out, err)
	}
	if _, err := fx.run(t, "bogus"); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
	if fx.closed != 0 {
		t.Fatalf("expected no engine to be opened, got %d closes", fx.closed)
	}
}

func TestDefaultDependenciesAgainstSQLite(t *testing.T) {
	for _, key := range []string{"CAMP_REDIS_ADDR", "CAMP_AMQP_URL", "CAMP_OTEL_ENDPOINT", "CAMP_HTTP_PORT", "CAMP_LOG_LEVEL", "CAMP_MAX_SERIES_OCCURRENCES", "CAMP_EXCLUSIVE_EQUIPMENT_CATEGORIES", "CAMP_RESET_LEASE_TTL"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	t.Setenv("CAMP_NAME", "Surf Camp")
	t.Setenv("CAMP_TIMEZONE", "UTC")
	t.Setenv("CAMP_SQLITE_PATH", filepath.Join(t.TempDir(), "camp.db"))

	var logs bytes.Buffer
	run := func(args ...string) string {
		t.Helper()
		cmd := NewRootCommand(DefaultDependencies("test", &logs), "test")
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		if err := cmd.Execute(); err != nil {
			t.Fatalf("campctl %v failed: %v\nlogs: %s", args, err, logs.String())
		}
		return out.String()
	}

	var report migrateReport
	if err := json.Unmarshal([]byte(run("migrate", "--json")), &report); err != nil {
		t.Fatalf("failed to decode migrate output: %v", err)
	}
	if report.Applied == 0 || len(report.Pending) != 0 {
		t.Fatalf("unexpected migrate report %+v", report)
	}

	var reset resetReport
	if err := json.Unmarshal([]byte(run("reset-cutoffs", "--json")), &reset); err != nil {
		t.Fatalf("failed to decode reset output: %v", err)
	}
	if reset.Reset != 0 {
		t.Fatalf("expected nothing to reset on an empty camp, got %d", reset.Reset)
	}

	var occurrences []occurrenceView
	out := run("expand", "--json", "--start", "2024-07-01T09:00:00Z", "--end", "2024-07-01T11:00:00Z",
		"--frequency", "weekly", "--days", "1,3", "--count", "4")
	if err := json.Unmarshal([]byte(out), &occurrences); err != nil {
		t.Fatalf("failed to decode expand output %q: %v", out, err)
	}
	want := []string{"2024-07-01", "2024-07-03", "2024-07-08", "2024-07-10"}
	if len(occurrences) != len(want) {
		t.Fatalf("expected %d occurrences, got %+v", len(want), occurrences)
	}
	for i, date := range want {
		if occurrences[i].Date != date {
			t.Fatalf("occurrence %d: expected %s, got %s", i, date, occurrences[i].Date)
		}
	}
}
