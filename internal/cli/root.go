// Package cli implements campctl, the operator command line for the camp
// engine. Scheduled jobs such as the nightly cutoff reset are triggered
// through it.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevenpast/campcore/internal/application"
	"github.com/sevenpast/campcore/internal/bootstrap"
	"github.com/sevenpast/campcore/internal/config"
	"github.com/sevenpast/campcore/internal/logging"
	"github.com/sevenpast/campcore/internal/persistence/sqlite/migration"
	"github.com/sevenpast/campcore/internal/recurrence"
	"github.com/sevenpast/campcore/internal/trigger"
)

// Backend is the part of the application facade driven from the command line.
type Backend interface {
	ResetCutoffs(ctx context.Context, filter application.ResetFilter) (int, error)
	ReconcileOccupancy(ctx context.Context) (application.ReconcileResult, error)
	ExpandRecurrence(ctx context.Context, params application.ExpandRecurrenceParams) ([]recurrence.Occurrence, error)
}

// MigrationStore applies and reports schema migrations.
type MigrationStore interface {
	Migrate(ctx context.Context) (int, error)
	MigrationStatus(ctx context.Context) (migration.Status, error)
	Close() error
}

// Session is an opened engine. Close must be called when the command ends.
type Session struct {
	Backend Backend
	Guard   trigger.Guard
	Close   func() error
}

// Dependencies open the engine on demand so that commands such as version and
// help never touch configuration or storage.
type Dependencies struct {
	Open      func(ctx context.Context) (*Session, error)
	OpenStore func(ctx context.Context) (MigrationStore, error)
}

const (
	groupJobs  = "jobs"
	groupTools = "tools"
)

type rootOptions struct {
	deps       Dependencies
	jsonOutput bool
}

// NewRootCommand builds the campctl command tree.
func NewRootCommand(deps Dependencies, version string) *cobra.Command {
	if version == "" {
		version = "dev"
	}
	opts := &rootOptions{deps: deps}

	root := &cobra.Command{
		Use:     "campctl",
		Version: version,
		Short:   "Operate the camp scheduling engine",
		Long: `campctl runs maintenance jobs against the camp database.

Cutoff resets and occupancy reconciliation are meant to be triggered by cron or
a scheduler. When CAMP_REDIS_ADDR is set, concurrent runs of the same job are
collapsed into one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	root.AddGroup(&cobra.Group{ID: groupJobs, Title: "Jobs:"})
	root.AddGroup(&cobra.Group{ID: groupTools, Title: "Tools:"})

	root.AddCommand(
		newResetCutoffsCommand(opts),
		newReconcileCommand(opts),
		newExpandCommand(opts),
		newMigrateCommand(opts),
		&cobra.Command{
			Use:     "version",
			Short:   "Print the campctl version",
			Args:    cobra.NoArgs,
			GroupID: groupTools,
			Run: func(cmd *cobra.Command, args []string) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

// Execute runs campctl with the production dependencies.
func Execute(version string) error {
	return NewRootCommand(DefaultDependencies(version, os.Stderr), version).Execute()
}

// DefaultDependencies load configuration from the environment and assemble the
// engine through bootstrap. Logs go to logOutput.
func DefaultDependencies(version string, logOutput io.Writer) Dependencies {
	return Dependencies{
		Open: func(ctx context.Context) (*Session, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			level, _ := logging.ParseLevel(cfg.LogLevel)
			rt, err := bootstrap.Build(ctx, cfg, logging.NewJSONLogger(logOutput, level), bootstrap.Options{ServiceName: "campctl", Version: version})
			if err != nil {
				return nil, err
			}
			return &Session{
				Backend: rt.Facade,
				Guard:   rt.Guard,
				Close:   func() error { return rt.Close(context.WithoutCancel(ctx)) },
			}, nil
		},
		OpenStore: func(ctx context.Context) (MigrationStore, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			level, _ := logging.ParseLevel(cfg.LogLevel)
			store, err := bootstrap.OpenStore(cfg, logging.NewJSONLogger(logOutput, level))
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	}
}

func (o *rootOptions) open(ctx context.Context) (*Session, error) {
	if o.deps.Open == nil {
		return nil, fmt.Errorf("campctl: engine is not configured")
	}
	session, err := o.deps.Open(ctx)
	if err != nil {
		return nil, err
	}
	if session.Guard == nil {
		session.Guard = trigger.LocalGuard{}
	}
	if session.Close == nil {
		session.Close = func() error { return nil }
	}
	return session, nil
}
