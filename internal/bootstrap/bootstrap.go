// Package bootstrap assembles the camp engine from configuration: storage,
// event publishing, tracing, the reset lease guard and the application facade.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sevenpast/campcore/internal/application"
	"github.com/sevenpast/campcore/internal/config"
	"github.com/sevenpast/campcore/internal/events"
	"github.com/sevenpast/campcore/internal/persistence/sqlite"
	"github.com/sevenpast/campcore/internal/persistence/sqlite/migration"
	"github.com/sevenpast/campcore/internal/telemetry"
	"github.com/sevenpast/campcore/internal/trigger"
)

// Options identify the process being assembled.
type Options struct {
	ServiceName string
	Version     string
}

// Runtime holds the assembled collaborators. Close releases them in reverse
// order of acquisition.
type Runtime struct {
	Config config.Config
	Logger *slog.Logger
	Store  *sqlite.Store
	Facade *application.Facade
	Guard  trigger.Guard

	closers []func(context.Context) error
}

// OpenStore opens the SQLite database named by cfg without applying migrations.
func OpenStore(cfg config.Config, logger *slog.Logger) (*sqlite.Store, error) {
	store, err := sqlite.OpenWithConfig(migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return store, nil
}

// Build opens and migrates the store, wires optional infrastructure and makes
// sure the camp record exists. Redis, RabbitMQ and OTLP are only contacted when
// their settings are present.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (rt *Runtime, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt = &Runtime{Config: cfg, Logger: logger, Guard: trigger.LocalGuard{}}
	defer func() {
		if err != nil {
			if cerr := rt.Close(context.WithoutCancel(ctx)); cerr != nil {
				logger.Warn("failed to release partially built runtime", "error", cerr)
			}
			rt = nil
		}
	}()

	shutdownTracing, err := telemetry.Setup(ctx, opts.ServiceName, opts.Version, cfg.OTelEndpoint)
	if err != nil {
		return rt, fmt.Errorf("setup tracing: %w", err)
	}
	rt.closers = append(rt.closers, shutdownTracing)

	store, err := OpenStore(cfg, logger)
	if err != nil {
		return rt, err
	}
	rt.Store = store
	rt.closers = append(rt.closers, func(context.Context) error { return store.Close() })

	applied, err := store.Migrate(ctx)
	if err != nil {
		return rt, fmt.Errorf("apply migrations: %w", err)
	}
	if applied > 0 {
		logger.Info("applied schema migrations", "count", applied)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsExchange, logger)
		rt.closers = append(rt.closers, func(context.Context) error { return amqpPublisher.Close() })
		publisher = amqpPublisher
	}

	if cfg.RedisAddr != "" {
		client, err := trigger.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return rt, err
		}
		rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
		rt.Guard = trigger.NewRedisGuard(client, "", cfg.ResetLeaseTTL, logger)
	}

	rt.Facade = application.NewFacade(application.FacadeConfig{
		Store: store,
		Scheduling: application.SchedulingPolicy{
			Location:             cfg.Location,
			MaxSeriesOccurrences: cfg.MaxSeriesOccurrences,
		},
		Assignment:  application.AssignmentPolicy{ExclusiveCategories: cfg.ExclusiveEquipmentCategories},
		IDGenerator: uuid.NewString,
		Logger:      logger,
		Publisher:   publisher,
	})

	if _, err := rt.Facade.EnsureCamp(ctx, cfg.CampName, cfg.Timezone); err != nil {
		return rt, fmt.Errorf("ensure camp: %w", err)
	}
	return rt, nil
}

// Close releases everything Build acquired.
func (r *Runtime) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
