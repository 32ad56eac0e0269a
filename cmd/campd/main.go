package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sevenpast/campcore/internal/bootstrap"
	"github.com/sevenpast/campcore/internal/config"
	httptransport "github.com/sevenpast/campcore/internal/http"
	"github.com/sevenpast/campcore/internal/logging"
)

var version = "dev"

func main() {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger = logging.NewJSONLogger(os.Stdout, level)

	rt, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{ServiceName: "campd", Version: version})
	if err != nil {
		logger.Error("failed to start camp engine", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := rt.Close(closeCtx); cerr != nil {
			logger.Error("failed to release resources", "error", cerr)
		}
	}()

	server := newServer(fmt.Sprintf(":%d", cfg.HTTPPort), newHandler(rt))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("camp API listening", "addr", server.Addr, "camp_name", cfg.CampName, "version", version)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func newHandler(rt *bootstrap.Runtime) http.Handler {
	logger := rt.Logger
	facade := rt.Facade
	return httptransport.NewRouter(httptransport.RouterConfig{
		Catalog:     httptransport.NewCatalogHandler(facade.Catalog, logger),
		Assignments: httptransport.NewAssignmentHandler(facade, logger),
		Commitments: httptransport.NewCommitmentHandler(facade, logger),
		Bookings:    httptransport.NewBookingHandler(facade, time.Now, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.ActorFromHeader,
		},
	})
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
