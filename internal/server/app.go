// Package server initializes and runs the storysync application server.
// It wires the local and remote stores into the settings and reconciler
// services, exposes them over HTTP and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akarpov87/storysync/internal/localstore"
	"github.com/akarpov87/storysync/internal/logging"
	"github.com/akarpov87/storysync/internal/reconciler"
	"github.com/akarpov87/storysync/internal/remote"
	"github.com/akarpov87/storysync/internal/server/api"
	"github.com/akarpov87/storysync/internal/server/config"
	"github.com/akarpov87/storysync/internal/settings"
	"github.com/gin-gonic/gin"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	handler  *api.Handler
	localDB  *sql.DB
	remoteDB *sql.DB
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	kv, localDB, err := localstore.Open(ctx, cfg.LocalDSN)
	if err != nil {
		return nil, fmt.Errorf("local store init error: %w", err)
	}

	store, remoteDB, err := remote.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		_ = localDB.Close()
		return nil, fmt.Errorf("remote store init error: %w", err)
	}

	ss := settings.NewService(store, logger, cfg.SettingsTTL)
	rs := reconciler.NewService(kv, store, logger)

	return &App{
		config:   cfg,
		logger:   logger,
		handler:  api.NewHandler(ss, rs, logger),
		localDB:  localDB,
		remoteDB: remoteDB,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	router := gin.New()
	router.Use(gin.Recovery())
	app.handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	case err := <-errCh:
		app.logger.Error(ctx, "HTTP server error", "error", err)
		return err
	}

	app.close(ctx)
	return nil
}

func (app *App) close(ctx context.Context) {
	if err := app.localDB.Close(); err != nil {
		app.logger.Error(ctx, "local db close error", "error", err)
	}
	if err := app.remoteDB.Close(); err != nil {
		app.logger.Error(ctx, "remote db close error", "error", err)
	}
}
