// Package server initializes and runs the Kairos backend. It wires the
// config, logger, persistence layer, and HTTP endpoint together and handles
// graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kairosweb/kairos/internal/logging"
	"github.com/kairosweb/kairos/internal/server/config"
	"github.com/kairosweb/kairos/internal/server/httpapi"
	"github.com/kairosweb/kairos/internal/server/repositories/repomanager"
	"github.com/kairosweb/kairos/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	store  repomanager.RepositoryManager
	server *httpapi.Server
}

// NewApp connects to the store, runs migrations, and builds the HTTP server.
// Any failure here aborts startup before the process accepts traffic.
func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger()

	store, err := repomanager.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	userService := services.NewUserService(store.Users(), logger, cfg)
	profileService := services.NewProfileService(store.Users(), logger, cfg)

	server := httpapi.NewServer(cfg, logger, userService, profileService, store)

	return &App{config: cfg, logger: logger, store: store, server: server}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP until the context is cancelled or an OS signal arrives,
// then drains in-flight requests and closes the store.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "starting server",
		"addr", app.config.Addr,
		"env", app.config.Env,
		"db_type", app.config.DBType,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Listen()
	}()

	var runErr error
	select {
	case err := <-errCh:
		if err != nil {
			app.logger.Error(ctx, "server error", "error", err.Error())
			runErr = err
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err.Error())
			runErr = err
		}
	}

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "store close error", "error", err.Error())
		if runErr == nil {
			runErr = err
		}
	}

	return runErr
}
