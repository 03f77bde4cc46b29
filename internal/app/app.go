// Package app wires the panel's stores, web server and maintenance jobs
// into one process.
package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huepanel/internal/config"
)

// App is one huepanel process: either the web panel or a one-off script run.
type App struct {
	cfg      *config.Config
	services *Services
}

// New opens the database and account store. Nothing runs until Serve or
// RunScript is called.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, services: services}, nil
}

// Serve runs the panel until ctx is cancelled or the listener fails. The web
// server drains before the database is closed. A listener failure is
// returned; a plain cancellation is not an error.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	err := a.services.Start(ctx, func(err error) {
		log.Error().Err(err).Msg("Web server failed, stopping panel")
		cancel(err)
	})
	if err != nil {
		a.services.Close()
		return err
	}
	log.Info().
		Str("addr", a.cfg.Server.Addr()).
		Str("accounts", a.cfg.Accounts.Dir).
		Str("database", a.cfg.Database.Path).
		Msg("Panel is up")

	<-ctx.Done()
	log.Info().Msg("Stopping panel")

	stopErr := a.services.Stop()
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return stopErr
}

// RunScript runs a Lua script against the configured default bridge and
// releases the database afterwards.
func (a *App) RunScript(ctx context.Context, path string) error {
	defer a.services.Close()
	return a.services.Script.Run(ctx, path)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
