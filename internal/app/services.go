package app

import (
	"context"
	"fmt"

	"github.com/dokzlo13/huepanel/internal/account"
	"github.com/dokzlo13/huepanel/internal/config"
	"github.com/dokzlo13/huepanel/internal/db"
	"github.com/dokzlo13/huepanel/internal/hue"
	"github.com/dokzlo13/huepanel/internal/ledger"
	"github.com/dokzlo13/huepanel/internal/session"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB       *db.DB
	Ledger   *ledger.Ledger
	Accounts *account.Store
	Sessions *session.Manager

	// High-level services
	Web         *WebService
	Maintenance *MaintenanceService
	Script      *ScriptService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	// Initialize ledger
	s.Ledger = ledger.New(database.DB)

	s.Accounts, err = account.NewStore(cfg.Accounts.Dir, cfg.Accounts.BcryptCost)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open account store: %w", err)
	}

	s.Sessions, err = session.NewManager(session.NewSQLiteStore(database.DB), cfg.Session.Secret, cfg.Session.TTL.Duration())
	if err != nil {
		s.Close()
		return nil, err
	}

	limiters := hue.NewLimiters(cfg.Hue.RateLimitRPS)

	s.Web = NewWebService(cfg, s.Accounts, s.Sessions, s.Ledger, limiters)
	s.Maintenance = NewMaintenanceService(cfg, s.Ledger, s.Sessions)
	s.Script = NewScriptService(cfg, s.Ledger, limiters)

	return s, nil
}

// Start starts all background services.
// The onFatalError callback is called when the web server cannot keep running.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	s.Maintenance.Start(ctx)
	s.Web.Start(ctx, onFatalError)
	return nil
}

// Stop waits for the web server and cleanup loops to exit, then closes the
// database. The context given to Start must be cancelled first.
func (s *Services) Stop() error {
	if s.Web != nil {
		s.Web.Stop()
	}
	if s.Maintenance != nil {
		s.Maintenance.Stop()
	}
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}
