package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huepanel/internal/config"
	"github.com/dokzlo13/huepanel/internal/ledger"
	"github.com/dokzlo13/huepanel/internal/session"
)

const sessionCleanupInterval = 10 * time.Minute

// MaintenanceService purges expired sessions and old ledger entries.
type MaintenanceService struct {
	cfg      *config.Config
	ledger   *ledger.Ledger
	sessions *session.Manager
	done     chan struct{}
}

// NewMaintenanceService creates a new MaintenanceService.
func NewMaintenanceService(cfg *config.Config, l *ledger.Ledger, sessions *session.Manager) *MaintenanceService {
	return &MaintenanceService{
		cfg:      cfg,
		ledger:   l,
		sessions: sessions,
	}
}

// Start starts the cleanup loops.
func (s *MaintenanceService) Start(ctx context.Context) {
	s.sessions.StartCleanup(ctx, sessionCleanupInterval)

	s.done = make(chan struct{})
	go s.runLedgerCleanup(ctx)
}

// Stop stops the session cleanup goroutine and waits for the ledger loop.
func (s *MaintenanceService) Stop() {
	s.sessions.StopCleanup()
	if s.done != nil {
		<-s.done
	}
}

// runLedgerCleanup periodically cleans up old ledger entries.
func (s *MaintenanceService) runLedgerCleanup(ctx context.Context) {
	defer close(s.done)

	retention := s.cfg.Ledger.Retention()
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}
