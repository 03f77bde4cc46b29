package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huepanel/internal/account"
	"github.com/dokzlo13/huepanel/internal/config"
	"github.com/dokzlo13/huepanel/internal/hue"
	"github.com/dokzlo13/huepanel/internal/ledger"
	"github.com/dokzlo13/huepanel/internal/session"
	"github.com/dokzlo13/huepanel/internal/web"
)

// WebService wraps the web UI server.
type WebService struct {
	cfg    *config.Config
	server *web.Server
	done   chan struct{}
}

// NewWebService creates a new WebService. Every bridge client it hands out
// records its writes in the ledger and shares its bridge's write limiter.
func NewWebService(cfg *config.Config, accounts *account.Store, sessions *session.Manager, l *ledger.Ledger, limiters *hue.Limiters) *WebService {
	timeout := cfg.Hue.Timeout.Duration()

	server := web.NewServer(web.Options{
		Addr:         cfg.Server.Addr(),
		CookieSecure: cfg.Server.CookieSecure,
		Accounts:     accounts,
		Sessions:     sessions,
		History:      l,
		Dial: func(b account.Bridge) web.Bridge {
			return hue.NewClient(b.Address(), b.Username, timeout).
				WithRecorder(l).
				WithLimiter(limiters.For(b.Address()))
		},
		Register: func(ctx context.Context, address, deviceType string) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return hue.Register(ctx, address, deviceType)
		},
		Discover:          hue.Discover,
		DeviceType:        cfg.Hue.DeviceType,
		DefaultTransition: cfg.Hue.DefaultTransition,
	})

	return &WebService{
		cfg:    cfg,
		server: server,
	}
}

// Start runs the web server in the background until ctx is cancelled.
// A listen failure is passed to onFatalError.
func (s *WebService) Start(ctx context.Context, onFatalError func(error)) {
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.server.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
			log.Error().Err(err).Msg("Web server error")
			onFatalError(err)
		}
	}()
}

// Stop waits until the server has stopped and in-flight requests have
// finished. The context given to Start must be cancelled first.
func (s *WebService) Stop() {
	if s.done != nil {
		<-s.done
	}
}
