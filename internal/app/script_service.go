package app

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/dokzlo13/huepanel/internal/config"
	"github.com/dokzlo13/huepanel/internal/hue"
	"github.com/dokzlo13/huepanel/internal/ledger"
	luart "github.com/dokzlo13/huepanel/internal/lua"
)

// ErrNoDefaultBridge is returned when a script is run without hue.bridge and hue.token.
var ErrNoDefaultBridge = errors.New("hue.bridge and hue.token must be set to run scripts")

// ScriptService runs Lua scripts against the configured default bridge.
type ScriptService struct {
	cfg      *config.Config
	ledger   *ledger.Ledger
	limiters *hue.Limiters
}

// NewScriptService creates a new ScriptService.
func NewScriptService(cfg *config.Config, l *ledger.Ledger, limiters *hue.Limiters) *ScriptService {
	return &ScriptService{cfg: cfg, ledger: l, limiters: limiters}
}

// Run executes the script at path. Bridge writes are recorded in the ledger
// with the actor "script:<file name>".
func (s *ScriptService) Run(ctx context.Context, path string) error {
	if s.cfg.Hue.Bridge == "" || s.cfg.Hue.Token == "" {
		return ErrNoDefaultBridge
	}

	client := hue.NewClient(s.cfg.Hue.Bridge, s.cfg.Hue.Token, s.cfg.Hue.Timeout.Duration()).WithRecorder(s.ledger)
	client.WithLimiter(s.limiters.For(client.Address()))
	defer client.Close()

	name := filepath.Base(path)
	runtime := luart.NewRuntime(client, name)
	defer runtime.Close()

	return runtime.RunFile(ledger.WithActor(ctx, "script:"+name), path)
}
