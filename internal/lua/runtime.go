// Package lua runs automation scripts against a bridge.
package lua

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/huepanel/internal/lua/modules"
)

// Runtime manages one Lua VM with the log, color and bridge modules
// preloaded. A Runtime is not safe for concurrent use.
type Runtime struct {
	L      *lua.LState
	lights modules.LightController
	name   string
}

// NewRuntime creates a runtime whose bridge module drives lights.
// name tags the script's log lines.
func NewRuntime(lights modules.LightController, name string) *Runtime {
	r := &Runtime{
		L:      lua.NewState(),
		lights: lights,
		name:   name,
	}
	r.registerModules()
	return r
}

// Close closes the Lua state
func (r *Runtime) Close() {
	r.L.Close()
}

// registerModules registers all Lua modules
func (r *Runtime) registerModules() {
	r.L.PreloadModule("log", modules.NewLogModule(r.name).Loader)
	r.L.PreloadModule("color", modules.NewColorModule().Loader)
	r.L.PreloadModule("bridge", modules.NewBridgeModule(r.lights).Loader)
}

// RunFile executes the script at path. Bridge calls made by the script
// use ctx; cancelling it aborts the script.
func (r *Runtime) RunFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	log.Info().Str("path", abs).Msg("Running Lua script")
	start := time.Now()

	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	if err := r.L.DoFile(abs); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().Dur("took", time.Since(start)).Msg("Lua script finished")
	return nil
}

// RunString executes src as a script chunk.
func (r *Runtime) RunString(ctx context.Context, src string) error {
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	if err := r.L.DoString(src); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}
	return nil
}
