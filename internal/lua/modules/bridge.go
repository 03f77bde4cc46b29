package modules

import (
	"context"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/huepanel/internal/color"
	"github.com/dokzlo13/huepanel/internal/hue"
)

// LightController is the part of hue.Client the bridge module drives.
type LightController interface {
	Lights(ctx context.Context) ([]hue.Light, error)
	SetLightState(ctx context.Context, id int, cmd hue.Command) error
}

// BridgeModule provides bridge.* functions to Lua.
//
// Functions that talk to the bridge return (result, err):
//
//	local lights, err = bridge.lights()
//	if err then
//	    log.error("bridge unreachable", { err = err })
//	    return
//	end
//	for _, l in ipairs(lights) do
//	    if l.color then bridge.set_rgb(l.id, 255, 80, 0, 20) end
//	end
//
// Color setters turn the light on. The optional last argument of every
// setter is the transition in deciseconds.
type BridgeModule struct {
	lights LightController
}

// NewBridgeModule creates a new bridge module
func NewBridgeModule(lights LightController) *BridgeModule {
	return &BridgeModule{lights: lights}
}

// Loader is the module loader for Lua
func (m *BridgeModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "lights", L.NewFunction(m.getLights))
	L.SetField(mod, "set_rgb", L.NewFunction(m.setRGB))
	L.SetField(mod, "set_xy", L.NewFunction(m.setXY))
	L.SetField(mod, "set_hs", L.NewFunction(m.setHS))
	L.SetField(mod, "set_on", L.NewFunction(m.setOn))

	L.Push(mod)
	return 1
}

func luaContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// getLights() -> ({ {id, name, type, on, bri, reachable, mode, hex, color}, ... }, err)
func (m *BridgeModule) getLights(L *lua.LState) int {
	lights, err := m.lights.Lights(luaContext(L))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list lights from script")
		return pushError(L, err)
	}

	tbl := L.NewTable()
	for i, l := range lights {
		state := l.Color()
		rgb, err := state.RGBForDisplay()
		if err != nil {
			rgb = color.DefaultDisplay
		}

		lt := L.NewTable()
		L.SetField(lt, "id", lua.LNumber(l.ID))
		L.SetField(lt, "name", lua.LString(l.Name))
		L.SetField(lt, "type", lua.LString(l.Type))
		L.SetField(lt, "on", lua.LBool(l.On))
		L.SetField(lt, "bri", lua.LNumber(l.Bri))
		L.SetField(lt, "reachable", lua.LBool(l.Reachable))
		L.SetField(lt, "mode", lua.LString(state.Mode().String()))
		L.SetField(lt, "hex", lua.LString(rgb.Hex()))
		L.SetField(lt, "color", lua.LBool(l.SupportsColor()))
		tbl.RawSetInt(i+1, lt)
	}

	L.Push(tbl)
	L.Push(lua.LNil)
	return 2
}

// withTransition applies the optional transition argument at position n.
func withTransition(L *lua.LState, n int, cmd hue.Command) hue.Command {
	if L.Get(n) == lua.LNil {
		return cmd
	}
	return cmd.WithTransition(L.CheckInt(n))
}

func (m *BridgeModule) send(L *lua.LState, id int, cmd hue.Command) int {
	if err := m.lights.SetLightState(luaContext(L), id, cmd); err != nil {
		log.Error().Err(err).Int("light", id).Msg("Script light command failed")
		return pushError(L, err)
	}
	L.Push(lua.LTrue)
	L.Push(lua.LNil)
	return 2
}

// setRGB(id, r, g, b, transition?) -> (ok, err)
func (m *BridgeModule) setRGB(L *lua.LState) int {
	id := checkID(L, 1)
	var state color.State
	state.SetFromRGB(checkRGB(L, 2))

	cmd := hue.Command{}.WithOn(true).WithColor(state)
	return m.send(L, id, withTransition(L, 5, cmd))
}

// setXY(id, x, y, bri?, transition?) -> (ok, err)
func (m *BridgeModule) setXY(L *lua.LState) int {
	id := checkID(L, 1)
	xy := color.XY{
		X:          float64(L.CheckNumber(2)),
		Y:          float64(L.CheckNumber(3)),
		Brightness: float64(L.OptNumber(4, color.MaxBrightness)),
	}
	if _, err := color.XYToRGB(xy); err != nil {
		return pushError(L, err)
	}
	var state color.State
	state.SetFromXY(xy)

	cmd := hue.Command{}.WithOn(true).WithColor(state)
	return m.send(L, id, withTransition(L, 5, cmd))
}

// setHS(id, hue, sat, bri?, transition?) -> (ok, err)
func (m *BridgeModule) setHS(L *lua.LState) int {
	id := checkID(L, 1)
	var state color.State
	state.SetFromHSB(color.HSB{
		Hue:        float64(L.CheckNumber(2)),
		Saturation: float64(L.CheckNumber(3)),
		Brightness: float64(L.OptNumber(4, color.MaxBrightness)),
	})

	cmd := hue.Command{}.WithOn(true).WithColor(state)
	return m.send(L, id, withTransition(L, 5, cmd))
}

// setOn(id, on, transition?) -> (ok, err)
func (m *BridgeModule) setOn(L *lua.LState) int {
	id := checkID(L, 1)
	cmd := hue.Command{}.WithOn(L.CheckBool(2))
	return m.send(L, id, withTransition(L, 3, cmd))
}
