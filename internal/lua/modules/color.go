package modules

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/huepanel/internal/color"
)

// ColorModule exposes the color conversions to Lua.
//
//	local x, y, bri = color.rgb_to_xy(255, 120, 0)
//	local r, g, b = color.xy_to_rgb(x, y, bri)
//	local r, g, b = color.hsb_to_rgb(21760, 255, 254)
//
// xy_to_rgb raises an error for y <= 0; wrap it in pcall to recover.
type ColorModule struct{}

// NewColorModule creates a new color module
func NewColorModule() *ColorModule {
	return &ColorModule{}
}

// Loader is the module loader for Lua
func (m *ColorModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "rgb_to_xy", L.NewFunction(m.rgbToXY))
	L.SetField(mod, "xy_to_rgb", L.NewFunction(m.xyToRGB))
	L.SetField(mod, "hsb_to_rgb", L.NewFunction(m.hsbToRGB))
	L.SetField(mod, "hex", L.NewFunction(m.hex))

	L.Push(mod)
	return 1
}

func checkRGB(L *lua.LState, n int) color.RGB {
	return color.RGB{
		R: float64(L.CheckNumber(n)),
		G: float64(L.CheckNumber(n + 1)),
		B: float64(L.CheckNumber(n + 2)),
	}
}

func pushRGB(L *lua.LState, c color.RGB) int {
	L.Push(lua.LNumber(c.R))
	L.Push(lua.LNumber(c.G))
	L.Push(lua.LNumber(c.B))
	return 3
}

func (m *ColorModule) rgbToXY(L *lua.LState) int {
	xy := color.RGBToXY(checkRGB(L, 1))
	L.Push(lua.LNumber(xy.X))
	L.Push(lua.LNumber(xy.Y))
	L.Push(lua.LNumber(xy.Brightness))
	return 3
}

func (m *ColorModule) xyToRGB(L *lua.LState) int {
	rgb, err := color.XYToRGB(color.XY{
		X:          float64(L.CheckNumber(1)),
		Y:          float64(L.CheckNumber(2)),
		Brightness: float64(L.OptNumber(3, color.MaxBrightness)),
	})
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	return pushRGB(L, rgb)
}

func (m *ColorModule) hsbToRGB(L *lua.LState) int {
	return pushRGB(L, color.HSBToRGB(color.HSB{
		Hue:        float64(L.CheckNumber(1)),
		Saturation: float64(L.CheckNumber(2)),
		Brightness: float64(L.OptNumber(3, color.MaxBrightness)),
	}))
}

func (m *ColorModule) hex(L *lua.LState) int {
	L.Push(lua.LString(checkRGB(L, 1).Hex()))
	return 1
}
