package hue

import (
	"strings"

	"github.com/amimof/huego"

	"github.com/dokzlo13/huepanel/internal/color"
)

// BridgeInfo is the subset of the bridge config shown to users
type BridgeInfo struct {
	Name       string `json:"name"`
	BridgeID   string `json:"bridgeid"`
	ModelID    string `json:"modelid"`
	SwVersion  string `json:"swversion"`
	APIVersion string `json:"apiversion"`
	IPAddress  string `json:"ipaddress"`
}

// Light represents a light and its current state (v1 API)
type Light struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	ModelID     string    `json:"modelid"`
	ProductName string    `json:"productname"`
	On          bool      `json:"on"`
	Bri         uint8     `json:"bri"`
	Reachable   bool      `json:"reachable"`
	ColorMode   string    `json:"colormode"`
	Xy          []float32 `json:"xy"`
	Hue         uint16    `json:"hue"`
	Sat         uint8     `json:"sat"`
	Ct          uint16    `json:"ct"`
}

// SupportsColor reports whether the light accepts xy and hue/sat.
func (l Light) SupportsColor() bool {
	return strings.Contains(strings.ToLower(l.Type), "color light")
}

// Color returns the light's current color.
func (l Light) Color() color.State {
	return color.FromDevice(l.ColorMode, l.Xy, l.Hue, l.Sat, l.Bri)
}

func lightFromHuego(h huego.Light) Light {
	l := Light{
		ID:          h.ID,
		Name:        h.Name,
		Type:        h.Type,
		ModelID:     h.ModelID,
		ProductName: h.ProductName,
	}
	if s := h.State; s != nil {
		l.On = s.On
		l.Bri = s.Bri
		l.Reachable = s.Reachable
		l.ColorMode = s.ColorMode
		l.Xy = s.Xy
		l.Hue = s.Hue
		l.Sat = s.Sat
		l.Ct = s.Ct
	}
	return l
}

// Group represents a group with its last action (v1 API)
type Group struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Class     string    `json:"class"`
	Lights    []string  `json:"lights"`
	AllOn     bool      `json:"all_on"`
	AnyOn     bool      `json:"any_on"`
	On        bool      `json:"on"`
	Bri       uint8     `json:"bri"`
	ColorMode string    `json:"colormode"`
	Xy        []float32 `json:"xy"`
	Hue       uint16    `json:"hue"`
	Sat       uint8     `json:"sat"`
}

// Color returns the color of the group's last action.
func (g Group) Color() color.State {
	return color.FromDevice(g.ColorMode, g.Xy, g.Hue, g.Sat, g.Bri)
}

// HasLight reports whether the light id is a member.
func (g Group) HasLight(id string) bool {
	for _, l := range g.Lights {
		if l == id {
			return true
		}
	}
	return false
}

func groupFromHuego(h huego.Group) Group {
	g := Group{
		ID:     h.ID,
		Name:   h.Name,
		Type:   h.Type,
		Class:  h.Class,
		Lights: h.Lights,
	}
	if gs := h.GroupState; gs != nil {
		g.AllOn = gs.AllOn
		g.AnyOn = gs.AnyOn
	}
	if s := h.State; s != nil {
		g.On = s.On
		g.Bri = s.Bri
		g.ColorMode = s.ColorMode
		g.Xy = s.Xy
		g.Hue = s.Hue
		g.Sat = s.Sat
	}
	return g
}

// Schedule represents a bridge schedule (v1 API)
type Schedule struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	LocalTime   string `json:"localtime"`
	Status      string `json:"status"`
	Method      string `json:"method"`
	Address     string `json:"address"`
}

func scheduleFromHuego(h huego.Schedule) Schedule {
	s := Schedule{
		ID:          h.ID,
		Name:        h.Name,
		Description: h.Description,
		LocalTime:   h.LocalTime,
		Status:      h.Status,
	}
	if s.LocalTime == "" {
		s.LocalTime = h.Time
	}
	if c := h.Command; c != nil {
		s.Method = c.Method
		s.Address = c.Address
	}
	return s
}

// DiscoveredBridge is a bridge found on the local network
type DiscoveredBridge struct {
	ID      string `json:"id"`
	Address string `json:"internalipaddress"`
}
