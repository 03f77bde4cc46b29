package color

// Mode records which representation is authoritative for a light.
type Mode int

const (
	ModeNone Mode = iota
	ModeXY
	ModeHS
)

// String returns the device "colormode" tag.
func (m Mode) String() string {
	switch m {
	case ModeXY:
		return "xy"
	case ModeHS:
		return "hs"
	default:
		return ""
	}
}

// ParseMode maps a device "colormode" tag to a Mode.
// Color temperature ("ct") and unknown tags map to ModeNone.
func ParseMode(s string) Mode {
	switch s {
	case "xy":
		return ModeXY
	case "hs":
		return ModeHS
	default:
		return ModeNone
	}
}

// DefaultDisplay is shown when no representation has been set:
// the white point at zero brightness.
var DefaultDisplay = RGB{}

// State holds a light's color with exactly one authoritative representation.
//
// The xy and hs slots are independent. Setting one never derives the other,
// and only the slot named by Mode is ever read. A State belongs to a single
// edit session and is not safe for concurrent mutation.
type State struct {
	mode Mode
	xy   XY
	hs   HSB
}

// FromDevice builds a State from a light's persisted device fields.
func FromDevice(colormode string, xy []float32, hue uint16, sat, bri uint8) State {
	var s State
	switch ParseMode(colormode) {
	case ModeXY:
		if len(xy) >= 2 {
			s.SetFromXY(XY{X: float64(xy[0]), Y: float64(xy[1]), Brightness: float64(bri)})
		}
	case ModeHS:
		s.SetFromHSB(HSB{Hue: float64(hue), Saturation: float64(sat), Brightness: float64(bri)})
	}
	return s
}

// SetFromRGB converts rgb to xy and makes xy authoritative.
func (s *State) SetFromRGB(rgb RGB) {
	s.SetFromXY(RGBToXY(rgb))
}

// SetFromXY makes xy authoritative.
func (s *State) SetFromXY(xy XY) {
	s.xy = xy
	s.mode = ModeXY
}

// SetFromHSB makes hue/saturation authoritative.
func (s *State) SetFromHSB(hsb HSB) {
	s.hs = hsb
	s.mode = ModeHS
}

// Mode returns the authoritative representation.
func (s State) Mode() Mode {
	return s.mode
}

// XY returns the xy slot if it is authoritative.
func (s State) XY() (XY, bool) {
	if s.mode != ModeXY {
		return XY{}, false
	}
	return s.xy, true
}

// HSB returns the hue/saturation slot if it is authoritative.
func (s State) HSB() (HSB, bool) {
	if s.mode != ModeHS {
		return HSB{}, false
	}
	return s.hs, true
}

// RGBForDisplay converts the authoritative representation to RGB for painting
// a swatch.
func (s State) RGBForDisplay() (RGB, error) {
	switch s.mode {
	case ModeXY:
		return XYToRGB(s.xy)
	case ModeHS:
		return HSBToRGB(s.hs), nil
	default:
		return DefaultDisplay, nil
	}
}

// Fields are the canonical command fields for a State. Exactly one of Xy or
// Hue/Sat is set, never both.
type Fields struct {
	Xy  []float32
	Hue *uint16
	Sat *uint8
	Bri *uint8
}

// Fields returns the command fields of the authoritative representation.
func (s State) Fields() Fields {
	switch s.mode {
	case ModeXY:
		bri := s.xy.Bri()
		return Fields{Xy: s.xy.Pair(), Bri: &bri}
	case ModeHS:
		hue, sat, bri := s.hs.DeviceHue(), s.hs.DeviceSat(), s.hs.Bri()
		return Fields{Hue: &hue, Sat: &sat, Bri: &bri}
	default:
		return Fields{}
	}
}
