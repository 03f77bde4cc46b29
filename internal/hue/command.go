package hue

import (
	"encoding/json"
	"errors"

	"github.com/dokzlo13/huepanel/internal/color"
)

// MaxTransitionTime caps transitions, in deciseconds.
const MaxTransitionTime = 1000

// DefaultTransitionTime is what the bridge uses when transitiontime is omitted.
const DefaultTransitionTime = 4

var (
	ErrEmptyCommand   = errors.New("command has no fields set")
	ErrNoScheduleTime = errors.New("schedule time is required")
)

// Command is a light state or group action. Nil fields are not sent.
type Command struct {
	On             *bool
	Bri            *uint8
	Hue            *uint16
	Sat            *uint8
	Xy             []float32
	TransitionTime *uint16
}

// WithColor sets the fields of the authoritative representation of s and
// clears the other one. A State with no mode leaves the command unchanged.
func (c Command) WithColor(s color.State) Command {
	if s.Mode() == color.ModeNone {
		return c
	}

	f := s.Fields()
	c.Xy = f.Xy
	c.Hue = f.Hue
	c.Sat = f.Sat
	c.Bri = f.Bri
	return c
}

// WithOn sets the power field.
func (c Command) WithOn(on bool) Command {
	c.On = &on
	return c
}

// WithBri sets the brightness field.
func (c Command) WithBri(bri uint8) Command {
	c.Bri = &bri
	return c
}

// WithTransition sets the transition in deciseconds, capped at MaxTransitionTime.
func (c Command) WithTransition(ds int) Command {
	if ds < 0 {
		ds = 0
	}
	if ds > MaxTransitionTime {
		ds = MaxTransitionTime
	}
	t := uint16(ds)
	c.TransitionTime = &t
	return c
}

// IsEmpty reports whether Body would be empty.
func (c Command) IsEmpty() bool {
	return len(c.Body()) == 0
}

// Body renders the command as the bridge expects it. Turning a light off
// drops brightness and color, which the bridge rejects for an off light.
func (c Command) Body() map[string]any {
	body := make(map[string]any)

	if c.On != nil {
		body["on"] = *c.On
	}
	off := c.On != nil && !*c.On

	if !off {
		if c.Bri != nil {
			body["bri"] = *c.Bri
		}
		if len(c.Xy) == 2 {
			body["xy"] = c.Xy
		} else if c.Hue != nil || c.Sat != nil {
			if c.Hue != nil {
				body["hue"] = *c.Hue
			}
			if c.Sat != nil {
				body["sat"] = *c.Sat
			}
		}
	}

	if c.TransitionTime != nil {
		t := *c.TransitionTime
		if t > MaxTransitionTime {
			t = MaxTransitionTime
		}
		body["transitiontime"] = t
	}

	return body
}

// MarshalJSON encodes Body.
func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Body())
}
