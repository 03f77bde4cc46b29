package web

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dokzlo13/huepanel/internal/color"
	"github.com/dokzlo13/huepanel/internal/hue"
)

// optFloat parses an optional number. An empty or missing field is unset,
// which is distinct from zero.
func optFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := strings.TrimSpace(formValue(c, key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s: not a number", key))
	}
	return &v, nil
}

func optInt(c *fiber.Ctx, key string, lo, hi int) (*int, error) {
	raw := strings.TrimSpace(formValue(c, key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s: not an integer", key))
	}
	if v < lo || v > hi {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s: must be between %d and %d", key, lo, hi))
	}
	return &v, nil
}

func requireFloat(c *fiber.Ctx, key string) (float64, error) {
	v, err := optFloat(c, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s: required", key))
	}
	return *v, nil
}

// formValue reads a form field, falling back to the query string so the
// same parsers serve GET previews.
func formValue(c *fiber.Ctx, key string) string {
	if v := c.FormValue(key); v != "" {
		return v
	}
	return c.Query(key)
}

// parseColor builds a fresh color.State from the explicit mode field and
// the fields of that mode. An empty mode means no color change. In xy and hs
// mode brightness takes priority over the bri field; with neither set the
// color is at full brightness.
func parseColor(c *fiber.Ctx, brightness *int) (color.State, error) {
	var s color.State

	switch mode := strings.ToLower(formValue(c, "mode")); mode {
	case "", "none":
		return s, nil

	case "rgb":
		var rgb color.RGB
		var err error
		if rgb.R, err = requireFloat(c, "r"); err != nil {
			return s, err
		}
		if rgb.G, err = requireFloat(c, "g"); err != nil {
			return s, err
		}
		if rgb.B, err = requireFloat(c, "b"); err != nil {
			return s, err
		}
		s.SetFromRGB(rgb)

	case "xy":
		var xy color.XY
		var err error
		if xy.X, err = requireFloat(c, "x"); err != nil {
			return s, err
		}
		if xy.Y, err = requireFloat(c, "y"); err != nil {
			return s, err
		}
		bri, err := optFloat(c, "bri")
		if err != nil {
			return s, err
		}
		xy.Brightness = colorBrightness(brightness, bri)
		// reject what could never be displayed
		if _, err := color.XYToRGB(xy); err != nil {
			return s, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		s.SetFromXY(xy)

	case "hs":
		var hsb color.HSB
		var err error
		if hsb.Hue, err = requireFloat(c, "hue"); err != nil {
			return s, err
		}
		if hsb.Saturation, err = requireFloat(c, "sat"); err != nil {
			return s, err
		}
		bri, err := optFloat(c, "bri")
		if err != nil {
			return s, err
		}
		hsb.Brightness = colorBrightness(brightness, bri)
		s.SetFromHSB(hsb)

	default:
		return s, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown color mode %q", mode))
	}

	return s, nil
}

func colorBrightness(brightness *int, bri *float64) float64 {
	switch {
	case brightness != nil:
		return float64(*brightness)
	case bri != nil:
		return *bri
	default:
		return color.MaxBrightness
	}
}

// parseCommand builds a command from the power, brightness, color and
// transition fields. Fields left empty are not sent.
func (s *Server) parseCommand(c *fiber.Ctx) (hue.Command, error) {
	var cmd hue.Command

	switch strings.ToLower(formValue(c, "on")) {
	case "":
	case "on", "1", "true":
		cmd = cmd.WithOn(true)
	case "off", "0", "false":
		cmd = cmd.WithOn(false)
	default:
		return cmd, fiber.NewError(fiber.StatusBadRequest, "on: expected on or off")
	}

	bri, err := optInt(c, "brightness", 0, color.MaxBrightness)
	if err != nil {
		return cmd, err
	}
	col, err := parseColor(c, bri)
	if err != nil {
		return cmd, err
	}
	cmd = cmd.WithColor(col)
	// an rgb color carries its own brightness; an explicit one wins
	if bri != nil {
		cmd = cmd.WithBri(uint8(*bri))
	}

	transition, err := optInt(c, "transition", 0, hue.MaxTransitionTime)
	if err != nil {
		return cmd, err
	}
	if transition != nil {
		cmd = cmd.WithTransition(*transition)
	} else if !cmd.IsEmpty() && s.opts.DefaultTransition != hue.DefaultTransitionTime {
		cmd = cmd.WithTransition(s.opts.DefaultTransition)
	}

	if cmd.IsEmpty() {
		return cmd, fiber.NewError(fiber.StatusBadRequest, "nothing to change")
	}
	return cmd, nil
}

// parseLightIDs reads the checked "lights" boxes.
func parseLightIDs(c *fiber.Ctx) ([]string, error) {
	form, err := c.MultipartForm()
	var values []string
	if err == nil && form != nil {
		values = form.Value["lights"]
	} else {
		values = queryArgs(c.Request().PostArgs().PeekMulti("lights"))
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, err := strconv.Atoi(v); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("lights: invalid id %q", v))
		}
		ids = append(ids, v)
	}
	return ids, nil
}

func queryArgs(raw [][]byte) []string {
	out := make([]string, 0, len(raw))
	for _, b := range raw {
		out = append(out, string(b))
	}
	return out
}

const scheduleInputLayout = "2006-01-02T15:04"

// parseScheduleTime combines the date and time inputs in local time. The
// moment must lie in the future.
func parseScheduleTime(c *fiber.Ctx, now time.Time) (time.Time, error) {
	date := strings.TrimSpace(c.FormValue("date"))
	clock := strings.TrimSpace(c.FormValue("time"))
	if date == "" || clock == "" {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "date and time are required")
	}

	at, err := time.ParseInLocation(scheduleInputLayout, date+"T"+clock, time.Local)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "invalid date or time")
	}
	if !at.After(now) {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "schedule time must be in the future")
	}
	return at, nil
}
