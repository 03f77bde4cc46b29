package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dokzlo13/huepanel/internal/color"
)

type previewFields struct {
	Xy  []float32 `json:"xy,omitempty"`
	Hue *uint16   `json:"hue,omitempty"`
	Sat *uint8    `json:"sat,omitempty"`
	Bri *uint8    `json:"bri,omitempty"`
}

type previewResponse struct {
	Mode   string        `json:"mode"`
	Hex    string        `json:"hex"`
	RGB    color.RGB     `json:"rgb"`
	Fields previewFields `json:"fields"`
}

// handleColorPreview converts the slider values of one mode and returns the
// swatch and the fields that would be sent to the bridge.
func (s *Server) handleColorPreview(c *fiber.Ctx) error {
	state, err := parseColor(c, nil)
	if err != nil {
		return err
	}

	rgb, err := state.RGBForDisplay()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	f := state.Fields()
	return c.JSON(previewResponse{
		Mode: state.Mode().String(),
		Hex:  rgb.Hex(),
		RGB:  rgb,
		Fields: previewFields{
			Xy:  f.Xy,
			Hue: f.Hue,
			Sat: f.Sat,
			Bri: f.Bri,
		},
	})
}
