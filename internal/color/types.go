// Package color converts between the color representations a user can edit
// (RGB, hue/saturation/brightness) and the device-native CIE xyY encoding,
// and tracks which representation is authoritative for a light.
package color

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Protocol ranges.
const (
	MaxChannel    = 255   // RGB channel
	MaxBrightness = 254   // device "bri"
	MaxSaturation = 255   // device "sat"
	MaxHue        = 65280 // device "hue"
)

// Epsilon replaces non-positive chromaticity coordinates.
const Epsilon = 1e-5

// RGB is a color on the 0-255 per-channel scale.
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// XY is a color in CIE 1931 chromaticity coordinates plus device brightness.
type XY struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Brightness float64 `json:"bri"` // 0-254
}

// HSB is a color in device-native hue/saturation/brightness encoding.
type HSB struct {
	Hue        float64 `json:"hue"` // 0-65280, not degrees
	Saturation float64 `json:"sat"` // 0-255
	Brightness float64 `json:"bri"` // 0-254
}

// Bytes returns the channels rounded and clamped to 0-255.
func (c RGB) Bytes() (r, g, b uint8) {
	return toByte(c.R, MaxChannel), toByte(c.G, MaxChannel), toByte(c.B, MaxChannel)
}

// Hex returns the swatch color as "#rrggbb".
func (c RGB) Hex() string {
	return colorful.Color{
		R: c.R / MaxChannel,
		G: c.G / MaxChannel,
		B: c.B / MaxChannel,
	}.Clamped().Hex()
}

// Bri returns the device brightness field.
func (c XY) Bri() uint8 {
	return toByte(c.Brightness, MaxBrightness)
}

// Pair returns the device "xy" field.
func (c XY) Pair() []float32 {
	return []float32{float32(clamp(c.X, 0, 1)), float32(clamp(c.Y, 0, 1))}
}

// DeviceHue returns the device "hue" field.
func (c HSB) DeviceHue() uint16 {
	return uint16(math.Round(clamp(c.Hue, 0, MaxHue)))
}

// DeviceSat returns the device "sat" field.
func (c HSB) DeviceSat() uint8 {
	return toByte(c.Saturation, MaxSaturation)
}

// Bri returns the device brightness field.
func (c HSB) Bri() uint8 {
	return toByte(c.Brightness, MaxBrightness)
}

// clamp limits v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

func toByte(v, hi float64) uint8 {
	return uint8(math.Round(clamp(v, 0, hi)))
}
