package color

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidColor is returned for xy input that has no RGB equivalent
// (y <= 0 or non-finite coordinates).
var ErrInvalidColor = errors.New("invalid color")

// Wide RGB D65, the matrix the lighting protocol is calibrated against.
// The coefficients are a compatibility contract with the device.
var wideGamutToXYZ = [3][3]float64{
	{0.649926, 0.103455, 0.197109},
	{0.234327, 0.743075, 0.022598},
	{0.000000, 0.053077, 1.035763},
}

var xyzToWideGamut = invert(wideGamutToXYZ)

func invert(m [3][3]float64) [3][3]float64 {
	d := mat.NewDense(3, 3, nil)
	for i := range m {
		for j := range m[i] {
			d.Set(i, j, m[i][j])
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(d); err != nil {
		panic(fmt.Sprintf("color: matrix not invertible: %v", err))
	}

	var out [3][3]float64
	for i := range out {
		for j := range out[i] {
			out[i][j] = inv.At(i, j)
		}
	}
	return out
}

func mul(m [3][3]float64, a, b, c float64) (float64, float64, float64) {
	return m[0][0]*a + m[0][1]*b + m[0][2]*c,
		m[1][0]*a + m[1][1]*b + m[1][2]*c,
		m[2][0]*a + m[2][1]*b + m[2][2]*c
}

// gammaExpand decodes an sRGB channel in [0,1] to linear light.
func gammaExpand(c float64) float64 {
	if c > 0.04045 {
		return math.Pow((c+0.055)/1.055, 2.4)
	}
	return c / 12.92
}

// gammaCompress encodes linear light as an sRGB channel.
func gammaCompress(c float64) float64 {
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

// RGBToXY converts an RGB color to chromaticity plus device brightness.
// Channels outside [0,255] are clamped. Pure black yields (Epsilon, Epsilon)
// at zero brightness.
func RGBToXY(c RGB) XY {
	r := gammaExpand(clamp(c.R, 0, MaxChannel) / MaxChannel)
	g := gammaExpand(clamp(c.G, 0, MaxChannel) / MaxChannel)
	b := gammaExpand(clamp(c.B, 0, MaxChannel) / MaxChannel)

	X, Y, Z := mul(wideGamutToXYZ, r, g, b)

	var x, y float64
	if sum := X + Y + Z; sum != 0 {
		x = X / sum
		y = Y / sum
	}

	// xy must stay strictly positive, XYToRGB divides by y
	if x <= 0 {
		x = Epsilon
	}
	if y <= 0 {
		y = Epsilon
	}

	return XY{
		X:          x,
		Y:          y,
		Brightness: clamp(Y, 0, 1) * MaxBrightness,
	}
}

// XYToRGB converts chromaticity plus device brightness to RGB.
// It returns ErrInvalidColor when y is not strictly positive.
func XYToRGB(c XY) (RGB, error) {
	if !(c.Y > 0) || math.IsInf(c.Y, 0) || math.IsNaN(c.X) || math.IsInf(c.X, 0) {
		return RGB{}, fmt.Errorf("%w: xy=(%g, %g)", ErrInvalidColor, c.X, c.Y)
	}

	x := clamp(c.X, 0, 1)
	y := math.Min(c.Y, 1)
	Y := clamp(c.Brightness, 0, MaxBrightness) / MaxBrightness
	X := (Y / y) * x
	Z := (Y / y) * (1 - x - y)

	r, g, b := mul(xyzToWideGamut, X, Y, Z)

	return RGB{
		R: toChannel(gammaCompress(r)),
		G: toChannel(gammaCompress(g)),
		B: toChannel(gammaCompress(b)),
	}, nil
}

func toChannel(v float64) float64 {
	return clamp(v*MaxChannel, 0, MaxChannel)
}

// HSBToRGB converts device hue/saturation/brightness to RGB.
//
// Zero saturation is achromatic and yields r=g=b=bri on the device
// brightness scale (0-254), not rescaled to 255.
func HSBToRGB(c HSB) RGB {
	h := clamp(c.Hue, 0, MaxHue) / MaxHue * 360
	s := clamp(c.Saturation, 0, MaxSaturation) / MaxSaturation
	v := clamp(c.Brightness, 0, MaxBrightness) / MaxBrightness

	if s <= 0 {
		gray := v * MaxBrightness
		return RGB{R: gray, G: gray, B: gray}
	}

	if h >= 360 {
		h = 0
	}
	sector := math.Floor(h / 60)
	frac := h/60 - sector

	p := v * (1 - s)
	q := v * (1 - s*frac)
	t := v * (1 - s*(1-frac))

	var r, g, b float64
	switch int(sector) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}

	return RGB{R: r * MaxChannel, G: g * MaxChannel, B: b * MaxChannel}
}
