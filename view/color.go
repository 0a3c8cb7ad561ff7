package view

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// GammaFunc maps a linear intensity to display space.
type GammaFunc func(float64) float64

// SRGBEncode applies sRGB companding to a linear intensity clamped to [0, 1].
func SRGBEncode(v float64) float64 {
	v = clamp01(v)
	return colorful.LinearRgb(v, v, v).R
}

// EncodeTexel gamma-encodes each channel of a linear texel.
func EncodeTexel(t Texel, encode GammaFunc) Texel {
	if encode == nil {
		encode = SRGBEncode
	}
	return Texel{encode(t[0]), encode(t[1]), encode(t[2])}
}

// palette is the ten-colour categorical cycle (C0..C9).
var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

var (
	// BackgroundColor is the diagram face colour.
	BackgroundColor = mustHex("#c6c1b3")
	// LightColor fills light markers.
	LightColor = mustHex("#ffff00")
)

// PaletteColor returns colour Ci of the categorical cycle.
func PaletteColor(i int) color.NRGBA {
	if i < 0 {
		i = -i
	}
	return mustHex(palette[i%len(palette)])
}

// WithAlpha returns c with its alpha replaced by a (clamped to [0, 1]).
func WithAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = uint8(math.Round(clamp01(a) * 255))
	return c
}

// TexelColor converts a display-space texel to an opaque NRGBA.
func TexelColor(t Texel) color.NRGBA {
	r, g, b := colorful.Color{R: t[0], G: t[1], B: t[2]}.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func mustHex(s string) color.NRGBA {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// nrgbaToRGBA premultiplies alpha for the canvas library.
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(v, 1))
}

func radToDeg(r float64) float64 {
	return r * 180 / math.Pi
}

func degToRad(d float64) float64 {
	return d * math.Pi / 180
}
