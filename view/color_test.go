package view

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSRGBEncode(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{1, 1},
		{0.0031308, 0.0031308 * 12.92},
		{0.5, 0.735356983},
		{-1, 0},
		{2, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, SRGBEncode(tt.in), 1e-6, "SRGBEncode(%v)", tt.in)
	}
}

func TestPaletteColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{0x1f, 0x77, 0xb4, 0xff}, PaletteColor(0))
	assert.Equal(t, color.NRGBA{0xff, 0x7f, 0x0e, 0xff}, PaletteColor(1))
	assert.Equal(t, PaletteColor(3), PaletteColor(13), "palette cycles every ten colours")
}

func TestBackgroundColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{0xc6, 0xc1, 0xb3, 0xff}, BackgroundColor)
}

func TestTexelColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{255, 0, 128, 255}, TexelColor(Texel{1.2, -0.1, 0.5}))
}

func TestNrgbaToRGBA(t *testing.T) {
	assert.Equal(t, color.RGBA{}, nrgbaToRGBA(color.NRGBA{R: 200}))
	assert.Equal(t, color.RGBA{100, 50, 0, 128}, nrgbaToRGBA(color.NRGBA{200, 100, 0, 128}))
}
