package view

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	sheetPadding  = 10
	captionHeight = 18
)

// sheetBackground is a light grey behind the strips.
var sheetBackground = color.NRGBA{240, 240, 240, 255}

// StripSheet stacks agent strips into one image with an "agent #d" caption
// above each, without any axes. Strips are upscaled by scale using nearest
// neighbour sampling so individual sensor pixels stay visible.
func StripSheet(rasters []*Raster, scale int) (*image.NRGBA, error) {
	if len(rasters) == 0 {
		return nil, fmt.Errorf("%w: no strips", ErrEmptyInput)
	}
	if scale < 1 {
		scale = 1
	}

	width := 0
	height := sheetPadding
	for _, r := range rasters {
		if r.W*scale > width {
			width = r.W * scale
		}
		height += captionHeight + r.H*scale + sheetPadding
	}
	width += 2 * sheetPadding

	sheet := imaging.New(width, height, sheetBackground)
	y := sheetPadding
	for a, r := range rasters {
		drawText(sheet, sheetPadding, y+captionHeight-5, fmt.Sprintf("agent #%d", a), PaletteColor(a))
		y += captionHeight

		strip := imaging.Resize(r.Image(), r.W*scale, r.H*scale, imaging.NearestNeighbor)
		sheet = imaging.Paste(sheet, strip, image.Pt(sheetPadding, y))
		y += r.H*scale + sheetPadding
	}
	return sheet, nil
}

// WriteStripSheet composes the channels and writes the sheet as a PNG.
func WriteStripSheet(w io.Writer, chans []Channel, scale int, encode GammaFunc) error {
	rasters, err := ImshowArrays(chans, encode)
	if err != nil {
		return err
	}
	sheet, err := StripSheet(rasters, scale)
	if err != nil {
		return err
	}
	return png.Encode(w, sheet)
}

// drawText renders text onto an image at the specified baseline position.
func drawText(img draw.Image, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
