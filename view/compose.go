package view

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gorgonia.org/tensor"
)

// Raster is a single-precision H x W x 3 image laid out row-major.
type Raster struct {
	H, W int
	Pix  []float32
}

// NewRaster allocates a black raster.
func NewRaster(h, w int) *Raster {
	return &Raster{H: h, W: w, Pix: make([]float32, h*w*3)}
}

// At returns the RGB triple at row y, column x.
func (r *Raster) At(y, x int) [3]float32 {
	i := (y*r.W + x) * 3
	return [3]float32{r.Pix[i], r.Pix[i+1], r.Pix[i+2]}
}

func (r *Raster) set(y, x, c int, v float32) {
	r.Pix[(y*r.W+x)*3+c] = v
}

// Image converts the raster to 8-bit, clamping samples into [0, 1].
func (r *Raster) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.W, r.H))
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			px := r.At(y, x)
			img.SetNRGBA(x, y, color.NRGBA{
				R: to8(px[0]),
				G: to8(px[1]),
				B: to8(px[2]),
				A: 255,
			})
		}
	}
	return img
}

func to8(v float32) uint8 {
	return uint8(math.Round(clamp01(float64(v)) * 255))
}

// channelView is a channel's samples flattened to float64 with its shape.
type channelView struct {
	name       string
	data       []float64
	d, c, h, w int
}

func (v *channelView) at(d, c, y, x int) float64 {
	return v.data[((d*v.c+c)*v.h+y)*v.w+x]
}

// agentCount returns the shared leading dimension of all channels.
func agentCount(views []channelView) (int, error) {
	if len(views) == 0 {
		return 0, fmt.Errorf("%w: no image channels", ErrEmptyInput)
	}
	d := views[0].d
	for _, v := range views[1:] {
		if v.d != d {
			return 0, fmt.Errorf("%w: channel %q has %d agents but %q has %d",
				ErrShapeMismatch, v.name, v.d, views[0].name, d)
		}
	}
	return d, nil
}

func newChannelView(ch Channel) (channelView, error) {
	if ch.Data == nil {
		return channelView{}, fmt.Errorf("%w: channel %q has no data", ErrEmptyInput, ch.Name)
	}
	t := ch.Data
	if t.IsView() {
		m, ok := t.Materialize().(*tensor.Dense)
		if !ok {
			return channelView{}, fmt.Errorf("channel %q: cannot materialize view", ch.Name)
		}
		t = m
	}
	shape := t.Shape()
	if len(shape) != 4 {
		return channelView{}, fmt.Errorf("%w: channel %q has shape %v, want agents x channels x height x width",
			ErrShapeMismatch, ch.Name, shape)
	}

	data, err := denseFloats(t)
	if err != nil {
		return channelView{}, fmt.Errorf("channel %q: %w", ch.Name, err)
	}
	return channelView{name: ch.Name, data: data, d: shape[0], c: shape[1], h: shape[2], w: shape[3]}, nil
}

// denseFloats converts the backing array of t to float64.
func denseFloats(t *tensor.Dense) ([]float64, error) {
	switch data := t.Data().(type) {
	case []float64:
		return data, nil
	case []float32:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil
	case []uint8:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil
	case []int:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported tensor dtype %v", t.Dtype())
	}
}

// ImshowArrays lays out each agent's sensor channels side by side. Single
// sub-channel arrays are replicated to grey RGB; multi-channel arrays are
// gamma-encoded. The result has one raster per agent.
func ImshowArrays(chans []Channel, encode GammaFunc) ([]*Raster, error) {
	if encode == nil {
		encode = SRGBEncode
	}

	views := make([]channelView, 0, len(chans))
	for _, ch := range chans {
		v, err := newChannelView(ch)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	agents, err := agentCount(views)
	if err != nil {
		return nil, err
	}

	height := views[0].h
	width := 0
	for _, v := range views {
		if v.h != height {
			return nil, fmt.Errorf("%w: channel %q has height %d, %q has %d",
				ErrShapeMismatch, v.name, v.h, views[0].name, height)
		}
		if v.c != 1 && v.c != 3 {
			return nil, fmt.Errorf("%w: channel %q has %d sub-channels, want 1 or 3",
				ErrShapeMismatch, v.name, v.c)
		}
		width += v.w
	}

	rasters := make([]*Raster, agents)
	for d := 0; d < agents; d++ {
		r := NewRaster(height, width)
		offset := 0
		for i := range views {
			v := &views[i]
			for y := 0; y < v.h; y++ {
				for x := 0; x < v.w; x++ {
					for c := 0; c < 3; c++ {
						var s float64
						if v.c == 1 {
							s = v.at(d, 0, y, x)
						} else {
							s = encode(v.at(d, c, y, x))
						}
						r.set(y, offset+x, c, float32(s))
					}
				}
			}
			offset += v.w
		}
		rasters[d] = r
	}
	return rasters, nil
}
