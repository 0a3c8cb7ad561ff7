package view

import (
	"testing"

	"github.com/paulmach/orb"
	"gorgonia.org/tensor"
)

// testState is a two-line scene with one agent looking along +x.
func testState() *State {
	return &State{
		Agents: Poses{
			Positions: []orb.Point{{0, 0}},
			Angles:    []float64{0},
		},
		Scene: Scene{
			Frame:  []string{"rgb"},
			Lines:  [][2]orb.Point{{{0, 0}, {2, 0}}, {{0, 1}, {3, 1}}},
			Widths: []int{2, 3},
			Textures: []Texel{
				{1, 0, 0}, {1, 0, 0},
				{0, 1, 0}, {0, 1, 0}, {0, 1, 0},
			},
			Baked:  []float64{0, 0, 1, 1, 1},
			Lights: []Light{{X: 1, Y: 0.5, Intensity: 0.8}},
		},
		FOV: 90,
	}
}

// constTensor returns a d x c x h x w float32 tensor filled with v.
func constTensor(t *testing.T, d, c, h, w int, v float32) *tensor.Dense {
	t.Helper()
	data := make([]float32, d*c*h*w)
	for i := range data {
		data[i] = v
	}
	return tensor.New(tensor.WithShape(d, c, h, w), tensor.WithBacking(data))
}
