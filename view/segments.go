package view

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Segment is a single sub-line drawn for one texel.
type Segment [2]orb.Point

// NAgentTexels returns the number of leading atlas texels that hold
// agent-rendered frame channels: the sum of the first D*F widths, where D is
// the agent count and F the number of frame channels.
func NAgentTexels(state *State) int {
	n := state.Agents.Len() * len(state.Scene.Frame)
	if n > len(state.Scene.Widths) {
		n = len(state.Scene.Widths)
	}
	total := 0
	for _, w := range state.Scene.Widths[:n] {
		total += w
	}
	return total
}

// segmentStarts returns the texel index at which each line's texture begins.
func segmentStarts(widths []int) []int {
	starts := make([]int, len(widths))
	sum := 0
	for i, w := range widths {
		starts[i] = sum
		sum += w
	}
	return starts
}

// segmentIDs maps every flat texel index to the line it belongs to by
// marking each segment start and taking a running sum.
func segmentIDs(starts []int, total int) []int {
	ids := make([]int, total)
	for _, s := range starts {
		ids[s] = 1
	}
	run := 0
	for i := range ids {
		run += ids[i]
		ids[i] = run - 1
	}
	return ids
}

// BakedWithAgents copies the baked lighting factors and forces the first k
// texels to full brightness.
func BakedWithAgents(baked []float64, k int) ([]float64, error) {
	if k < 0 || k > len(baked) {
		return nil, fmt.Errorf("%w: %d agent texels, %d in atlas", ErrAgentTexelOverflow, k, len(baked))
	}
	out := make([]float64, len(baked))
	copy(out, baked)
	for i := 0; i < k; i++ {
		out[i] = 1
	}
	return out, nil
}

// LineArrays splits every scene line into one sub-segment per texel and
// returns the segments with their display colours.
func LineArrays(state *State, encode GammaFunc) ([]Segment, []Texel, error) {
	scene := &state.Scene
	if err := scene.Validate(); err != nil {
		return nil, nil, err
	}
	if encode == nil {
		encode = SRGBEncode
	}

	total := scene.TotalTexels()
	starts := segmentStarts(scene.Widths)
	ids := segmentIDs(starts, total)

	segments := make([]Segment, total)
	for t, id := range ids {
		width := float64(scene.Widths[id])
		offset := float64(t - starts[id])
		line := scene.Lines[id]
		segments[t] = Segment{
			lerp(line[0], line[1], offset/width),
			lerp(line[0], line[1], (offset+1)/width),
		}
	}

	baked, err := BakedWithAgents(scene.Baked, NAgentTexels(state))
	if err != nil {
		return nil, nil, err
	}

	colors := make([]Texel, total)
	for t, tex := range scene.Textures {
		b := baked[t]
		colors[t] = EncodeTexel(Texel{tex[0] * b, tex[1] * b, tex[2] * b}, encode)
	}
	return segments, colors, nil
}

func lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{
		a[0]*(1-t) + b[0]*t,
		a[1]*(1-t) + b[1]*t,
	}
}
