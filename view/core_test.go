package view

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlotLights(t *testing.T) {
	state := testState()
	state.Scene.Lights = append(state.Scene.Lights, Light{X: 2, Y: 2, Intensity: 3})
	d := NewDiagram()

	PlotLights(d, state)
	require.Equal(t, 2, d.Len())

	c := d.artists[0].(*circlePatch)
	assert.Equal(t, lightRadius, c.radius)
	assert.Equal(t, uint8(204), c.style.Fill.A)
	assert.Equal(t, uint8(255), d.artists[1].(*circlePatch).style.Fill.A, "intensity is clamped to 1")
}

func TestPlotLines_MasksToViewport(t *testing.T) {
	state := testState()
	// a far-away line whose texels fall outside the zoomed window
	state.Scene.Lines = append(state.Scene.Lines, [2]orb.Point{{50, 50}, {60, 50}})
	state.Scene.Widths = append(state.Scene.Widths, 2)
	state.Scene.Textures = append(state.Scene.Textures, Texel{1, 1, 1}, Texel{1, 1, 1})
	state.Scene.Baked = append(state.Scene.Baked, 1, 1)

	opts := DefaultRenderOptions()
	opts.Zoom = true
	d := NewDiagram()
	require.NoError(t, PlotLines(d, state, opts))
	require.Equal(t, 1, d.Len())
	lc := d.artists[0].(*lineCollection)
	assert.Len(t, lc.segments, 5)
	assert.Len(t, lc.colors, 5)
	assert.Equal(t, lineWidthPt, lc.widthPt)

	opts.Zoom = false
	d = NewDiagram()
	require.NoError(t, PlotLines(d, state, opts))
	assert.Len(t, d.artists[0].(*lineCollection).segments, 7)
}

func TestPlotWedge(t *testing.T) {
	d := NewDiagram()
	pose := Pose{Position: orb.Point{1, 1}, Angle: 90}
	PlotWedge(d, pose, 2, 60, 0.5, false, PatchStyle{})

	w := d.artists[0].(*wedgePatch)
	assert.InDelta(t, 60.0, w.theta1, 1e-12)
	assert.InDelta(t, 120.0, w.theta2, 1e-12)
	assert.InDelta(t, 2.0, w.radius, 1e-12)
	assert.InDelta(t, 1.5, w.width, 1e-12)

	d = NewDiagram()
	pose.Angle = 3.141592653589793 / 2
	PlotWedge(d, pose, 2, 60, 0.5, true, PatchStyle{})
	w = d.artists[0].(*wedgePatch)
	assert.InDelta(t, 60.0, w.theta1, 1e-9)
	assert.InDelta(t, 120.0, w.theta2, 1e-9)
}

func TestPlotFOV(t *testing.T) {
	state := testState()
	state.Agents = Poses{
		Positions: []orb.Point{{0, 0}, {1, 1}},
		Angles:    []float64{0, 180},
	}
	d := NewDiagram()
	PlotFOV(d, state, 1, AgentRadius)
	require.Equal(t, 2, d.Len())

	for i := 0; i < 2; i++ {
		w := d.artists[i].(*wedgePatch)
		want := WithAlpha(PaletteColor(i), fovAlpha)
		assert.Equal(t, want, w.style.Fill)
		assert.InDelta(t, 1-AgentRadius, w.width, 1e-12)
	}
}

func TestPlotPoses(t *testing.T) {
	poses := Poses{Positions: []orb.Point{{0, 0}, {1, 0}}, Angles: []float64{0, 90}}
	d := NewDiagram()
	require.NoError(t, PlotPoses(d, poses, AgentRadius, PaletteColor(0)))
	// two body outlines and one heading collection
	assert.Equal(t, 3, d.Len())

	lc := d.artists[2].(*lineCollection)
	assert.InDelta(t, AgentRadius, lc.segments[0][1][0], 1e-12)
	assert.InDelta(t, AgentRadius, lc.segments[1][1][1], 1e-12)

	bad := Poses{Positions: []orb.Point{{0, 0}}, Angles: []float64{0, 1}}
	assert.Error(t, PlotPoses(NewDiagram(), bad, AgentRadius, PaletteColor(0)))
}

func TestAdjustView(t *testing.T) {
	state := testState()
	d := NewDiagram()
	require.NoError(t, AdjustView(d, state, DefaultRenderOptions()))

	v, err := Extent(state, false, ViewRadius)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{v.Left, v.Right}, d.XLim)
	assert.Equal(t, [2]float64{v.Bottom, v.Top}, d.YLim)
	assert.Equal(t, 1.0, d.Aspect)
	assert.Equal(t, BackgroundColor, d.Face)
}

func TestPlotCore(t *testing.T) {
	state := testState()
	d := NewDiagram()
	require.NoError(t, PlotCore(d, state, DefaultRenderOptions()))

	// one light, one line collection, one wedge
	assert.Equal(t, 3, d.Len())
	assert.IsType(t, &circlePatch{}, d.artists[0])
	assert.IsType(t, &lineCollection{}, d.artists[1])
	assert.IsType(t, &wedgePatch{}, d.artists[2])
	assert.False(t, d.ShowTicks)
	assert.Equal(t, BackgroundColor, d.Face)
}

func TestPlotCore_InvalidState(t *testing.T) {
	state := testState()
	state.Agents.Angles = append(state.Agents.Angles, 1)
	d := NewDiagram()
	assert.ErrorIs(t, PlotCore(d, state, DefaultRenderOptions()), ErrShapeMismatch)
	assert.Equal(t, 0, d.Len(), "nothing is drawn for an invalid state")
}

func TestDiagram_RenderToSVG(t *testing.T) {
	d := NewDiagram()
	require.NoError(t, PlotCore(d, testState(), DefaultRenderOptions()))

	var buf bytes.Buffer
	require.NoError(t, d.RenderToSVG(&buf))
	out := buf.String()
	assert.True(t, strings.Contains(out, "<svg"))
	assert.True(t, strings.Contains(out, "<path"))
}

func TestDiagram_RenderToPNG(t *testing.T) {
	d := NewDiagram()
	require.NoError(t, PlotCore(d, testState(), DefaultRenderOptions()))

	var buf bytes.Buffer
	require.NoError(t, d.RenderToPNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	b := img.Bounds()
	assert.InDelta(t, b.Dx(), b.Dy(), 1, "aspect 1 on a square viewport gives a square image")
}

func TestDiagram_Autoscale(t *testing.T) {
	d := NewDiagram()
	d.AddCircle(orb.Point{0, 0}, 1, PatchStyle{Fill: color.NRGBA{A: 255}})
	require.NoError(t, d.AddLines([]Segment{{{2, 2}, {3, 4}}}, []color.NRGBA{{A: 255}}, 1))

	v := d.limits()
	assert.Equal(t, Viewport{Left: -1, Right: 3, Bottom: -1, Top: 4}, v)

	// empty collections do not affect the window
	empty := NewDiagram()
	require.NoError(t, empty.AddLines(nil, []color.NRGBA{{}}, 1))
	empty.AddCircle(orb.Point{5, 5}, 0, PatchStyle{})
	assert.Equal(t, Viewport{Left: 4.5, Right: 5.5, Bottom: 4.5, Top: 5.5}, empty.limits())
}

func TestDiagram_AddLinesColorCount(t *testing.T) {
	d := NewDiagram()
	segs := []Segment{{{0, 0}, {1, 1}}, {{1, 1}, {2, 2}}}
	assert.ErrorIs(t, d.AddLines(segs, make([]color.NRGBA, 3), 1), ErrShapeMismatch)
	assert.NoError(t, d.AddLines(segs, make([]color.NRGBA, 2), 1))
}

func TestTickValues(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3, 4}, tickValues(0, 5))
	assert.Nil(t, tickValues(1, 1))
}

func TestPlotCore_ZeroOptionsUseDefaults(t *testing.T) {
	state := testState()
	d := NewDiagram()
	require.NoError(t, PlotCore(d, state, RenderOptions{Zoom: true}))

	// agent at the origin, default view radius on each side
	assert.Equal(t, [2]float64{-ViewRadius, ViewRadius}, d.XLim)
	assert.Equal(t, [2]float64{-ViewRadius, ViewRadius}, d.YLim)

	w := d.artists[2].(*wedgePatch)
	assert.InDelta(t, 1.0, w.radius, 1e-12)
	assert.InDelta(t, 1-AgentRadius, w.width, 1e-12)
}

func TestPlotCore_RejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts RenderOptions
	}{
		{"negative view radius", RenderOptions{ViewRadius: -1}},
		{"negative agent radius", RenderOptions{AgentRadius: -0.1}},
		{"wedge inside body", RenderOptions{FOVDistance: 0.05, AgentRadius: 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDiagram()
			assert.Error(t, PlotCore(d, testState(), tt.opts))
			assert.Equal(t, 0, d.Len(), "nothing is drawn for bad options")
		})
	}
}

func TestExtent_ZeroRadiusSingleAgent(t *testing.T) {
	_, err := Extent(testState(), true, 0)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Extent(testState(), true, -2)
	assert.Error(t, err)
}
