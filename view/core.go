package view

import (
	"fmt"
	"image/color"
	"math"

	"github.com/paulmach/orb"
)

const (
	// AgentRadius is the body radius of an agent in world units.
	AgentRadius = 0.075

	lightRadius = 0.05
	lineWidthPt = 2.0
	fovAlpha    = 0.1
)

// RenderOptions tunes PlotCore. The zero value is not useful; start from
// DefaultRenderOptions.
type RenderOptions struct {
	Zoom        bool
	ViewRadius  float64
	FOVDistance float64
	AgentRadius float64
	Encode      GammaFunc
}

// DefaultRenderOptions returns the standard unzoomed options.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		ViewRadius:  ViewRadius,
		FOVDistance: 1,
		AgentRadius: AgentRadius,
		Encode:      SRGBEncode,
	}
}

// withDefaults fills zero-valued options with the defaults and rejects
// negative sizes or a wedge whose outer radius is inside the agent body.
func (o RenderOptions) withDefaults() (RenderOptions, error) {
	def := DefaultRenderOptions()
	if o.ViewRadius == 0 {
		o.ViewRadius = def.ViewRadius
	}
	if o.FOVDistance == 0 {
		o.FOVDistance = def.FOVDistance
	}
	if o.AgentRadius == 0 {
		o.AgentRadius = def.AgentRadius
	}
	if o.Encode == nil {
		o.Encode = def.Encode
	}
	switch {
	case o.ViewRadius < 0:
		return o, fmt.Errorf("view radius must be positive, got %g", o.ViewRadius)
	case o.AgentRadius < 0:
		return o, fmt.Errorf("agent radius must be positive, got %g", o.AgentRadius)
	case o.FOVDistance < o.AgentRadius:
		return o, fmt.Errorf("fov distance %g is inside agent radius %g", o.FOVDistance, o.AgentRadius)
	}
	return o, nil
}

// PlotLights draws a small yellow marker per light, its alpha set by intensity.
func PlotLights(d *Diagram, state *State) {
	for _, l := range state.Scene.Lights {
		d.AddCircle(orb.Point{l.X, l.Y}, lightRadius, PatchStyle{Fill: WithAlpha(LightColor, l.Intensity)})
	}
}

// PlotLines draws the texel sub-segments of the scene that touch the viewport.
func PlotLines(d *Diagram, state *State, opts RenderOptions) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}
	segments, texels, err := LineArrays(state, opts.Encode)
	if err != nil {
		return err
	}
	v, err := Extent(state, opts.Zoom, opts.ViewRadius)
	if err != nil {
		return err
	}

	seen := make([]Segment, 0, len(segments))
	colors := make([]color.NRGBA, 0, len(segments))
	for i, s := range segments {
		if !v.SegmentVisible(s) {
			continue
		}
		seen = append(seen, s)
		colors = append(colors, TexelColor(texels[i]))
	}
	if len(seen) == 0 {
		return nil
	}
	return d.AddLines(seen, colors, lineWidthPt)
}

// PlotWedge draws an annular field-of-view wedge for one pose. Angles are in
// degrees unless radians is set; fov is always in degrees.
func PlotWedge(d *Diagram, pose Pose, distance, fov, innerRadius float64, radians bool, style PatchStyle) {
	heading := pose.Angle
	if radians {
		heading = radToDeg(heading)
	}
	d.AddWedge(pose.Position, distance, heading-fov/2, heading+fov/2, distance-innerRadius, style)
}

// PlotFOV draws a translucent wedge per agent in its palette colour.
func PlotFOV(d *Diagram, state *State, distance, innerRadius float64) {
	for i := 0; i < state.Agents.Len(); i++ {
		style := PatchStyle{Fill: WithAlpha(PaletteColor(i), fovAlpha)}
		PlotWedge(d, state.Agents.At(i), distance, state.FOV, innerRadius, state.Agents.Radians, style)
	}
}

// PlotPoses outlines each agent body and draws a tick along its heading.
func PlotPoses(d *Diagram, poses Poses, radius float64, c color.NRGBA) error {
	if err := poses.Validate(); err != nil {
		return err
	}
	headings := make([]Segment, 0, poses.Len())
	for i := 0; i < poses.Len(); i++ {
		p := poses.At(i)
		d.AddCircle(p.Position, radius, PatchStyle{Stroke: c, StrokeWidth: 1})

		a := degToRad(poses.Degrees(i))
		tip := orb.Point{p.Position[0] + radius*math.Cos(a), p.Position[1] + radius*math.Sin(a)}
		headings = append(headings, Segment{p.Position, tip})
	}
	return d.AddLines(headings, []color.NRGBA{c}, 1.5)
}

// AdjustView fits the diagram to the square viewport of the state.
func AdjustView(d *Diagram, state *State, opts RenderOptions) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}
	v, err := Extent(state, opts.Zoom, opts.ViewRadius)
	if err != nil {
		return err
	}
	d.SetXLim(v.Left, v.Right)
	d.SetYLim(v.Bottom, v.Top)
	d.Aspect = 1
	d.Face = BackgroundColor
	return nil
}

// PlotCore draws lights, scene lines, field-of-view wedges and fixes the
// viewport, in that order.
func PlotCore(d *Diagram, state *State, opts RenderOptions) error {
	if err := state.Validate(); err != nil {
		return err
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}

	PlotLights(d, state)
	if err := PlotLines(d, state, opts); err != nil {
		return err
	}
	PlotFOV(d, state, opts.FOVDistance, opts.AgentRadius)
	if err := AdjustView(d, state, opts); err != nil {
		return err
	}
	d.ShowTicks = false
	return nil
}
