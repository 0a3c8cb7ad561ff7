package view

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	// ViewRadius pads the zoomed viewport around the agents, in world units.
	ViewRadius = 5.0
	// scenePadding pads the unzoomed viewport around the scene lines.
	scenePadding = 1.0
)

// Viewport is a square axis-aligned window onto the world.
type Viewport struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Top    float64 `json:"top"`
}

// Width returns Right - Left.
func (v Viewport) Width() float64 { return v.Right - v.Left }

// Height returns Top - Bottom.
func (v Viewport) Height() float64 { return v.Top - v.Bottom }

// Bound returns the viewport as an orb bound.
func (v Viewport) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{v.Left, v.Bottom}, Max: orb.Point{v.Right, v.Top}}
}

// Contains reports whether p lies strictly inside the viewport.
func (v Viewport) Contains(p orb.Point) bool {
	return v.Left < p[0] && p[0] < v.Right && v.Bottom < p[1] && p[1] < v.Top
}

// SegmentVisible reports whether at least one endpoint is inside the viewport.
// Segments that cross the viewport without an endpoint inside are dropped.
func (v Viewport) SegmentVisible(s Segment) bool {
	return v.Contains(s[0]) || v.Contains(s[1])
}

// Extent computes the square viewport for a state. When zoom is set the
// window hugs the agents padded by radius; otherwise it covers every scene
// line endpoint padded by one unit.
func Extent(state *State, zoom bool, radius float64) (Viewport, error) {
	if radius < 0 {
		return Viewport{}, fmt.Errorf("view radius must be positive, got %g", radius)
	}
	var b orb.Bound
	if zoom {
		if len(state.Agents.Positions) == 0 {
			return Viewport{}, fmt.Errorf("%w: no agent positions to zoom on", ErrEmptyInput)
		}
		b = orb.MultiPoint(state.Agents.Positions).Bound().Pad(radius)
	} else {
		if len(state.Scene.Lines) == 0 {
			return Viewport{}, fmt.Errorf("%w: scene has no lines", ErrEmptyInput)
		}
		points := make(orb.MultiPoint, 0, 2*len(state.Scene.Lines))
		for _, l := range state.Scene.Lines {
			points = append(points, l[0], l[1])
		}
		b = points.Bound().Pad(scenePadding)
	}
	v := squareAround(b)
	if v.Width() <= 0 {
		return Viewport{}, fmt.Errorf("%w: zero-size viewport", ErrEmptyInput)
	}
	return v, nil
}

func squareAround(b orb.Bound) Viewport {
	half := math.Max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]) / 2
	c := b.Center()
	return Viewport{
		Left:   c[0] - half,
		Right:  c[0] + half,
		Bottom: c[1] - half,
		Top:    c[1] + half,
	}
}
