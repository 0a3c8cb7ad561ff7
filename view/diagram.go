package view

import (
	"fmt"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// pointMM is one typographic point in millimetres.
const pointMM = 25.4 / 72

// canvasRenderer is implemented by both the svg and rasterizer renderers.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// artist is anything a Diagram can draw in world coordinates.
type artist interface {
	draw(r canvasRenderer, tf transform)
	bound() (orb.Bound, bool)
}

// transform maps world coordinates onto the canvas.
type transform struct {
	left, bottom float64
	sx, sy       float64
}

func (t transform) apply(p orb.Point) (float64, float64) {
	return (p[0] - t.left) * t.sx, (p[1] - t.bottom) * t.sy
}

// Diagram is a 2-D drawing surface in world coordinates. Plot functions add
// artists to it; nothing is rasterised until RenderToSVG or RenderToPNG.
type Diagram struct {
	artists []artist

	XLim, YLim [2]float64 // unset (equal) limits autoscale to the artists
	Aspect     float64    // 1 keeps world units square; 0 stretches to fill
	Face       color.NRGBA
	ShowTicks  bool

	WidthMM    float64           // output width in millimetres
	Resolution canvas.Resolution // PNG resolution
}

// NewDiagram returns an empty diagram with a white face and visible ticks.
func NewDiagram() *Diagram {
	return &Diagram{
		Face:       color.NRGBA{255, 255, 255, 255},
		ShowTicks:  true,
		WidthMM:    120,
		Resolution: canvas.DPI(150),
	}
}

// Len returns the number of artists added so far.
func (d *Diagram) Len() int {
	return len(d.artists)
}

// SetXLim sets the horizontal limits.
func (d *Diagram) SetXLim(left, right float64) {
	d.XLim = [2]float64{left, right}
}

// SetYLim sets the vertical limits.
func (d *Diagram) SetYLim(bottom, top float64) {
	d.YLim = [2]float64{bottom, top}
}

// AddCircle adds a filled and/or outlined circle patch.
func (d *Diagram) AddCircle(center orb.Point, radius float64, style PatchStyle) {
	d.artists = append(d.artists, &circlePatch{center: center, radius: radius, style: style})
}

// AddWedge adds an annular sector spanning theta1..theta2 degrees
// counter-clockwise, from radius-width out to radius.
func (d *Diagram) AddWedge(center orb.Point, radius, theta1, theta2, width float64, style PatchStyle) {
	d.artists = append(d.artists, &wedgePatch{
		center: center, radius: radius,
		theta1: theta1, theta2: theta2, width: width,
		style: style,
	})
}

// AddLines adds a collection of segments. colors is either one colour per
// segment or a single colour for all of them.
func (d *Diagram) AddLines(segments []Segment, colors []color.NRGBA, widthPt float64) error {
	if len(colors) != 1 && len(colors) != len(segments) {
		return fmt.Errorf("%w: %d colours for %d segments", ErrShapeMismatch, len(colors), len(segments))
	}
	d.artists = append(d.artists, &lineCollection{segments: segments, colors: colors, widthPt: widthPt})
	return nil
}

// limits returns the effective view window.
func (d *Diagram) limits() Viewport {
	v := Viewport{Left: d.XLim[0], Right: d.XLim[1], Bottom: d.YLim[0], Top: d.YLim[1]}
	if v.Left != v.Right && v.Bottom != v.Top {
		return v
	}

	b := orb.Bound{Min: orb.Point{math.MaxFloat64, math.MaxFloat64}, Max: orb.Point{-math.MaxFloat64, -math.MaxFloat64}}
	found := false
	for _, a := range d.artists {
		ab, ok := a.bound()
		if !ok {
			continue
		}
		b = b.Extend(ab.Min).Extend(ab.Max)
		found = true
	}
	if !found {
		b = orb.Bound{Max: orb.Point{1, 1}}
	}
	if v.Left == v.Right {
		v.Left, v.Right = b.Min[0], b.Max[0]
	}
	if v.Bottom == v.Top {
		v.Bottom, v.Top = b.Min[1], b.Max[1]
	}
	// degenerate data still needs a drawable window
	if v.Left == v.Right {
		v.Left, v.Right = v.Left-0.5, v.Right+0.5
	}
	if v.Bottom == v.Top {
		v.Bottom, v.Top = v.Bottom-0.5, v.Top+0.5
	}
	return v
}

// size returns the output dimensions in millimetres and the world transform.
func (d *Diagram) size() (float64, float64, transform, Viewport) {
	v := d.limits()
	width := d.WidthMM
	if width <= 0 {
		width = 120
	}
	height := width
	if d.Aspect > 0 {
		height = width * d.Aspect * math.Abs(v.Height()/v.Width())
	}
	tf := transform{
		left:   v.Left,
		bottom: v.Bottom,
		sx:     width / v.Width(),
		sy:     height / v.Height(),
	}
	return width, height, tf, v
}

// RenderToSVG writes the diagram as an SVG to the provided writer.
func (d *Diagram) RenderToSVG(w io.Writer) error {
	width, height, tf, v := d.size()
	svgRenderer := svg.New(w, width, height, nil)
	d.renderToCanvas(svgRenderer, width, height, tf, v)
	return svgRenderer.Close()
}

// RenderToPNG writes the diagram as a PNG to the provided writer.
func (d *Diagram) RenderToPNG(w io.Writer) error {
	width, height, tf, v := d.size()
	res := d.Resolution
	if res == 0 {
		res = canvas.DPI(150)
	}
	rast := rasterizer.New(width, height, res, canvas.DefaultColorSpace)
	d.renderToCanvas(rast, width, height, tf, v)
	return png.Encode(w, rast)
}

func (d *Diagram) renderToCanvas(r canvasRenderer, width, height float64, tf transform, v Viewport) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(d.Face)}
	bgStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
	r.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	for _, a := range d.artists {
		a.draw(r, tf)
	}

	// axes frame
	frameStyle := canvas.DefaultStyle
	frameStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	frameStyle.Stroke = canvas.Paint{Color: canvas.Black}
	frameStyle.StrokeWidth = 0.8 * pointMM
	r.RenderPath(canvas.Rectangle(width, height), frameStyle, canvas.Identity)

	if !d.ShowTicks {
		return
	}
	tickLen := 3.5 * pointMM
	for _, x := range tickValues(v.Left, v.Right) {
		cx, _ := tf.apply(orb.Point{x, v.Bottom})
		p := &canvas.Path{}
		p.MoveTo(cx, 0)
		p.LineTo(cx, tickLen)
		r.RenderPath(p, frameStyle, canvas.Identity)
	}
	for _, y := range tickValues(v.Bottom, v.Top) {
		_, cy := tf.apply(orb.Point{v.Left, y})
		p := &canvas.Path{}
		p.MoveTo(0, cy)
		p.LineTo(tickLen, cy)
		r.RenderPath(p, frameStyle, canvas.Identity)
	}
}

// tickValues returns round tick positions strictly inside (lo, hi).
func tickValues(lo, hi float64) []float64 {
	span := hi - lo
	if span <= 0 || math.IsInf(span, 0) || math.IsNaN(span) {
		return nil
	}
	raw := span / 5
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 5, 10} {
		step = m * mag
		if step >= raw {
			break
		}
	}
	var ticks []float64
	for t := math.Ceil(lo/step) * step; t < hi; t += step {
		if t > lo {
			ticks = append(ticks, t)
		}
	}
	return ticks
}

// PatchStyle describes how a patch is filled and outlined.
type PatchStyle struct {
	Fill        color.NRGBA
	Stroke      color.NRGBA
	StrokeWidth float64 // points
}

func (s PatchStyle) canvasStyle() canvas.Style {
	style := canvas.DefaultStyle
	style.Fill = canvas.Paint{Color: nrgbaToRGBA(s.Fill)}
	style.Stroke = canvas.Paint{Color: nrgbaToRGBA(s.Stroke)}
	style.StrokeWidth = s.StrokeWidth * pointMM
	return style
}

type circlePatch struct {
	center orb.Point
	radius float64
	style  PatchStyle
}

func (c *circlePatch) draw(r canvasRenderer, tf transform) {
	cx, cy := tf.apply(c.center)
	path := canvas.Circle(c.radius*tf.sx).Translate(cx, cy)
	r.RenderPath(path, c.style.canvasStyle(), canvas.Identity)
}

func (c *circlePatch) bound() (orb.Bound, bool) {
	return orb.Bound{
		Min: orb.Point{c.center[0] - c.radius, c.center[1] - c.radius},
		Max: orb.Point{c.center[0] + c.radius, c.center[1] + c.radius},
	}, true
}

type wedgePatch struct {
	center         orb.Point
	radius         float64
	theta1, theta2 float64
	width          float64
	style          PatchStyle
}

// outline traces the outer arc counter-clockwise then the inner arc back.
func (w *wedgePatch) outline() []orb.Point {
	span := w.theta2 - w.theta1
	steps := int(math.Ceil(math.Abs(span)/5)) + 1
	if steps < 2 {
		steps = 2
	}
	inner := w.radius - w.width
	if inner < 0 {
		inner = 0
	}

	pts := make([]orb.Point, 0, 2*steps)
	for i := 0; i < steps; i++ {
		a := degToRad(w.theta1 + span*float64(i)/float64(steps-1))
		pts = append(pts, orb.Point{w.center[0] + w.radius*math.Cos(a), w.center[1] + w.radius*math.Sin(a)})
	}
	for i := steps - 1; i >= 0; i-- {
		a := degToRad(w.theta1 + span*float64(i)/float64(steps-1))
		pts = append(pts, orb.Point{w.center[0] + inner*math.Cos(a), w.center[1] + inner*math.Sin(a)})
	}
	return pts
}

func (w *wedgePatch) draw(r canvasRenderer, tf transform) {
	path := &canvas.Path{}
	for i, p := range w.outline() {
		cx, cy := tf.apply(p)
		if i == 0 {
			path.MoveTo(cx, cy)
		} else {
			path.LineTo(cx, cy)
		}
	}
	path.Close()
	r.RenderPath(path, w.style.canvasStyle(), canvas.Identity)
}

func (w *wedgePatch) bound() (orb.Bound, bool) {
	return orb.MultiPoint(w.outline()).Bound(), true
}

type lineCollection struct {
	segments []Segment
	colors   []color.NRGBA
	widthPt  float64
}

func (l *lineCollection) draw(r canvasRenderer, tf transform) {
	style := canvas.DefaultStyle
	style.Fill = canvas.Paint{Color: canvas.Transparent}
	style.StrokeWidth = l.widthPt * pointMM

	for i, s := range l.segments {
		c := l.colors[0]
		if len(l.colors) > 1 {
			c = l.colors[i]
		}
		style.Stroke = canvas.Paint{Color: nrgbaToRGBA(c)}

		x0, y0 := tf.apply(s[0])
		x1, y1 := tf.apply(s[1])
		path := &canvas.Path{}
		path.MoveTo(x0, y0)
		path.LineTo(x1, y1)
		r.RenderPath(path, style, canvas.Identity)
	}
}

func (l *lineCollection) bound() (orb.Bound, bool) {
	if len(l.segments) == 0 {
		return orb.Bound{}, false
	}
	points := make(orb.MultiPoint, 0, 2*len(l.segments))
	for _, s := range l.segments {
		points = append(points, s[0], s[1])
	}
	return points.Bound(), true
}
