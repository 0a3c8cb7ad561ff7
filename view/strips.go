package view

import (
	"fmt"
	"io"

	xfont "golang.org/x/image/font"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// StripFigure is a column of image panels, one per agent.
type StripFigure struct {
	Panels []*plot.Plot
	Width  vg.Length // total figure width
	Aspect float64   // panel height / width, set by PlotImages
}

// NewStripFigure returns a figure with no panels; PlotImages allocates them.
func NewStripFigure() *StripFigure {
	return &StripFigure{Width: 16 * vg.Centimeter}
}

// StripAspect is the data aspect (y units per x unit) for an H x W strip when
// d agents are shown. Strips get flatter as more agents share the figure.
func StripAspect(d, h, w int) float64 {
	n := d
	if n > 4 {
		n = 4
	}
	if n < 1 {
		n = 1
	}
	return float64(w) / float64(h) / float64(n)
}

// channelTicks labels the first rows of an H-row panel with channel names.
// Row 0 is drawn at the top.
func channelTicks(h int, names []string) plot.ConstantTicks {
	n := h
	if len(names) < n {
		n = len(names)
	}
	ticks := make(plot.ConstantTicks, 0, n)
	for i := 0; i < n; i++ {
		ticks = append(ticks, plot.Tick{Value: float64(h-i) - 0.5, Label: names[i]})
	}
	return ticks
}

// PlotImages composes the channels into one strip per agent and draws each
// into a panel of fig. Existing panels are reused; missing ones are created.
func PlotImages(chans []Channel, fig *StripFigure, encode GammaFunc) error {
	if fig == nil {
		return fmt.Errorf("%w: nil figure", ErrEmptyInput)
	}
	rasters, err := ImshowArrays(chans, encode)
	if err != nil {
		return err
	}
	agents := len(rasters)
	if agents == 0 {
		return fmt.Errorf("%w: no agents", ErrEmptyInput)
	}
	h, w := rasters[0].H, rasters[0].W

	names := make([]string, len(chans))
	for i, ch := range chans {
		names[i] = ch.Name
	}

	for len(fig.Panels) < agents {
		fig.Panels = append(fig.Panels, plot.New())
	}
	fig.Aspect = StripAspect(agents, h, w) * float64(h) / float64(w)

	for a := 0; a < agents; a++ {
		p := fig.Panels[a]
		p.Add(plotter.NewImage(rasters[a].Image(), 0, 0, float64(w), float64(h)))
		p.X.Min, p.X.Max = 0, float64(w)
		p.Y.Min, p.Y.Max = 0, float64(h)
		p.X.Tick.Marker = plot.ConstantTicks(nil)
		p.Y.Tick.Marker = channelTicks(h, names)

		p.Title.Text = fmt.Sprintf("agent #%d", a)
		p.Title.TextStyle.Color = PaletteColor(a)
		p.Title.TextStyle.Font.Weight = xfont.WeightBold
	}
	fig.Panels = fig.Panels[:agents]
	return nil
}

// WritePNG draws the panels stacked vertically and encodes them as a PNG.
// Panel height is chosen so that each data area, not the whole panel, has
// height/width equal to Aspect.
func (f *StripFigure) WritePNG(w io.Writer) error {
	if len(f.Panels) == 0 {
		return fmt.Errorf("%w: figure has no panels", ErrEmptyInput)
	}
	width := f.Width
	if width <= 0 {
		width = 16 * vg.Centimeter
	}
	aspect := vg.Length(f.Aspect)
	if aspect <= 0 {
		aspect = 0.25
	}

	plots := make([][]*plot.Plot, len(f.Panels))
	for i, p := range f.Panels {
		plots[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{
		Rows: len(f.Panels),
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}

	// Titles and axes take a fixed amount of room, so lay out once at a
	// provisional height and give the data area exactly the height it needs.
	guess := aspect*width + 1.5*vg.Centimeter
	dataW, dataH := dataArea(plots, tiles, width, guess)
	if dataW <= 0 || dataH <= 0 {
		return fmt.Errorf("strip figure too small: data area %vx%v", dataW, dataH)
	}
	panelHeight := guess - dataH + aspect*dataW

	img := vgimg.New(width, tilesHeight(tiles, panelHeight))
	canvases := plot.Align(plots, tiles, draw.New(img))
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("encoding strip figure: %w", err)
	}
	return nil
}

// tilesHeight is the canvas height that gives every row the panel height.
func tilesHeight(t draw.Tiles, panel vg.Length) vg.Length {
	return panel*vg.Length(t.Rows) + t.PadY*vg.Length(t.Rows-1) + t.PadTop + t.PadBottom
}

// dataArea lays out the panels at the given panel height and returns the
// size of the first panel's data area.
func dataArea(plots [][]*plot.Plot, t draw.Tiles, width, panel vg.Length) (vg.Length, vg.Length) {
	c := draw.New(vgimg.New(width, tilesHeight(t, panel)))
	canvases := plot.Align(plots, t, c)
	da := plots[0][0].DataCanvas(canvases[0][0])
	return da.Max.X - da.Min.X, da.Max.Y - da.Min.Y
}
