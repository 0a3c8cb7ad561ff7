package view

import (
	"fmt"
	"io"

	"github.com/tdewolff/canvas"
)

// Format selects the diagram encoding.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// NewDiagramFor returns an empty diagram sized by the render settings.
func NewDiagramFor(rc RenderConfig) *Diagram {
	d := NewDiagram()
	if rc.WidthMM > 0 {
		d.WidthMM = rc.WidthMM
	}
	if rc.Resolution > 0 {
		d.Resolution = canvas.DPI(rc.Resolution)
	}
	return d
}

// RenderDiagram draws the state with PlotCore and encodes it to w.
func RenderDiagram(w io.Writer, state *State, rc RenderConfig, format Format) error {
	d := NewDiagramFor(rc)
	if err := PlotCore(d, state, rc.Options()); err != nil {
		return fmt.Errorf("plotting state: %w", err)
	}

	switch format {
	case FormatSVG:
		return d.RenderToSVG(w)
	case FormatPNG:
		return d.RenderToPNG(w)
	default:
		return fmt.Errorf("unknown diagram format %q", format)
	}
}

// RenderStrips draws the channel strips as a tick-labelled PNG figure.
func RenderStrips(w io.Writer, chans []Channel) error {
	fig := NewStripFigure()
	if err := PlotImages(chans, fig, nil); err != nil {
		return err
	}
	return fig.WritePNG(w)
}
