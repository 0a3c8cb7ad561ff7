package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/kwv/stepview/view"
	"go.uber.org/zap"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(tracker *view.SnapshotTracker, rc view.RenderConfig, log *zap.SugaredLogger) http.Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		received, updated := tracker.Stats()
		status := struct {
			Status      string    `json:"status"`
			Timestamp   time.Time `json:"timestamp"`
			HasSnapshot bool      `json:"hasSnapshot"`
			Received    int       `json:"received"`
			LastUpdate  time.Time `json:"lastUpdate"`
		}{
			Status:      "ok",
			Timestamp:   time.Now(),
			HasSnapshot: tracker.HasSnapshot(),
			Received:    received,
			LastUpdate:  updated,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Errorf("Error encoding health status: %v", err)
		}
	})

	diagram := func(format view.Format, contentType string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			snap := latest(w, tracker)
			if snap == nil {
				return
			}
			cfg, err := requestRenderConfig(rc, r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			poses, _ := strconv.ParseBool(r.URL.Query().Get("poses"))

			serveRendered(w, log, contentType, func(buf io.Writer) error {
				return renderDiagram(buf, &snap.State, cfg, format, poses)
			})
		}
	}
	mux.HandleFunc("/diagram.svg", diagram(view.FormatSVG, "image/svg+xml"))
	mux.HandleFunc("/diagram.png", diagram(view.FormatPNG, "image/png"))

	mux.HandleFunc("/strips.png", func(w http.ResponseWriter, r *http.Request) {
		snap := latestWithChannels(w, tracker)
		if snap == nil {
			return
		}
		serveRendered(w, log, "image/png", func(buf io.Writer) error {
			return view.RenderStrips(buf, snap.Channels)
		})
	})

	mux.HandleFunc("/strips-sheet.png", func(w http.ResponseWriter, r *http.Request) {
		snap := latestWithChannels(w, tracker)
		if snap == nil {
			return
		}
		scale := rc.StripScale
		if s := r.URL.Query().Get("scale"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 64 {
				http.Error(w, "scale must be an integer between 1 and 64", http.StatusBadRequest)
				return
			}
			scale = n
		}
		serveRendered(w, log, "image/png", func(buf io.Writer) error {
			return view.WriteStripSheet(buf, snap.Channels, scale, nil)
		})
	})

	mux.HandleFunc("/view.json", func(w http.ResponseWriter, r *http.Request) {
		snap := latest(w, tracker)
		if snap == nil {
			return
		}
		cfg, err := requestRenderConfig(rc, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		summary, err := view.Summarize(&snap.State, cfg)
		if err != nil {
			log.Errorf("Error summarizing snapshot: %v", err)
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(summary); err != nil {
			log.Errorf("Error encoding view summary: %v", err)
		}
	})

	// Default route serves an HTML page embedding the diagram and strips
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = fmt.Fprint(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>stepview</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
html,body{width:100%;background:#1a1a1a}
main{display:flex;flex-wrap:wrap;gap:8px;padding:8px}
img{display:block;max-width:100%;height:auto}
</style>
</head>
<body>
<main>
<img src="/diagram.svg?poses=1" alt="Scene">
<img src="/strips-sheet.png" alt="Sensor strips">
</main>
</body>
</html>`)
	})

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Infof("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}

// latest returns the current snapshot or writes a 503.
func latest(w http.ResponseWriter, tracker *view.SnapshotTracker) *view.Snapshot {
	snap := tracker.Latest()
	if snap == nil {
		http.Error(w, "No snapshot available", http.StatusServiceUnavailable)
	}
	return snap
}

func latestWithChannels(w http.ResponseWriter, tracker *view.SnapshotTracker) *view.Snapshot {
	snap := latest(w, tracker)
	if snap != nil && len(snap.Channels) == 0 {
		http.Error(w, "Snapshot has no image channels", http.StatusNotFound)
		return nil
	}
	return snap
}

// requestRenderConfig applies the ?zoom= query override.
func requestRenderConfig(rc view.RenderConfig, r *http.Request) (view.RenderConfig, error) {
	if z := r.URL.Query().Get("zoom"); z != "" {
		zoom, err := strconv.ParseBool(z)
		if err != nil {
			return rc, fmt.Errorf("invalid zoom %q", z)
		}
		rc.Zoom = zoom
	}
	return rc, nil
}

// renderDiagram draws the core diagram and, optionally, agent body outlines.
func renderDiagram(w io.Writer, state *view.State, rc view.RenderConfig, format view.Format, poses bool) error {
	if !poses {
		return view.RenderDiagram(w, state, rc, format)
	}

	d := view.NewDiagramFor(rc)
	opts := rc.Options()
	if err := view.PlotCore(d, state, opts); err != nil {
		return err
	}
	for i := 0; i < state.Agents.Len(); i++ {
		one := view.Poses{
			Positions: state.Agents.Positions[i : i+1],
			Angles:    state.Agents.Angles[i : i+1],
			Radians:   state.Agents.Radians,
		}
		if err := view.PlotPoses(d, one, opts.AgentRadius, view.PaletteColor(i)); err != nil {
			return err
		}
	}
	if format == view.FormatSVG {
		return d.RenderToSVG(w)
	}
	return d.RenderToPNG(w)
}

// serveRendered buffers the image so render errors can still produce a 500.
func serveRendered(w http.ResponseWriter, log *zap.SugaredLogger, contentType string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		log.Errorf("Error rendering %s: %v", contentType, err)
		http.Error(w, "Render failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Errorf("Error writing %s response: %v", contentType, err)
	}
}
