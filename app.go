package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/stepview/view"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultConfigFile = "config.yaml"

// App encapsulates the application state and dependencies
type App struct {
	Config     *view.Config
	Tracker    *view.SnapshotTracker
	MQTTClient *view.MQTTClient
	Publisher  *view.Publisher
	Log        *zap.SugaredLogger
	Out        io.Writer

	// CLI Flags (effectively dependencies)
	ConfigFile   string
	SnapshotFile string
	OutputFile   string
	Format       string
	Zoom         bool
	Strips       bool
	HttpPort     int
	MqttMode     bool
	HttpMode     bool
}

// NewApp creates a new App instance
func NewApp(log *zap.SugaredLogger) *App {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &App{
		Tracker:    view.NewSnapshotTracker(),
		Log:        log,
		Out:        os.Stdout,
		ConfigFile: defaultConfigFile,
		Format:     "png",
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.SnapshotFile = opts.SnapshotFile
	a.OutputFile = opts.OutputFile
	a.Format = opts.Format
	a.Zoom = opts.Zoom
	a.Strips = opts.Strips
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode

	// -debug is only known after flag parsing, so the logger is rebuilt here
	if opts.Debug && !a.Log.Desugar().Core().Enabled(zapcore.DebugLevel) {
		log, err := newLogger(true)
		if err != nil {
			a.Log.Warnf("Debug logging unavailable: %v", err)
			return
		}
		a.Log = log
	}
}

// loadConfig reads the config file. A missing default config.yaml falls
// back to built-in defaults; an explicitly named file must exist.
func (a *App) loadConfig() (*view.Config, error) {
	if a.Config != nil {
		return a.Config, nil
	}

	path := a.ConfigFile
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultConfigFile {
		a.Log.Infof("No %s found, using default settings", path)
		a.Config = &view.Config{Render: view.DefaultRenderConfig()}
		return a.Config, nil
	}

	config, err := view.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w (looked at %s)", err, path)
	}
	a.Log.Infof("Loaded config from %s", path)
	a.Config = config
	return config, nil
}

// renderConfig returns the configured render settings with CLI overrides.
func (a *App) renderConfig() view.RenderConfig {
	rc := view.DefaultRenderConfig()
	if a.Config != nil {
		rc = a.Config.Render
	}
	if a.Zoom {
		rc.Zoom = true
	}
	return rc
}

// outputPaths derives the diagram file names for the selected format.
func outputPaths(output, format string) map[view.Format]string {
	if output == "" {
		output = "diagram.png"
	}
	base := strings.TrimSuffix(output, filepath.Ext(output))

	paths := make(map[view.Format]string)
	switch format {
	case "svg":
		paths[view.FormatSVG] = base + ".svg"
	case "both":
		paths[view.FormatSVG] = base + ".svg"
		paths[view.FormatPNG] = base + ".png"
	default:
		paths[view.FormatPNG] = base + ".png"
	}
	return paths
}

// stripsPath is where -strips writes the sensor strip figure.
func stripsPath(output string) string {
	if output == "" {
		output = "diagram.png"
	}
	return strings.TrimSuffix(output, filepath.Ext(output)) + "-strips.png"
}

// writeFile creates path and hands it to render.
func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// loadSnapshot reads -snapshot from disk, or over HTTP when it is a URL.
func (a *App) loadSnapshot() (*view.Snapshot, error) {
	src := a.SnapshotFile
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		a.Log.Infof("Fetching snapshot from %s", src)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		return view.FetchSnapshot(ctx, src)
	}
	return view.ParseSnapshotFile(src)
}

// RunRender renders a snapshot file once and exits.
func (a *App) RunRender() error {
	if _, err := a.loadConfig(); err != nil {
		return err
	}

	snap, err := a.loadSnapshot()
	if err != nil {
		return fmt.Errorf("loading snapshot %s: %w", a.SnapshotFile, err)
	}
	state := &snap.State
	a.Log.Infof("Loaded snapshot: %d agents, %d lines, %d texels, %d channels",
		state.Agents.Len(), len(state.Scene.Lines), state.Scene.TotalTexels(), len(snap.Channels))

	rc := a.renderConfig()
	for _, format := range []view.Format{view.FormatSVG, view.FormatPNG} {
		path, ok := outputPaths(a.OutputFile, a.Format)[format]
		if !ok {
			continue
		}
		err := writeFile(path, func(w io.Writer) error {
			return view.RenderDiagram(w, state, rc, format)
		})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.Out, "Saved diagram to %s\n", path)
	}

	if a.Strips {
		if len(snap.Channels) == 0 {
			a.Log.Warn("Snapshot has no image channels; skipping strips")
			return nil
		}
		path := stripsPath(a.OutputFile)
		if err := writeFile(path, func(w io.Writer) error {
			return view.RenderStrips(w, snap.Channels)
		}); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.Out, "Saved strips to %s\n", path)
	}
	return nil
}

// handleSnapshot is the MQTT snapshot callback: it records the snapshot
// and republishes the rendered view.
func (a *App) handleSnapshot(payload []byte, snap *view.Snapshot, err error) {
	if err != nil {
		a.Log.Errorf("Error receiving snapshot (%d bytes): %v", len(payload), err)
		return
	}

	a.Tracker.Update(snap)
	a.Log.Debugf("Received snapshot: %d agents, %d lines, %d channels",
		snap.State.Agents.Len(), len(snap.State.Scene.Lines), len(snap.Channels))

	if a.Publisher != nil {
		if err := a.Publisher.PublishSnapshot(snap); err != nil {
			a.Log.Errorf("Error publishing view: %v", err)
		}
	}
}

// RunService runs MQTT and/or HTTP until interrupted.
func (a *App) RunService() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.serve(ctx)
}

func (a *App) serve(ctx context.Context) error {
	a.Log.Info("Starting stepview service...")

	config, err := a.loadConfig()
	if err != nil {
		return err
	}

	if a.MqttMode {
		mqttClient, err := view.InitMQTT(config, a.handleSnapshot, a.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize MQTT: %w", err)
		}
		if mqttClient == nil {
			return fmt.Errorf("MQTT broker not configured (set mqtt.broker or MQTT_BROKER)")
		}
		a.MQTTClient = mqttClient
		a.Publisher = view.NewPublisher(mqttClient.GetClient(), config.MQTT.PublishPrefix, a.renderConfig(), a.Log)
		a.Log.Info("MQTT view publisher initialized")
	}

	var server *http.Server
	if a.HttpMode {
		server = &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", a.HttpPort),
			Handler:           newHTTPServer(a.Tracker, a.renderConfig(), a.Log),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			a.Log.Infof("[HTTP] Starting server on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Log.Errorf("[HTTP] Server error: %v", err)
			}
		}()
	}

	a.printServiceInfo(config)

	<-ctx.Done()

	a.Log.Info("Shutting down service...")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.Log.Warnf("[HTTP] Shutdown: %v", err)
		}
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	a.Log.Info("Service stopped")
	return nil
}

func (a *App) printServiceInfo(config *view.Config) {
	out := a.Out
	_, _ = fmt.Fprintln(out, "\nService Running")
	_, _ = fmt.Fprintln(out, "===============")

	if a.MqttMode {
		prefix := config.MQTT.PublishPrefix
		if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
			prefix = env
		}
		if prefix == "" {
			prefix = "stepview"
		}
		_, _ = fmt.Fprintln(out, "\nMQTT:")
		_, _ = fmt.Fprintf(out, "  Subscribed topic: %s\n", config.MQTT.SnapshotTopic)
		_, _ = fmt.Fprintf(out, "  View summary:     %s/view\n", prefix)
		_, _ = fmt.Fprintf(out, "  Diagram:          %s/diagram.png\n", prefix)
	}

	if a.HttpMode {
		_, _ = fmt.Fprintf(out, "\nHTTP endpoints (port %d):\n", a.HttpPort)
		_, _ = fmt.Fprintln(out, "  GET /health            - Health check")
		_, _ = fmt.Fprintln(out, "  GET /diagram.svg       - Scene diagram (?zoom=1, ?poses=1)")
		_, _ = fmt.Fprintln(out, "  GET /diagram.png       - Scene diagram as PNG")
		_, _ = fmt.Fprintln(out, "  GET /strips.png        - Sensor strips with channel labels")
		_, _ = fmt.Fprintln(out, "  GET /strips-sheet.png  - Sensor strips contact sheet (?scale=N)")
		_, _ = fmt.Fprintln(out, "  GET /view.json         - Viewport and agent summary")
	}

	_, _ = fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
