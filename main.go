package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line.
type AppOptions struct {
	ConfigFile   string
	SnapshotFile string
	OutputFile   string
	Format       string
	Zoom         bool
	Strips       bool
	MqttMode     bool
	HttpMode     bool
	HttpPort     int
	Debug        bool
}

// Application is the set of modes main can dispatch to.
type Application interface {
	ApplyOptions(opts AppOptions)
	RunRender() error
	RunService() error
}

func main() {
	logger, err := newLogger(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	app := NewApp(logger)
	defer func() { _ = app.Log.Sync() }()

	if err := run(os.Args[1:], os.Stdout, app); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		app.Log.Fatalf("%v", err)
	}
}

// run parses args and dispatches to the selected mode.
func run(args []string, out io.Writer, app Application) error {
	fs := flag.NewFlagSet("stepview", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.SnapshotFile, "snapshot", "", "Render a snapshot file or http(s) URL (JSON or zlib JSON) and exit")
	fs.StringVar(&opts.OutputFile, "output", "diagram.png", "Output file for -snapshot mode; the extension follows -format")
	fs.StringVar(&opts.Format, "format", "png", "Diagram format: svg, png, or both")
	fs.BoolVar(&opts.Zoom, "zoom", false, "Zoom the diagram onto the agents")
	fs.BoolVar(&opts.Strips, "strips", false, "Also write the sensor image strips next to the diagram")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Run MQTT service mode, rendering each received snapshot")
	fs.BoolVar(&opts.HttpMode, "http", false, "Enable HTTP server for serving the latest snapshot")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port")
	fs.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "stepview version: %s\n", Version)

	switch opts.Format {
	case "svg", "png", "both":
	default:
		return fmt.Errorf("invalid -format %q: want svg, png, or both", opts.Format)
	}

	app.ApplyOptions(opts)

	if opts.SnapshotFile != "" {
		return app.RunRender()
	}
	if opts.MqttMode || opts.HttpMode {
		return app.RunService()
	}

	_, _ = fmt.Fprintln(out, "Nothing to do.")
	_, _ = fmt.Fprintln(out, "Use -snapshot=FILE to render a snapshot once")
	_, _ = fmt.Fprintln(out, "Use -mqtt to render snapshots as they are published")
	_, _ = fmt.Fprintln(out, "Use -http to serve the latest snapshot over HTTP")
	_, _ = fmt.Fprintln(out, "\nConfiguration:")
	_, _ = fmt.Fprintln(out, "  config.yaml - MQTT settings and render defaults")
	return nil
}
