// Package main is a terminal host for the marginalia overlay: it opens a
// file and an annotation file and shows the review markers beside the text.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dshills/marginalia/internal/app"
	"github.com/dshills/marginalia/internal/config"
	"github.com/dshills/marginalia/internal/engine/tracking"
	"github.com/dshills/marginalia/internal/event"
	"github.com/dshills/marginalia/internal/marker"
	"github.com/dshills/marginalia/internal/renderer/backend"
	"github.com/dshills/marginalia/internal/renderer/core"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const envConfig = "MARGINALIA_CONFIG"

type options struct {
	configPath  string
	markersPath string
	logFile     string
	logLevel    string
	dump        bool
	width       int
	height      int
	file        string
}

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is normal.
	_ = godotenv.Load()

	opts, code := parseFlags()
	if code >= 0 {
		return code
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logOut, closeLog, err := logOutput(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()
	logger := app.NewLogger(app.LoggerConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOut,
		Name:   "marginalia",
	})

	text, err := os.ReadFile(opts.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	host := newFileHost(tracking.Lines(strings.Split(strings.TrimSuffix(string(text), "\n"), "\n")))

	set, err := loadMarkers(opts.markersPath, host.Snapshot(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	d := &demo{
		host:   host,
		bus:    event.NewBus(event.Options{Logger: logger}),
		loop:   app.NewLoop(),
		logger: logger,
	}
	views := app.NewRegistry()
	defer views.CloseAll()

	d.view, err = views.Open(host, app.ViewOptions{
		Config:   cfg,
		Logger:   logger,
		Metrics:  app.NewMetrics(prometheus.NewRegistry()),
		Bus:      d.bus,
		Loop:     d.loop,
		OnRedraw: d.scheduleDraw,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	d.visible = cfg.Visible
	d.publish(app.TopicMarkersChanged, set)

	if opts.dump {
		return d.dump(opts.width, opts.height)
	}
	return d.interactive(opts.configPath)
}

func parseFlags() (options, int) {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", os.Getenv(envConfig), "Path to a TOML or YAML configuration file")
	flag.StringVar(&opts.configPath, "c", os.Getenv(envConfig), "Path to configuration file (shorthand)")
	flag.StringVar(&opts.markersPath, "markers", "", "Path to the annotation JSON file")
	flag.StringVar(&opts.markersPath, "m", "", "Path to the annotation JSON file (shorthand)")
	flag.StringVar(&opts.logFile, "log-file", "", "Write logs to this file")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.dump, "dump", false, "Render one frame to stdout instead of the terminal")
	flag.IntVar(&opts.width, "width", 80, "Frame width for -dump")
	flag.IntVar(&opts.height, "height", 24, "Frame height for -dump")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "marginalia - review markers beside your code\n\n")
		fmt.Fprintf(os.Stderr, "Usage: marginalia [options] file\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nKeys: arrows/PgUp/PgDn scroll, +/- zoom, h hide, l logout/login, o insert line, q quit\n")
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("marginalia %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return opts, 0
	}
	if flag.NArg() != 1 {
		flag.Usage()
		return opts, 2
	}
	opts.file = flag.Arg(0)
	return opts, -1
}

func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if err := config.ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, cfg.Validate()
}

// logOutput keeps logs off the screen in interactive mode.
func logOutput(opts options) (io.Writer, func(), error) {
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}
	if opts.dump {
		return os.Stderr, func() {}, nil
	}
	return io.Discard, func() {}, nil
}

func loadMarkers(path string, snap *tracking.Snapshot, logger zerolog.Logger) (*marker.Set, error) {
	if path == "" {
		set, _ := marker.NewSet(snap, nil)
		return set, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	payload, skipped, err := marker.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, e := range skipped {
		logger.Warn().Err(e).Str("path", path).Msg("skipping marker")
	}
	set, invalid := marker.NewSet(snap, payload.Markers)
	for _, e := range invalid {
		logger.Warn().Err(e).Str("path", path).Msg("skipping marker")
	}
	logger.Info().Int("markers", set.Len()).Int64("version", payload.Version).Msg("markers loaded")
	return set, nil
}

// demo wires one view to a backend. Every method runs on the loop.
type demo struct {
	host    *fileHost
	view    *app.View
	bus     *event.Bus
	loop    *app.Loop
	logger  zerolog.Logger
	backend backend.Backend

	visible     bool
	loggedIn    bool
	drawPending bool
	quit        context.CancelFunc
}

func (d *demo) publish(topic event.Topic, payload any) {
	if err := d.bus.Publish(context.Background(), topic, payload); err != nil {
		d.logger.Error().Err(err).Str("topic", topic.String()).Msg("publish failed")
	}
}

func (d *demo) scheduleDraw() {
	if d.drawPending || d.backend == nil {
		return
	}
	d.drawPending = true
	d.loop.Post(d.draw)
}

func (d *demo) draw() {
	d.drawPending = false
	d.host.Draw(d.backend)
	if err := d.view.Draw(d.backend); err != nil {
		d.logger.Error().Err(err).Msg("draw failed")
	}
	d.backend.Show()
}

func (d *demo) resize(width, height int) {
	d.view.SetRect(core.RectFromSize(0, 0, height, width))
	d.host.rect = d.view.TextRect()
	d.publish(app.TopicLayoutChanged, d.host.Layout())
}

func (d *demo) login() {
	d.loggedIn = true
	d.publish(app.TopicSessionReady, nil)
}

// dump renders one frame into a NullBackend once the first search result
// is in, and prints it.
func (d *demo) dump(width, height int) int {
	b := backend.NewNullBackend(width, height)
	d.backend = b
	d.resize(width, height)
	d.login()

	deadline := time.Now().Add(5 * time.Second)
	for d.view.Latest() == nil && d.view.Search() != nil && time.Now().Before(deadline) {
		select {
		case <-d.view.Search().Done():
		case <-time.After(10 * time.Millisecond):
		}
		d.loop.RunPending()
	}
	d.loop.RunPending()
	d.draw()
	fmt.Print(b.Dump())
	return 0
}

func (d *demo) interactive(configPath string) int {
	term, err := backend.NewTerminal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}
	if err := term.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize terminal: %v\n", err)
		return 1
	}
	defer term.Shutdown()
	d.backend = term

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	d.quit = cancel

	if configPath != "" {
		w, err := config.NewWatcher(configPath, func(cfg config.Config) {
			d.loop.Post(func() { d.publish(app.TopicConfigChanged, cfg) })
		}, config.WatcherOptions{Logger: d.logger})
		if err != nil {
			d.logger.Warn().Err(err).Msg("config hot reload disabled")
		} else {
			defer w.Close()
		}
	}

	go func() {
		for {
			ev := term.PollEvent()
			if ctx.Err() != nil {
				return
			}
			if ev.Type != backend.EventNone {
				d.loop.Post(func() { d.handle(ev) })
			}
		}
	}()

	d.loop.Post(func() {
		w, h := term.Size()
		d.resize(w, h)
		d.login()
		d.scheduleDraw()
	})

	if err := d.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (d *demo) handle(ev backend.Event) {
	switch ev.Type {
	case backend.EventResize:
		d.resize(ev.Width, ev.Height)
	case backend.EventKey:
		d.handleKey(ev)
	}
	d.scheduleDraw()
}

func (d *demo) handleKey(ev backend.Event) {
	page := float64(d.host.rect.Height())
	switch ev.Key {
	case backend.KeyCtrlC, backend.KeyEscape:
		d.quit()
	case backend.KeyUp:
		d.scroll(-1)
	case backend.KeyDown:
		d.scroll(1)
	case backend.KeyPageUp:
		d.scroll(-page)
	case backend.KeyPageDown:
		d.scroll(page)
	case backend.KeyHome:
		d.scroll(-d.host.offset)
	case backend.KeyRune:
		d.handleRune(ev.Rune)
	}
}

func (d *demo) handleRune(r rune) {
	switch r {
	case 'q':
		d.quit()
	case '+', '=':
		d.zoom(1.25)
	case '-':
		d.zoom(0.8)
	case 'h':
		d.visible = !d.visible
		d.publish(app.TopicVisibilityToggled, d.visible)
	case 'l':
		if d.loggedIn {
			d.loggedIn = false
			d.publish(app.TopicSessionLogout, nil)
		} else {
			d.login()
		}
	case 'o':
		if err := d.host.InsertLine(0, "// inserted"); err != nil {
			d.logger.Error().Err(err).Msg("insert failed")
			return
		}
		d.publish(app.TopicBufferChanged, nil)
		d.publish(app.TopicLayoutChanged, d.host.Layout())
	}
}

func (d *demo) scroll(rows float64) {
	d.host.ScrollBy(rows)
	d.publish(app.TopicScroll, d.host.offset)
	d.publish(app.TopicLayoutChanged, d.host.Layout())
}

func (d *demo) zoom(factor float64) {
	d.host.ZoomBy(factor)
	d.publish(app.TopicZoom, d.host.scale)
	d.publish(app.TopicScroll, d.host.offset)
	d.publish(app.TopicLayoutChanged, d.host.Layout())
}
