// slat is a status bar for wlroots compositors.
//
// It creates a layer-shell surface anchored to a screen edge, renders a
// configurable widget tree into shared-memory buffers, and repaints only
// when something changed and the compositor is ready for a frame.
//
// Usage:
//
//	slat [flags]
//
// Flags:
//
//	-config string  Path to a config file or directory (default: XDG search)
//	-format string  Config format: auto, toml or yaml (default auto)
//	-verbose        Enable debug logging
//	-version        Print version and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/image/font"

	"gitlab.com/tinyland/lab/slat/pkg/config"
	"gitlab.com/tinyland/lab/slat/pkg/fonts"
	"gitlab.com/tinyland/lab/slat/pkg/ipc"
	"gitlab.com/tinyland/lab/slat/pkg/loop"
	"gitlab.com/tinyland/lab/slat/pkg/render"
	"gitlab.com/tinyland/lab/slat/pkg/surface"
	"gitlab.com/tinyland/lab/slat/pkg/wayland"
	"gitlab.com/tinyland/lab/slat/pkg/widget"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// barPadding is the vertical slack added when deriving the bar height from
// font metrics.
const barPadding = 10

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "", "Path to a config file or directory")
		formatName  = flag.String("format", "auto", "Config format: auto, toml or yaml")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("slat %s (%s)\n", version, commit)
		return 0
	}

	format, err := config.ParseFormat(*formatName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cfg, err := loadConfig(*configPath, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	log := newLogger(cfg.General.LogLevel, *verbose)
	slog.SetDefault(log)

	face := loadFace(log, cfg.Font)
	engine := render.NewEngine(face)

	height := cfg.Bar.Height
	if height == 0 {
		height = engine.LineHeight() + barPadding
		log.Debug("derived bar height from font metrics", "height", height)
	}

	tree, err := widget.Build(&cfg.Bar)
	if err != nil {
		log.Error("invalid widget configuration", "error", err)
		return 2
	}

	conn, err := wayland.Connect()
	if err != nil {
		log.Error("cannot reach the compositor", "error", err)
		return 1
	}
	defer conn.Close()

	exclusive := int32(0)
	if cfg.Bar.ExclusiveZone() {
		exclusive = int32(height)
	}
	mgr := surface.NewManager(conn, surface.Options{
		Namespace: "slat",
		Layer:     layerFor(cfg.Bar.Layer),
		Anchor:    anchorFor(cfg.Bar.Anchor),
		Height:    uint32(height),
		Margin:    cfg.Bar.Margin,
		Exclusive: exclusive,
	})
	if err := mgr.Initialize(); err != nil {
		if errors.Is(err, wayland.ErrProtocolUnavailable) {
			log.Error("compositor does not support the layer-shell protocol", "error", err)
		} else {
			log.Error("surface setup failed", "error", err)
		}
		return 1
	}
	defer mgr.Destroy()
	conn.Pump()

	var ipcEvents <-chan ipc.Event
	ipcClient, err := ipc.Connect()
	switch {
	case err == nil:
		defer ipcClient.Close()
		ipcEvents = ipcClient.Events()
	case errors.Is(err, ipc.ErrNoCompositor):
		log.Info("no hyprland instance, compositor widgets stay inactive")
	default:
		log.Warn("compositor ipc unavailable", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := loop.New(loop.Options{
		Logger:    log,
		Presenter: mgr,
		Engine:    engine,
		Tree:      tree,
		WlEvents:  conn.Events(),
		WlErr:     conn.Err,
		IPC:       ipcEvents,
	})
	log.Info("bar running", "anchor", cfg.Bar.Anchor, "height", height)
	if err := l.Run(ctx); err != nil {
		log.Error("event loop failed", "error", err)
		return 1
	}
	return 0
}

// loadConfig resolves the -config flag, which may name a file, a directory,
// or nothing (standard search path).
func loadConfig(path string, format config.Format) (*config.Config, error) {
	if path == "" {
		return config.Load("", format)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return config.Load(path, format)
	}
	return config.LoadFile(path, format)
}

// newLogger builds the process logger. -verbose wins over the configured
// level.
func newLogger(level string, verbose bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// loadFace loads the configured font, falling back to the built-in bitmap
// face so a bad path degrades the looks rather than the bar.
func loadFace(log *slog.Logger, fc config.FontConfig) font.Face {
	if fc.Path == "" {
		return fonts.Fallback()
	}
	face, err := fonts.Load(fc.Path, fc.Size)
	if err != nil {
		log.Warn("font load failed, using built-in face", "path", fc.Path, "error", err)
		return fonts.Fallback()
	}
	return face
}

// layerFor maps the configured layer name to its protocol value.
func layerFor(s string) wayland.Layer {
	switch strings.ToLower(s) {
	case "background":
		return wayland.LayerBackground
	case "bottom":
		return wayland.LayerBottom
	case "overlay":
		return wayland.LayerOverlay
	default:
		return wayland.LayerTop
	}
}

// anchorFor maps the configured edge to the anchor bitmask. The bar always
// spans the full width, so left and right are implied.
func anchorFor(s string) wayland.Anchor {
	if strings.ToLower(s) == "bottom" {
		return wayland.AnchorBottom | wayland.AnchorLeft | wayland.AnchorRight
	}
	return wayland.AnchorTop | wayland.AnchorLeft | wayland.AnchorRight
}
