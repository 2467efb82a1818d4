// glbview - Terminal glTF Viewer
// Renders a GLB model lit by an image-based environment and lets you pick
// parts of it with the mouse.
//
// Controls:
//
//	Click       - Select / deselect the part under the cursor
//	Mouse drag  - Orbit
//	Scroll, +/- - Zoom
//	Arrows/WASD - Nudge the orbit
//	P           - Pause / resume rendering
//	R           - Reset view
//	S           - Save a screenshot
//	?           - Toggle HUD
//	Esc, Q      - Quit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/glbview/pkg/app"
	"github.com/taigrr/glbview/pkg/assets"
	"github.com/taigrr/glbview/pkg/choreo"
	"github.com/taigrr/glbview/pkg/config"
	"github.com/taigrr/glbview/pkg/engine"
	"github.com/taigrr/glbview/pkg/looper"
)

var (
	configPath = flag.String("config", config.DefaultPath, "Path to TOML config")
	assetsDir  = flag.String("assets", "assets", "Asset directory (models/, envs/)")
	modelPath  = flag.String("model", "", "Model path inside the asset directory")
	envName    = flag.String("env", "", "Environment name under envs/")
	targetFPS  = flag.Int("fps", 0, "Target FPS")
	bgColor    = flag.String("bg", "", "Background color (#rrggbb)")
	logPath    = flag.String("log", "", "Write debug logs to this file")
	watch      = flag.Bool("watch", false, "Reload the model when its file changes")
	printCfg   = flag.Bool("print-config", false, "Print the effective config as TOML and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "glbview - Terminal glTF Viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: glbview [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  Click       - Select / deselect\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Orbit\n")
		fmt.Fprintf(os.Stderr, "  Scroll, +/- - Zoom\n")
		fmt.Fprintf(os.Stderr, "  P           - Pause / resume\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  S           - Screenshot\n")
		fmt.Fprintf(os.Stderr, "  ?           - Toggle HUD\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *printCfg {
		data, err := cfg.Encode()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		return
	}

	closeLog, err := setupLogging(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeLog()
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			cfg.Model = *modelPath
		case "env":
			cfg.Environment = *envName
		case "fps":
			cfg.FPS = *targetFPS
		case "bg":
			cfg.Background = *bgColor
		}
	})
	return cfg, cfg.Validate()
}

// assetHint lists what the asset directory does offer.
func assetHint(store *assets.Store) string {
	var b strings.Builder
	if names, err := store.Models(); err == nil && len(names) > 0 {
		b.WriteString("\navailable models:")
		for _, n := range names {
			b.WriteString("\n  " + n)
		}
	}
	if names, err := store.Environments(); err == nil && len(names) > 0 {
		b.WriteString("\navailable environments:")
		for _, n := range names {
			b.WriteString("\n  " + n)
		}
	}
	return b.String()
}

func setupLogging(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	engine.SetLogger(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return func() { f.Close() }, nil
}

func run(cfg config.Config) (err error) {
	engine.Init()

	bg, err := config.ParseHexColor(cfg.Background)
	if err != nil {
		return err
	}

	term := uv.DefaultTerminal()
	cols, rows, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	viewer, err := engine.NewViewer(cols, rows*2)
	if err != nil {
		return fmt.Errorf("create viewer: %w", err)
	}
	viewer.Renderer().Clear = bg

	root, err := homedir.Expand(*assetsDir)
	if err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	hud := NewHUD(filepath.Base(cfg.Model))
	store := assets.Dir(root)
	// a missing asset ends startup before the terminal is taken over
	if err := app.LoadScene(store, cfg, viewer, hud); err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			return fmt.Errorf("%w%s", err, assetHint(store))
		}
		return err
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(cols, rows)
	fmt.Fprint(os.Stdout, mouseOn)

	cleanup := func() {
		fmt.Fprint(os.Stdout, mouseOff)
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loop := looper.New(looper.DefaultQueue)
	source := choreo.New(loop, choreo.NewSystemClock(), cfg.FPS)
	viewer.SetFrameBudget(source.Interval())

	orbit := NewOrbit(cfg.FPS)
	scene := &sceneView{Facade: viewer, orbit: orbit}
	frames := app.NewFrameLoop(source, source.Clock(), scene)
	binder := app.NewBinder(frames, viewer)
	picker := app.NewPickController(viewer, loop, hud)
	picker.SetDragHandler(orbit)

	h := &host{
		term:   term,
		loop:   loop,
		binder: binder,
		picker: picker,
		orbit:  orbit,
		hud:    hud,
		quit:   cancel,
	}
	h.surface = &termSurface{term: term, hud: hud, facade: viewer, paused: &h.paused, cols: cols, rows: rows}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(guard(func() error { return loop.Run(ctx) }))
	g.Go(guard(func() error { return source.Run(ctx) }))
	g.Go(guard(func() error { return h.pump(ctx) }))

	if *watch {
		r, err := app.NewReloader(filepath.Join(root, cfg.Model), loop, app.ModelReload(viewer, cfg, hud))
		if err != nil {
			hud.Status(err.Error())
		} else {
			g.Go(guard(func() error { return r.Run(ctx) }))
		}
	}

	loop.Post(func() {
		viewer.SurfaceCreated(h.surface)
		binder.SurfaceCreated(h.surface)
		h.resize(cols, rows)
		binder.HandleLifecycle(lifecycle.Event{From: lifecycle.StageDead, To: lifecycle.StageFocused})
	})

	err = g.Wait()
	if !binder.IsDestroyed() {
		// signal or a failed goroutine; the looper is gone, finish here
		binder.Destroyed()
	}
	viewer.SurfaceDestroyed()
	binder.SurfaceDestroyed()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
