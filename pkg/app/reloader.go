package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/taigrr/glbview/pkg/config"
	"github.com/taigrr/glbview/pkg/engine"
	"github.com/taigrr/glbview/pkg/looper"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 150 * time.Millisecond

// Reloader watches a file and posts its new contents to a looper after
// it settles.
type Reloader struct {
	path     string
	watcher  *fsnotify.Watcher
	handler  looper.Handler
	apply    func(data []byte)
	debounce time.Duration
}

// NewReloader starts watching path. apply runs on h with the file's
// contents after each change. The parent directory is watched so that
// saves by rename are seen.
func NewReloader(path string, h looper.Handler, apply func(data []byte)) (*Reloader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return &Reloader{
		path:     abs,
		watcher:  w,
		handler:  h,
		apply:    apply,
		debounce: DefaultDebounce,
	}, nil
}

// SetDebounce changes the settle time. Call before Run.
func (r *Reloader) SetDebounce(d time.Duration) {
	r.debounce = d
}

// Run delivers reloads until ctx is done. It closes the watcher on return.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != r.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			timer.Reset(r.debounce)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			engine.Logger().Warn("watch error", "path", r.path, "err", err)
		case <-timer.C:
			r.fire()
		}
	}
}

func (r *Reloader) fire() {
	data, err := os.ReadFile(r.path)
	if err != nil {
		engine.Logger().Warn("reload read failed", "path", r.path, "err", err)
		return
	}
	if !r.handler.Post(func() { r.apply(data) }) {
		engine.Logger().Warn("reload dropped", "path", r.path)
	}
}

// ModelReload returns a Reloader apply func that swaps the facade's model
// for the new bytes.
func ModelReload(f engine.Facade, cfg config.Config, n Notifier) func([]byte) {
	return func(data []byte) {
		f.ReleaseModel()
		if ApplyModel(f, cfg, n, data) {
			engine.Logger().Info("model reloaded", "model", cfg.Model, "bytes", len(data))
			n.Status("Model reloaded")
		}
	}
}
