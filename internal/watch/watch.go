// Package watch reloads platform schemas when their files change on disk.
//
// A Watcher observes each configured schema directory with fsnotify. Events
// are debounced per platform: once a platform's directory has been quiet for
// the debounce window, the Refresher is asked to reload it. A refresh that
// fails leaves the previous schema serving and is logged; the watcher keeps
// running.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/schemasrc"
)

const (
	DefaultDebounce = 500 * time.Millisecond

	// sweepInterval is how often settled events are collected.
	sweepInterval = 50 * time.Millisecond
)

// Refresher reloads one platform's schema and reports whether it changed.
type Refresher interface {
	Refresh(ctx context.Context, platform string) (bool, error)
}

type Config struct {
	// Dirs maps each watched platform to its schema directory.
	Dirs      map[ir.PlatformID]string
	Refresher Refresher
	Logger    *slog.Logger
	Debounce  time.Duration
}

func (c *Config) Validate() error {
	if len(c.Dirs) == 0 {
		return errors.New("no schema directories to watch")
	}
	if c.Refresher == nil {
		return errors.New("refresher is required")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	return nil
}

// Stats counts watcher activity.
type Stats struct {
	Events    int
	Refreshes int
	Changed   int
	Errors    int
	LastEvent time.Time
	LastPath  string
}

type Watcher struct {
	cfg  Config
	log  *slog.Logger
	dirs map[string]ir.PlatformID

	mu      sync.Mutex
	pending map[ir.PlatformID]time.Time
	stats   Stats
}

func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &Watcher{
		cfg:     cfg,
		log:     cfg.Logger,
		dirs:    make(map[string]ir.PlatformID, len(cfg.Dirs)),
		pending: make(map[ir.PlatformID]time.Time),
	}
	for id, dir := range cfg.Dirs {
		w.dirs[filepath.Clean(dir)] = id
	}
	return w, nil
}

// Run watches until ctx is cancelled. Directories that cannot be watched are
// logged and skipped; Run fails only when none can be.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dirs := make([]string, 0, len(w.dirs))
	for dir := range w.dirs {
		dirs = append(dirs, dir)
	}
	slices.Sort(dirs)

	watched := 0
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			w.log.Warn("cannot watch schema directory", "platform", w.dirs[dir], "dir", dir, "error", err)
			continue
		}
		w.log.Info("watching schema directory", "platform", w.dirs[dir], "dir", dir)
		watched++
	}
	if watched == 0 {
		return errors.New("no schema directory could be watched")
	}

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", "error", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.refreshSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if !slices.Contains(schemasrc.Extensions, strings.ToLower(filepath.Ext(event.Name))) {
		return
	}
	id, ok := w.dirs[filepath.Dir(filepath.Clean(event.Name))]
	if !ok {
		return
	}
	w.log.Debug("schema file event", "platform", id, "op", event.Op.String(), "path", event.Name)

	now := time.Now()
	w.mu.Lock()
	w.pending[id] = now
	w.stats.Events++
	w.stats.LastEvent = now
	w.stats.LastPath = event.Name
	w.mu.Unlock()
}

// refreshSettled refreshes every platform quiet for the debounce window.
func (w *Watcher) refreshSettled(ctx context.Context) {
	now := time.Now()
	var settled []ir.PlatformID
	w.mu.Lock()
	for id, at := range w.pending {
		if now.Sub(at) >= w.cfg.Debounce {
			settled = append(settled, id)
			delete(w.pending, id)
		}
	}
	w.mu.Unlock()
	slices.Sort(settled)

	for _, id := range settled {
		changed, err := w.cfg.Refresher.Refresh(ctx, string(id))
		w.mu.Lock()
		w.stats.Refreshes++
		if changed {
			w.stats.Changed++
		}
		if err != nil {
			w.stats.Errors++
		}
		w.mu.Unlock()

		switch {
		case err != nil:
			w.log.Warn("schema refresh failed; previous schema still serving", "platform", id, "error", err)
		case changed:
			w.log.Info("schema reloaded", "platform", id)
		default:
			w.log.Debug("schema unchanged after file event", "platform", id)
		}
	}
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
