// Package watcher rebuilds an artifact whenever a file it was built from
// changes.
package watcher

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"scriptmerge/internal/analysis"
	"scriptmerge/internal/pipeline"
)

const defaultDebounce = 500 * time.Millisecond

// BuildFunc produces a fresh build. It is called once at start and again
// after every debounced batch of relevant changes.
type BuildFunc func(ctx context.Context) (*pipeline.Result, error)

// ResultFunc consumes a successful build, typically by writing the artifact.
type ResultFunc func(res *pipeline.Result) error

type Watcher struct {
	entry    string
	build    BuildFunc
	onResult ResultFunc
	debounce time.Duration
	logger   *log.Logger

	fsw      *fsnotify.Watcher
	dirs     map[string]bool
	analyzer *analysis.Analyzer
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

func New(entry string, build BuildFunc, onResult ResultFunc, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entry path %s: %w", entry, err)
	}
	w := &Watcher{
		entry:    abs,
		build:    build,
		onResult: onResult,
		debounce: defaultDebounce,
		logger:   log.New(io.Discard),
		dirs:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run builds once and then watches until ctx is done. Build failures are
// logged and the previous watch set is kept, so fixing the file triggers
// the next build.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()
	w.fsw = fsw

	if err := w.watchDir(filepath.Dir(w.entry)); err != nil {
		return err
	}
	w.rebuild(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("file event", "op", event.Op.String(), "path", event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "err", err)

		case <-fire:
			fire = nil
			w.rebuild(ctx)
		}
	}
}

func (w *Watcher) rebuild(ctx context.Context) {
	res, err := w.build(ctx)
	if err != nil {
		w.logger.Error("build failed", "err", err)
		return
	}
	w.analyzer = analysis.NewAnalyzer(res.Entry, res.Table)
	for _, f := range res.Files() {
		if err := w.watchDir(filepath.Dir(f)); err != nil {
			w.logger.Warn("cannot watch directory", "path", filepath.Dir(f), "err", err)
		}
	}
	if w.onResult != nil {
		if err := w.onResult(res); err != nil {
			w.logger.Error("writing result failed", "err", err)
		}
	}
}

func (w *Watcher) watchDir(dir string) error {
	if w.dirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to add watcher for %s: %w", dir, err)
	}
	w.dirs[dir] = true
	w.logger.Debug("watching", "path", dir)
	return nil
}

// relevant decides whether an event can change the artifact. New or removed
// Python files may change what resolves, so they always count; writes only
// count for files that are part of the current build.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	path := filepath.Clean(event.Name)
	if path == w.entry {
		return event.Op != fsnotify.Chmod
	}
	if !strings.HasSuffix(path, ".py") {
		return false
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return true
	}
	if !event.Has(fsnotify.Write) {
		return false
	}
	if w.analyzer == nil {
		return true
	}
	return w.analyzer.AnalyzeImpact([]string{path}).Affected()
}
