// Package watcher reports project manifests that change on disk outside the
// agent, for example when a project folder is copied in by hand.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

type Watcher interface {
	Watch(ctx context.Context, root string) error
	Stop() error
	OnChange(callback func(title string, event EventType))
}

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ManifestWatcher watches root and every root/<title> directory and reports
// changes to root/<title>/<manifest>. Manifests present when Watch is called
// are known but not reported.
type ManifestWatcher struct {
	manifest string
	logger   *slog.Logger

	mu       sync.Mutex
	callback func(title string, event EventType)
	known    map[string]bool
	root     string
	fsw      *fsnotify.Watcher
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ Watcher = (*ManifestWatcher)(nil)

func NewManifestWatcher(manifest string, logger *slog.Logger) *ManifestWatcher {
	return &ManifestWatcher{manifest: manifest, logger: logger, known: make(map[string]bool)}
}

func (w *ManifestWatcher) OnChange(callback func(title string, event EventType)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = callback
}

func (w *ManifestWatcher) Watch(ctx context.Context, root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(root); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch projects root: %w", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		_ = fsw.Close()
		return fmt.Errorf("read projects root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("cannot watch project directory", "dir", dir, "error", err)
			continue
		}
		if w.hasManifest(dir) {
			w.known[e.Name()] = true
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w.root = filepath.Clean(root)
	w.fsw = fsw
	w.cancel = cancel
	w.done = make(chan struct{})

	w.logger.Info("watching project manifests", "root", root, "projects", len(w.known))
	go w.loop(ctx, fsw, w.done)
	return nil
}

// Stop ends the event loop and releases the OS watcher. It is safe to call
// more than once.
func (w *ManifestWatcher) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done, w.fsw = nil, nil, nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (w *ManifestWatcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	defer fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("manifest watcher error", "error", err)
		}
	}
}

func (w *ManifestWatcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	parent := filepath.Dir(path)

	switch {
	case parent == w.root:
		w.handleProjectDir(fsw, path, event)
	case filepath.Dir(parent) == w.root && filepath.Base(path) == w.manifest:
		w.handleManifest(filepath.Base(parent), event)
	}
}

// handleProjectDir covers a project directory appearing or going away. A
// directory moved in whole may already hold its manifest.
func (w *ManifestWatcher) handleProjectDir(fsw *fsnotify.Watcher, dir string, event fsnotify.Event) {
	title := filepath.Base(dir)
	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return
		}
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("cannot watch project directory", "dir", dir, "error", err)
		}
		if w.hasManifest(dir) {
			w.dispatch(title, w.markPresent(title))
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if w.markGone(title) {
			w.dispatch(title, EventDelete)
		}
	}
}

func (w *ManifestWatcher) handleManifest(title string, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.dispatch(title, w.markPresent(title))
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if w.markGone(title) {
			w.dispatch(title, EventDelete)
		}
	}
}

// markPresent records title and reports whether this is its first manifest.
// An atomic replace arrives as a Create on a known title and counts as a
// modification.
func (w *ManifestWatcher) markPresent(title string) EventType {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.known[title] {
		return EventModify
	}
	w.known[title] = true
	return EventCreate
}

func (w *ManifestWatcher) markGone(title string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.known[title] {
		return false
	}
	delete(w.known, title)
	return true
}

func (w *ManifestWatcher) dispatch(title string, event EventType) {
	w.mu.Lock()
	callback := w.callback
	w.mu.Unlock()
	if callback != nil {
		callback(title, event)
	}
}

func (w *ManifestWatcher) hasManifest(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, w.manifest))
	return err == nil && info.Mode().IsRegular()
}
