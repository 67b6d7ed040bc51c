// Package watch monitors the input directory and hands each new or modified
// ledger export to a handler once the file has stopped changing.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ginjaninja78/ledger-cleaner/pkg/utils"
)

// DefaultDebounce is the quiet period used when Config.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

// Config holds the watcher configuration.
type Config struct {
	Dir      string
	Debounce time.Duration
}

// Event records the outcome of one handled file.
type Event struct {
	Time   time.Time `json:"time"`
	Path   string    `json:"path"`
	Status string    `json:"status"` // "processed" or "error"
	Error  string    `json:"error,omitempty"`
}

// Watcher watches one directory.
type Watcher struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger

	mu       sync.Mutex
	events   []Event
	debounce map[string]*time.Timer
	inflight sync.WaitGroup
	fsw      *fsnotify.Watcher
}

// New creates a Watcher. A nil logger discards output.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	return &Watcher{
		cfg:      cfg,
		handler:  handler,
		logger:   logger.With("component", "watch"),
		debounce: make(map[string]*time.Timer),
		fsw:      fsw,
	}, nil
}

// Start watches the directory until ctx is cancelled. Handlers already
// running are waited for before Start returns.
func (w *Watcher) Start(ctx context.Context) error {
	dir, err := filepath.Abs(w.cfg.Dir)
	if err != nil {
		w.fsw.Close()
		return fmt.Errorf("could not resolve %s: %w", w.cfg.Dir, err)
	}
	if err := w.fsw.Add(dir); err != nil {
		w.fsw.Close()
		return fmt.Errorf("could not watch %s: %w", dir, err)
	}
	w.logger.Info("watching", "dir", dir, "debounce", w.cfg.Debounce)

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping watcher")
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Events returns the handled events so far.
func (w *Watcher) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Event(nil), w.events...)
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for path, timer := range w.debounce {
		if timer.Stop() {
			w.inflight.Done()
		}
		delete(w.debounce, path)
	}
	w.mu.Unlock()

	w.inflight.Wait()
	w.fsw.Close()
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	path := event.Name
	if !utils.IsSupportedInput(path) {
		return
	}

	// Restart the quiet period on every event for the same file.
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.debounce[path]; ok {
		if timer.Stop() {
			w.inflight.Done()
		}
	}
	w.inflight.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.cfg.Debounce, func() {
		defer w.inflight.Done()
		w.mu.Lock()
		if w.debounce[path] == timer {
			delete(w.debounce, path)
		}
		w.mu.Unlock()
		w.process(ctx, path)
	})
	w.debounce[path] = timer
}

func (w *Watcher) process(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	ev := Event{Time: time.Now(), Path: path, Status: "processed"}
	if err := w.handler(ctx, path); err != nil {
		ev.Status = "error"
		ev.Error = err.Error()
		w.logger.Error("handler failed", "file", filepath.Base(path), "error", err)
	} else {
		w.logger.Info("handled file", "file", filepath.Base(path))
	}

	w.mu.Lock()
	w.events = append(w.events, ev)
	w.mu.Unlock()
}
