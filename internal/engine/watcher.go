package engine

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"go.uber.org/zap"
)

// Watcher drives the engine off filesystem events on the store's new/
// folder instead of a fixed poll interval, debouncing rapid writes (a
// directive and its paired output artifact land within the same
// decompose call) before triggering a pass. Grounded on the teacher's
// internal/core/mangle_watcher.go (fsnotify.Watcher wrapped in a
// debounce map drained by a ticker, Start/Stop lifecycle over a
// stop/done channel pair).
type Watcher struct {
	engine *Engine
	dir    string
	debounceDur time.Duration

	mu          sync.Mutex
	pending     map[string]time.Time
	watcher     *fsnotify.Watcher
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher builds a Watcher over dir (the engine's store's new/
// folder). debounceDur bounds how long a burst of writes must settle
// before a pass is triggered; zero selects a 500ms default.
func NewWatcher(e *Engine, dir string, debounceDur time.Duration) (*Watcher, error) {
	if debounceDur <= 0 {
		debounceDur = 500 * time.Millisecond
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		engine:      e,
		dir:         dir,
		debounceDur: debounceDur,
		pending:     make(map[string]time.Time),
		watcher:     fw,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching dir for new directive files in a background
// goroutine. Non-blocking; call Stop to shut it down.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.engine.log.Warn("engine: watcher failed to watch new/ directory", zap.Error(err))
	}

	go w.run(ctx)
	return nil
}

// Stop halts the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounceDur / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.engine.log.Warn("engine: watcher event stream error")
		case <-ticker.C:
			w.drainSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// drainSettled runs one engine pass per batch of events that have sat
// past the debounce window, rather than one pass per file — a single
// decompose call drops several directives into new/ at once.
func (w *Watcher) drainSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	settled := false
	for path, t := range w.pending {
		if now.Sub(t) >= w.debounceDur {
			settled = true
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if !settled {
		return
	}

	if _, err := w.engine.RunSingle(ctx); err != nil {
		w.engine.log.Error("engine: watcher-triggered pass failed", zap.Error(err))
	}
}
