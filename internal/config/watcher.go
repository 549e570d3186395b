package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultWatchInterval is how often a [Watcher] polls when no interval is
// given.
const DefaultWatchInterval = 5 * time.Second

// Change is a validated reload of the watched file.
type Change struct {
	Old, New *Config
	Diff     ConfigDiff
}

// Watcher polls a config file and reports content changes that parse and
// validate. An invalid edit is logged and ignored until the file changes
// again; the previous config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(Change)

	mu      sync.Mutex
	current *Config
	seen    fileState

	cancel context.CancelFunc
	exited chan struct{}
}

// fileState identifies a version of the file. The hash decides; the mtime
// only lets unchanged files skip hashing.
type fileState struct {
	mtime time.Time
	sum   [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. Non-positive values keep
// [DefaultWatchInterval].
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path and polls it until Stop is called. onChange runs on
// the polling goroutine, so a slow callback such as a corpus rebuild delays
// the next poll rather than overlapping it. onChange may be nil.
func NewWatcher(path string, onChange func(Change), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: DefaultWatchInterval,
		onChange: onChange,
		exited:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, state, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	w.current, w.seen = cfg, state

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.run(ctx)
	return w, nil
}

// Current returns the most recently accepted config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends polling and waits for an in-flight callback to return. It is safe
// to call more than once.
func (w *Watcher) Stop() {
	w.cancel()
	<-w.exited
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.exited)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Check(); err != nil {
				slog.Warn("config watcher: reload rejected", "path", w.path, "err", err)
			}
		}
	}
}

// Check polls the file once. It reports whether a new config was accepted,
// in which case onChange has already run. An error means the file changed
// but could not be used.
func (w *Watcher) Check() (bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return false, err
	}
	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.seen.mtime)
	w.mu.Unlock()
	if unchanged {
		return false, nil
	}

	cfg, state, err := w.read()
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	if state.sum == w.seen.sum {
		w.seen.mtime = state.mtime
		w.mu.Unlock()
		return false, nil
	}
	change := Change{Old: w.current, New: cfg, Diff: Diff(w.current, cfg)}
	w.current, w.seen = cfg, state
	w.mu.Unlock()

	slog.Info("config watcher: configuration reloaded",
		"path", w.path,
		"corpus_changed", change.Diff.CorpusChanged,
		"log_level_changed", change.Diff.LogLevelChanged,
	)
	if w.onChange != nil {
		w.onChange(change)
	}
	return true, nil
}

// read parses the file and resolves its relative paths against the file's
// directory.
func (w *Watcher) read() (*Config, fileState, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileState{}, err
	}
	cfg.ResolvePaths(filepath.Dir(w.path))
	return cfg, fileState{mtime: info.ModTime(), sum: sha256.Sum256(data)}, nil
}
