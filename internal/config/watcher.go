package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	Logger zerolog.Logger

	// OnError receives load failures. The previous configuration stays in
	// effect.
	OnError func(err error)
}

// Watcher reloads a configuration file whenever it is written, created or
// renamed into place, and hands each valid result to a callback.
type Watcher struct {
	path     string
	onChange func(Config)
	opts     WatcherOptions
	logger   zerolog.Logger

	fsw *fsnotify.Watcher

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewWatcher starts watching path. The file's directory is watched so
// editors that replace the file atomically are still seen. onChange runs
// on the watcher's goroutine.
func NewWatcher(path string, onChange func(Config), opts WatcherOptions) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		onChange: onChange,
		opts:     opts,
		logger:   opts.Logger.With().Str("component", "config").Logger(),
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.fail(err)
		}
	}
}

// Reload loads the file now and delivers it as if it had changed.
func (w *Watcher) Reload() error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrWatcherClosed
	}
	return w.reload()
}

func (w *Watcher) reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		w.fail(err)
		return err
	}
	w.logger.Info().Str("path", w.path).Stringer("config", cfg).Msg("configuration reloaded")
	if w.onChange != nil {
		w.onChange(cfg)
	}
	return nil
}

func (w *Watcher) fail(err error) {
	w.logger.Warn().Err(err).Str("path", w.path).Msg("configuration reload failed")
	if w.opts.OnError != nil {
		w.opts.OnError(err)
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.fsw.Close()
	<-w.done
	return err
}
