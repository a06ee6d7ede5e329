package bundle

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// eventChannelBuffer is the size of the watch event channel.
const eventChannelBuffer = 64

// defaultDebounce is how long to wait for further writes before re-bundling.
const defaultDebounce = 500 * time.Millisecond

// Watcher re-runs a bundling pass whenever the watched netlist file changes.
// Editors typically produce bursts of write events; changes are debounced so
// one save triggers one pass.
type Watcher struct {
	bundler  *Bundler
	req      Request
	debounce time.Duration
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	results  chan *Result
}

// NewWatcher creates a watcher for the netlist named in req.BaseFilePath.
func NewWatcher(bundler *Bundler, req Request, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		bundler:  bundler,
		req:      req,
		debounce: debounce,
		fsw:      fsw,
		logger:   logger,
		results:  make(chan *Result, eventChannelBuffer),
	}, nil
}

// Results returns the channel of bundling results, one per debounced change.
// The channel is closed when the watcher stops.
func (w *Watcher) Results() <-chan *Result {
	return w.results
}

// Start begins watching. Watching the containing directory rather than the
// file itself survives editors that replace the file on save.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.req.BaseFilePath)
	if err := w.fsw.Add(dir); err != nil {
		return err
	}

	go w.loop(ctx)

	w.logger.Info("Netlist watcher started",
		"file", w.req.BaseFilePath,
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher. The results channel is closed by the event loop.
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.results)

	target := filepath.Clean(w.req.BaseFilePath)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			w.rebundle()
		}
	}
}

func (w *Watcher) rebundle() {
	text, err := ReadNetlist(w.req.BaseFilePath)
	if err != nil {
		w.logger.Warn("Re-read netlist failed", "error", err)
		return
	}

	req := w.req
	req.NetlistText = text

	result, err := w.bundler.Bundle(req)
	if err != nil {
		w.logger.Warn("Re-bundle failed", "error", err)
		return
	}

	w.logger.Info("Re-bundled netlist",
		"copied", len(result.Copied),
		"missing", len(result.Missing))

	select {
	case w.results <- result:
	default:
		w.logger.Warn("Result channel full, dropping bundle result")
	}
}
