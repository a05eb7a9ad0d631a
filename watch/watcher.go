package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/silvamed/ontoforge/builder"
	"github.com/silvamed/ontoforge/errors"
)

// Handler receives each decoded batch. A non-nil error is logged and the
// watcher keeps running; one bad drop must not stop ingestion.
type Handler func(ctx context.Context, path string, batch builder.Batch) error

// Watcher monitors a drop directory and feeds decoded batches to the
// handler. Events are debounced per file path.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher over dir. The directory must exist.
func New(dir string, debounce time.Duration, handler Handler, logger *zap.SugaredLogger) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watch handler is required")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "watch directory %s", dir)
	}

	return &Watcher{
		dir:      dir,
		watcher:  fsw,
		handler:  handler,
		debounce: debounce,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Start processes files already sitting in the drop directory, then
// begins watching for new ones. It returns immediately; the watch loop
// runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return errors.Wrapf(err, "scan drop directory %s", w.dir)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if isBatchFile(path) {
			w.process(ctx, path)
		}
	}

	go w.watchLoop(ctx)
	return nil
}

// Stop stops watching. Pending debounce timers are cancelled.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if !isBatchFile(event.Name) {
				continue
			}
			w.logger.Debugw("Batch file changed",
				"file", event.Name,
				"op", event.Op.String(),
			)
			w.schedule(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Watcher error", "error", err)
		}
	}
}

// schedule debounces rapid writes to the same file.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.process(ctx, path)
	})
}

func (w *Watcher) process(ctx context.Context, path string) {
	batch, err := LoadBatch(path)
	if err != nil {
		w.logger.Errorw("Batch file rejected",
			"file", path,
			"error", err,
		)
		return
	}

	w.logger.Infow("Ingesting batch file",
		"file", path,
		"entities", len(batch.Entities),
		"relationships", len(batch.Relationships),
	)

	if err := w.handler(ctx, path, batch); err != nil {
		w.logger.Errorw("Batch ingest failed",
			"file", path,
			"error", err,
		)
	}
}
