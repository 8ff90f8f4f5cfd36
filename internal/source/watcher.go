package source

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher rescans a Directory when files in it appear, change or vanish,
// and then calls onChange once per debounced batch.
type Watcher struct {
	dir      *Directory
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func()
	logger   *slog.Logger
}

// NewWatcher starts watching dir. Call Run to process events and Close to
// release the watch.
func NewWatcher(dir *Directory, debounce time.Duration, onChange func(), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir.Path()); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{dir: dir, watcher: fw, debounce: debounce, onChange: onChange, logger: logger}, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
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
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("Frame directory changed.", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Frame directory watch error.", "error", err)
		case <-fire:
			fire = nil
			if err := w.dir.Rescan(); err != nil {
				w.logger.Error("Frame directory rescan failed.", "error", err)
				continue
			}
			if w.onChange != nil {
				w.onChange()
			}
		}
	}
}

// Close stops the underlying watch.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func relevant(event fsnotify.Event) bool {
	if !imageExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
