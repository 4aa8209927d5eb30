package csvfile

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// Watcher calls a reload hook when any of a set of files changes. Bursts of
// events within the debounce window collapse into one call.
type Watcher struct {
	files    map[string]struct{}
	dirs     map[string]struct{}
	debounce time.Duration
	onChange func(ctx context.Context)
	logger   logging.Logger
}

// NewWatcher prepares a watcher over paths. Parent directories are watched
// so that editors replacing files by rename are noticed.
func NewWatcher(paths []string, debounce time.Duration, onChange func(ctx context.Context), logger logging.Logger) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New(errors.ErrCodeBadRequest, "watcher needs at least one path")
	}
	if onChange == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "watcher needs a change hook")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	w := &Watcher{
		files:    make(map[string]struct{}, len(paths)),
		dirs:     make(map[string]struct{}),
		debounce: debounce,
		onChange: onChange,
		logger:   logger.Named("csv_watcher"),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid watch path").WithDetail(p)
		}
		w.files[abs] = struct{}{}
		w.dirs[filepath.Dir(abs)] = struct{}{}
	}
	return w, nil
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create file watcher")
	}
	defer fw.Close()

	for dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			return errors.Wrap(err, errors.ErrCodeCatalogUnavailable, "failed to watch directory").WithDetail(dir)
		}
	}
	w.logger.Info("watching catalog files", logging.Int("files", len(w.files)))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("catalog file event", logging.String("file", ev.Name), logging.String("op", ev.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", logging.Err(err))
		case <-fire:
			timer, fire = nil, nil
			w.onChange(ctx)
		}
	}
}
