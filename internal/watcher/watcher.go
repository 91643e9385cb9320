package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// retryInterval re-checks paths whose directory could not be watched yet
const retryInterval = time.Second

// Watcher watches a file for changes
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	log      zerolog.Logger
}

// New creates a new file watcher
func New(path string, onChange func(), log zerolog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		log:      log,
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch calls onChange once per burst of writes to the file.
// A missing directory is retried every second. It blocks until the context
// is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory so a replaced or newly created file is seen
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)

	if !w.addDir(ctx, watcher, dir) {
		return nil
	}

	w.log.Info().Str("path", w.path).Msg("Watching trigger file")

	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}

				debounceTimer = time.AfterFunc(w.debounce, func() {
					w.log.Debug().Str("path", w.path).Msg("Trigger file changed")
					w.onChange()
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("Watcher error")

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil
		}
	}
}

// addDir adds dir to watcher, retrying until it exists.
// It reports false when ctx ends first.
func (w *Watcher) addDir(ctx context.Context, watcher *fsnotify.Watcher, dir string) bool {
	err := watcher.Add(dir)
	if err == nil {
		return true
	}

	w.log.Warn().Err(err).Str("dir", dir).Msg("Trigger directory not available yet, early wake disabled until it appears")

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if err := watcher.Add(dir); err == nil {
				return true
			}
		}
	}
}

// WaitFor blocks until every path exists or ctx is cancelled.
// Directories that do not exist yet are retried every second.
func WaitFor(ctx context.Context, paths []string, log zerolog.Logger) error {
	missing := missingFiles(paths)
	if len(missing) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	watchDirs := func() {
		for _, path := range missing {
			dir := filepath.Dir(path)
			if watchedDirs[dir] {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				log.Debug().Err(err).Str("dir", dir).Msg("Directory not watchable yet")
				continue
			}
			watchedDirs[dir] = true
		}
	}
	watchDirs()

	log.Info().Strs("files", missing).Msg("Waiting for files")

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		case <-ticker.C:
			watchDirs()
		case <-ctx.Done():
			return ctx.Err()
		}

		missing = missingFiles(paths)
		if len(missing) == 0 {
			log.Info().Strs("files", paths).Msg("Files are present")
			return nil
		}
	}
}

func missingFiles(paths []string) []string {
	var missing []string
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if _, err := os.Stat(abs); err != nil {
			missing = append(missing, abs)
		}
	}
	sort.Strings(missing)
	return missing
}
