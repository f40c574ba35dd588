package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/capframe/pkg/log"
	"github.com/bft-labs/capframe/pkg/sink"
	"github.com/bft-labs/capframe/pkg/state"
)

// captureSuffixes are the file names the watcher converts.
var captureSuffixes = []string{".pcap", ".pcap.gz", ".cap"}

// IsCapture reports whether name looks like a capture file.
func IsCapture(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range captureSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// WatcherConfig holds configuration for watch mode.
type WatcherConfig struct {
	Dir       string
	OutputDir string
	Format    sink.Format

	// Debounce is how long a file must stay quiet before it is converted.
	// Default: 2 seconds
	Debounce time.Duration

	// Once converts the files already present and returns.
	Once bool
}

// Watcher converts captures as they appear in a directory.
type Watcher struct {
	config    WatcherConfig
	converter *Converter
	repo      state.Repository
	logger    log.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	queue  chan string
	done   chan struct{} // closed when Run returns
	state  state.State
}

// NewWatcher creates a Watcher.
func NewWatcher(config WatcherConfig, converter *Converter, repo state.Repository, logger log.Logger) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = 2 * time.Second
	}
	if config.OutputDir == "" {
		config.OutputDir = config.Dir
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Watcher{
		config:    config,
		converter: converter,
		repo:      repo,
		logger:    logger,
		timers:    make(map[string]*time.Timer),
		queue:     make(chan string, 64),
	}
}

// Run converts existing captures, then watches for new ones until ctx is
// cancelled. Conversions run one at a time on the calling goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	st, err := w.repo.Load(ctx)
	if err != nil {
		w.logger.Error("failed to load state, starting fresh", log.Err(err))
		st = state.State{}
	}
	w.state = st

	w.mu.Lock()
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()
	defer close(done)

	var fw *fsnotify.Watcher
	if !w.config.Once {
		// Subscribed before the initial scan so no file slips between the two.
		fw, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer fw.Close()
		if err := fw.Add(w.config.Dir); err != nil {
			return fmt.Errorf("watch %s: %w", w.config.Dir, err)
		}
	}

	existing, err := w.scan()
	if err != nil {
		return err
	}
	if err := w.prune(ctx, existing); err != nil {
		return err
	}
	for _, p := range existing {
		if err := w.process(ctx, p); err != nil {
			return err
		}
	}
	if w.config.Once {
		return nil
	}

	w.logger.Info("watching for captures",
		log.String("dir", w.config.Dir),
		log.String("output_dir", w.config.OutputDir),
		log.Duration("debounce", w.config.Debounce),
	)
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !IsCapture(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule(ctx, event.Name)

		case path := <-w.queue:
			if err := w.process(ctx, path); err != nil {
				return err
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", log.Err(err))
		}
	}
}

// schedule (re)arms the quiet-period timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		w.enqueue(ctx, path)
	})
}

// enqueue hands path to the Run loop. It gives up once ctx is cancelled or
// Run has returned, and reports whether path was queued.
func (w *Watcher) enqueue(ctx context.Context, path string) bool {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	select {
	case w.queue <- path:
		return true
	case <-ctx.Done():
		return false
	case <-done:
		return false
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", w.config.Dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsCapture(e.Name()) {
			paths = append(paths, filepath.Join(w.config.Dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// prune forgets recorded captures from the watched directory that are no
// longer present.
func (w *Watcher) prune(ctx context.Context, present []string) error {
	keep := make(map[string]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}
	var gone []string
	for _, p := range w.state.Paths() {
		if filepath.Dir(p) == filepath.Clean(w.config.Dir) && !keep[p] {
			gone = append(gone, p)
		}
	}
	if len(gone) == 0 {
		return nil
	}
	for _, p := range gone {
		w.state.Forget(p)
	}
	w.logger.Info("forgot removed captures", log.Int("count", len(gone)))
	if err := w.repo.Save(ctx, w.state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// process converts one capture unless the state says it is current. Only a
// cancelled context or a state write failure is returned; conversion errors
// are recorded and logged.
func (w *Watcher) process(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		w.logger.Warn("cannot stat capture", log.String("path", path), log.Err(err))
		return nil
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	if w.state.Converted(path, info.Size(), info.ModTime()) {
		w.logger.Debug("capture already converted", log.String("path", path))
		return nil
	}

	out := sink.OutputPath(w.config.OutputDir, path, w.config.Format)
	res, err := w.converter.Convert(ctx, path, out)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}

	entry := state.Entry{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Rows:    uint64(res.Rows),
	}
	if err != nil {
		w.logger.Error("capture conversion failed", log.String("path", path), log.Err(err))
		entry.Error = err.Error()
	} else {
		entry.Output = out
	}
	w.state.Record(entry)

	if err := w.repo.Save(ctx, w.state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// State returns a copy of the conversion state.
func (w *Watcher) State() state.State {
	files := make(map[string]state.Entry, len(w.state.Files))
	for k, v := range w.state.Files {
		files[k] = v
	}
	return state.State{Files: files}
}
