package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/qwant1k/rag/internal/core/ports/driven"
	"github.com/qwant1k/rag/internal/core/ports/driving"
	"github.com/qwant1k/rag/internal/logger"
)

// Ensure WatchService implements the interface.
var _ driving.Watcher = (*WatchService)(nil)

// DefaultDebounce is how long a path must stay quiet before its
// pending action fires. Filesystems emit several events per write and
// a file may still be mid-copy when the first one arrives.
const DefaultDebounce = 3 * time.Second

// stopTimeout bounds how long Stop waits for the event loop to join.
const stopTimeout = 5 * time.Second

// WatchService bridges filesystem change notifications to ingestion
// and delete-by-source. Events are debounced per path: a new event for
// a path cancels and replaces its pending action, so a burst of writes
// collapses into one ingestion after the burst settles.
type WatchService struct {
	root     string
	debounce time.Duration
	ingestor driving.Ingestor
	registry driven.NormaliserRegistry

	mu      sync.Mutex
	running bool
	watcher *fsnotify.Watcher
	timers  map[string]*time.Timer
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWatchService creates a watcher over the documents root.
// A non-positive debounce falls back to DefaultDebounce.
func NewWatchService(
	root string,
	debounce time.Duration,
	ingestor driving.Ingestor,
	registry driven.NormaliserRegistry,
) *WatchService {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &WatchService{
		root:     root,
		debounce: debounce,
		ingestor: ingestor,
		registry: registry,
		timers:   make(map[string]*time.Timer),
	}
}

// Start begins recursive observation of the documents root.
// Starting an already-running watcher warns and no-ops.
func (s *WatchService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		logger.Warn("Watcher already running for %s", s.root)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := addRecursive(watcher, s.root); err != nil {
		watcher.Close()
		return err
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go s.loop(watcher, s.done)

	logger.Info("Watching %s (debounce %s)", s.root, s.debounce)
	return nil
}

// Stop ceases observation, cancels pending actions and joins the event
// loop with a bounded timeout. Stopping a stopped watcher no-ops.
func (s *WatchService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false

	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil

	for path, timer := range s.timers {
		timer.Stop()
		delete(s.timers, path)
	}
	s.mu.Unlock()

	joined := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(stopTimeout):
		logger.Warn("Watcher event loop did not stop within %s", stopTimeout)
	}

	logger.Info("Watcher stopped")
	return err
}

// loop consumes filesystem events until the watcher closes.
func (s *WatchService) loop(watcher *fsnotify.Watcher, done chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Watcher: %v", err)
		}
	}
}

// handleEvent maps one filesystem event to a debounced action.
func (s *WatchService) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	path := event.Name
	name := filepath.Base(path)

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			// A moved-in directory produces one Create for the
			// directory itself; watch it and pick up its contents.
			if strings.HasPrefix(name, ".") {
				return
			}
			if err := addRecursive(watcher, path); err != nil {
				logger.Error("Watching new directory %s: %v", path, err)
			}
			s.scheduleDirectory(path)
			return
		}
	}

	if IgnoredFile(name) {
		return
	}
	if !s.registry.Supported(strings.ToLower(filepath.Ext(name))) {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		s.schedule(path, s.ingestAction(path))
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A rename shows up as Rename(old path) plus Create(new
		// path), so dropping the old source here completes the move.
		s.schedule(path, s.deleteAction(path))
	}
}

// schedule registers a debounced action for a path, superseding any
// pending action for the same path.
func (s *WatchService) schedule(path string, action func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	if timer, ok := s.timers[path]; ok {
		timer.Stop()
	}
	s.timers[path] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.timers, path)
		running := s.running
		s.mu.Unlock()

		if running {
			action()
		}
	})
}

// scheduleDirectory queues ingestion for every supported file already
// inside a newly watched directory, since those files predate their
// watch and emit no events of their own.
func (s *WatchService) scheduleDirectory(dir string) {
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IgnoredFile(name) || !s.registry.Supported(strings.ToLower(filepath.Ext(name))) {
			return nil
		}
		s.schedule(path, s.ingestAction(path))
		return nil
	})
	if err != nil {
		logger.Error("Scanning new directory %s: %v", dir, err)
	}
}

// ingestAction builds the debounced ingest for a path. It re-verifies
// the file still exists when firing; it may have been deleted during
// the debounce window.
func (s *WatchService) ingestAction(path string) func() {
	return func() {
		if _, err := os.Stat(path); err != nil {
			logger.Debug("Skipping %s: gone before debounce elapsed", path)
			return
		}
		if _, err := s.ingestor.IngestFile(context.Background(), path); err != nil {
			logger.Error("Watcher ingest %s: %v", path, err)
		}
	}
}

// deleteAction builds the debounced delete-by-source for a path.
func (s *WatchService) deleteAction(path string) func() {
	return func() {
		// The file may have reappeared (delete followed by re-create
		// within the window); if so the Create event's ingest wins.
		if _, err := os.Stat(path); err == nil {
			return
		}
		source, err := filepath.Rel(s.root, path)
		if err != nil {
			source = filepath.Base(path)
		}
		source = filepath.ToSlash(source)

		if _, err := s.ingestor.DeleteSource(context.Background(), source); err != nil {
			logger.Error("Watcher delete %s: %v", source, err)
		}
	}
}

// addRecursive watches a directory and every non-hidden subdirectory.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
