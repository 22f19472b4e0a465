package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/gene2go-expander/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeOntology ChangeType = iota
	ChangeTypeAnnotations
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeOntology:
		return "ontology"
	case ChangeTypeAnnotations:
		return "annotations"
	}
	return fmt.Sprintf("ChangeType(%d)", int(t))
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

const batchWindow = 100 * time.Millisecond

// FileWatcher watches the pipeline input files for changes
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]ChangeType // absolute path -> type
	events  chan ChangeEvent
	once    sync.Once
}

// NewFileWatcher creates a watcher for the ontology and annotation files
func NewFileWatcher(oboPath, gene2goPath string) (*FileWatcher, error) {
	files := make(map[string]ChangeType, 2)
	for path, typ := range map[string]ChangeType{oboPath: ChangeTypeOntology, gene2goPath: ChangeTypeAnnotations} {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		files[abs] = typ
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		files:   files,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching for file changes. The directories holding the inputs
// are watched rather than the files so that editors and downloads that
// replace a file by renaming are still seen.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for path := range fw.files {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	log := logging.New("watcher")
	for path, typ := range fw.files {
		log.Info("watching input file", "path", path, "type", typ.String())
	}

	// Process events
	go fw.processEvents(ctx)

	return nil
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer fw.shutdown()

	// Batch events to avoid sending one event per write
	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		for _, typ := range []ChangeType{ChangeTypeOntology, ChangeTypeAnnotations} {
			if paths := pending[typ]; len(paths) > 0 {
				select {
				case fw.events <- ChangeEvent{Type: typ, Paths: paths, Timestamp: time.Now()}:
				case <-ctx.Done():
					return
				}
			}
		}
		pending = make(map[ChangeType][]string)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			// Filter to the watched inputs
			typ, ok := fw.files[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			logging.Trace("input file event", "path", event.Name, "op", event.Op.String())
			if !contains(pending[typ], event.Name) {
				pending[typ] = append(pending[typ], event.Name)
			}
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

func contains(paths []string, p string) bool {
	for _, q := range paths {
		if q == p {
			return true
		}
	}
	return false
}

func (fw *FileWatcher) shutdown() {
	fw.once.Do(func() {
		_ = fw.watcher.Close()
		close(fw.events)
	})
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	return fw.watcher.Close()
}
