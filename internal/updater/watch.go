package updater

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// DirWatcher feeds an Updater's queue from a directory of catalog item
// files: each file's base name (extension stripped) becomes the item
// id, and the file's content becomes the item text. It watches a flat
// directory rather than a recursive tree.
type DirWatcher struct {
	watcher *fsnotify.Watcher
	updater *Updater
	stopCh  chan struct{}
}

// WatchDir starts watching dir for file creates/writes, enqueuing a
// corresponding item on the given Updater for each change.
func WatchDir(dir string, u *Updater) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("updater: create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("updater: watch %s: %w", dir, err)
	}

	dw := &DirWatcher{watcher: w, updater: u, stopCh: make(chan struct{})}
	go dw.run()
	return dw, nil
}

func (dw *DirWatcher) run() {
	for {
		select {
		case <-dw.stopCh:
			return
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				dw.handleChange(event.Name)
			}
		case _, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (dw *DirWatcher) handleChange(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dw.updater.Enqueue([]Item{{ID: id, Text: string(data)}})
}

// Close stops the watch loop and releases the underlying fsnotify
// watcher.
func (dw *DirWatcher) Close() error {
	close(dw.stopCh)
	return dw.watcher.Close()
}
