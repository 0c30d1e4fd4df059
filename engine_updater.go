package hybridcat

import (
	"context"

	"github.com/arashi-labs/hybridcat/internal/updater"
)

// Updater creates a background update queue wired to apply each batch
// through e.Add. The updater holds a back-reference to the engine, not
// the other way around: the engine never tracks or stops updaters it
// creates.
func (e *Engine) Updater(config updater.Config, onErr updater.ErrorCallback) *updater.Updater {
	return updater.New(func(items []updater.Item) error {
		batch := make([]Item, len(items))
		for i, it := range items {
			batch[i] = Item{ID: it.ID, Text: it.Text, Metadata: it.Metadata}
		}
		return e.Add(context.Background(), batch)
	}, config, onErr)
}

// WatchDir starts a background directory watch that enqueues a catalog
// item (file name minus extension as id, file contents as text) on u
// whenever a file in dir is created or written. The returned watcher's
// Close stops watching.
func WatchDir(dir string, u *updater.Updater) (*updater.DirWatcher, error) {
	return updater.WatchDir(dir, u)
}
