package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader watches the registry's catalog file and triggers hot-reload on
// change. A failed reload leaves the previous table installed.
type Reloader struct {
	watcher  *fsnotify.Watcher
	registry *Registry
}

// NewReloader creates a file watcher on the registry's backing catalog file.
func NewReloader(registry *Registry) (*Reloader, error) {
	if registry.path == "" {
		return nil, fmt.Errorf("registry has no backing file to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(registry.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", registry.path, err)
	}
	return &Reloader{watcher: watcher, registry: registry}, nil
}

// Run watches for catalog changes and reloads. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: wait 500ms after the last write before reloading
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					if err := r.registry.Reload(); err != nil {
						fmt.Fprintf(os.Stderr, "hot-reload failed, keeping previous catalog: %v\n", err)
					} else {
						fmt.Fprintf(os.Stderr, "hot-reload: catalog reloaded (%s)\n", r.registry.Hash())
					}
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "catalog watcher error: %v\n", err)
		}
	}
}
