package widget

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// defaultApps is served when no apps file exists on disk. The dashboard
// expects apps.json to be an array of app objects.
var defaultApps = []map[string]any{
	{
		"name":        "Widget Bridge",
		"description": "Demo widgets plus a copilot that builds dashboard apps via an external CLI agent.",
		"img":         "",
		"allowCustomization": true,
		"widgets": []string{
			"markdown_note", "stock_table", "price_chart",
			"portfolio_metric", "watchlist_form", "live_grid_data",
		},
	},
}

// AppsFile serves the apps.json document from disk, hot-reloading it when
// the file changes. When the file is missing the embedded default is used.
type AppsFile struct {
	path string

	mu      sync.RWMutex
	content []map[string]any

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewAppsFile loads the apps document at path. A missing file is not an
// error; the embedded default app list is served instead.
func NewAppsFile(path string) *AppsFile {
	f := &AppsFile{path: path, content: defaultApps}
	if err := f.reload(); err != nil && !os.IsNotExist(err) {
		log.Printf("[apps] failed to load %s: %v", path, err)
	}
	return f
}

// Content returns the current apps array.
func (f *AppsFile) Content() []map[string]any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.content
}

func (f *AppsFile) reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}

	var apps []map[string]any
	if err := json.Unmarshal(data, &apps); err != nil {
		return fmt.Errorf("parse %s: %w", f.path, err)
	}

	f.mu.Lock()
	f.content = apps
	f.mu.Unlock()

	log.Printf("[apps] loaded %d app(s) from %s", len(apps), f.path)
	return nil
}

// Watch starts watching the apps file's directory and reloads the document
// on writes. Watching the directory rather than the file survives
// editor-style replace-on-save.
func (f *AppsFile) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	f.watcher = watcher
	f.done = make(chan struct{})

	go func() {
		defer close(f.done)
		target := filepath.Clean(f.path)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := f.reload(); err != nil {
					log.Printf("[apps] reload failed: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[apps] watcher error: %v", err)
			}
		}
	}()

	return nil
}

// Close stops the watcher if one is running.
func (f *AppsFile) Close() error {
	if f.watcher == nil {
		return nil
	}
	err := f.watcher.Close()
	<-f.done
	return err
}
