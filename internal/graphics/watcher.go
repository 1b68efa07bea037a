package graphics

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sigma-render/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports shader base names whose .vert or .frag file changed under
// a root directory. It never touches the GPU: the render thread drains it
// with ReloadPending.
type Watcher struct {
	root    string
	fw      *fsnotify.Watcher
	changes chan string
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher watches root and every directory below it.
func NewWatcher(root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(fw, root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	w := &Watcher{
		root:    root,
		fw:      fw,
		changes: make(chan string, 64),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// addTree watches dir and every directory below it.
func addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

// Changes delivers base names such as "shaders/mesh".
func (w *Watcher) Changes() <-chan string { return w.changes }

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(w.fw, event.Name); err != nil {
						logging.Logger().Warn("shader watcher: watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			name, ok := ShaderName(w.root, event.Name)
			if !ok {
				continue
			}
			select {
			case w.changes <- name:
			default:
				logging.Logger().Warn("shader change dropped, queue full", "name", name)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logging.Logger().Warn("shader watcher error", "error", err)
		}
	}
}

// ShaderName maps a file path under root to the cache key it belongs to.
func ShaderName(root, path string) (string, bool) {
	ext := filepath.Ext(path)
	if ext != ".vert" && ext != ".frag" {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, ext)), true
}

// ReloadPending drains queued changes and reloads each distinct name that
// the cache has loaded. Failed reloads keep the previous program and are
// logged. It returns the number of programs reloaded.
func (w *Watcher) ReloadPending(c *Cache) int {
	seen := make(map[string]bool)
drain:
	for {
		select {
		case name := <-w.changes:
			seen[name] = true
		default:
			break drain
		}
	}
	return reloadNames(c, seen)
}

func reloadNames(c *Cache, names map[string]bool) int {
	n := 0
	for name := range names {
		if _, ok := c.Lookup(name); !ok {
			continue
		}
		if err := c.Reload(name); err != nil {
			logging.Logger().Warn("shader reload failed", "name", name, "error", err)
			continue
		}
		n++
	}
	return n
}
