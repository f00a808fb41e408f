package reload

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/timzifer/ld2450/config"
)

type fileState struct {
	modTime time.Time
	size    int64
}

// Watcher keeps track of configuration source files and detects
// modifications. When the configuration root is a CUE package directory,
// files added to that directory are reported as well.
type Watcher struct {
	mu      sync.Mutex
	files   map[string]fileState
	rootDir string
}

// NewWatcher builds a watcher with the known files from the document.
func NewWatcher(root string, doc *config.Document) (*Watcher, error) {
	watcher := &Watcher{}
	if err := watcher.Update(root, doc); err != nil {
		return nil, err
	}
	return watcher, nil
}

// Update rebuilds the tracked file list from the provided document.
func (w *Watcher) Update(root string, doc *config.Document) error {
	if w == nil {
		return nil
	}
	paths := config.SourceFiles(doc)
	rootDir := ""
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			if info, err := os.Stat(abs); err == nil {
				if info.IsDir() {
					rootDir = abs
					paths = append(paths, cueFiles(abs)...)
				} else {
					paths = append(paths, abs)
				}
			}
		}
	}
	states := make(map[string]fileState, len(paths))
	for _, path := range uniquePaths(paths) {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() {
			continue
		}
		states[path] = fileState{modTime: info.ModTime(), size: info.Size()}
	}
	w.mu.Lock()
	w.files = states
	w.rootDir = rootDir
	w.mu.Unlock()
	return nil
}

// Check reports the files that changed, vanished or appeared since the last
// snapshot.
func (w *Watcher) Check() ([]string, error) {
	if w == nil {
		return nil, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := make([]string, 0)
	for path, state := range w.files {
		info, err := os.Stat(path)
		if err != nil {
			changed = append(changed, path)
			continue
		}
		if info.IsDir() {
			continue
		}
		if info.ModTime().After(state.modTime) || info.Size() != state.size {
			changed = append(changed, path)
		}
	}
	if w.rootDir != "" {
		for _, path := range cueFiles(w.rootDir) {
			if _, tracked := w.files[path]; !tracked {
				changed = append(changed, path)
			}
		}
	}
	sort.Strings(changed)
	return changed, nil
}

// Tracked lists the currently tracked files in sorted order.
func (w *Watcher) Tracked() []string {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.files))
	for path := range w.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func cueFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".cue") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths
}

func uniquePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	result := make([]string, 0, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		result = append(result, path)
	}
	return result
}
