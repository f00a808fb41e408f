package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceFiles returns the absolute, de-duplicated list of files that
// contributed to the document.
func SourceFiles(doc *Document) []string {
	if doc == nil {
		return nil
	}
	files := make(map[string]struct{}, len(doc.Sources))
	for _, source := range doc.Sources {
		path := strings.TrimSpace(source)
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		files[abs] = struct{}{}
	}
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
