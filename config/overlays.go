package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue/load"
)

var (
	overlayMu       sync.RWMutex
	overlays        = make(map[string]load.Source)
	defaultOverlays []func() error
)

// RegisterOverlay registers a virtual CUE file that is merged into every
// configuration package loaded from disk.
func RegisterOverlay(path string, src load.Source) error {
	normalized, err := normalizeOverlayPath(path)
	if err != nil {
		return err
	}
	if src == nil {
		return errors.New("overlay source must not be nil")
	}
	overlayMu.Lock()
	defer overlayMu.Unlock()
	if _, exists := overlays[normalized]; exists {
		return fmt.Errorf("overlay %s already registered", normalized)
	}
	overlays[normalized] = src
	return nil
}

// RegisterOverlayString registers a virtual CUE file from a raw string.
func RegisterOverlayString(path, cue string) error {
	return RegisterOverlay(path, load.FromString(cue))
}

// RegisterDefaultOverlay runs register now and again after every reset.
func RegisterDefaultOverlay(register func() error) {
	overlayMu.Lock()
	defaultOverlays = append(defaultOverlays, register)
	overlayMu.Unlock()
	if err := register(); err != nil {
		panic(fmt.Sprintf("register default overlay: %v", err))
	}
}

func normalizeOverlayPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("overlay path must not be empty")
	}
	cleaned := filepath.Clean(trimmed)
	if cleaned == "." || cleaned == string(filepath.Separator) {
		return "", errors.New("overlay path must reference a file")
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("overlay path %s must be relative", cleaned)
	}
	return cleaned, nil
}

// ResolveOverlays returns a copy of the overlay registry rooted at baseDir,
// the form load.Config expects.
func ResolveOverlays(baseDir string) map[string]load.Source {
	overlayMu.RLock()
	defer overlayMu.RUnlock()
	if len(overlays) == 0 {
		return nil
	}
	resolved := make(map[string]load.Source, len(overlays))
	for path, src := range overlays {
		resolved[filepath.Join(baseDir, path)] = src
	}
	return resolved
}

// OverlayPaths lists the registered overlay paths in sorted order.
func OverlayPaths() []string {
	overlayMu.RLock()
	defer overlayMu.RUnlock()
	paths := make([]string, 0, len(overlays))
	for path := range overlays {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// ResetOverlaysForTest clears the registry and re-applies the default
// overlays. This helper is intended for tests only.
func ResetOverlaysForTest() {
	overlayMu.Lock()
	overlays = make(map[string]load.Source)
	defaults := append([]func() error(nil), defaultOverlays...)
	overlayMu.Unlock()
	for _, register := range defaults {
		if err := register(); err != nil {
			panic(fmt.Sprintf("register default overlay: %v", err))
		}
	}
}
