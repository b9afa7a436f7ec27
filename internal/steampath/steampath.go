// Package steampath locates the local Steam installation.
package steampath

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// candidates are checked in order when no override is configured.
var candidates = []string{
	`C:\Program Files (x86)\Steam`,
	`C:\Program Files\Steam`,
}

// Finder resolves and caches the Steam install path. An override from
// settings wins; otherwise well-known locations are probed.
type Finder struct {
	override string
	log      *zap.Logger

	mu     sync.Mutex
	cached string
}

func NewFinder(override string, log *zap.Logger) *Finder {
	return &Finder{override: override, log: log}
}

// Valid reports whether path looks like a Steam installation: the directory
// exists and contains either the client binary or a config directory.
func Valid(path string) bool {
	if path == "" {
		return false
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return false
	}
	if _, err := os.Stat(filepath.Join(path, "steam.exe")); err == nil {
		return true
	}
	if info, err := os.Stat(filepath.Join(path, "config")); err == nil && info.IsDir() {
		return true
	}
	return false
}

// SteamPath returns the install path, or "" when Steam can't be found.
func (f *Finder) SteamPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cached != "" {
		return f.cached
	}

	if f.override != "" {
		if Valid(f.override) {
			f.cached = f.override
			return f.cached
		}
		f.log.Warn("configured Steam path is not a Steam installation",
			zap.String("path", f.override))
	}

	for _, c := range candidates {
		if Valid(c) {
			f.cached = c
			return f.cached
		}
	}

	return ""
}

// StPluginPath returns the unlock-script directory under the install,
// creating it if missing. Returns "" when Steam isn't found.
func (f *Finder) StPluginPath() string {
	steam := f.SteamPath()
	if steam == "" {
		return ""
	}
	dir := filepath.Join(steam, "config", "stplug-in")
	if err := os.MkdirAll(dir, 0755); err != nil {
		f.log.Error("creating stplug-in directory", zap.Error(err))
		return ""
	}
	return dir
}

// DepotCachePath returns Steam's manifest cache directory, creating it if
// missing. Returns "" when Steam isn't found.
func (f *Finder) DepotCachePath() string {
	steam := f.SteamPath()
	if steam == "" {
		return ""
	}
	dir := filepath.Join(steam, "depotcache")
	if err := os.MkdirAll(dir, 0755); err != nil {
		f.log.Error("creating depotcache directory", zap.Error(err))
		return ""
	}
	return dir
}
