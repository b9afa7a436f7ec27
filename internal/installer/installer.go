// Package installer mutates the local Steam configuration: AppList
// membership, unlock scripts with depot keys, and the manifest cache.
package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// MaxAppListEntries is the hard cap the companion unlock tool enforces on
// the membership file.
const MaxAppListEntries = 128

// Mode selects where the install content came from.
type Mode string

const (
	ModeLocalArchive Mode = "local-archive"
	ModeRemoteDepot  Mode = "remote-depot"
)

// Result summarizes a successful install.
type Result struct {
	EntriesAdded int
	KeysWritten  int
	AppListCount int
}

// Installer writes into one Steam installation. Membership writes are
// serialized with an in-process mutex plus a cross-process file lock, and
// the file is always replaced whole so it never holds duplicates or a
// partial update.
type Installer struct {
	pluginDir string
	log       *zap.Logger

	mu sync.Mutex
}

// New returns an installer rooted at the given stplug-in directory.
func New(pluginDir string, log *zap.Logger) *Installer {
	return &Installer{pluginDir: pluginDir, log: log}
}

func (in *Installer) appListPath() string {
	return filepath.Join(in.pluginDir, "AppList.txt")
}

// ReadAppList returns the current membership entries, deduplicated.
func (in *Installer) ReadAppList() ([]string, error) {
	data, err := os.ReadFile(in.appListPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading applist: %w", err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		ids = append(ids, line)
	}
	return ids, nil
}

// writeAppList replaces the membership file with the given ids, sorted
// numerically. Callers must hold in.mu.
func (in *Installer) writeAppList(ids []string) error {
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.ParseUint(ids[i], 10, 64)
		b, _ := strconv.ParseUint(ids[j], 10, 64)
		return a < b
	})

	if err := os.MkdirAll(in.pluginDir, 0755); err != nil {
		return err
	}

	path := in.appListPath()
	tempPath := path + ".tmp"
	content := strings.Join(ids, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(tempPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing applist: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("replacing applist: %w", err)
	}

	in.log.Info("wrote applist", zap.Int("entries", len(ids)))
	return nil
}

// Install adds the app and its depots to the membership file and writes the
// unlock script carrying the depot keys. The capacity check runs before any
// mutation: either everything applies or nothing does.
func (in *Installer) Install(appID string, depotIDs []string, depotKeys map[string]string, mode Mode) (*Result, error) {
	if appID == "" {
		return nil, fmt.Errorf("app id required")
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	lock := flock.New(in.appListPath() + ".lock")
	if err := os.MkdirAll(in.pluginDir, 0755); err != nil {
		return nil, err
	}
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("locking applist: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	existing, err := in.ReadAppList()
	if err != nil {
		return nil, err
	}

	present := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		present[id] = struct{}{}
	}

	var newEntries []string
	for _, id := range append([]string{appID}, depotIDs...) {
		if _, ok := present[id]; ok {
			continue
		}
		present[id] = struct{}{}
		newEntries = append(newEntries, id)
	}

	available := MaxAppListEntries - len(existing)
	if len(newEntries) > available {
		return nil, fmt.Errorf(
			"applist capacity exceeded: %d/%d entries used, %d slots available, %d needed",
			len(existing), MaxAppListEntries, available, len(newEntries))
	}

	if len(newEntries) > 0 {
		if err := in.writeAppList(append(existing, newEntries...)); err != nil {
			return nil, err
		}
	}

	keysWritten, err := in.writeUnlockScript(appID, depotIDs, depotKeys)
	if err != nil {
		return nil, err
	}

	in.log.Info("install applied",
		zap.String("app", appID),
		zap.String("mode", string(mode)),
		zap.Int("added", len(newEntries)),
		zap.Int("keys", keysWritten))

	return &Result{
		EntriesAdded: len(newEntries),
		KeysWritten:  keysWritten,
		AppListCount: len(existing) + len(newEntries),
	}, nil
}

// writeUnlockScript replaces <appid>.lua with the app line plus one
// addappid line per depot that has a key.
func (in *Installer) writeUnlockScript(appID string, depotIDs []string, depotKeys map[string]string) (int, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "addappid(%s)\n", appID)

	keysWritten := 0
	for _, depotID := range depotIDs {
		key, ok := depotKeys[depotID]
		if !ok || key == "" {
			fmt.Fprintf(&b, "addappid(%s)\n", depotID)
			continue
		}
		fmt.Fprintf(&b, "addappid(%s, 1, %q)\n", depotID, key)
		keysWritten++
	}

	path := filepath.Join(in.pluginDir, appID+".lua")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return 0, fmt.Errorf("writing unlock script: %w", err)
	}
	return keysWritten, nil
}

// Uninstall removes the app and its depots from the membership file and
// deletes the unlock script.
func (in *Installer) Uninstall(appID string, depotIDs []string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	lock := flock.New(in.appListPath() + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking applist: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	existing, err := in.ReadAppList()
	if err != nil {
		return err
	}

	remove := map[string]struct{}{appID: {}}
	for _, id := range depotIDs {
		remove[id] = struct{}{}
	}

	var kept []string
	for _, id := range existing {
		if _, drop := remove[id]; !drop {
			kept = append(kept, id)
		}
	}
	if len(kept) != len(existing) {
		if err := in.writeAppList(kept); err != nil {
			return err
		}
	}

	scriptPath := filepath.Join(in.pluginDir, appID+".lua")
	if err := os.Remove(scriptPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unlock script: %w", err)
	}

	in.log.Info("uninstalled", zap.String("app", appID))
	return nil
}
