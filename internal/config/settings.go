// Package config holds user settings and the application's state directories.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Settings holds all user-configurable settings organized by category.
type Settings struct {
	General   GeneralSettings  `json:"general"`
	API       APISettings      `json:"api"`
	Downloads DownloadSettings `json:"downloads"`
	Filter    FilterSettings   `json:"filter"`
}

// GeneralSettings contains paths the tool operates on.
type GeneralSettings struct {
	SteamPath   string `json:"steam_path"`   // empty = autodetect
	DownloadDir string `json:"download_dir"` // where manifest archives land
}

// APISettings contains remote endpoint configuration.
type APISettings struct {
	ManifestBaseURL string        `json:"manifest_base_url"`
	ManifestAPIKey  string        `json:"manifest_api_key"`
	SteamCmdBaseURL string        `json:"steamcmd_base_url"`
	StatusCacheTTL  time.Duration `json:"status_cache_ttl"`
}

// DownloadSettings contains queue and readiness-poll tuning.
type DownloadSettings struct {
	MaxConcurrentDownloads int           `json:"max_concurrent_downloads"`
	PollInterval           time.Duration `json:"poll_interval"`
	MaxPollAttempts        int           `json:"max_poll_attempts"`
}

// FilterSettings contains depot exclusions applied during filtering.
type FilterSettings struct {
	BlacklistedApps []string `json:"blacklisted_apps"`
	BlockedDepots   []string `json:"blocked_depots"`
}

// BlacklistedAppSet returns the blacklisted source apps as a set.
func (f FilterSettings) BlacklistedAppSet() map[string]struct{} {
	return toSet(f.BlacklistedApps)
}

// BlockedDepotSet returns the blocked depot ids as a set.
func (f FilterSettings) BlockedDepotSet() map[string]struct{} {
	return toSet(f.BlockedDepots)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()

	return &Settings{
		General: GeneralSettings{
			DownloadDir: filepath.Join(homeDir, "Downloads"),
		},
		API: APISettings{
			ManifestBaseURL: "https://manifest.morrenus.xyz/api/v1",
			SteamCmdBaseURL: "https://api.steamcmd.net",
			StatusCacheTTL:  5 * time.Minute,
		},
		Downloads: DownloadSettings{
			MaxConcurrentDownloads: 3,
			PollInterval:           5 * time.Second,
			MaxPollAttempts:        60,
		},
		Filter: FilterSettings{},
	}
}

// GetConfigDir returns the directory holding settings, cache and library data.
func GetConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = home
	}
	return filepath.Join(base, "depotctl")
}

// GetCacheDir returns the directory for cached API responses.
func GetCacheDir() string {
	return filepath.Join(GetConfigDir(), "cache")
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetConfigDir(), "settings.json")
}

// LoadSettings loads settings from disk. Returns defaults if the file
// doesn't exist; fields missing from the file keep their defaults.
func LoadSettings() (*Settings, error) {
	return loadSettingsFrom(GetSettingsPath())
}

func loadSettingsFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	return saveSettingsTo(GetSettingsPath(), s)
}

func saveSettingsTo(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}
