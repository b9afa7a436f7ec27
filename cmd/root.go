package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/depotctl/depotctl/internal/cache"
	"github.com/depotctl/depotctl/internal/config"
	"github.com/depotctl/depotctl/internal/library"
	"github.com/depotctl/depotctl/internal/manifestapi"
	"github.com/depotctl/depotctl/internal/steamcmd"
	"github.com/depotctl/depotctl/internal/steampath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	verbose       bool
	steamPathFlag string
)

var rootCmd = &cobra.Command{
	Use:     "depotctl",
	Short:   "Manage Steam depot unlock scripts and manifest archives",
	Long:    `depotctl inspects depot unlock scripts, filters depots by language, downloads manifest archives and installs them into a local Steam directory.`,
	Version: Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&steamPathFlag, "steam-path", "", "Steam installation directory (default: autodetect)")
	rootCmd.SetVersionTemplate("depotctl version {{.Version}}\n")
}

// newLogger builds the logger shared by all commands. Default output is
// warnings and up on stderr so normal command output stays clean.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func loadSettings() *config.Settings {
	settings, err := config.LoadSettings()
	if err != nil {
		return config.DefaultSettings()
	}
	return settings
}

func newFinder(settings *config.Settings, log *zap.Logger) *steampath.Finder {
	override := steamPathFlag
	if override == "" {
		override = settings.General.SteamPath
	}
	return steampath.NewFinder(override, log)
}

func newSteamCmdClient(settings *config.Settings, log *zap.Logger) *steamcmd.Client {
	client := steamcmd.NewClient(log)
	if settings.API.SteamCmdBaseURL != "" {
		client.BaseURL = settings.API.SteamCmdBaseURL
	}
	return client
}

func newManifestClient(settings *config.Settings, log *zap.Logger) (*manifestapi.Client, error) {
	statusCache, err := cache.New(config.GetCacheDir(), log)
	if err != nil {
		return nil, fmt.Errorf("initializing status cache: %w", err)
	}
	client := manifestapi.NewClient(settings.API.ManifestBaseURL, settings.API.ManifestAPIKey, statusCache, log)
	if settings.API.StatusCacheTTL > 0 {
		client.StatusTTL = settings.API.StatusCacheTTL
	}
	return client, nil
}

func openLibrary(log *zap.Logger) (*library.Store, error) {
	if err := os.MkdirAll(config.GetConfigDir(), 0755); err != nil {
		return nil, err
	}
	return library.Open(filepath.Join(config.GetConfigDir(), "library.db"), log)
}
