package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/depotctl/depotctl/internal/installer"
	"github.com/depotctl/depotctl/internal/luaparser"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall [appid]",
	Short: "uninstall removes an app's unlock script and applist entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID := args[0]

		log := newLogger()
		defer func() { _ = log.Sync() }()
		settings := loadSettings()

		finder := newFinder(settings, log)
		pluginDir := finder.StPluginPath()
		if pluginDir == "" {
			return fmt.Errorf("no Steam installation found; set --steam-path")
		}

		// The unlock script records which depot ids were registered; read it
		// back so those entries are removed along with the app itself.
		var depotIDs []string
		script, err := os.ReadFile(filepath.Join(pluginDir, appID+".lua"))
		if err == nil {
			for _, id := range luaparser.ParseDeclaredAppIDs(string(script)) {
				if id != appID {
					depotIDs = append(depotIDs, id)
				}
			}
		}

		inst := installer.New(pluginDir, log)
		if err := inst.Uninstall(appID, depotIDs); err != nil {
			return err
		}

		if store, err := openLibrary(log); err == nil {
			defer func() { _ = store.Close() }()
			_ = store.Delete(appID)
		}

		fmt.Printf("Uninstalled app %s (%d depot entries removed)\n", appID, len(depotIDs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
