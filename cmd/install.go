package cmd

import (
	"fmt"

	"github.com/depotctl/depotctl/internal/depotfilter"
	"github.com/depotctl/depotctl/internal/installer"
	"github.com/depotctl/depotctl/internal/library"
	"github.com/depotctl/depotctl/internal/luaparser"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install [archive.zip]",
	Short: "install unlocks an app from a manifest archive",
	Long: `install extracts the manifests from a downloaded archive into the Steam
depot cache, writes the unlock script with its depot keys and registers the
app in the AppList membership file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archivePath := args[0]
		appID, _ := cmd.Flags().GetString("app")
		language, _ := cmd.Flags().GetString("language")
		if appID == "" {
			appID = appIDFromFilename(archivePath)
		}

		log := newLogger()
		defer func() { _ = log.Sync() }()
		settings := loadSettings()

		finder := newFinder(settings, log)
		pluginDir := finder.StPluginPath()
		if pluginDir == "" {
			return fmt.Errorf("no Steam installation found; set --steam-path")
		}

		script, err := installer.ReadArchiveScript(archivePath)
		if err != nil {
			return err
		}
		if script == "" {
			return fmt.Errorf("archive contains no unlock script")
		}

		records := luaparser.ParseDepots(script, appID)
		depotKeys := luaparser.ExtractDepotKeys(script)

		depotIDs := make([]string, 0, len(records))
		for _, r := range records {
			depotIDs = append(depotIDs, r.DepotID)
		}

		// With a language selected, narrow the depot list using the remote
		// metadata. Metadata being unreachable falls back to the full list.
		gameName := ""
		if language != "" {
			client := newSteamCmdClient(settings, log)
			if info := client.GetDepotInfo(cmd.Context(), appID); info != nil {
				engine := depotfilter.New(log)
				filtered := engine.DepotsForLanguage(info, depotKeys, language, appID,
					settings.Filter.BlacklistedAppSet(), settings.Filter.BlockedDepotSet())
				if len(filtered) > 0 {
					depotIDs = filtered
				}
			}
			gameName = client.GetGameName(cmd.Context(), appID)
		}

		manifestCount, err := installer.InstallManifestArchive(archivePath, finder.DepotCachePath(), log)
		if err != nil {
			return err
		}

		inst := installer.New(pluginDir, log)
		res, err := inst.Install(appID, depotIDs, depotKeys, installer.ModeLocalArchive)
		if err != nil {
			return err
		}

		if store, err := openLibrary(log); err == nil {
			defer func() { _ = store.Close() }()
			_ = store.Upsert(library.Game{
				AppID:      appID,
				Name:       gameName,
				DepotCount: len(depotIDs),
			})
		}

		fmt.Printf("Installed app %s: %d manifests, %d depot keys, applist %d/%d\n",
			appID, manifestCount, res.KeysWritten, res.AppListCount, installer.MaxAppListEntries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().String("app", "", "App id (default: archive filename)")
	installCmd.Flags().StringP("language", "l", "", "Restrict depots to one language")
}
