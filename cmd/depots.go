package cmd

import (
	"fmt"
	"os"

	"github.com/depotctl/depotctl/internal/depotfilter"
	"github.com/depotctl/depotctl/internal/luaparser"

	"github.com/spf13/cobra"
)

var depotsCmd = &cobra.Command{
	Use:   "depots [appid]",
	Short: "depots lists the depot ids selected for a language",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID := args[0]
		scriptPath, _ := cmd.Flags().GetString("script")
		language, _ := cmd.Flags().GetString("language")

		log := newLogger()
		defer func() { _ = log.Sync() }()
		settings := loadSettings()

		data, err := os.ReadFile(scriptPath)
		if err != nil {
			return fmt.Errorf("reading script: %w", err)
		}
		depotKeys := luaparser.ExtractDepotKeys(string(data))

		info := newSteamCmdClient(settings, log).GetDepotInfo(cmd.Context(), appID)
		if info == nil {
			return fmt.Errorf("no depot metadata available for app %s", appID)
		}

		engine := depotfilter.New(log)
		depotIDs := engine.DepotsForLanguage(info, depotKeys, language, appID,
			settings.Filter.BlacklistedAppSet(), settings.Filter.BlockedDepotSet())
		if len(depotIDs) == 0 {
			return fmt.Errorf("no depots selected for language %q", language)
		}

		for _, id := range depotIDs {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(depotsCmd)
	depotsCmd.Flags().String("script", "", "Unlock script carrying the depot keys")
	depotsCmd.Flags().StringP("language", "l", "english", "Language to select depots for")
	_ = depotsCmd.MarkFlagRequired("script")
}
