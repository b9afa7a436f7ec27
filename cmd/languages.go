package cmd

import (
	"fmt"
	"os"

	"github.com/depotctl/depotctl/internal/depotfilter"
	"github.com/depotctl/depotctl/internal/luaparser"

	"github.com/spf13/cobra"
)

var languagesCmd = &cobra.Command{
	Use:   "languages [appid]",
	Short: "languages lists the languages installable for an app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID := args[0]
		scriptPath, _ := cmd.Flags().GetString("script")

		log := newLogger()
		defer func() { _ = log.Sync() }()
		settings := loadSettings()

		data, err := os.ReadFile(scriptPath)
		if err != nil {
			return fmt.Errorf("reading script: %w", err)
		}
		depotKeys := luaparser.ExtractDepotKeys(string(data))

		info := newSteamCmdClient(settings, log).GetDepotInfo(cmd.Context(), appID)

		engine := depotfilter.New(log)
		for _, lang := range engine.AvailableLanguages(info, appID, depotKeys) {
			fmt.Println(lang)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
	languagesCmd.Flags().String("script", "", "Unlock script carrying the depot keys")
	_ = languagesCmd.MarkFlagRequired("script")
}
