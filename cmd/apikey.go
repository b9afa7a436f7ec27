package cmd

import (
	"fmt"

	"github.com/depotctl/depotctl/internal/config"
	"github.com/depotctl/depotctl/internal/manifestapi"

	"github.com/spf13/cobra"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey [key]",
	Short: "apikey validates and stores the manifest API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if !manifestapi.ValidateAPIKey(key) {
			return fmt.Errorf("key has the wrong format")
		}

		log := newLogger()
		defer func() { _ = log.Sync() }()
		settings := loadSettings()
		settings.API.ManifestAPIKey = key

		client, err := newManifestClient(settings, log)
		if err != nil {
			return err
		}
		if !client.TestAPIKey(cmd.Context()) {
			return fmt.Errorf("key was rejected by the manifest service")
		}

		if err := config.SaveSettings(settings); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("API key accepted and saved.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
}
