package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list shows the apps installed through depotctl",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		defer func() { _ = log.Sync() }()

		store, err := openLibrary(log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		games, err := store.List()
		if err != nil {
			return err
		}
		if len(games) == 0 {
			fmt.Println("No apps installed.")
			return nil
		}

		for _, g := range games {
			name := g.Name
			if name == "" {
				name = "(unknown)"
			}
			fmt.Printf("%-12s %-40s %3d depots  %s\n",
				g.AppID, name, g.DepotCount, g.InstalledAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
