package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/depotctl/depotctl/internal/luaparser"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [script.lua]",
	Short: "inspect lists the depots declared in an unlock script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, _ := cmd.Flags().GetString("app")
		if appID == "" {
			appID = appIDFromFilename(args[0])
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading script: %w", err)
		}
		script := string(data)

		records := luaparser.ParseDepots(script, appID)
		keys := luaparser.ExtractDepotKeys(script)

		if len(records) == 0 {
			fmt.Println("No depot declarations found.")
			return nil
		}

		for _, r := range records {
			line := fmt.Sprintf("%-12s %s", r.DepotID, r.Name)
			if r.SizeBytes > 0 {
				line += fmt.Sprintf("  (%s)", luaparser.FormatSize(r.SizeBytes))
			}
			if r.DLCAppID != "" {
				line += fmt.Sprintf("  [DLC %s: %s]", r.DLCAppID, r.DLCName)
			}
			if r.IsTokenBased {
				line += "  [token]"
			}
			if _, ok := keys[r.DepotID]; ok {
				line += "  [key]"
			}
			fmt.Println(line)
		}

		fmt.Printf("\n%d depots, total size %s, %d decryption keys\n",
			len(records),
			luaparser.FormatSize(luaparser.CalculateTotalSize(records)),
			len(keys))
		return nil
	},
}

// appIDFromFilename guesses the app id from a script named <appid>.lua.
func appIDFromFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().String("app", "", "Main app id the script belongs to (default: script filename)")
}
