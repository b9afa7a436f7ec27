package cmd

import (
	"fmt"
	"os"

	"github.com/depotctl/depotctl/internal/downloader"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download [appid]...",
	Short: "download fetches manifest archives for one or more apps",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputDir, _ := cmd.Flags().GetString("output")

		log := newLogger()
		defer func() { _ = log.Sync() }()
		settings := loadSettings()

		if outputDir == "" {
			outputDir = settings.General.DownloadDir
		}
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}

		client, err := newManifestClient(settings, log)
		if err != nil {
			return err
		}

		manager := downloader.NewManager(downloader.Config{
			MaxConcurrent:   settings.Downloads.MaxConcurrentDownloads,
			PollInterval:    settings.Downloads.PollInterval,
			MaxPollAttempts: settings.Downloads.MaxPollAttempts,
			DownloadDir:     outputDir,
		}, client, log)

		go consumeEvents(manager)

		queued := 0
		for _, appID := range args {
			manifest, err := client.GetManifest(cmd.Context(), appID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", appID, err)
				continue
			}
			manager.Enqueue(downloader.NewItem(appID, manifest.Name, manifest.DownloadURL, ""))
			queued++
		}
		if queued == 0 {
			return fmt.Errorf("nothing to download")
		}

		manager.Wait()

		if failed := manager.Failed(); len(failed) > 0 {
			for _, item := range failed {
				fmt.Fprintf(os.Stderr, "Failed: %s (%s): %s\n", item.DisplayName, item.AppID, item.StatusMessage)
			}
			return fmt.Errorf("%d of %d downloads did not complete", len(failed), queued)
		}
		return nil
	},
}

// consumeEvents prints queue lifecycle events as they arrive.
func consumeEvents(manager *downloader.Manager) {
	for msg := range manager.Events() {
		switch ev := msg.(type) {
		case downloader.QueuedEvent:
			fmt.Printf("Queued: %s [%s]\n", ev.Item.DisplayName, ev.Item.AppID)
		case downloader.StartedEvent:
			fmt.Printf("Started: %s [%s]\n", ev.Item.DisplayName, ev.Item.AppID)
		case downloader.CompletedEvent:
			fmt.Printf("Completed: %s [%s] -> %s\n", ev.Item.DisplayName, ev.Item.AppID, ev.Item.DestPath)
		case downloader.FailedEvent:
			fmt.Printf("Error: %s [%s]: %v\n", ev.Item.DisplayName, ev.Item.AppID, ev.Err)
		case downloader.CancelledEvent:
			fmt.Printf("Cancelled: %s [%s]\n", ev.Item.DisplayName, ev.Item.AppID)
		}
	}
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringP("output", "o", "", "Output directory (default: configured download dir)")
}
