package support

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/diagnostics"
)

// CollectCommand creates the support data collection subcommand
func CollectCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Collect system diagnostics for troubleshooting",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Collecting support data...")

			archivePath, err := diagnostics.CollectDiagnostics()
			if err != nil {
				fmt.Printf("Error collecting support data: %v\n", err)
				os.Exit(1)
			}

			// Move the archive out of the temp directory so it survives
			// a reboot and is easy to attach to a report.
			filename := fmt.Sprintf("umi-no-me-support-%s.zip", time.Now().Format("20060102-150405"))
			if err := os.Rename(archivePath, filename); err != nil {
				// Rename fails across filesystems, fall back to a copy.
				data, readErr := os.ReadFile(archivePath)
				if readErr != nil {
					fmt.Printf("Error saving archive: %v\n", readErr)
					os.Exit(1)
				}
				if writeErr := os.WriteFile(filename, data, 0o600); writeErr != nil {
					fmt.Printf("Error saving archive: %v\n", writeErr)
					os.Exit(1)
				}
				os.Remove(archivePath)
			}

			fmt.Printf("Support data collected and saved to: %s\n", filename)
			if settings != nil && settings.Debug {
				fmt.Printf("Archive staged from: %s\n", archivePath)
			}
		},
	}
}
