package support

import (
	"github.com/spf13/cobra"

	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
)

// Command creates the support parent command
func Command(settings *conf.Settings) *cobra.Command {
	supportCmd := &cobra.Command{
		Use:   "support",
		Short: "Commands related to support operations in Umi no Me",
	}

	// Add subcommands here
	supportCmd.AddCommand(CollectCommand(settings))

	return supportCmd
}
