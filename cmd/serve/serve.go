package serve

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/gateway"
)

// Command creates a new command for running the detection gateway.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the detection gateway",
		Long:  "Start the HTTP gateway and serve camera frames to the detector until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(settings)
		},
	}

	// Set up flags specific to the 'serve' command
	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// Run starts the gateway. The root command calls this directly when the
// binary is invoked with no subcommand.
func Run(settings *conf.Settings) error {
	return gateway.Run(settings)
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Web.Host, "host", viper.GetString("web.host"), "Interface the HTTP server binds to")
	cmd.Flags().StringVar(&settings.Audit.Path, "auditpath", viper.GetString("audit.path"), "Path to the append-only detection CSV")
	cmd.Flags().StringVar(&settings.Web.Templates, "templates", viper.GetString("web.templates"), "Directory with page templates, overrides the embedded views")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
