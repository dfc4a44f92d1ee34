package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kawakawa0804/umi-no-me-web2/cmd/benchmark"
	"github.com/kawakawa0804/umi-no-me-web2/cmd/serve"
	"github.com/kawakawa0804/umi-no-me-web2/cmd/support"
	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
)

// configPath holds the --config flag value
var configPath string

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "umi-no-me",
		Short: "Umi no Me detection gateway CLI",
		// Running the binary with no subcommand starts the gateway, field
		// units invoke it that way from systemd.
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve.Run(settings)
		},
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	serveCmd := serve.Command(settings)
	benchmarkCmd := benchmark.Command(settings)
	supportCmd := support.Command(settings)

	subcommands := []*cobra.Command{
		serveCmd,
		benchmarkCmd,
		supportCmd,
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// An explicit config file replaces whatever the search paths found,
		// flags set on the command line still win over it.
		if configPath != "" {
			if err := conf.LoadFromFile(configPath, settings); err != nil {
				return err
			}
			applyFlagOverrides(cmd, settings)
		}
		return nil
	}

	return rootCmd
}

// applyFlagOverrides re-applies flags the user set explicitly, so they keep
// precedence over values read from an explicit --config file.
func applyFlagOverrides(cmd *cobra.Command, settings *conf.Settings) {
	flags := cmd.Flags()
	if flags.Changed("debug") {
		settings.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("port") {
		settings.Web.Port, _ = flags.GetString("port")
	}
	if flags.Changed("model") {
		settings.Model.Path, _ = flags.GetString("model")
	}
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVarP(&settings.Web.Port, "port", "p", viper.GetString("web.port"), "Port for the HTTP server")
	rootCmd.PersistentFlags().StringVarP(&settings.Model.Path, "model", "m", viper.GetString("model.path"), "Path to the detector model artifact")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file, overrides the default search paths")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	if err := viper.BindPFlag("web.port", rootCmd.PersistentFlags().Lookup("port")); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	if err := viper.BindPFlag("model.path", rootCmd.PersistentFlags().Lookup("model")); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
