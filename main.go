package main

import (
	"fmt"
	"os"

	"github.com/kawakawa0804/umi-no-me-web2/cmd"
	"github.com/kawakawa0804/umi-no-me-web2/internal/buildinfo"
	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/logging"
)

// version and buildDate are injected at build time:
//
//	go build -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	logging.Init()

	buildinfo.Version = version
	buildinfo.BuildDate = buildDate

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		return 1
	}

	// Make the build metadata visible to components that only see settings
	settings.Version = version
	settings.BuildDate = buildDate

	fmt.Printf("Umi no Me %s (built %s), config: %s\n", version, buildDate, configSource())

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command execution error: %v\n", err)
		return 1
	}
	return 0
}

// configSource reports which config file the settings came from, or a
// placeholder on a fresh install running on defaults alone.
func configSource() string {
	path, err := conf.FindConfigFile()
	if err != nil {
		return "(defaults)"
	}
	return path
}
