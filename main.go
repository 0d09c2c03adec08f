package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ecotrack/emissions-api/cmd"
	"github.com/ecotrack/emissions-api/internal/conf"
	"github.com/ecotrack/emissions-api/internal/logging"
	"github.com/ecotrack/emissions-api/internal/telemetry"
)

// version and buildDate are populated at build time via ldflags.
var version = "dev"
var buildDate = "unknown"

func main() {
	exitCode := mainWithExitCode()
	os.Exit(exitCode)
}

func mainWithExitCode() int {
	logging.Init()

	fmt.Printf("emissions-api %s (built: %s), using config file: %s\n",
		version, buildDate, conf.FindConfigFile())

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error while loading configuration: %v\n", err)
		return 1
	}
	settings.Version = version
	settings.BuildDate = buildDate

	if settings.Sentry.Enabled {
		if err := telemetry.Init(settings); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: telemetry initialization failed: %v\n", err)
		}
		defer telemetry.Flush(2 * time.Second)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command execution error: %v\n", err)
		return 1
	}

	return 0
}
