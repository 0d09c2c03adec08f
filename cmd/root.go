// cmd/root.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ecotrack/emissions-api/cmd/serve"
	"github.com/ecotrack/emissions-api/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "emissions-api",
		Short: "Emissions API - greenhouse gas emission records service",
		Long: `A REST API for managing greenhouse gas emission records by year,
country, emission type and activity sector.`,
	}

	// Set up the global flags for the root command
	setupFlags(rootCmd, settings)

	serveCmd := serve.Command(settings)
	supportCmd := supportCommand(settings)
	versionCmd := versionCommand(settings)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(supportCmd)
	rootCmd.AddCommand(versionCmd)

	// Defaulting to the serve command keeps `emissions-api` with no
	// arguments useful.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().NArg() == 0 {
			return serveCmd.RunE(cmd, args)
		}
		return fmt.Errorf("unknown command: %s", cmd.Flags().Arg(0))
	}

	return rootCmd
}

// setupFlags configures global flags for the provided command
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	cmd.PersistentFlags().StringVarP(&settings.WebServer.Port, "port", "p", viper.GetString("webserver.port"), "Port to listen on")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		fmt.Printf("Error binding flags: %v\n", err)
	}
}

func versionCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and build date",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("emissions-api %s (built %s)\n", settings.Version, settings.BuildDate)
		},
	}
}
