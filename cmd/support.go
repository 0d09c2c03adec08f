// cmd/support.go
package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ecotrack/emissions-api/internal/conf"
)

// supportCommand prints a sanitized view of the effective configuration
// together with runtime details, suitable for attaching to bug reports.
func supportCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "support",
		Short: "Print sanitized configuration and runtime info for bug reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("emissions-api %s (built %s)\n", settings.Version, settings.BuildDate)
			fmt.Printf("go: %s, os: %s, arch: %s\n\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

			if file := viper.ConfigFileUsed(); file != "" {
				fmt.Printf("config file: %s\n\n", file)
			}

			sanitized := *settings
			if sanitized.Output.MySQL.Password != "" {
				sanitized.Output.MySQL.Password = "********"
			}
			if sanitized.Sentry.DSN != "" {
				sanitized.Sentry.DSN = "********"
			}

			out, err := yaml.Marshal(&sanitized)
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
