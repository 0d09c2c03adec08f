// validate.go validates loaded settings before the application starts
package conf

import (
	"fmt"
	"strconv"

	"github.com/ecotrack/emissions-api/internal/errors"
)

// ValidateSettings checks the loaded settings for consistency.
func ValidateSettings(settings *Settings) error {
	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		return err
	}
	if err := validateOutputSettings(&settings.Output); err != nil {
		return err
	}
	return validateAPISettings(&settings.API)
}

func validateWebServerSettings(ws *WebServerSettings) error {
	if !ws.Enabled {
		return nil
	}
	port, err := strconv.Atoi(ws.Port)
	if err != nil || port < 1 || port > 65535 {
		return errors.Newf("invalid web server port: %s", ws.Port).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("setting", "webserver.port").
			Build()
	}
	return nil
}

func validateOutputSettings(output *OutputSettings) error {
	if output.SQLite.Enabled && output.MySQL.Enabled {
		return errors.Newf("only one database backend can be enabled at a time").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if !output.SQLite.Enabled && !output.MySQL.Enabled {
		return errors.Newf("no database backend enabled, enable either SQLite or MySQL").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if output.SQLite.Enabled && output.SQLite.Path == "" {
		return errors.Newf("SQLite database path must not be empty").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("setting", "output.sqlite.path").
			Build()
	}
	if output.MySQL.Enabled {
		if output.MySQL.Database == "" || output.MySQL.Host == "" {
			return errors.Newf("MySQL host and database must be configured").
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}
	return nil
}

func validateAPISettings(api *APISettings) error {
	if api.PageSize < 1 {
		return fmt.Errorf("api.pagesize must be at least 1, got %d", api.PageSize)
	}
	if api.MaxPageSize < api.PageSize {
		return fmt.Errorf("api.maxpagesize (%d) must not be smaller than api.pagesize (%d)",
			api.MaxPageSize, api.PageSize)
	}
	return nil
}
