// Package telemetry reports enhanced errors to Sentry when enabled in settings.
package telemetry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/ecotrack/emissions-api/internal/conf"
	"github.com/ecotrack/emissions-api/internal/errors"
	"github.com/ecotrack/emissions-api/internal/logging"
)

var logger *slog.Logger

// Init configures Sentry from settings and registers the error reporter hook.
// When telemetry is disabled this is a no-op and errors are built without
// side effects.
func Init(settings *conf.Settings) error {
	logger = logging.ForService("telemetry")

	if !settings.Sentry.Enabled {
		return nil
	}
	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry telemetry enabled but DSN not configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("setting", "sentry.dsn").
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:     settings.Sentry.DSN,
		Release: fmt.Sprintf("emissions-api@%s", settings.Version),
		Debug:   settings.Debug,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	errors.SetTelemetryReporter(reportError)
	if logger != nil {
		logger.Info("Sentry error telemetry enabled")
	}
	return nil
}

// Flush waits for buffered events to be delivered, bounded by the timeout.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// reportError forwards an enhanced error to Sentry with its metadata attached.
// Validation and not-found errors are routine client outcomes and are skipped.
func reportError(ee *errors.EnhancedError) {
	switch ee.Category {
	case errors.CategoryValidation, errors.CategoryNotFound:
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())
		if priority := ee.GetPriority(); priority != "" {
			scope.SetTag("priority", priority)
		}
		if context := ee.GetContext(); context != nil {
			scope.SetContext("error_context", context)
		}
		sentry.CaptureException(ee.Err)
	})
}
