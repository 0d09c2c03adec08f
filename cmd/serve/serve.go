// cmd/serve/serve.go
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	api "github.com/ecotrack/emissions-api/internal/api/v1"
	"github.com/ecotrack/emissions-api/internal/conf"
	"github.com/ecotrack/emissions-api/internal/datastore"
	"github.com/ecotrack/emissions-api/internal/logging"
	"github.com/ecotrack/emissions-api/internal/observability"
)

// Command creates the serve command, which runs the HTTP API server.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the emissions API server",
		Long:  "Start the HTTP server exposing the emission records REST API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}
	return cmd
}

func runServer(settings *conf.Settings) error {
	logger := logging.ForService("serve")
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	store := datastore.New(settings, metrics.Datastore)
	if store == nil {
		return fmt.Errorf("no database backend enabled in configuration")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer closeStore(store, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// Treat /emissions/ and /emissions as the same route.
	e.Pre(middleware.RemoveTrailingSlash())

	controller, err := api.New(e, store, settings, nil, metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize API controller: %w", err)
	}
	defer controller.Shutdown()

	// Prometheus scrape endpoint lives outside the API group so it skips
	// the API middlewares.
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	errChan := make(chan error, 1)
	go func() {
		addr := ":" + settings.WebServer.Port
		logger.Info("starting HTTP server", "address", addr, "version", settings.Version)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("HTTP server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func closeStore(store datastore.Interface, logger *slog.Logger) {
	if err := store.Close(); err != nil {
		logger.Error("failed to close datastore", "error", err)
	}
}
