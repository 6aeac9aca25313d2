package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/libnare/sermcs/cmd/sermcs/container"
	"github.com/libnare/sermcs/cmd/sermcs/routes"
	"github.com/libnare/sermcs/common/bootstrap"
	"github.com/libnare/sermcs/common/server"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, DB, record cache)
	components, err := bootstrap.Setup(ctx, "sermcs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap sermcs: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e, components)
	routes.RegisterMediaRoutes(e, serviceContainer)

	// Start with graceful shutdown
	srv := server.New("sermcs", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check endpoint. It must be
// registered before the wildcard media route so echo prefers the static
// path.
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "sermcs",
		})
	})
}
