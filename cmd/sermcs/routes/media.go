package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/libnare/sermcs/cmd/sermcs/container"
)

// RegisterMediaRoutes registers the media serving route. The wildcard
// keeps embedded slashes inside the access key.
func RegisterMediaRoutes(e *echo.Echo, c *container.Container) {
	e.GET("/*", c.MediaHandler.Get)
}
