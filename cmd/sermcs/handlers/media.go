package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/libnare/sermcs/cmd/sermcs/models"
	"github.com/libnare/sermcs/cmd/sermcs/service"
	"github.com/libnare/sermcs/common/bootstrap"
	"github.com/libnare/sermcs/common/logger"
)

// MediaServer is the coordinator surface this handler depends on
type MediaServer interface {
	Serve(ctx context.Context, key string) (*service.ServeResult, error)
}

// MediaHandler answers GET /{key} requests
type MediaHandler struct {
	components *bootstrap.Components
	media      MediaServer
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(components *bootstrap.Components, media MediaServer) *MediaHandler {
	return &MediaHandler{
		components: components,
		media:      media,
	}
}

// Get serves one media artifact.
// GET /* — the entire remaining path is the access key, treated as an
// opaque string (embedded slashes included, no path semantics).
func (h *MediaHandler) Get(c echo.Context) error {
	key := c.Param("*")
	if key == "" {
		return echo.NewHTTPError(http.StatusNotFound, "missing access key")
	}

	log := h.components.Logger.WithKey(key).WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID))

	result, err := h.media.Serve(c.Request().Context(), key)
	if err != nil {
		return h.errorResponse(log, err)
	}

	f, err := os.Open(result.Path)
	if os.IsNotExist(err) {
		// The entry was evicted between lookup and open; run the pipeline
		// once more, which re-fetches on the now-genuine miss.
		log.Warn("cache entry vanished before open, repopulating")
		result, err = h.media.Serve(c.Request().Context(), key)
		if err != nil {
			return h.errorResponse(log, err)
		}
		f, err = os.Open(result.Path)
	}
	if err != nil {
		log.Error("failed to open cached artifact", "path", result.Path, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read cached artifact")
	}
	defer f.Close()

	log.Info("serving artifact",
		"role", result.Role.String(),
		"content_type", result.ContentType,
		"from_cache", result.FromCache,
	)

	if result.Role == models.RolePrimary && result.ContentDisposition != "" {
		c.Response().Header().Set(echo.HeaderContentDisposition, result.ContentDisposition)
	}

	return c.Stream(http.StatusOK, result.ContentType, f)
}

// errorResponse maps the service error taxonomy onto HTTP statuses:
// unknown key 404, upstream trouble 502, local trouble 500.
func (h *MediaHandler) errorResponse(log *logger.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		log.Warn("key not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrStoreUnavailable),
		errors.Is(err, service.ErrOriginUnreachable),
		errors.Is(err, service.ErrUpstreamStatus),
		errors.Is(err, service.ErrContentTypeMismatch):
		log.Error("upstream failure", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "upstream failure")
	case errors.Is(err, service.ErrTranscodeFailed),
		errors.Is(err, service.ErrCacheWrite):
		log.Error("local failure", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal failure")
	default:
		log.Error("unclassified failure", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal failure")
	}
}
