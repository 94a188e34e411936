package anamnesis

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nutes/frontdesk/internal/platform/cache"
	"github.com/nutes/frontdesk/internal/platform/export"
)

const snapshotKey = "anamnesis"

type Handler struct {
	svc       *Service
	snapshots *cache.Snapshots
	logger    zerolog.Logger
}

func NewHandler(svc *Service, snapshots *cache.Snapshots, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, snapshots: snapshots, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/analytics/anamnesis")
	g.GET("", h.GetDashboard)
	g.GET("/export", h.ExportDashboard)
}

func (h *Handler) dashboard(ctx context.Context) (*Dashboard, error) {
	return cache.Fetch(ctx, h.snapshots, snapshotKey, h.svc.Dashboard)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	d, err := h.dashboard(c.Request().Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("anamnesis dashboard failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load anamnesis dashboard")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ExportDashboard(c echo.Context) error {
	d, err := h.dashboard(c.Request().Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("anamnesis dashboard failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load anamnesis dashboard")
	}
	raw, err := export.WriteXLSX(d.Tables())
	if err != nil {
		h.logger.Error().Err(err).Msg("anamnesis export failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to export anamnesis dashboard")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="anamnese-%s.xlsx"`, d.GeneratedAt.Format("2006-01-02")))
	return c.Blob(http.StatusOK, export.ContentType, raw)
}
