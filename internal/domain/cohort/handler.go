package cohort

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nutes/frontdesk/internal/platform/cache"
	"github.com/nutes/frontdesk/internal/platform/export"
)

const snapshotKey = "patients"

// Handler serves the patient cohort dashboard.
type Handler struct {
	svc       *Service
	snapshots *cache.Snapshots
	logger    zerolog.Logger
}

func NewHandler(svc *Service, snapshots *cache.Snapshots, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, snapshots: snapshots, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/analytics/patients")
	g.GET("", h.GetDashboard)
	g.GET("/export", h.ExportDashboard)
}

func (h *Handler) load(ctx context.Context) (*Dashboard, error) {
	d, err := cache.Fetch(ctx, h.snapshots, snapshotKey, h.svc.Dashboard)
	if err != nil {
		h.logger.Error().Err(err).Msg("patient dashboard failed")
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load patient dashboard")
	}
	return d, nil
}

func (h *Handler) GetDashboard(c echo.Context) error {
	d, err := h.load(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ExportDashboard(c echo.Context) error {
	d, err := h.load(c.Request().Context())
	if err != nil {
		return err
	}
	raw, err := export.WriteXLSX(d.Tables())
	if err != nil {
		h.logger.Error().Err(err).Msg("patient export failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to export patient dashboard")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="pacientes-%s.xlsx"`, d.GeneratedAt.Format("2006-01-02")))
	return c.Blob(http.StatusOK, export.ContentType, raw)
}
