package intake

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nutes/frontdesk/internal/platform/clinic"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/intake")
	g.POST("/anamnesis", h.SubmitAnamnesis)
	g.POST("/registrations", h.Register)
}

func (h *Handler) SubmitAnamnesis(c echo.Context) error {
	var sub AnamnesisSubmission
	if err := c.Bind(&sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	receipt, err := h.svc.SubmitAnamnesis(c.Request().Context(), sub)
	if err != nil {
		return h.toHTTP(err, "anamnesis submission failed")
	}
	return c.JSON(http.StatusCreated, receipt)
}

func (h *Handler) Register(c echo.Context) error {
	var reg Registration
	if err := c.Bind(&reg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	receipt, err := h.svc.Register(c.Request().Context(), reg)
	if err != nil {
		return h.toHTTP(err, "registration failed")
	}
	return c.JSON(http.StatusCreated, receipt)
}

func (h *Handler) toHTTP(err error, msg string) error {
	if errors.Is(err, ErrValidation) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var apiErr *clinic.APIError
	if errors.As(err, &apiErr) || errors.Is(err, clinic.ErrUnavailable) {
		h.logger.Warn().Err(err).Msg(msg)
		return echo.NewHTTPError(http.StatusBadGateway, "clinic API request failed")
	}
	h.logger.Error().Err(err).Msg(msg)
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}
