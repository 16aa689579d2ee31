package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/tripsearch/internal/models"
	"github.com/dharmasatrya/tripsearch/internal/orchestrator"
)

type SearchHandler struct {
	svc *orchestrator.Service
	log *slog.Logger
}

func NewSearchHandler(svc *orchestrator.Service, log *slog.Logger) *SearchHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SearchHandler{svc: svc, log: log}
}

// RequestValidator adapts go-playground/validator to Echo's Validator
// interface.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func (h *SearchHandler) Register(g *echo.Group) {
	g.POST("/search", h.Search)
	g.GET("/bookings/:id", h.BookingDetails)
	g.GET("/providers/health", h.ProviderHealth)
	g.POST("/providers/health/check", h.TriggerHealthCheck)
	g.POST("/admin/breakers/reset", h.ResetBreakers)
	g.PUT("/admin/config", h.UpdateConfig)
	g.POST("/admin/cache/clear", h.ClearCache)
}

func (h *SearchHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	if err := c.Validate(&req); err != nil {
		var he *echo.HTTPError
		msg := "invalid request"
		if errors.As(err, &he) {
			if s, ok := he.Message.(string); ok {
				msg = s
			}
		}
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: msg,
			Code:    http.StatusBadRequest,
		})
	}

	result, err := h.svc.Search(ctx, req)
	if err != nil {
		var noProviders *orchestrator.NoProvidersError
		if errors.As(err, &noProviders) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "no_providers",
				Message: err.Error(),
				Code:    http.StatusNotFound,
			})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "search_error",
			Message: "Failed to search: " + err.Error(),
			Code:    http.StatusInternalServerError,
		})
	}

	return c.JSON(http.StatusOK, result)
}

func (h *SearchHandler) BookingDetails(c echo.Context) error {
	bookingID := c.Param("id")
	providerName := c.QueryParam("provider")
	if providerName == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "provider query parameter is required",
			Code:    http.StatusBadRequest,
		})
	}

	details, err := h.svc.GetBookingDetails(c.Request().Context(), bookingID, providerName)
	if err != nil {
		var notFound *orchestrator.ProviderNotFoundError
		if errors.As(err, &notFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "provider_not_found",
				Message: err.Error(),
				Code:    http.StatusNotFound,
			})
		}
		return c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "booking_not_found",
			Message: err.Error(),
			Code:    http.StatusNotFound,
		})
	}

	return c.JSON(http.StatusOK, details)
}

func (h *SearchHandler) ProviderHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.ProviderHealthStatus())
}

func (h *SearchHandler) TriggerHealthCheck(c echo.Context) error {
	h.svc.TriggerHealthCheck(c.Request().Context())
	return c.JSON(http.StatusOK, h.svc.ProviderHealthStatus())
}

func (h *SearchHandler) ResetBreakers(c echo.Context) error {
	h.svc.ResetCircuitBreakers()
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}

type configUpdate struct {
	FailoverEnabled *bool `json:"failover_enabled,omitempty"`
	MaxRetries      *int  `json:"max_retries,omitempty"`
}

// UpdateConfig mutates the runtime knobs. Retries are clamped to the
// supported range; the response reports the values in effect.
func (h *SearchHandler) UpdateConfig(c echo.Context) error {
	var upd configUpdate
	if err := c.Bind(&upd); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	if upd.FailoverEnabled != nil {
		h.svc.SetFailoverEnabled(*upd.FailoverEnabled)
	}
	if upd.MaxRetries != nil {
		h.svc.SetMaxRetries(*upd.MaxRetries)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"failover_enabled": h.svc.FailoverEnabled(),
		"max_retries":      h.svc.MaxRetries(),
	})
}

func (h *SearchHandler) ClearCache(c echo.Context) error {
	if err := h.svc.ClearCache(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "cache_error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
