package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/ridemax/service-booking/internal/application"
	"github.com/ridemax/service-booking/internal/domain/fare"
	"github.com/ridemax/service-booking/internal/platform/auth"
	"github.com/ridemax/service-booking/internal/platform/middleware"
	"github.com/ridemax/service-booking/internal/platform/response"
)

// PricingAPI is the tariff administration surface.
type PricingAPI interface {
	GetPricing(ctx context.Context) (*application.PricingDTO, error)
	UpdateLocalRates(ctx context.Context, req application.LocalRatesRequest) (*fare.RateTable, error)
	UpsertOutstationFare(ctx context.Context, req application.OutstationFareRequest) error
	DeleteOutstationFare(ctx context.Context, req application.OutstationFareRequest) error
	UpdateSurcharge(ctx context.Context, req application.SurchargeRequest) error
}

// PricingHandler lets administrators edit tariffs without a redeploy.
type PricingHandler struct {
	service PricingAPI
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(service PricingAPI) *PricingHandler {
	return &PricingHandler{service: service}
}

// RegisterRoutes registers the admin pricing routes.
func (h *PricingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	pricing := r.Group("/api/v1/admin/pricing")
	pricing.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		pricing.GET("", h.GetPricing)
		pricing.PUT("/local", h.UpdateLocalRates)
		pricing.PUT("/outstation", h.UpsertOutstationFare)
		pricing.DELETE("/outstation", h.DeleteOutstationFare)
		pricing.PUT("/surcharge", h.UpdateSurcharge)
	}
}

// GetPricing handles GET /api/v1/admin/pricing.
func (h *PricingHandler) GetPricing(c *gin.Context) {
	result, err := h.service.GetPricing(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateLocalRates handles PUT /api/v1/admin/pricing/local.
func (h *PricingHandler) UpdateLocalRates(c *gin.Context) {
	var req application.LocalRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rates, err := h.service.UpdateLocalRates(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, rates)
}

// UpsertOutstationFare handles PUT /api/v1/admin/pricing/outstation.
func (h *PricingHandler) UpsertOutstationFare(c *gin.Context) {
	var req application.OutstationFareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.UpsertOutstationFare(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	h.GetPricing(c)
}

// DeleteOutstationFare handles DELETE /api/v1/admin/pricing/outstation.
func (h *PricingHandler) DeleteOutstationFare(c *gin.Context) {
	var req application.OutstationFareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.DeleteOutstationFare(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	h.GetPricing(c)
}

// UpdateSurcharge handles PUT /api/v1/admin/pricing/surcharge.
func (h *PricingHandler) UpdateSurcharge(c *gin.Context) {
	var req application.SurchargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.UpdateSurcharge(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	h.GetPricing(c)
}
