package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ridemax/service-booking/internal/application"
	"github.com/ridemax/service-booking/internal/export"
	"github.com/ridemax/service-booking/internal/platform/auth"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"github.com/ridemax/service-booking/internal/platform/middleware"
	"github.com/ridemax/service-booking/internal/platform/response"
	"go.uber.org/zap"
)

// CustomerLister lists customer profiles for the back office.
type CustomerLister interface {
	ListCustomers(ctx context.Context, search string, page, limit int) (*domain.PaginatedResult[application.CustomerDTO], error)
}

// AdminCredentials is the single back-office login.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

// LoginRequest is the admin login body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AdminHandler handles back-office booking management.
type AdminHandler struct {
	bookings   BookingAPI
	customers  CustomerLister
	jwtManager *auth.JWTManager
	creds      AdminCredentials
	logger     *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	bookings BookingAPI,
	customers CustomerLister,
	jwtManager *auth.JWTManager,
	creds AdminCredentials,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		bookings:   bookings,
		customers:  customers,
		jwtManager: jwtManager,
		creds:      creds,
		logger:     logger,
	}
}

// RegisterRoutes registers the admin routes. Everything except login requires an admin token.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	r.POST("/api/v1/admin/login", h.Login)

	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/bookings/export", h.ExportBookings)
		admin.GET("/bookings/:id", h.GetBooking)
		admin.POST("/bookings/:id/confirm", h.ConfirmBooking)
		admin.POST("/bookings/:id/complete", h.CompleteBooking)
		admin.POST("/bookings/:id/cancel", h.CancelBooking)
		admin.GET("/stats/bookings", h.BookingStats)
		admin.GET("/customers", h.ListCustomers)
	}
}

// Login handles POST /api/v1/admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if h.creds.PasswordHash == "" ||
		req.Username != h.creds.Username ||
		!auth.CheckPassword(h.creds.PasswordHash, req.Password) {
		h.logger.Warn("admin login rejected", zap.String("username", req.Username), zap.String("ip", c.ClientIP()))
		response.Unauthorized(c, "invalid username or password")
		return
	}

	token, expiresAt, err := h.jwtManager.Generate(req.Username, auth.RoleAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, LoginResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt})
}

// ListBookings handles GET /api/v1/admin/bookings?status=&q=&page=&limit=.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.bookings.ListBookings(c.Request.Context(), application.ListBookingsQuery{
		Status: c.Query("status"),
		Search: c.Query("q"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ExportBookings handles GET /api/v1/admin/bookings/export?status=&q=.
func (h *AdminHandler) ExportBookings(c *gin.Context) {
	bookings, err := h.bookings.ExportBookings(c.Request.Context(), application.ListBookingsQuery{
		Status: c.Query("status"),
		Search: c.Query("q"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteBookings(&buf, bookings); err != nil {
		h.logger.Error("failed to render bookings export", zap.Error(err))
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("bookings-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}

// GetBooking handles GET /api/v1/admin/bookings/:id.
func (h *AdminHandler) GetBooking(c *gin.Context) {
	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	result, err := h.bookings.GetBooking(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ConfirmBooking handles POST /api/v1/admin/bookings/:id/confirm.
func (h *AdminHandler) ConfirmBooking(c *gin.Context) {
	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	result, err := h.bookings.ConfirmBooking(c.Request.Context(), id, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CompleteBooking handles POST /api/v1/admin/bookings/:id/complete.
func (h *AdminHandler) CompleteBooking(c *gin.Context) {
	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	result, err := h.bookings.CompleteBooking(c.Request.Context(), id, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBooking handles POST /api/v1/admin/bookings/:id/cancel.
func (h *AdminHandler) CancelBooking(c *gin.Context) {
	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	// The body is optional.
	var body application.CancelBookingRequest
	_ = c.ShouldBindJSON(&body)

	result, err := h.bookings.CancelBooking(c.Request.Context(), id, actor(c), strings.TrimSpace(body.Reason))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminHandler) BookingStats(c *gin.Context) {
	stats, err := h.bookings.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// ListCustomers handles GET /api/v1/admin/customers?q=&page=&limit=.
func (h *AdminHandler) ListCustomers(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.customers.ListCustomers(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

func actor(c *gin.Context) string {
	if username, ok := middleware.GetUsername(c); ok {
		return username
	}
	return "admin"
}
