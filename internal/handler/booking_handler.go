package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ridemax/service-booking/internal/application"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"github.com/ridemax/service-booking/internal/platform/response"
)

// BookingAPI is the booking use-case surface served over HTTP.
type BookingAPI interface {
	CreateBooking(ctx context.Context, req application.CreateBookingRequest) (*application.CreatedBookingDTO, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*application.BookingDTO, error)
	TrackBooking(ctx context.Context, number, phone string) (*application.BookingTrackingDTO, error)
	ListBookings(ctx context.Context, q application.ListBookingsQuery) (*domain.PaginatedResult[application.BookingDTO], error)
	ExportBookings(ctx context.Context, q application.ListBookingsQuery) ([]application.BookingDTO, error)
	GetBookingStats(ctx context.Context) (*application.BookingStatsDTO, error)
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID, actor string) (*application.BookingDTO, error)
	CompleteBooking(ctx context.Context, bookingID uuid.UUID, actor string) (*application.BookingDTO, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, actor, reason string) (*application.BookingDTO, error)
}

// BookingHandler handles customer-facing booking requests.
type BookingHandler struct {
	service BookingAPI
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service BookingAPI) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers the public booking routes.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/api/v1/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("/number/:number", h.TrackBooking)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// TrackBooking handles GET /api/v1/bookings/number/:number?phone=...
// The response is the public view; contact details stay admin-only.
func (h *BookingHandler) TrackBooking(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		response.BadRequest(c, "phone is required")
		return
	}

	result, err := h.service.TrackBooking(c.Request.Context(), c.Param("number"), phone)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}

func parseBookingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return uuid.Nil, false
	}
	return id, true
}
