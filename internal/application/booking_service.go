package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ridemax/service-booking/internal/contract"
	bookingDomain "github.com/ridemax/service-booking/internal/domain/booking"
	"github.com/ridemax/service-booking/internal/domain/fare"
	"github.com/ridemax/service-booking/internal/domain/geo"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"github.com/ridemax/service-booking/internal/platform/kafka"
	"go.uber.org/zap"
)

// maxExportRows caps a single spreadsheet export.
const maxExportRows = 10000

// EventPublisher publishes CloudEvents to a topic. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// CustomerRecorder keeps customer profiles in step with new bookings.
type CustomerRecorder interface {
	RecordBooking(ctx context.Context, bk *bookingDomain.Booking) error
}

// CreateBookingRequest holds the data needed to create a new booking.
// Pickup and Drop are required for local rides.
type CreateBookingRequest struct {
	Name         string          `json:"name" binding:"required"`
	Phone        string          `json:"phone" binding:"required"`
	Email        string          `json:"email"`
	ServiceType  string          `json:"service_type" binding:"required"`
	From         string          `json:"from" binding:"required"`
	To           string          `json:"to" binding:"required"`
	Pickup       *geo.Coordinate `json:"pickup"`
	Drop         *geo.Coordinate `json:"drop"`
	VehicleClass string          `json:"vehicle_class" binding:"required"`
	TravelDate   string          `json:"travel_date" binding:"required"`
	TravelTime   string          `json:"travel_time" binding:"required"`
	Notes        string          `json:"notes"`
}

// CancelBookingRequest carries an optional cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// ListBookingsQuery filters the admin booking list.
type ListBookingsQuery struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID             uuid.UUID                    `json:"id"`
	BookingNumber  string                       `json:"booking_number"`
	Customer       bookingDomain.Contact        `json:"customer"`
	ServiceType    string                       `json:"service_type"`
	Trip           bookingDomain.Trip           `json:"trip"`
	Route          *bookingDomain.RouteSnapshot `json:"route,omitempty"`
	VehicleClass   string                       `json:"vehicle_class"`
	TravelDate     string                       `json:"travel_date"`
	TravelTime     string                       `json:"travel_time"`
	EstimatedPrice int64                        `json:"estimated_price"`
	Currency       string                       `json:"currency"`
	Status         string                       `json:"status"`
	StatusLabel    string                       `json:"status_label"`
	ConfirmedAt    *time.Time                   `json:"confirmed_at,omitempty"`
	CompletedAt    *time.Time                   `json:"completed_at,omitempty"`
	CancelledAt    *time.Time                   `json:"cancelled_at,omitempty"`
	CancelNote     string                       `json:"cancel_note,omitempty"`
	Notes          string                       `json:"notes,omitempty"`
	Version        int64                        `json:"version"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
}

// BookingTrackingDTO is the public view of a booking. It carries no contact
// details, notes or coordinates.
type BookingTrackingDTO struct {
	BookingNumber  string     `json:"booking_number"`
	Status         string     `json:"status"`
	StatusLabel    string     `json:"status_label"`
	ServiceType    string     `json:"service_type"`
	From           string     `json:"from"`
	To             string     `json:"to"`
	VehicleClass   string     `json:"vehicle_class"`
	TravelDate     string     `json:"travel_date"`
	TravelTime     string     `json:"travel_time"`
	EstimatedPrice int64      `json:"estimated_price"`
	Currency       string     `json:"currency"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CreatedBookingDTO is returned after a booking is accepted.
type CreatedBookingDTO struct {
	Booking      BookingDTO `json:"booking"`
	WhatsAppLink string     `json:"whatsapp_link"`
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
	Pending       int64            `json:"pending"`
	Confirmed     int64            `json:"confirmed"`
	Revenue       int64            `json:"revenue"`
	Currency      string           `json:"currency"`
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo           bookingDomain.BookingRepository
	estimates      *EstimateService
	customers      CustomerRecorder
	publisher      EventPublisher
	whatsAppNumber string
	logger         *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	estimates *EstimateService,
	customers CustomerRecorder,
	publisher EventPublisher,
	whatsAppNumber string,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:           repo,
		estimates:      estimates,
		customers:      customers,
		publisher:      publisher,
		whatsAppNumber: whatsAppNumber,
		logger:         logger,
	}
}

// CreateBooking prices the trip server-side, persists it, then notifies.
// Nothing is published unless the save succeeded.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*CreatedBookingDTO, error) {
	serviceType := bookingDomain.ServiceType(strings.TrimSpace(req.ServiceType))
	if !serviceType.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid service type: %s", req.ServiceType))
	}
	vehicleClass, err := fare.ParseVehicleClass(req.VehicleClass)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	var (
		price    int64
		snapshot *bookingDomain.RouteSnapshot
	)
	switch serviceType {
	case bookingDomain.ServiceOutstation:
		quote, err := s.estimates.QuoteOutstation(ctx, OutstationQuoteRequest{
			From:         req.From,
			To:           req.To,
			VehicleClass: string(vehicleClass),
		})
		if err != nil {
			return nil, err
		}
		price = quote.Price
	case bookingDomain.ServiceLocal:
		if req.Pickup == nil || req.Drop == nil {
			return nil, domain.NewValidationError("pickup and drop coordinates are required for local rides")
		}
		quote, err := s.estimates.EstimateLocal(ctx, LocalEstimateRequest{
			Pickup: PlaceInput{Label: req.From, Lat: &req.Pickup.Latitude, Lon: &req.Pickup.Longitude},
			Drop:   PlaceInput{Label: req.To, Lat: &req.Drop.Latitude, Lon: &req.Drop.Longitude},
		})
		if err != nil {
			return nil, err
		}
		price = quote.Fare.Total
		snapshot = &bookingDomain.RouteSnapshot{RouteEstimate: quote.Route, IsAirportTrip: quote.IsAirportTrip}
	}

	bk, err := bookingDomain.NewBooking(
		bookingDomain.Contact{Name: req.Name, Phone: req.Phone, Email: req.Email},
		serviceType,
		bookingDomain.Trip{From: req.From, To: req.To, Pickup: req.Pickup, Drop: req.Drop},
		vehicleClass,
		bookingDomain.Schedule{Date: req.TravelDate, Time: req.TravelTime},
		price,
		domain.CurrencyINR,
		req.Notes,
	)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		bk.SetRouteSnapshot(snapshot)
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		s.logger.Error("failed to save booking",
			zap.String("booking_number", bk.BookingNumber()),
			zap.Error(err),
		)
		return nil, domain.NewUnavailableError("booking could not be saved, please try again", err)
	}

	if s.customers != nil {
		if err := s.customers.RecordBooking(ctx, bk); err != nil {
			s.logger.Warn("failed to update customer profile",
				zap.String("booking_number", bk.BookingNumber()),
				zap.Error(err),
			)
		}
	}

	message := bookingDomain.NotificationMessage(bk)
	link := bookingDomain.WhatsAppLink(s.whatsAppNumber, message)
	s.publishBookingRequested(ctx, bk, message, link)

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("booking_number", bk.BookingNumber()),
		zap.String("service_type", string(bk.ServiceType())),
		zap.Int64("price", bk.EstimatedPrice()),
	)

	return &CreatedBookingDTO{Booking: toBookingDTO(bk), WhatsAppLink: link}, nil
}

// ConfirmBooking moves a pending booking to confirmed.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, actor string) (*BookingDTO, error) {
	return s.transition(ctx, bookingID, actor, "", contract.BookingConfirmed, (*bookingDomain.Booking).Confirm)
}

// CompleteBooking moves a confirmed booking to completed.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID uuid.UUID, actor string) (*BookingDTO, error) {
	return s.transition(ctx, bookingID, actor, "", contract.BookingCompleted, (*bookingDomain.Booking).Complete)
}

// CancelBooking cancels a pending booking.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, actor, reason string) (*BookingDTO, error) {
	return s.transition(ctx, bookingID, actor, reason, contract.BookingCancelled, func(bk *bookingDomain.Booking) error {
		return bk.Cancel(reason)
	})
}

func (s *BookingService) transition(
	ctx context.Context,
	bookingID uuid.UUID,
	actor, reason, eventType string,
	apply func(*bookingDomain.Booking) error,
) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := apply(bk); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	evt := contract.BookingStatusChangedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		Status:        string(bk.Status()),
		ChangedBy:     actor,
		Reason:        strings.TrimSpace(reason),
		OccurredAt:    time.Now().UTC(),
	}
	s.publishEvent(ctx, contract.TopicBookingEvents, eventType, bk.ID().String(), evt)

	s.logger.Info("booking status changed",
		zap.String("booking_id", bk.ID().String()),
		zap.String("status", string(bk.Status())),
		zap.String("actor", actor),
	)

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a single booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// TrackBooking looks a booking up by its number for the customer who made it.
// The phone must match the booking's contact; a mismatch is reported as not
// found so numbers cannot be probed for existence.
func (s *BookingService) TrackBooking(ctx context.Context, number, phone string) (*BookingTrackingDTO, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	normalized, err := bookingDomain.NormalizePhone(phone)
	if err != nil {
		return nil, domain.NewValidationError("a valid phone number is required")
	}

	bk, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !bookingDomain.SamePhone(bk.Customer().Phone, normalized) {
		s.logger.Info("booking lookup with mismatched phone", zap.String("booking_number", number))
		return nil, domain.NewNotFoundError("Booking", number)
	}

	trip := bk.Trip()
	return &BookingTrackingDTO{
		BookingNumber:  bk.BookingNumber(),
		Status:         string(bk.Status()),
		StatusLabel:    bk.Status().Label(),
		ServiceType:    string(bk.ServiceType()),
		From:           trip.From,
		To:             trip.To,
		VehicleClass:   string(bk.VehicleClass()),
		TravelDate:     bk.Schedule().Date,
		TravelTime:     bk.Schedule().Time,
		EstimatedPrice: bk.EstimatedPrice(),
		Currency:       bk.Currency(),
		ConfirmedAt:    bk.ConfirmedAt(),
		CreatedAt:      bk.CreatedAt(),
	}, nil
}

// --- Admin methods ---

// ListBookings returns a filtered, paginated list of bookings.
func (s *BookingService) ListBookings(ctx context.Context, q ListBookingsQuery) (*domain.PaginatedResult[BookingDTO], error) {
	filter, err := toListFilter(q)
	if err != nil {
		return nil, err
	}

	bookings, total, err := s.repo.List(ctx, filter, q.Page, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	result := domain.NewPaginatedResult(dtos, total, q.Page, q.Limit)
	return &result, nil
}

// ExportBookings returns every booking matching q, newest first.
func (s *BookingService) ExportBookings(ctx context.Context, q ListBookingsQuery) ([]BookingDTO, error) {
	filter, err := toListFilter(q)
	if err != nil {
		return nil, err
	}

	bookings, _, err := s.repo.List(ctx, filter, 1, maxExportRows)
	if err != nil {
		return nil, fmt.Errorf("failed to export bookings: %w", err)
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos, nil
}

// GetBookingStats returns per-status counts and the revenue of completed rides.
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}
	revenue, err := s.repo.SumPriceByStatus(ctx, bookingDomain.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking revenue: %w", err)
	}

	byStatus := make(map[string]int64, len(bookingDomain.AllStatuses()))
	for _, st := range bookingDomain.AllStatuses() {
		byStatus[string(st)] = counts[string(st)]
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      byStatus,
		Pending:       byStatus[string(bookingDomain.StatusPending)],
		Confirmed:     byStatus[string(bookingDomain.StatusConfirmed)],
		Revenue:       revenue,
		Currency:      domain.CurrencyINR,
	}, nil
}

// --- Helpers ---

func toListFilter(q ListBookingsQuery) (bookingDomain.ListFilter, error) {
	filter := bookingDomain.ListFilter{Search: strings.TrimSpace(q.Search)}
	if q.Status != "" && q.Status != "all" {
		status, err := bookingDomain.ParseBookingStatus(q.Status)
		if err != nil {
			return bookingDomain.ListFilter{}, domain.NewValidationError(err.Error())
		}
		filter.Status = &status
	}
	return filter, nil
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:             bk.ID(),
		BookingNumber:  bk.BookingNumber(),
		Customer:       bk.Customer(),
		ServiceType:    string(bk.ServiceType()),
		Trip:           bk.Trip(),
		Route:          bk.RouteSnapshot(),
		VehicleClass:   string(bk.VehicleClass()),
		TravelDate:     bk.Schedule().Date,
		TravelTime:     bk.Schedule().Time,
		EstimatedPrice: bk.EstimatedPrice(),
		Currency:       bk.Currency(),
		Status:         string(bk.Status()),
		StatusLabel:    bk.Status().Label(),
		ConfirmedAt:    bk.ConfirmedAt(),
		CompletedAt:    bk.CompletedAt(),
		CancelledAt:    bk.CancelledAt(),
		CancelNote:     bk.CancelNote(),
		Notes:          bk.Notes(),
		Version:        bk.Version(),
		CreatedAt:      bk.CreatedAt(),
		UpdatedAt:      bk.UpdatedAt(),
	}
}

func (s *BookingService) publishBookingRequested(ctx context.Context, bk *bookingDomain.Booking, message, link string) {
	evt := contract.BookingRequestedEvent{
		BookingID:        bk.ID(),
		BookingNumber:    bk.BookingNumber(),
		ServiceType:      string(bk.ServiceType()),
		CustomerName:     bk.Customer().Name,
		CustomerPhone:    bk.Customer().Phone,
		From:             bk.Trip().From,
		To:               bk.Trip().To,
		VehicleClass:     string(bk.VehicleClass()),
		TravelDate:       bk.Schedule().Date,
		TravelTime:       bk.Schedule().Time,
		EstimatedPrice:   bk.EstimatedPrice(),
		Currency:         bk.Currency(),
		NotificationText: message,
		NotificationLink: link,
		OccurredAt:       time.Now().UTC(),
	}
	s.publishEvent(ctx, contract.TopicBookingEvents, contract.BookingRequested, bk.ID().String(), evt)
}

func (s *BookingService) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	if s.publisher == nil {
		return
	}

	cloudEvent, err := kafka.NewCloudEvent(contract.EventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEvent(ctx, topic, cloudEvent.WithSubject(key)); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
