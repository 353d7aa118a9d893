package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	bookingDomain "github.com/ridemax/service-booking/internal/domain/booking"
	"github.com/ridemax/service-booking/internal/domain/fare"
	"github.com/ridemax/service-booking/internal/domain/geo"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"gorm.io/gorm"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingNumber  string          `gorm:"uniqueIndex;not null;size:20"`
	CustomerName   string          `gorm:"not null;size:100"`
	CustomerPhone  string          `gorm:"not null;size:20;index"`
	CustomerEmail  string          `gorm:"size:255"`
	ServiceType    string          `gorm:"not null;size:20"`
	FromLocation   string          `gorm:"not null;size:500"`
	ToLocation     string          `gorm:"not null;size:500"`
	PickupLat      *float64        `gorm:""`
	PickupLon      *float64        `gorm:""`
	DropLat        *float64        `gorm:""`
	DropLon        *float64        `gorm:""`
	RouteSnapshot  json.RawMessage `gorm:"type:jsonb"`
	VehicleClass   string          `gorm:"not null;size:20"`
	TravelDate     string          `gorm:"type:date;not null"`
	TravelTime     string          `gorm:"not null;size:5"`
	EstimatedPrice int64           `gorm:"not null"`
	Currency       string          `gorm:"not null;size:3;default:'INR'"`
	Status         string          `gorm:"not null;size:20;index"`
	ConfirmedAt    *time.Time      `gorm:""`
	CompletedAt    *time.Time      `gorm:""`
	CancelledAt    *time.Time      `gorm:""`
	CancelNote     string          `gorm:"size:500"`
	Notes          string          `gorm:"size:1000"`
	Version        int64           `gorm:"not null;default:1"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByNumber retrieves a booking by its booking number.
func (r *GormBookingRepository) FindByNumber(ctx context.Context, number string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("booking_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", number)
		}
		return nil, fmt.Errorf("failed to find booking by number: %w", err)
	}
	return toDomainBooking(&model)
}

// List retrieves bookings matching filter, newest first.
func (r *GormBookingRepository) List(ctx context.Context, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := applyFilter(r.db.WithContext(ctx).Model(&BookingModel{}), filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	if err := applyFilter(r.db.WithContext(ctx), filter).
		Order("created_at DESC").
		Offset(offset(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}
	return bookings, total, nil
}

func applyFilter(query *gorm.DB, filter bookingDomain.ListFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.Search != "" {
		like := "%" + escapeLike(filter.Search) + "%"
		query = query.Where(
			"(customer_name ILIKE ? OR customer_phone ILIKE ? OR from_location ILIKE ? OR to_location ILIKE ? OR booking_number ILIKE ?)",
			like, like, like, like, like,
		)
	}
	return query
}

// CountByStatus returns booking counts grouped by status.
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// SumPriceByStatus returns the total estimated price of bookings in status.
func (r *GormBookingRepository) SumPriceByStatus(ctx context.Context, status bookingDomain.BookingStatus) (int64, error) {
	var sum int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("status = ?", string(status)).
		Select("COALESCE(SUM(estimated_price), 0)").
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("failed to sum booking prices: %w", err)
	}
	return sum, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("booking already exists")
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists status changes with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	// IncrementVersion was called by the service, so the stored row holds version-1.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":         model.Status,
			"route_snapshot": model.RouteSnapshot,
			"confirmed_at":   model.ConfirmedAt,
			"completed_at":   model.CompletedAt,
			"cancelled_at":   model.CancelledAt,
			"cancel_note":    model.CancelNote,
			"notes":          model.Notes,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	var snapshotJSON json.RawMessage
	if bk.RouteSnapshot() != nil {
		data, err := json.Marshal(bk.RouteSnapshot())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal route snapshot: %w", err)
		}
		snapshotJSON = data
	}

	trip := bk.Trip()
	model := &BookingModel{
		ID:             bk.ID(),
		BookingNumber:  bk.BookingNumber(),
		CustomerName:   bk.Customer().Name,
		CustomerPhone:  bk.Customer().Phone,
		CustomerEmail:  bk.Customer().Email,
		ServiceType:    string(bk.ServiceType()),
		FromLocation:   trip.From,
		ToLocation:     trip.To,
		RouteSnapshot:  snapshotJSON,
		VehicleClass:   string(bk.VehicleClass()),
		TravelDate:     bk.Schedule().Date,
		TravelTime:     bk.Schedule().Time,
		EstimatedPrice: bk.EstimatedPrice(),
		Currency:       bk.Currency(),
		Status:         string(bk.Status()),
		ConfirmedAt:    bk.ConfirmedAt(),
		CompletedAt:    bk.CompletedAt(),
		CancelledAt:    bk.CancelledAt(),
		CancelNote:     bk.CancelNote(),
		Notes:          bk.Notes(),
		Version:        bk.Version(),
		CreatedAt:      bk.CreatedAt(),
		UpdatedAt:      bk.UpdatedAt(),
	}
	if trip.Pickup != nil {
		model.PickupLat, model.PickupLon = &trip.Pickup.Latitude, &trip.Pickup.Longitude
	}
	if trip.Drop != nil {
		model.DropLat, model.DropLon = &trip.Drop.Latitude, &trip.Drop.Longitude
	}
	return model, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var snapshot *bookingDomain.RouteSnapshot
	if len(m.RouteSnapshot) > 0 && string(m.RouteSnapshot) != "null" {
		var rs bookingDomain.RouteSnapshot
		if err := json.Unmarshal(m.RouteSnapshot, &rs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal route snapshot: %w", err)
		}
		snapshot = &rs
	}

	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	trip := bookingDomain.Trip{
		From:   m.FromLocation,
		To:     m.ToLocation,
		Pickup: coordinate(m.PickupLat, m.PickupLon),
		Drop:   coordinate(m.DropLat, m.DropLon),
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		bookingDomain.Contact{Name: m.CustomerName, Phone: m.CustomerPhone, Email: m.CustomerEmail},
		bookingDomain.ServiceType(m.ServiceType),
		trip,
		snapshot,
		fare.VehicleClass(m.VehicleClass),
		bookingDomain.Schedule{Date: normalizeDate(m.TravelDate), Time: m.TravelTime},
		m.EstimatedPrice,
		m.Currency,
		status,
		m.ConfirmedAt,
		m.CompletedAt,
		m.CancelledAt,
		m.CancelNote,
		m.Notes,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func coordinate(lat, lon *float64) *geo.Coordinate {
	if lat == nil || lon == nil {
		return nil
	}
	return &geo.Coordinate{Latitude: *lat, Longitude: *lon}
}

// normalizeDate trims the time part pgx adds when a DATE column is scanned into a string.
func normalizeDate(s string) string {
	if len(s) > len(bookingDomain.DateLayout) {
		return s[:len(bookingDomain.DateLayout)]
	}
	return s
}

func offset(page, limit int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * limit
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
