package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bookingDomain "github.com/ridemax/service-booking/internal/domain/booking"
	customerDomain "github.com/ridemax/service-booking/internal/domain/customer"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"go.uber.org/zap"
)

// CustomerDTO is the API response representation of a customer profile.
type CustomerDTO struct {
	ID           uuid.UUID  `json:"id"`
	Phone        string     `json:"phone"`
	Name         string     `json:"name"`
	Email        string     `json:"email,omitempty"`
	BookingCount int        `json:"booking_count"`
	LastBookedAt *time.Time `json:"last_booked_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CustomerService implements use cases for customer profiles.
type CustomerService struct {
	repo   customerDomain.CustomerRepository
	logger *zap.Logger
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(repo customerDomain.CustomerRepository, logger *zap.Logger) *CustomerService {
	return &CustomerService{repo: repo, logger: logger}
}

// RecordBooking upserts the booking's customer by phone. A concurrent first
// booking for the same phone is resolved by retrying as an update.
func (s *CustomerService) RecordBooking(ctx context.Context, bk *bookingDomain.Booking) error {
	contact := bk.Customer()

	for attempt := 0; attempt < 2; attempt++ {
		c, err := s.repo.FindByPhone(ctx, contact.Phone)
		switch {
		case errors.Is(err, customerDomain.ErrNotFound):
			c, err = customerDomain.NewCustomer(contact.Phone, contact.Name, contact.Email)
			if err != nil {
				return domain.NewValidationError(err.Error())
			}
			c.RecordBooking("", "", bk.CreatedAt())
			err = s.repo.Save(ctx, c)
		case err != nil:
			return fmt.Errorf("failed to load customer: %w", err)
		default:
			c.RecordBooking(contact.Name, contact.Email, bk.CreatedAt())
			err = s.repo.Update(ctx, c)
		}

		if err == nil {
			return nil
		}
		if !domain.IsCode(err, domain.CodeConflict) {
			return err
		}
		s.logger.Debug("customer upsert conflict, retrying", zap.String("phone", contact.Phone))
	}
	return domain.NewConflictError("customer profile was modified concurrently")
}

// ListCustomers returns customers ordered by most recent booking.
func (s *CustomerService) ListCustomers(ctx context.Context, search string, page, limit int) (*domain.PaginatedResult[CustomerDTO], error) {
	customers, total, err := s.repo.List(ctx, search, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

func toCustomerDTO(c *customerDomain.Customer) CustomerDTO {
	return CustomerDTO{
		ID:           c.ID(),
		Phone:        c.Phone(),
		Name:         c.Name(),
		Email:        c.Email(),
		BookingCount: c.BookingCount(),
		LastBookedAt: c.LastBookedAt(),
		CreatedAt:    c.CreatedAt(),
		UpdatedAt:    c.UpdatedAt(),
	}
}
