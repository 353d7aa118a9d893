package booking

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows an admin booking listing.
type ListFilter struct {
	Status *BookingStatus
	// Search matches customer name, phone or either location, case-insensitively.
	Search string
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByNumber retrieves a booking by its human-readable booking number.
	FindByNumber(ctx context.Context, number string) (*Booking, error)

	// List retrieves bookings matching filter, newest first, with pagination.
	List(ctx context.Context, filter ListFilter, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status.
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// SumPriceByStatus returns the total estimated price of bookings in status.
	SumPriceByStatus(ctx context.Context, status BookingStatus) (int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
