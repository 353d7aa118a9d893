package customer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer is the aggregate root for a rider profile, keyed by phone number.
// Profiles are created implicitly on the first booking.
type Customer struct {
	id           uuid.UUID
	phone        string
	name         string
	email        string
	bookingCount int
	lastBookedAt *time.Time
	version      int64
	createdAt    time.Time
	updatedAt    time.Time
}

// NewCustomer creates a profile for a normalized phone number.
func NewCustomer(phone, name, email string) (*Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("phone is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	now := time.Now().UTC()
	return &Customer{
		id:        uuid.New(),
		phone:     phone,
		name:      name,
		email:     strings.TrimSpace(email),
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds a Customer from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	phone, name, email string,
	bookingCount int,
	lastBookedAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *Customer {
	return &Customer{
		id:           id,
		phone:        phone,
		name:         name,
		email:        email,
		bookingCount: bookingCount,
		lastBookedAt: lastBookedAt,
		version:      version,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (c *Customer) ID() uuid.UUID            { return c.id }
func (c *Customer) Phone() string            { return c.phone }
func (c *Customer) Name() string             { return c.name }
func (c *Customer) Email() string            { return c.email }
func (c *Customer) BookingCount() int        { return c.bookingCount }
func (c *Customer) LastBookedAt() *time.Time { return c.lastBookedAt }
func (c *Customer) Version() int64           { return c.version }
func (c *Customer) CreatedAt() time.Time     { return c.createdAt }
func (c *Customer) UpdatedAt() time.Time     { return c.updatedAt }

// RecordBooking counts a new booking and refreshes the contact details the
// customer gave on it. Blank values keep what is on file.
func (c *Customer) RecordBooking(name, email string, at time.Time) {
	if name = strings.TrimSpace(name); name != "" {
		c.name = name
	}
	if email = strings.TrimSpace(email); email != "" {
		c.email = email
	}
	at = at.UTC()
	c.bookingCount++
	c.lastBookedAt = &at
	c.version++
	c.updatedAt = time.Now().UTC()
}
