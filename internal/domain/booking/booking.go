package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ridemax/service-booking/internal/domain/fare"
	"github.com/ridemax/service-booking/internal/platform/domain"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Booking is the aggregate root for the booking domain.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	customer      Contact
	serviceType   ServiceType
	trip          Trip
	routeSnapshot *RouteSnapshot
	vehicleClass  fare.VehicleClass
	schedule      Schedule

	estimatedPrice int64
	currency       string
	status         BookingStatus

	confirmedAt *time.Time
	completedAt *time.Time
	cancelledAt *time.Time
	cancelNote  string
	notes       string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateBookingNumber creates a booking number in the format "RM-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "RM-" + string(result), nil
}

// NewBooking creates a new Booking aggregate with status=pending.
func NewBooking(
	customer Contact,
	serviceType ServiceType,
	trip Trip,
	vehicleClass fare.VehicleClass,
	schedule Schedule,
	estimatedPrice int64,
	currency string,
	notes string,
) (*Booking, error) {
	customer, err := customer.normalize()
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if !serviceType.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid service type: %s", serviceType))
	}
	trip, err = trip.normalize()
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if !vehicleClass.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid vehicle class: %s", vehicleClass))
	}
	if err := schedule.validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if estimatedPrice <= 0 {
		return nil, domain.NewValidationError("estimated price must be positive")
	}
	if currency == "" {
		currency = domain.CurrencyINR
	}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Booking{
		id:             uuid.New(),
		bookingNumber:  bookingNumber,
		customer:       customer,
		serviceType:    serviceType,
		trip:           trip,
		vehicleClass:   vehicleClass,
		schedule:       schedule,
		estimatedPrice: estimatedPrice,
		currency:       currency,
		status:         StatusPending,
		notes:          strings.TrimSpace(notes),
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	customer Contact,
	serviceType ServiceType,
	trip Trip,
	routeSnapshot *RouteSnapshot,
	vehicleClass fare.VehicleClass,
	schedule Schedule,
	estimatedPrice int64,
	currency string,
	status BookingStatus,
	confirmedAt *time.Time,
	completedAt *time.Time,
	cancelledAt *time.Time,
	cancelNote string,
	notes string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:             id,
		bookingNumber:  bookingNumber,
		customer:       customer,
		serviceType:    serviceType,
		trip:           trip,
		routeSnapshot:  routeSnapshot,
		vehicleClass:   vehicleClass,
		schedule:       schedule,
		estimatedPrice: estimatedPrice,
		currency:       currency,
		status:         status,
		confirmedAt:    confirmedAt,
		completedAt:    completedAt,
		cancelledAt:    cancelledAt,
		cancelNote:     cancelNote,
		notes:          notes,
		version:        version,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// Customer returns the normalized customer contact.
func (b *Booking) Customer() Contact { return b.customer }

func (b *Booking) ServiceType() ServiceType { return b.serviceType }

func (b *Booking) Trip() Trip { return b.trip }

// RouteSnapshot returns the estimate used for local pricing, or nil for outstation trips.
func (b *Booking) RouteSnapshot() *RouteSnapshot { return b.routeSnapshot }

func (b *Booking) VehicleClass() fare.VehicleClass { return b.vehicleClass }

func (b *Booking) Schedule() Schedule { return b.schedule }

// EstimatedPrice returns the quoted price in whole rupees.
func (b *Booking) EstimatedPrice() int64 { return b.estimatedPrice }

func (b *Booking) Currency() string { return b.currency }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

func (b *Booking) ConfirmedAt() *time.Time { return b.confirmedAt }

func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// CancelNote returns the cancellation reason.
func (b *Booking) CancelNote() string { return b.cancelNote }

func (b *Booking) Notes() string { return b.notes }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

func (b *Booking) CreatedAt() time.Time { return b.createdAt }

func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// Confirm transitions the booking from pending to confirmed.
func (b *Booking) Confirm() error {
	if !b.status.CanTransitionTo(StatusConfirmed) {
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	now := time.Now().UTC()
	b.status = StatusConfirmed
	b.confirmedAt = &now
	b.updatedAt = now
	return nil
}

// Complete transitions the booking from confirmed to completed.
func (b *Booking) Complete() error {
	if !b.status.CanTransitionTo(StatusCompleted) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	now := time.Now().UTC()
	b.status = StatusCompleted
	b.completedAt = &now
	b.updatedAt = now
	return nil
}

// Cancel transitions a pending booking to cancelled.
func (b *Booking) Cancel(reason string) error {
	if !b.status.CanBeCancelled() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	b.status = StatusCancelled
	b.cancelNote = strings.TrimSpace(reason)
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}

// SetRouteSnapshot records the estimate the price was derived from.
func (b *Booking) SetRouteSnapshot(snapshot *RouteSnapshot) {
	b.routeSnapshot = snapshot
	b.updatedAt = time.Now().UTC()
}
