// Package contract holds the topics and payloads exchanged with other
// services over Kafka.
package contract

import (
	"time"

	"github.com/google/uuid"
)

const (
	// TopicBookingEvents carries booking lifecycle events published by this service.
	TopicBookingEvents = "booking.events"
	// TopicDispatchEvents carries driver dispatch outcomes consumed by this service.
	TopicDispatchEvents = "dispatch.events"

	EventSource = "service-booking"
)

// Booking event types.
const (
	BookingRequested = "booking.requested"
	BookingConfirmed = "booking.confirmed"
	BookingCompleted = "booking.completed"
	BookingCancelled = "booking.cancelled"
)

// Dispatch event types.
const (
	DispatchBookingConfirmed = "dispatch.booking_confirmed"
	DispatchTripCompleted    = "dispatch.trip_completed"
	DispatchBookingRejected  = "dispatch.booking_rejected"
)

// BookingRequestedEvent is published once a new booking has been persisted.
// NotificationText is the operator chat message; NotificationLink opens it.
type BookingRequestedEvent struct {
	BookingID        uuid.UUID `json:"booking_id"`
	BookingNumber    string    `json:"booking_number"`
	ServiceType      string    `json:"service_type"`
	CustomerName     string    `json:"customer_name"`
	CustomerPhone    string    `json:"customer_phone"`
	From             string    `json:"from"`
	To               string    `json:"to"`
	VehicleClass     string    `json:"vehicle_class"`
	TravelDate       string    `json:"travel_date"`
	TravelTime       string    `json:"travel_time"`
	EstimatedPrice   int64     `json:"estimated_price"`
	Currency         string    `json:"currency"`
	NotificationText string    `json:"notification_text"`
	NotificationLink string    `json:"notification_link"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// BookingStatusChangedEvent is published on confirm, complete and cancel.
type BookingStatusChangedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	Status        string    `json:"status"`
	ChangedBy     string    `json:"changed_by,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// DispatchEvent is the payload of every dispatch.* event.
type DispatchEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	DriverName string    `json:"driver_name,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
