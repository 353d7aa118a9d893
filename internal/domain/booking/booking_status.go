package booking

import (
	"fmt"
	"slices"
	"strings"
)

// BookingStatus is the lifecycle state of a ride request.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// lifecycle lists statuses in the order a ride moves through them.
var lifecycle = []BookingStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

// nextStatuses is the ride state machine. Once a driver is assigned the ride
// can only be completed.
var nextStatuses = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted},
}

var statusLabels = map[BookingStatus]string{
	StatusPending:   "Awaiting confirmation",
	StatusConfirmed: "Driver assigned",
	StatusCompleted: "Trip completed",
	StatusCancelled: "Cancelled",
}

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []BookingStatus {
	return slices.Clone(lifecycle)
}

func (s BookingStatus) IsValid() bool {
	return slices.Contains(lifecycle, s)
}

// CanTransitionTo reports whether the state machine has an edge from s to target.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	return slices.Contains(nextStatuses[s], target)
}

// IsTerminal reports whether s has no outgoing edges.
func (s BookingStatus) IsTerminal() bool {
	return s.IsValid() && len(nextStatuses[s]) == 0
}

func (s BookingStatus) CanBeCancelled() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// Label is the customer-facing wording for the status.
func (s BookingStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus accepts a status name in any case.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	s := BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown booking status %q", raw)
	}
	return s, nil
}
