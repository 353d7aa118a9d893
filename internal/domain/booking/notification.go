package booking

import (
	"fmt"
	"net/url"
	"strings"
)

// NotificationMessage renders the chat message sent to the operator for a new booking.
func NotificationMessage(b *Booking) string {
	var sb strings.Builder
	sb.WriteString("*New RideMax Booking*\n\n")
	fmt.Fprintf(&sb, "Booking: %s\n", b.BookingNumber())
	fmt.Fprintf(&sb, "Name: %s\n", b.Customer().Name)
	fmt.Fprintf(&sb, "Phone: %s\n", b.Customer().Phone)
	if b.Customer().Email != "" {
		fmt.Fprintf(&sb, "Email: %s\n", b.Customer().Email)
	}
	fmt.Fprintf(&sb, "Service: %s\n", serviceLabel(b.ServiceType()))
	fmt.Fprintf(&sb, "From: %s\n", b.Trip().From)
	fmt.Fprintf(&sb, "To: %s\n", b.Trip().To)
	fmt.Fprintf(&sb, "Vehicle: %s\n", b.VehicleClass())
	fmt.Fprintf(&sb, "Date: %s\n", b.Schedule().Date)
	fmt.Fprintf(&sb, "Time: %s\n", b.Schedule().Time)
	if snap := b.RouteSnapshot(); snap != nil {
		fmt.Fprintf(&sb, "Distance: %.2f km (~%d min)\n", snap.DistanceKm, snap.DurationMin)
	}
	fmt.Fprintf(&sb, "Price: Rs. %d", b.EstimatedPrice())
	if b.Notes() != "" {
		fmt.Fprintf(&sb, "\nNotes: %s", b.Notes())
	}
	return sb.String()
}

// WhatsAppLink builds a click-to-chat link for number (digits only, with country code).
func WhatsAppLink(number, text string) string {
	number = strings.NewReplacer("+", "", " ", "", "-", "").Replace(number)
	// wa.me renders '+' literally, so spaces are sent as %20.
	return "https://wa.me/" + number + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

func serviceLabel(s ServiceType) string {
	if s == ServiceOutstation {
		return "Outstation"
	}
	return "Local"
}
