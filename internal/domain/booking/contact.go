package booking

import (
	"crypto/subtle"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/ridemax/service-booking/internal/domain/geo"
	"github.com/ridemax/service-booking/internal/domain/route"
)

// ServiceType distinguishes fixed-fare intercity trips from metered local rides.
type ServiceType string

const (
	ServiceOutstation ServiceType = "outstation"
	ServiceLocal      ServiceType = "local"
)

// IsValid returns true if the service type is recognized.
func (s ServiceType) IsValid() bool {
	return s == ServiceOutstation || s == ServiceLocal
}

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15

	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Contact identifies the customer who placed the booking.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// NormalizePhone strips '+', spaces and dashes and checks the digit count.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.NewReplacer("+", "", " ", "", "-", "").Replace(strings.TrimSpace(raw))
	if len(cleaned) < minPhoneDigits || len(cleaned) > maxPhoneDigits {
		return "", fmt.Errorf("phone must have %d-%d digits", minPhoneDigits, maxPhoneDigits)
	}
	for _, r := range cleaned {
		if !unicode.IsDigit(r) {
			return "", fmt.Errorf("phone must contain only digits")
		}
	}
	return cleaned, nil
}

// nationalDigits is the length of a subscriber number without country code.
const nationalDigits = 10

// SamePhone reports whether two normalised numbers belong to the same line,
// treating "919876543210" and "9876543210" as equal.
func SamePhone(a, b string) bool {
	if len(a) >= nationalDigits && len(b) >= nationalDigits {
		a, b = a[len(a)-nationalDigits:], b[len(b)-nationalDigits:]
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (c Contact) normalize() (Contact, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Contact{}, fmt.Errorf("customer name is required")
	}
	phone, err := NormalizePhone(c.Phone)
	if err != nil {
		return Contact{}, err
	}
	c.Phone = phone
	c.Email = strings.TrimSpace(c.Email)
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return Contact{}, fmt.Errorf("invalid email address")
		}
	}
	return c, nil
}

// Trip is where the ride starts and ends. Local rides carry coordinates;
// outstation trips only need city names.
type Trip struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Pickup *geo.Coordinate `json:"pickup,omitempty"`
	Drop   *geo.Coordinate `json:"drop,omitempty"`
}

func (t Trip) normalize() (Trip, error) {
	t.From = strings.TrimSpace(t.From)
	t.To = strings.TrimSpace(t.To)
	if t.From == "" || t.To == "" {
		return Trip{}, fmt.Errorf("pickup and drop locations are required")
	}
	if strings.EqualFold(t.From, t.To) {
		return Trip{}, fmt.Errorf("pickup and drop locations must differ")
	}
	for _, c := range []*geo.Coordinate{t.Pickup, t.Drop} {
		if c == nil {
			continue
		}
		if err := c.Validate(); err != nil {
			return Trip{}, err
		}
	}
	return t, nil
}

// Schedule is the requested travel date and time, kept in the customer's
// local wall-clock form.
type Schedule struct {
	Date string `json:"travel_date"`
	Time string `json:"travel_time"`
}

func (s Schedule) validate() error {
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return fmt.Errorf("travel date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(TimeLayout, s.Time); err != nil {
		return fmt.Errorf("travel time must be HH:MM")
	}
	return nil
}

// RouteSnapshot is the estimate the price was computed from.
type RouteSnapshot struct {
	route.RouteEstimate
	IsAirportTrip bool `json:"is_airport_trip"`
}
