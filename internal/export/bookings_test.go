package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridemax/service-booking/internal/application"
	"github.com/ridemax/service-booking/internal/domain/booking"
	"github.com/ridemax/service-booking/internal/domain/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteBookings(t *testing.T) {
	created := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	bookings := []application.BookingDTO{
		{
			ID:             uuid.New(),
			BookingNumber:  "RM-AB12CD",
			Customer:       booking.Contact{Name: "Asha Patil", Phone: "9876543210"},
			ServiceType:    "local",
			Trip:           booking.Trip{From: "Dadar", To: "Mumbai Airport T2"},
			Route:          &booking.RouteSnapshot{RouteEstimate: route.RouteEstimate{DistanceKm: 12.4, DurationMin: 35}},
			VehicleClass:   "4-seater",
			TravelDate:     "2026-10-20",
			TravelTime:     "06:15",
			EstimatedPrice: 273,
			Currency:       "INR",
			Status:         "pending",
			CreatedAt:      created,
		},
		{
			ID:             uuid.New(),
			BookingNumber:  "RM-ZZ99YY",
			Customer:       booking.Contact{Name: "Rahul", Phone: "9123456780", Email: "rahul@example.com"},
			ServiceType:    "outstation",
			Trip:           booking.Trip{From: "Mumbai", To: "Pune"},
			VehicleClass:   "6-seater",
			TravelDate:     "2026-10-22",
			TravelTime:     "08:00",
			EstimatedPrice: 3500,
			Currency:       "INR",
			Status:         "cancelled",
			CancelNote:     "customer changed plans",
			CreatedAt:      created,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, bookings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{bookingsSheet}, f.GetSheetList())

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Booking No", rows[0][0])
	assert.Equal(t, "RM-AB12CD", rows[1][0])
	assert.Equal(t, "Mumbai Airport T2", rows[1][7])
	assert.Equal(t, "12.4", rows[1][11])
	assert.Equal(t, "273", rows[1][13])
	assert.Equal(t, "2026-10-01 09:30", rows[1][15])
	assert.Equal(t, "", rows[2][11])
	assert.Equal(t, "customer changed plans", rows[2][17])
}

func TestWriteBookings_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
