// Package export renders admin reports as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/ridemax/service-booking/internal/application"
	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the MIME type of the workbook written by WriteBookings.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const bookingsSheet = "Bookings"

var bookingHeaders = []interface{}{
	"Booking No", "Status", "Service", "Customer", "Phone", "Email",
	"From", "To", "Vehicle", "Travel Date", "Travel Time",
	"Distance (km)", "Duration (min)", "Price", "Currency",
	"Created At", "Notes", "Cancel Note",
}

// WriteBookings streams bookings into a single-sheet workbook.
func WriteBookings(w io.Writer, bookings []application.BookingDTO) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(bookingsSheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}
	if err := sw.SetRow("A1", bookingHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, b := range bookings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, bookingRow(b)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func bookingRow(b application.BookingDTO) []interface{} {
	var distance, duration interface{}
	if b.Route != nil {
		distance = b.Route.DistanceKm
		duration = b.Route.DurationMin
	}
	return []interface{}{
		b.BookingNumber, b.Status, b.ServiceType,
		b.Customer.Name, b.Customer.Phone, b.Customer.Email,
		b.Trip.From, b.Trip.To, b.VehicleClass, b.TravelDate, b.TravelTime,
		distance, duration, b.EstimatedPrice, b.Currency,
		b.CreatedAt.Format("2006-01-02 15:04"), b.Notes, b.CancelNote,
	}
}
