package fare

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no local tariff has been stored yet.
var ErrNotConfigured = errors.New("pricing not configured")

// PricingRepository persists the admin-owned tariffs.
type PricingRepository interface {
	// LoadLocalRates returns ErrNotConfigured when nothing is stored.
	LoadLocalRates(ctx context.Context) (RateTable, error)
	SaveLocalRates(ctx context.Context, rates RateTable) error

	// LoadOutstation returns every fixed-route fare and the large-vehicle surcharge.
	LoadOutstation(ctx context.Context) (OutstationTable, error)
	SaveSurcharge(ctx context.Context, amount int64) error
	// UpsertOutstationFare replaces the fare for the pair in either direction.
	UpsertOutstationFare(ctx context.Context, class VehicleClass, from, to string, amount int64) error
	// DeleteOutstationFare removes the pair in either direction; ErrNoFixedRoute if absent.
	DeleteOutstationFare(ctx context.Context, class VehicleClass, from, to string) error
}
