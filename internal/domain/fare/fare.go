package fare

import (
	"fmt"
	"math"
)

// RateTable is the per-kilometre tariff for local rides, in whole rupees.
// It is owned by the admin layer; fare computation only reads it.
type RateTable struct {
	BaseFare          int64 `json:"base_fare" yaml:"base_fare"`
	StandardRatePerKm int64 `json:"standard_rate_per_km" yaml:"standard_rate_per_km"`
	AirportRatePerKm  int64 `json:"airport_rate_per_km" yaml:"airport_rate_per_km"`
	MinimumFare       int64 `json:"minimum_fare" yaml:"minimum_fare"`
}

// DefaultRateTable is the launch tariff for Mumbai local rides.
func DefaultRateTable() RateTable {
	return RateTable{
		BaseFare:          50,
		StandardRatePerKm: 15,
		AirportRatePerKm:  18,
		MinimumFare:       100,
	}
}

// Validate rejects negative amounts.
func (r RateTable) Validate() error {
	switch {
	case r.BaseFare < 0:
		return fmt.Errorf("base fare cannot be negative")
	case r.StandardRatePerKm < 0:
		return fmt.Errorf("standard rate per km cannot be negative")
	case r.AirportRatePerKm < 0:
		return fmt.Errorf("airport rate per km cannot be negative")
	case r.MinimumFare < 0:
		return fmt.Errorf("minimum fare cannot be negative")
	}
	return nil
}

// Breakdown is the full fare computation, kept whole so the displayed
// breakdown and the charged total never drift apart.
type Breakdown struct {
	BaseFare      int64   `json:"base_fare"`
	DistanceFare  int64   `json:"distance_fare"`
	RatePerKm     int64   `json:"rate_per_km"`
	DistanceKm    float64 `json:"distance_km"`
	Subtotal      int64   `json:"subtotal"`
	MinimumFare   int64   `json:"minimum_fare"`
	Total         int64   `json:"total"`
	IsMinimumFare bool    `json:"is_minimum_fare"`
	IsAirportTrip bool    `json:"is_airport_trip"`
}

// ComputeFare converts a distance into a fare using rates.
//
// Formula:
//   - ratePerKm: airport or standard rate
//   - distanceFare: round(distanceKm * ratePerKm)
//   - subtotal: baseFare + distanceFare
//   - total: max(subtotal, minimumFare)
func ComputeFare(distanceKm float64, isAirportTrip bool, rates RateTable) (Breakdown, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return Breakdown{}, fmt.Errorf("distance must be a non-negative number, got %v", distanceKm)
	}

	ratePerKm := rates.StandardRatePerKm
	if isAirportTrip {
		ratePerKm = rates.AirportRatePerKm
	}

	distanceFare := int64(math.Round(distanceKm * float64(ratePerKm)))
	subtotal := rates.BaseFare + distanceFare
	total := subtotal
	if rates.MinimumFare > total {
		total = rates.MinimumFare
	}

	return Breakdown{
		BaseFare:      rates.BaseFare,
		DistanceFare:  distanceFare,
		RatePerKm:     ratePerKm,
		DistanceKm:    distanceKm,
		Subtotal:      subtotal,
		MinimumFare:   rates.MinimumFare,
		Total:         total,
		IsMinimumFare: total == rates.MinimumFare && subtotal < rates.MinimumFare,
		IsAirportTrip: isAirportTrip,
	}, nil
}
