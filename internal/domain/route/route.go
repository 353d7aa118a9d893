package route

import (
	"context"
	"errors"

	"github.com/ridemax/service-booking/internal/domain/geo"
)

// ErrNoRoute is returned by a Router when the provider answered but found no route.
var ErrNoRoute = errors.New("no route found between the specified coordinates")

// Source tags which path produced a RouteEstimate.
type Source string

const (
	SourceProvider Source = "PROVIDER"
	SourceFallback Source = "FALLBACK"
)

// RouteResult is the raw answer from a routing provider for the best route.
type RouteResult struct {
	DistanceMeters  float64
	DurationSeconds float64
	// Geometry is the provider's route geometry, passed through untouched.
	Geometry []byte
	// Provider optionally names the router that answered when it differs
	// from the Router's own Name, e.g. behind a chain.
	Provider string
}

// Router resolves a drivable route between two points.
type Router interface {
	Name() string
	Route(ctx context.Context, origin, destination geo.Coordinate) (RouteResult, error)
}

// Place is a geocoding candidate.
type Place struct {
	Label      string         `json:"label"`
	Coordinate geo.Coordinate `json:"coordinate"`
	PlaceID    string         `json:"place_id,omitempty"`
	City       string         `json:"city,omitempty"`
}

// Geocoder resolves free text to candidate places and points back to labels.
type Geocoder interface {
	Autocomplete(ctx context.Context, query string, bias *geo.Coordinate) ([]Place, error)
	Reverse(ctx context.Context, point geo.Coordinate) (*Place, error)
}

// RouteEstimate is a best-effort distance and duration between two points.
type RouteEstimate struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_min"`
	Source      Source  `json:"source"`
	// Provider names the router that answered; empty for fallback estimates.
	Provider string `json:"provider,omitempty"`
}
