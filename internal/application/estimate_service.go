package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ridemax/service-booking/internal/domain/fare"
	"github.com/ridemax/service-booking/internal/domain/geo"
	"github.com/ridemax/service-booking/internal/domain/route"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"go.uber.org/zap"
)

// PlaceInput is a location picked by the customer: a label and its point.
type PlaceInput struct {
	Label string   `json:"label"`
	Lat   *float64 `json:"lat" binding:"required"`
	Lon   *float64 `json:"lon" binding:"required"`
}

// Coordinate validates the point without clamping.
func (p PlaceInput) Coordinate() (geo.Coordinate, error) {
	if p.Lat == nil || p.Lon == nil {
		return geo.Coordinate{}, fmt.Errorf("lat and lon are required")
	}
	return geo.NewCoordinate(*p.Lat, *p.Lon)
}

// LocalEstimateRequest asks for a metered-ride quote.
type LocalEstimateRequest struct {
	Pickup PlaceInput `json:"pickup" binding:"required"`
	Drop   PlaceInput `json:"drop" binding:"required"`
}

// LocalQuoteDTO is a local-ride quote: the route estimate and its fare.
type LocalQuoteDTO struct {
	Route         route.RouteEstimate `json:"route"`
	Fare          fare.Breakdown      `json:"fare"`
	IsAirportTrip bool                `json:"is_airport_trip"`
	Currency      string              `json:"currency"`
}

// OutstationQuoteRequest asks for a fixed-route fare.
type OutstationQuoteRequest struct {
	From         string `json:"from" binding:"required"`
	To           string `json:"to" binding:"required"`
	VehicleClass string `json:"vehicle_class" binding:"required"`
}

// OutstationQuoteDTO is a fixed-route fare quote.
type OutstationQuoteDTO struct {
	From         string `json:"from"`
	To           string `json:"to"`
	VehicleClass string `json:"vehicle_class"`
	Price        int64  `json:"price"`
	Currency     string `json:"currency"`
}

// DirectionsDTO is the simplified provider route: km (2 dp) and whole minutes.
type DirectionsDTO struct {
	Distance float64         `json:"distance"`
	Duration int             `json:"duration"`
	Geometry json.RawMessage `json:"geometry,omitempty"`
}

// EstimateService answers location search and price estimate queries.
type EstimateService struct {
	estimator *route.Estimator
	router    route.Router
	geocoder  route.Geocoder
	pricing   *PricingService
	logger    *zap.Logger
}

// NewEstimateService creates a new EstimateService.
func NewEstimateService(
	estimator *route.Estimator,
	router route.Router,
	geocoder route.Geocoder,
	pricing *PricingService,
	logger *zap.Logger,
) *EstimateService {
	return &EstimateService{
		estimator: estimator,
		router:    router,
		geocoder:  geocoder,
		pricing:   pricing,
		logger:    logger,
	}
}

// EstimateLocal estimates the route and prices it with the current local tariff.
func (s *EstimateService) EstimateLocal(ctx context.Context, req LocalEstimateRequest) (*LocalQuoteDTO, error) {
	pickup, err := req.Pickup.Coordinate()
	if err != nil {
		return nil, domain.NewValidationError("invalid pickup: " + err.Error())
	}
	drop, err := req.Drop.Coordinate()
	if err != nil {
		return nil, domain.NewValidationError("invalid drop: " + err.Error())
	}

	est, err := s.estimator.Estimate(ctx, pickup, drop)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	rates, err := s.pricing.LocalRates(ctx)
	if err != nil {
		return nil, err
	}
	isAirport := s.pricing.AirportMatcher().IsAirportTrip(req.Pickup.Label, req.Drop.Label)

	breakdown, err := fare.ComputeFare(est.DistanceKm, isAirport, rates)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	return &LocalQuoteDTO{
		Route:         est,
		Fare:          breakdown,
		IsAirportTrip: isAirport,
		Currency:      domain.CurrencyINR,
	}, nil
}

// QuoteOutstation looks up the fixed fare for a city pair. A missing pair is
// unprocessable: the booking cannot be priced.
func (s *EstimateService) QuoteOutstation(ctx context.Context, req OutstationQuoteRequest) (*OutstationQuoteDTO, error) {
	class, err := fare.ParseVehicleClass(req.VehicleClass)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	table, err := s.pricing.OutstationTable(ctx)
	if err != nil {
		return nil, err
	}

	price, err := table.Lookup(req.From, req.To, class)
	if err != nil {
		if errors.Is(err, fare.ErrNoFixedRoute) {
			return nil, domain.NewUnprocessableError(
				fmt.Sprintf("no fixed fare from %s to %s for %s; please contact us for a quote", req.From, req.To, class), err)
		}
		return nil, domain.NewValidationError(err.Error())
	}

	return &OutstationQuoteDTO{
		From:         req.From,
		To:           req.To,
		VehicleClass: string(class),
		Price:        price,
		Currency:     domain.CurrencyINR,
	}, nil
}

// Directions proxies a single routing call without fallback.
func (s *EstimateService) Directions(ctx context.Context, start, end geo.Coordinate) (*DirectionsDTO, error) {
	if s.router == nil {
		return nil, domain.NewUnavailableError("routing provider not configured", nil)
	}

	res, err := s.router.Route(ctx, start, end)
	if err != nil {
		if errors.Is(err, route.ErrNoRoute) {
			return nil, domain.NewNotFoundError("Route", start.String()+" -> "+end.String())
		}
		s.logger.Warn("directions lookup failed", zap.String("provider", s.router.Name()), zap.Error(err))
		return nil, domain.NewUnavailableError("failed to fetch route information", err)
	}

	return &DirectionsDTO{
		Distance: geo.Round2(res.DistanceMeters / 1000),
		Duration: int(math.Round(res.DurationSeconds / 60)),
		Geometry: res.Geometry,
	}, nil
}

// SearchLocations returns autocomplete candidates. Provider failures yield an
// empty list so typing never surfaces an error.
func (s *EstimateService) SearchLocations(ctx context.Context, query string, bias *geo.Coordinate) ([]route.Place, error) {
	if bias != nil {
		if err := bias.Validate(); err != nil {
			return nil, domain.NewValidationError("invalid bias: " + err.Error())
		}
	}
	if s.geocoder == nil {
		return []route.Place{}, nil
	}

	places, err := s.geocoder.Autocomplete(ctx, query, bias)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("location autocomplete failed", zap.String("query", query), zap.Error(err))
		}
		return []route.Place{}, nil
	}
	return places, nil
}

// ReverseGeocode labels a point. Without a provider answer the label is the
// raw "lat, lon" pair.
func (s *EstimateService) ReverseGeocode(ctx context.Context, point geo.Coordinate) (*route.Place, error) {
	if err := point.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	fallback := &route.Place{Label: point.String(), Coordinate: point}
	if s.geocoder == nil {
		return fallback, nil
	}

	place, err := s.geocoder.Reverse(ctx, point)
	if err != nil {
		s.logger.Warn("reverse geocode failed", zap.String("point", point.String()), zap.Error(err))
		return fallback, nil
	}
	if place == nil {
		return fallback, nil
	}
	// Keep the customer's own point; the provider's address point may be offset.
	place.Coordinate = point
	return place, nil
}
