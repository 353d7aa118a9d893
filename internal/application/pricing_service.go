package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ridemax/service-booking/internal/domain/fare"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// PricingSeed is the on-disk default tariff used to initialise empty tables.
type PricingSeed struct {
	Local           fare.RateTable       `yaml:"local"`
	Outstation      fare.OutstationTable `yaml:"outstation"`
	AirportKeywords []string             `yaml:"airport_keywords"`
}

// DefaultPricingSeed mirrors configs/pricing.yaml.
func DefaultPricingSeed() PricingSeed {
	return PricingSeed{
		Local:           fare.DefaultRateTable(),
		Outstation:      fare.DefaultOutstationTable(),
		AirportKeywords: fare.DefaultAirportKeywords,
	}
}

// LoadPricingSeed reads a YAML seed file. A missing file yields the defaults.
func LoadPricingSeed(path string) (PricingSeed, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultPricingSeed(), nil
	}
	if err != nil {
		return PricingSeed{}, fmt.Errorf("failed to read pricing seed: %w", err)
	}

	var seed PricingSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return PricingSeed{}, fmt.Errorf("failed to parse pricing seed %s: %w", path, err)
	}
	if err := seed.Local.Validate(); err != nil {
		return PricingSeed{}, fmt.Errorf("invalid local rates in %s: %w", path, err)
	}
	for class, fares := range seed.Outstation.Fares {
		if !class.IsValid() {
			return PricingSeed{}, fmt.Errorf("invalid vehicle class %q in %s", class, path)
		}
		for key, amount := range fares {
			if _, _, err := fare.ParseRouteKey(key); err != nil {
				return PricingSeed{}, fmt.Errorf("invalid outstation route in %s: %w", path, err)
			}
			if amount <= 0 {
				return PricingSeed{}, fmt.Errorf("invalid outstation fare %q=%d in %s", key, amount, path)
			}
		}
	}
	return seed, nil
}

// LocalRatesRequest updates the local tariff.
type LocalRatesRequest struct {
	BaseFare          int64 `json:"base_fare"`
	StandardRatePerKm int64 `json:"standard_rate_per_km" binding:"required"`
	AirportRatePerKm  int64 `json:"airport_rate_per_km" binding:"required"`
	MinimumFare       int64 `json:"minimum_fare"`
}

// OutstationFareRequest identifies a fixed-route fare.
type OutstationFareRequest struct {
	From         string `json:"from" binding:"required"`
	To           string `json:"to" binding:"required"`
	VehicleClass string `json:"vehicle_class" binding:"required"`
	Amount       int64  `json:"amount"`
}

// SurchargeRequest sets the large-vehicle surcharge.
type SurchargeRequest struct {
	Amount int64 `json:"amount"`
}

// PricingDTO is the admin view of all tariffs.
type PricingDTO struct {
	Local           fare.RateTable       `json:"local"`
	Outstation      fare.OutstationTable `json:"outstation"`
	Cities          []string             `json:"cities"`
	AirportKeywords []string             `json:"airport_keywords"`
	Currency        string               `json:"currency"`
}

// PricingService owns the local tariff and the outstation fare sheet.
type PricingService struct {
	repo    fare.PricingRepository
	airport *fare.AirportMatcher
	logger  *zap.Logger
}

// NewPricingService creates a new PricingService.
func NewPricingService(repo fare.PricingRepository, airport *fare.AirportMatcher, logger *zap.Logger) *PricingService {
	if airport == nil {
		airport = fare.NewAirportMatcher(nil)
	}
	return &PricingService{repo: repo, airport: airport, logger: logger}
}

// AirportMatcher returns the configured airport keyword matcher.
func (s *PricingService) AirportMatcher() *fare.AirportMatcher { return s.airport }

// SeedDefaults fills empty tables from seed. Existing data is left alone.
func (s *PricingService) SeedDefaults(ctx context.Context, seed PricingSeed) error {
	if _, err := s.repo.LoadLocalRates(ctx); errors.Is(err, fare.ErrNotConfigured) {
		if err := s.repo.SaveLocalRates(ctx, seed.Local); err != nil {
			return fmt.Errorf("failed to seed local rates: %w", err)
		}
		s.logger.Info("seeded local rate table",
			zap.Int64("base_fare", seed.Local.BaseFare),
			zap.Int64("minimum_fare", seed.Local.MinimumFare),
		)
	} else if err != nil {
		return err
	}

	current, err := s.repo.LoadOutstation(ctx)
	if err != nil {
		return err
	}
	if len(current.Cities()) > 0 {
		return nil
	}

	seeded := 0
	for class, fares := range seed.Outstation.Fares {
		for key, amount := range fares {
			from, to, err := fare.ParseRouteKey(key)
			if err != nil {
				return fmt.Errorf("failed to seed outstation fare: %w", err)
			}
			if err := s.repo.UpsertOutstationFare(ctx, class, from, to, amount); err != nil {
				return fmt.Errorf("failed to seed outstation fare %s: %w", key, err)
			}
			seeded++
		}
	}
	if err := s.repo.SaveSurcharge(ctx, seed.Outstation.LargeVehicleSurcharge); err != nil {
		return fmt.Errorf("failed to seed surcharge: %w", err)
	}
	s.logger.Info("seeded outstation fares", zap.Int("count", seeded))
	return nil
}

// LocalRates returns the current local tariff, or the launch tariff if none is stored.
func (s *PricingService) LocalRates(ctx context.Context) (fare.RateTable, error) {
	rates, err := s.repo.LoadLocalRates(ctx)
	if errors.Is(err, fare.ErrNotConfigured) {
		return fare.DefaultRateTable(), nil
	}
	if err != nil {
		return fare.RateTable{}, domain.NewUnavailableError("pricing is temporarily unavailable", err)
	}
	return rates, nil
}

// OutstationTable returns the current fixed-route fare sheet.
func (s *PricingService) OutstationTable(ctx context.Context) (fare.OutstationTable, error) {
	table, err := s.repo.LoadOutstation(ctx)
	if err != nil {
		return fare.OutstationTable{}, domain.NewUnavailableError("pricing is temporarily unavailable", err)
	}
	return table, nil
}

// Cities lists the cities with at least one fixed-route fare.
func (s *PricingService) Cities(ctx context.Context) ([]string, error) {
	table, err := s.OutstationTable(ctx)
	if err != nil {
		return nil, err
	}
	return table.Cities(), nil
}

// GetPricing returns every tariff for the admin panel.
func (s *PricingService) GetPricing(ctx context.Context) (*PricingDTO, error) {
	local, err := s.LocalRates(ctx)
	if err != nil {
		return nil, err
	}
	outstation, err := s.OutstationTable(ctx)
	if err != nil {
		return nil, err
	}
	return &PricingDTO{
		Local:           local,
		Outstation:      outstation,
		Cities:          outstation.Cities(),
		AirportKeywords: s.airport.Keywords(),
		Currency:        domain.CurrencyINR,
	}, nil
}

// UpdateLocalRates replaces the local tariff.
func (s *PricingService) UpdateLocalRates(ctx context.Context, req LocalRatesRequest) (*fare.RateTable, error) {
	rates := fare.RateTable{
		BaseFare:          req.BaseFare,
		StandardRatePerKm: req.StandardRatePerKm,
		AirportRatePerKm:  req.AirportRatePerKm,
		MinimumFare:       req.MinimumFare,
	}
	if err := rates.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if err := s.repo.SaveLocalRates(ctx, rates); err != nil {
		return nil, fmt.Errorf("failed to save local rates: %w", err)
	}
	s.logger.Info("local rate table updated",
		zap.Int64("base_fare", rates.BaseFare),
		zap.Int64("standard_rate_per_km", rates.StandardRatePerKm),
		zap.Int64("airport_rate_per_km", rates.AirportRatePerKm),
		zap.Int64("minimum_fare", rates.MinimumFare),
	)
	return &rates, nil
}

// UpsertOutstationFare sets the fixed fare for a city pair.
func (s *PricingService) UpsertOutstationFare(ctx context.Context, req OutstationFareRequest) error {
	class, from, to, err := validateFareKey(req)
	if err != nil {
		return err
	}
	if req.Amount <= 0 {
		return domain.NewValidationError("amount must be positive")
	}
	if err := s.repo.UpsertOutstationFare(ctx, class, from, to, req.Amount); err != nil {
		return fmt.Errorf("failed to save outstation fare: %w", err)
	}
	s.logger.Info("outstation fare updated",
		zap.String("route", fare.RouteKey(from, to)),
		zap.String("vehicle_class", string(class)),
		zap.Int64("amount", req.Amount),
	)
	return nil
}

// DeleteOutstationFare removes the fixed fare for a city pair.
func (s *PricingService) DeleteOutstationFare(ctx context.Context, req OutstationFareRequest) error {
	class, from, to, err := validateFareKey(req)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteOutstationFare(ctx, class, from, to); err != nil {
		if errors.Is(err, fare.ErrNoFixedRoute) {
			return domain.NewNotFoundError("OutstationFare", fare.RouteKey(from, to))
		}
		return fmt.Errorf("failed to delete outstation fare: %w", err)
	}
	return nil
}

// UpdateSurcharge sets the flat amount added to 6-seater outstation fares.
func (s *PricingService) UpdateSurcharge(ctx context.Context, req SurchargeRequest) error {
	if req.Amount < 0 {
		return domain.NewValidationError("surcharge cannot be negative")
	}
	if err := s.repo.SaveSurcharge(ctx, req.Amount); err != nil {
		return fmt.Errorf("failed to save surcharge: %w", err)
	}
	return nil
}

func validateFareKey(req OutstationFareRequest) (fare.VehicleClass, string, string, error) {
	class, err := fare.ParseVehicleClass(req.VehicleClass)
	if err != nil {
		return "", "", "", domain.NewValidationError(err.Error())
	}
	from := strings.TrimSpace(req.From)
	to := strings.TrimSpace(req.To)
	for _, city := range []string{from, to} {
		if err := fare.ValidateCity(city); err != nil {
			return "", "", "", domain.NewValidationError(err.Error())
		}
	}
	if fare.SameCity(from, to) {
		return "", "", "", domain.NewValidationError("cities must differ")
	}
	return class, from, to, nil
}
