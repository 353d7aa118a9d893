package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ridemax/service-booking/internal/domain/fare"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const seedYAML = `
local:
  base_fare: 40
  standard_rate_per_km: 14
  airport_rate_per_km: 17
  minimum_fare: 90
outstation:
  large_vehicle_surcharge: 250
  fares:
    4-seater:
      Mumbai-Pune: 2400
    6-seater:
      Mumbai-Pune: 3300
airport_keywords:
  - airport
  - lohegaon
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPricingSeed(t *testing.T) {
	seed, err := LoadPricingSeed(writeSeed(t, seedYAML))
	require.NoError(t, err)

	assert.Equal(t, fare.RateTable{BaseFare: 40, StandardRatePerKm: 14, AirportRatePerKm: 17, MinimumFare: 90}, seed.Local)
	assert.Equal(t, int64(250), seed.Outstation.LargeVehicleSurcharge)
	assert.Equal(t, int64(2400), seed.Outstation.Fares[fare.Vehicle4Seater]["Mumbai-Pune"])
	assert.Equal(t, []string{"airport", "lohegaon"}, seed.AirportKeywords)
}

func TestLoadPricingSeed_MissingFileUsesDefaults(t *testing.T) {
	seed, err := LoadPricingSeed(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, fare.DefaultRateTable(), seed.Local)
	assert.Len(t, seed.Outstation.Cities(), 4)
}

func TestLoadPricingSeed_Invalid(t *testing.T) {
	for name, content := range map[string]string{
		"negative rate": "local:\n  base_fare: -1\n",
		"bad class":     "outstation:\n  fares:\n    bus:\n      Mumbai-Pune: 100\n",
		"bad key":       "outstation:\n  fares:\n    4-seater:\n      MumbaiPune: 100\n",
		"hyphen city":   "outstation:\n  fares:\n    4-seater:\n      Navi-Mumbai-Pune: 100\n",
		"not yaml":      "local: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPricingSeed(writeSeed(t, content))
			assert.Error(t, err)
		})
	}
}

func TestSeedDefaults_OnlyFillsEmptyTables(t *testing.T) {
	repo := newMemPricingRepo()
	svc := NewPricingService(repo, nil, zap.NewNop())
	seed, err := LoadPricingSeed(writeSeed(t, seedYAML))
	require.NoError(t, err)

	require.NoError(t, svc.SeedDefaults(context.Background(), seed))
	rates, err := svc.LocalRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(40), rates.BaseFare)

	table, err := svc.OutstationTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(250), table.LargeVehicleSurcharge)

	// A second seed must not overwrite admin edits.
	_, err = svc.UpdateLocalRates(context.Background(), LocalRatesRequest{BaseFare: 60, StandardRatePerKm: 16, AirportRatePerKm: 19, MinimumFare: 120})
	require.NoError(t, err)
	require.NoError(t, svc.SeedDefaults(context.Background(), DefaultPricingSeed()))

	rates, err = svc.LocalRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(60), rates.BaseFare)
	table, err = svc.OutstationTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Mumbai", "Pune"}, table.Cities())
}

func TestLocalRates_DefaultsWhenUnconfigured(t *testing.T) {
	svc := NewPricingService(newMemPricingRepo(), nil, zap.NewNop())
	rates, err := svc.LocalRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fare.DefaultRateTable(), rates)
}

func TestLocalRates_StoreFailureIsUnavailable(t *testing.T) {
	repo := newMemPricingRepo()
	repo.loadErr = errors.New("connection refused")
	svc := NewPricingService(repo, nil, zap.NewNop())

	_, err := svc.LocalRates(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeUnavailable))
}

func TestUpdateLocalRates_Validation(t *testing.T) {
	svc := NewPricingService(newMemPricingRepo(), nil, zap.NewNop())
	_, err := svc.UpdateLocalRates(context.Background(), LocalRatesRequest{BaseFare: -10, StandardRatePerKm: 15, AirportRatePerKm: 18})
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}

func TestOutstationFareAdmin(t *testing.T) {
	repo := seededPricingRepo()
	svc := NewPricingService(repo, nil, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.UpsertOutstationFare(ctx, OutstationFareRequest{From: "Pune", To: "Mumbai", VehicleClass: "4-seater", Amount: 2600}))
	got, err := repo.outstation.Lookup("Mumbai", "Pune", fare.Vehicle4Seater)
	require.NoError(t, err)
	assert.Equal(t, int64(2600), got)

	require.NoError(t, svc.DeleteOutstationFare(ctx, OutstationFareRequest{From: "Mumbai", To: "Pune", VehicleClass: "4-seater"}))
	_, err = repo.outstation.Lookup("Mumbai", "Pune", fare.Vehicle4Seater)
	assert.ErrorIs(t, err, fare.ErrNoFixedRoute)

	err = svc.DeleteOutstationFare(ctx, OutstationFareRequest{From: "Mumbai", To: "Pune", VehicleClass: "4-seater"})
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))

	// A differently cased pair replaces the stored one instead of adding a twin.
	require.NoError(t, svc.UpsertOutstationFare(ctx, OutstationFareRequest{From: "surat", To: "MUMBAI", VehicleClass: "4-seater", Amount: 3600}))
	assert.Len(t, repo.outstation.Fares[fare.Vehicle4Seater], 5)
	got, err = repo.outstation.Lookup("Mumbai", "Surat", fare.Vehicle4Seater)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), got)

	for _, bad := range []OutstationFareRequest{
		{From: "Mumbai", To: "Mumbai", VehicleClass: "4-seater", Amount: 10},
		{From: "Navi-Mumbai", To: "Pune", VehicleClass: "4-seater", Amount: 10},
		{From: "Mumbai", To: "Pune", VehicleClass: "van", Amount: 10},
		{From: "Mumbai", To: "Pune", VehicleClass: "4-seater", Amount: 0},
	} {
		assert.True(t, domain.IsCode(svc.UpsertOutstationFare(ctx, bad), domain.CodeValidation), "%+v", bad)
	}

	require.NoError(t, svc.UpdateSurcharge(ctx, SurchargeRequest{Amount: 400}))
	assert.Equal(t, int64(400), repo.outstation.LargeVehicleSurcharge)
	assert.True(t, domain.IsCode(svc.UpdateSurcharge(ctx, SurchargeRequest{Amount: -1}), domain.CodeValidation))
}

func TestGetPricing(t *testing.T) {
	svc := NewPricingService(seededPricingRepo(), fare.NewAirportMatcher([]string{"Airport"}), zap.NewNop())
	got, err := svc.GetPricing(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fare.DefaultRateTable(), got.Local)
	assert.Equal(t, []string{"Mumbai", "Nashik", "Pune", "Surat"}, got.Cities)
	assert.Equal(t, []string{"airport"}, got.AirportKeywords)
	assert.Equal(t, "INR", got.Currency)
}
