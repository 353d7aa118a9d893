package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ridemax/service-booking/internal/domain/fare"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// singletonID keys the one-row settings tables.
const singletonID = 1

// RateTableModel is the single-row local tariff.
type RateTableModel struct {
	ID                int16     `gorm:"primaryKey"`
	BaseFare          int64     `gorm:"not null"`
	StandardRatePerKm int64     `gorm:"not null"`
	AirportRatePerKm  int64     `gorm:"not null"`
	MinimumFare       int64     `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"type:timestamptz;not null"`
}

func (RateTableModel) TableName() string { return "rate_tables" }

// OutstationSettingsModel is the single-row outstation configuration.
type OutstationSettingsModel struct {
	ID                    int16     `gorm:"primaryKey"`
	LargeVehicleSurcharge int64     `gorm:"not null;default:0"`
	UpdatedAt             time.Time `gorm:"type:timestamptz;not null"`
}

func (OutstationSettingsModel) TableName() string { return "outstation_settings" }

// OutstationFareModel is one fixed fare for a city pair and vehicle class.
type OutstationFareModel struct {
	VehicleClass string    `gorm:"primaryKey;size:20"`
	RouteKey     string    `gorm:"primaryKey;size:120"`
	FromCity     string    `gorm:"not null;size:60"`
	ToCity       string    `gorm:"not null;size:60"`
	Amount       int64     `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;not null"`
}

func (OutstationFareModel) TableName() string { return "outstation_fares" }

// GormPricingRepository implements fare.PricingRepository using GORM.
type GormPricingRepository struct {
	db *gorm.DB
}

func NewGormPricingRepository(db *gorm.DB) *GormPricingRepository {
	return &GormPricingRepository{db: db}
}

func (r *GormPricingRepository) LoadLocalRates(ctx context.Context) (fare.RateTable, error) {
	var m RateTableModel
	if err := r.db.WithContext(ctx).Where("id = ?", singletonID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fare.RateTable{}, fare.ErrNotConfigured
		}
		return fare.RateTable{}, fmt.Errorf("failed to load rate table: %w", err)
	}
	return fare.RateTable{
		BaseFare:          m.BaseFare,
		StandardRatePerKm: m.StandardRatePerKm,
		AirportRatePerKm:  m.AirportRatePerKm,
		MinimumFare:       m.MinimumFare,
	}, nil
}

func (r *GormPricingRepository) SaveLocalRates(ctx context.Context, rates fare.RateTable) error {
	m := RateTableModel{
		ID:                singletonID,
		BaseFare:          rates.BaseFare,
		StandardRatePerKm: rates.StandardRatePerKm,
		AirportRatePerKm:  rates.AirportRatePerKm,
		MinimumFare:       rates.MinimumFare,
		UpdatedAt:         time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"base_fare", "standard_rate_per_km", "airport_rate_per_km", "minimum_fare", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("failed to save rate table: %w", err)
	}
	return nil
}

func (r *GormPricingRepository) LoadOutstation(ctx context.Context) (fare.OutstationTable, error) {
	table := fare.NewOutstationTable()

	var settings OutstationSettingsModel
	err := r.db.WithContext(ctx).Where("id = ?", singletonID).First(&settings).Error
	switch {
	case err == nil:
		table.LargeVehicleSurcharge = settings.LargeVehicleSurcharge
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fare.OutstationTable{}, fmt.Errorf("failed to load outstation settings: %w", err)
	}

	var models []OutstationFareModel
	if err := r.db.WithContext(ctx).Order("vehicle_class, route_key").Find(&models).Error; err != nil {
		return fare.OutstationTable{}, fmt.Errorf("failed to load outstation fares: %w", err)
	}
	for _, m := range models {
		if err := table.Set(fare.VehicleClass(m.VehicleClass), m.FromCity, m.ToCity, m.Amount); err != nil {
			return fare.OutstationTable{}, fmt.Errorf("invalid outstation fare %s: %w", m.RouteKey, err)
		}
	}
	return table, nil
}

func (r *GormPricingRepository) SaveSurcharge(ctx context.Context, amount int64) error {
	m := OutstationSettingsModel{ID: singletonID, LargeVehicleSurcharge: amount, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"large_vehicle_surcharge", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("failed to save surcharge: %w", err)
	}
	return nil
}

// pairKeys are the lower-cased keys of both directions of a pair.
func pairKeys(from, to string) []string {
	return []string{strings.ToLower(fare.RouteKey(from, to)), strings.ToLower(fare.RouteKey(to, from))}
}

// UpsertOutstationFare drops any row for the same pair, in either direction or
// letter case, so a pair is stored once.
func (r *GormPricingRepository) UpsertOutstationFare(ctx context.Context, class fare.VehicleClass, from, to string, amount int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vehicle_class = ? AND LOWER(route_key) IN ?", string(class), pairKeys(from, to)).
			Delete(&OutstationFareModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear reverse fare: %w", err)
		}

		m := OutstationFareModel{
			VehicleClass: string(class),
			RouteKey:     fare.RouteKey(from, to),
			FromCity:     from,
			ToCity:       to,
			Amount:       amount,
			UpdatedAt:    time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vehicle_class"}, {Name: "route_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
		}).Create(&m).Error; err != nil {
			return fmt.Errorf("failed to upsert outstation fare: %w", err)
		}
		return nil
	})
}

func (r *GormPricingRepository) DeleteOutstationFare(ctx context.Context, class fare.VehicleClass, from, to string) error {
	result := r.db.WithContext(ctx).
		Where("vehicle_class = ? AND LOWER(route_key) IN ?", string(class), pairKeys(from, to)).
		Delete(&OutstationFareModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete outstation fare: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fare.ErrNoFixedRoute
	}
	return nil
}
