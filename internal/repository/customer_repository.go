package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	customerDomain "github.com/ridemax/service-booking/internal/domain/customer"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"gorm.io/gorm"
)

// CustomerModel is the GORM model for the customers table.
type CustomerModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Phone        string     `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name         string     `gorm:"type:varchar(100);not null"`
	Email        string     `gorm:"type:varchar(255)"`
	BookingCount int        `gorm:"not null;default:0"`
	LastBookedAt *time.Time `gorm:"type:timestamptz"`
	Version      int64      `gorm:"not null;default:1"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

func (CustomerModel) TableName() string { return "customers" }

// GormCustomerRepository implements CustomerRepository using GORM.
type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) FindByPhone(ctx context.Context, phone string) (*customerDomain.Customer, error) {
	var model CustomerModel
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerDomain.ErrNotFound
		}
		return nil, err
	}
	return toCustomerDomain(&model), nil
}

func (r *GormCustomerRepository) List(ctx context.Context, search string, page, limit int) ([]*customerDomain.Customer, int64, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&CustomerModel{})
		if search != "" {
			like := "%" + escapeLike(search) + "%"
			q = q.Where("(name ILIKE ? OR phone ILIKE ?)", like, like)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	var models []CustomerModel
	if err := scoped().
		Order("last_booked_at DESC NULLS LAST").
		Offset(offset(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}

	customers := make([]*customerDomain.Customer, len(models))
	for i := range models {
		customers[i] = toCustomerDomain(&models[i])
	}
	return customers, total, nil
}

func (r *GormCustomerRepository) Save(ctx context.Context, c *customerDomain.Customer) error {
	if err := r.db.WithContext(ctx).Create(toCustomerModel(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("customer with this phone already exists")
		}
		return err
	}
	return nil
}

func (r *GormCustomerRepository) Update(ctx context.Context, c *customerDomain.Customer) error {
	model := toCustomerModel(c)
	previousVersion := c.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&CustomerModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Updates(map[string]interface{}{
			"name":           model.Name,
			"email":          model.Email,
			"booking_count":  model.BookingCount,
			"last_booked_at": model.LastBookedAt,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("customer was modified by another transaction")
	}
	return nil
}

// --- Conversions ---

func toCustomerModel(c *customerDomain.Customer) *CustomerModel {
	return &CustomerModel{
		ID:           c.ID(),
		Phone:        c.Phone(),
		Name:         c.Name(),
		Email:        c.Email(),
		BookingCount: c.BookingCount(),
		LastBookedAt: c.LastBookedAt(),
		Version:      c.Version(),
		CreatedAt:    c.CreatedAt(),
		UpdatedAt:    c.UpdatedAt(),
	}
}

func toCustomerDomain(m *CustomerModel) *customerDomain.Customer {
	return customerDomain.Reconstruct(
		m.ID,
		m.Phone, m.Name, m.Email,
		m.BookingCount,
		m.LastBookedAt,
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	)
}
