package customer

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no customer has the requested phone.
var ErrNotFound = errors.New("customer not found")

// CustomerRepository defines persistence operations for customer profiles.
type CustomerRepository interface {
	FindByPhone(ctx context.Context, phone string) (*Customer, error)
	// List returns customers ordered by most recent booking; search matches name or phone.
	List(ctx context.Context, search string, page, limit int) ([]*Customer, int64, error)
	Save(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
}
