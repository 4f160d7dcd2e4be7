package cart

import (
	"context"

	"storefront/internal/domain"
)

// MutateFunc changes a cart in memory. Returning an error discards the change.
type MutateFunc func(cart *domain.Cart) error

type Repository interface {
	GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error)
	// Update loads the user's cart under a row lock, applies fn and persists
	// the resulting lines atomically.
	Update(ctx context.Context, userID string, fn MutateFunc) (*domain.Cart, error)
}
