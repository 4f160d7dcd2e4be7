package order

import (
	"context"

	"storefront/internal/domain"
)

// MutateFunc changes an order in memory. Returning an error discards the change.
type MutateFunc func(order *domain.Order) error

// BuildFunc turns the owner's cart, read under its row lock, into the order
// to place. The cart is empty when the user never staged anything.
type BuildFunc func(cart domain.Cart) (*domain.Order, error)

type Repository interface {
	// Place locks the owner's cart, builds the order from it, debits stock for
	// every line, stores the order and clears the cart in one transaction.
	// created is false when an order with the same placement token already
	// existed and was returned instead; build is not called then.
	Place(ctx context.Context, userID, placementToken string, build BuildFunc) (placed *domain.Order, created bool, err error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error)
	// Update applies fn to the locked order. Entering Cancelled credits the
	// stock of every line back in the same transaction.
	Update(ctx context.Context, id string, fn MutateFunc) (*domain.Order, error)
}
