package product

import (
	"context"

	"storefront/internal/domain"
)

// MutateFunc edits a product read under a row lock. Returning an error aborts
// the update. It may run more than once when the transaction is retried.
type MutateFunc func(p *domain.Product) error

type Repository interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// GetMany returns the products with the given ids in the order given.
	// Unknown ids are skipped.
	GetMany(ctx context.Context, ids []string) ([]domain.Product, error)
	Featured(ctx context.Context, limit int) ([]domain.Product, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	// Update locks the product, applies fn and writes the result back, so
	// concurrent stock debits are never overwritten.
	Update(ctx context.Context, id string, fn MutateFunc) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
	UpsertReview(ctx context.Context, productID string, review domain.Review) (*domain.Product, error)
}
