package wishlist

import "context"

// Repository stores the set of products each user has saved.
type Repository interface {
	// ProductIDs lists saved products, most recently added first.
	ProductIDs(ctx context.Context, userID string) ([]string, error)
	Add(ctx context.Context, userID, productID string) error
	// Remove is a no-op when the product is not saved.
	Remove(ctx context.Context, userID, productID string) error
}
