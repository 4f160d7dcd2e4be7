package user

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists and fetches user accounts.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// List pages through users, optionally matching search against name or email.
	List(ctx context.Context, page domain.Page, search string) ([]domain.User, int, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
	Deactivate(ctx context.Context, id string) error
	// Delete removes an account with its cart, wishlist and reviews. Users
	// with orders cannot be deleted and yield domain.ErrInvalidState.
	Delete(ctx context.Context, id string) error
}
