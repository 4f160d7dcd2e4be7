package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
}

type productUpserter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

// Admin is the account Apply guarantees exists with the admin role.
type Admin struct {
	Name     string
	Email    string
	Password string
}

// Seeder writes demo data for manual testing. Every step is idempotent.
type Seeder struct {
	users    userStore
	products productUpserter
	logger   *zap.Logger
}

func New(users userStore, products productUpserter, logger *zap.Logger) *Seeder {
	return &Seeder{users: users, products: products, logger: logging.OrNop(logger).Named("seed")}
}

// Apply ensures the admin account and upserts the demo catalog.
func (s *Seeder) Apply(ctx context.Context, admin Admin) error {
	if err := s.ensureAdmin(ctx, admin); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	for _, p := range demoProducts() {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("demo product %q: %w", p.Name, err)
		}
		if _, err := s.products.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %q: %w", p.Name, err)
		}
	}
	s.logger.Info("seed applied", zap.Int("products", len(demoProducts())))
	return nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, admin Admin) error {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" || admin.Password == "" {
		return fmt.Errorf("admin email and password required: %w", domain.ErrValidation)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin {
			return nil
		}
		_, err = s.users.UpdateRole(ctx, existing.ID, domain.RoleAdmin)
		if err == nil {
			s.logger.Info("promoted existing user to admin", zap.String("userID", existing.ID))
		}
		return err
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	created, err := s.users.Create(ctx, domain.User{
		Name:         admin.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		return err
	}
	s.logger.Info("admin created", zap.String("userID", created.ID))
	return nil
}

func demoProducts() []domain.Product {
	return []domain.Product{
		{
			ID:            "7a4f0b52-3c1e-4d8a-9f6b-000000000001",
			Name:          "Wireless Headphones",
			Description:   "Over-ear headphones with active noise cancelling and 30 hour battery.",
			Price:         decimal.RequireFromString("89.99"),
			OriginalPrice: decimal.RequireFromString("119.99"),
			Category:      domain.CategoryElectronics,
			Brand:         "Sonance",
			Images:        []domain.ProductImage{{URL: "https://picsum.photos/seed/headphones/600"}},
			Stock:         25,
			Tags:          []string{"audio", "wireless"},
			IsFeatured:    true,
			IsActive:      true,
		},
		{
			ID:          "7a4f0b52-3c1e-4d8a-9f6b-000000000002",
			Name:        "Cotton T-Shirt",
			Description: "Soft organic cotton tee in a relaxed fit.",
			Price:       decimal.RequireFromString("19.99"),
			Category:    domain.CategoryFashion,
			Images:      []domain.ProductImage{{URL: "https://picsum.photos/seed/tshirt/600"}},
			Stock:       120,
			Tags:        []string{"cotton"},
			IsActive:    true,
		},
		{
			ID:          "7a4f0b52-3c1e-4d8a-9f6b-000000000003",
			Name:        "Leather Wallet",
			Description: "Slim bifold wallet in full grain leather.",
			Price:       decimal.RequireFromString("34.50"),
			Category:    domain.CategoryAccessories,
			Brand:       "Holt",
			Stock:       8,
			IsActive:    true,
		},
		{
			ID:            "7a4f0b52-3c1e-4d8a-9f6b-000000000004",
			Name:          "The Go Programming Language",
			Description:   "A thorough introduction to Go for working programmers.",
			Price:         decimal.RequireFromString("32.00"),
			OriginalPrice: decimal.RequireFromString("40.00"),
			Category:      domain.CategoryBooks,
			Stock:         40,
			Tags:          []string{"programming", "go"},
			IsFeatured:    true,
			IsActive:      true,
		},
		{
			ID:          "7a4f0b52-3c1e-4d8a-9f6b-000000000005",
			Name:        "Yoga Mat",
			Description: "Non-slip 6mm mat with carrying strap.",
			Price:       decimal.RequireFromString("24.00"),
			Category:    domain.CategorySports,
			Stock:       3,
			IsActive:    true,
		},
		{
			ID:          "7a4f0b52-3c1e-4d8a-9f6b-000000000006",
			Name:        "Ceramic Mug",
			Description: "Stoneware mug, 350ml, dishwasher safe.",
			Price:       decimal.RequireFromString("12.99"),
			Category:    domain.CategoryHome,
			Stock:       60,
			IsActive:    true,
		},
	}
}
