package cart

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
	cartrepo "storefront/internal/repository/cart"
)

type Service struct {
	repo     cartrepo.Repository
	products productReader
	logger   *zap.Logger
}

type productReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo cartrepo.Repository, products productReader, logger *zap.Logger) *Service {
	return &Service{repo: repo, products: products, logger: logging.OrNop(logger).Named("cart")}
}

func (s *Service) GetOrCreate(ctx context.Context, caller domain.Identity) (*domain.Cart, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.GetOrCreate(ctx, caller.UserID)
}

// AddItem stages quantity units of productID. A zero quantity means one unit.
func (s *Service) AddItem(ctx context.Context, caller domain.Identity, productID string, quantity int) (*domain.Cart, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", domain.ErrValidation)
	}
	product, err := s.activeProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	cart, err := s.repo.Update(ctx, caller.UserID, func(c *domain.Cart) error {
		return c.Add(*product, quantity)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("item added",
		zap.String("userID", caller.UserID),
		zap.String("productID", productID),
		zap.Int("quantity", quantity),
	)
	return cart, nil
}

func (s *Service) UpdateItem(ctx context.Context, caller domain.Identity, itemID string, quantity int) (*domain.Cart, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", domain.ErrValidation)
	}
	return s.repo.Update(ctx, caller.UserID, func(c *domain.Cart) error {
		item, ok := c.Item(itemID)
		if !ok {
			return fmt.Errorf("cart item %s: %w", itemID, domain.ErrNotFound)
		}
		product, err := s.activeProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		return c.SetQuantity(itemID, *product, quantity)
	})
}

// RemoveItem drops a line. Removing a line that is not in the cart succeeds.
func (s *Service) RemoveItem(ctx context.Context, caller domain.Identity, itemID string) (*domain.Cart, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.Update(ctx, caller.UserID, func(c *domain.Cart) error {
		c.Remove(itemID)
		return nil
	})
}

func (s *Service) Clear(ctx context.Context, caller domain.Identity) (*domain.Cart, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.Update(ctx, caller.UserID, func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
}

func (s *Service) activeProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}
