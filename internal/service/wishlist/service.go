package wishlist

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
	wishlistrepo "storefront/internal/repository/wishlist"
)

type Service struct {
	repo     wishlistrepo.Repository
	products productReader
	logger   *zap.Logger
}

type productReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetMany(ctx context.Context, ids []string) ([]domain.Product, error)
}

func New(repo wishlistrepo.Repository, products productReader, logger *zap.Logger) *Service {
	return &Service{repo: repo, products: products, logger: logging.OrNop(logger).Named("wishlist")}
}

// Get returns the caller's saved products, most recently added first.
func (s *Service) Get(ctx context.Context, caller domain.Identity) ([]domain.Product, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	ids, err := s.repo.ProductIDs(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return s.products.GetMany(ctx, ids)
}

func (s *Service) Add(ctx context.Context, caller domain.Identity, productID string) ([]domain.Product, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	if err := s.repo.Add(ctx, caller.UserID, productID); err != nil {
		return nil, err
	}
	s.logger.Debug("product saved", zap.String("userID", caller.UserID), zap.String("productID", productID))
	return s.Get(ctx, caller)
}

// Remove is idempotent.
func (s *Service) Remove(ctx context.Context, caller domain.Identity, productID string) ([]domain.Product, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := s.repo.Remove(ctx, caller.UserID, productID); err != nil {
		return nil, err
	}
	s.logger.Debug("product removed", zap.String("userID", caller.UserID), zap.String("productID", productID))
	return s.Get(ctx, caller)
}
