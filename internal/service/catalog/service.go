package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
	productrepo "storefront/internal/repository/product"
)

const (
	DefaultPageLimit = 12
	FeaturedLimit    = 8
)

type Service struct {
	repo   productrepo.Repository
	users  userReader
	logger *zap.Logger
	now    func() time.Time
}

type userReader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

func New(repo productrepo.Repository, users userReader, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: logging.OrNop(logger).Named("catalog"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListQuery carries the raw listing parameters accepted from clients.
type ListQuery struct {
	Category  string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	MinRating *decimal.Decimal
	Featured  *bool
	Search    string
	Sort      string
	Page      int
	Limit     int
}

// List returns one page of active products. Reviews are not loaded.
func (s *Service) List(ctx context.Context, q ListQuery) ([]domain.Product, domain.Pagination, error) {
	filter := domain.ProductFilter{
		MinPrice:  q.MinPrice,
		MaxPrice:  q.MaxPrice,
		MinRating: q.MinRating,
		Featured:  q.Featured,
		Search:    strings.TrimSpace(q.Search),
		Sort:      domain.ParseProductSort(q.Sort),
		Page:      domain.NewPage(q.Page, q.Limit, DefaultPageLimit),
	}
	if c := strings.ToLower(strings.TrimSpace(q.Category)); c != "" {
		filter.Category = domain.Category(c)
		if !filter.Category.Valid() {
			return nil, domain.Pagination{}, fmt.Errorf("unknown category %q: %w", q.Category, domain.ErrValidation)
		}
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, domain.Pagination{}, fmt.Errorf("minPrice exceeds maxPrice: %w", domain.ErrValidation)
	}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return products, filter.Page.Result(total), nil
}

// Get returns a product with its reviews. Inactive products are hidden from
// everyone but admins.
func (s *Service) Get(ctx context.Context, caller domain.Identity, id string) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive && !caller.IsAdmin() {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func (s *Service) Featured(ctx context.Context) ([]domain.Product, error) {
	return s.repo.Featured(ctx, FeaturedLimit)
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.Categories(ctx)
}

// ProductInput is the writable part of a product. Nil fields are left
// unchanged on update.
type ProductInput struct {
	Name           *string                 `json:"name"`
	Description    *string                 `json:"description"`
	Price          *decimal.Decimal        `json:"price"`
	OriginalPrice  *decimal.Decimal        `json:"originalPrice"`
	Category       *string                 `json:"category"`
	Brand          *string                 `json:"brand"`
	Images         *[]domain.ProductImage  `json:"images"`
	Stock          *int                    `json:"stock"`
	Specifications *[]domain.Specification `json:"specifications"`
	Tags           *[]string               `json:"tags"`
	IsFeatured     *bool                   `json:"isFeatured"`
	IsActive       *bool                   `json:"isActive"`
}

func (in ProductInput) apply(p *domain.Product) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.OriginalPrice != nil {
		p.OriginalPrice = *in.OriginalPrice
	}
	if in.Category != nil {
		p.Category = domain.Category(strings.ToLower(strings.TrimSpace(*in.Category)))
	}
	if in.Brand != nil {
		p.Brand = strings.TrimSpace(*in.Brand)
	}
	if in.Images != nil {
		p.Images = *in.Images
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Specifications != nil {
		p.Specifications = *in.Specifications
	}
	if in.Tags != nil {
		p.Tags = normalizeTags(*in.Tags)
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

func (s *Service) Create(ctx context.Context, caller domain.Identity, in ProductInput) (*domain.Product, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("create product: %w", domain.ErrForbidden)
	}
	p := domain.Product{IsActive: true, CreatedBy: caller.UserID}
	in.apply(&p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, caller domain.Identity, id string, in ProductInput) (*domain.Product, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("update product: %w", domain.ErrForbidden)
	}
	updated, err := s.repo.Update(ctx, id, func(p *domain.Product) error {
		in.apply(p)
		return p.Validate()
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("product updated", zap.String("productID", id), zap.String("by", caller.UserID))
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, caller domain.Identity, id string) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("delete product: %w", domain.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("productID", id), zap.String("by", caller.UserID))
	return nil
}

// AddOrUpdateReview stores the caller's review of a product, replacing any
// earlier one, and returns the product with its recomputed rating.
func (s *Service) AddOrUpdateReview(ctx context.Context, caller domain.Identity, productID string, rating int, comment string) (*domain.Product, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	review := domain.Review{
		UserID:    caller.UserID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: s.now(),
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("load reviewer: %w", err)
	}
	review.Name = author.Name

	p, err := s.repo.UpsertReview(ctx, productID, review)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("review saved",
		zap.String("productID", productID),
		zap.String("userID", caller.UserID),
		zap.String("rating", p.Rating.String()),
	)
	return p, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
