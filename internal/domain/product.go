package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	maxProductNameLen        = 200
	maxProductDescriptionLen = 5000
	minReviewComment         = 10
	maxReviewComment         = 1000
)

type ProductImage struct {
	PublicID string `json:"public_id,omitempty"`
	URL      string `json:"url"`
}

type Specification struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Review is one user's rating of a product. A user has at most one per product.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks rating bounds and comment length.
func (r Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5: %w", ErrValidation)
	}
	n := len([]rune(strings.TrimSpace(r.Comment)))
	if n < minReviewComment || n > maxReviewComment {
		return fmt.Errorf("comment must be between %d and %d characters: %w", minReviewComment, maxReviewComment, ErrValidation)
	}
	return nil
}

type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	OriginalPrice  decimal.Decimal `json:"originalPrice"`
	Discount       int             `json:"discount"`
	Category       Category        `json:"category"`
	Brand          string          `json:"brand,omitempty"`
	Images         []ProductImage  `json:"images"`
	Stock          int             `json:"stock"`
	Rating         decimal.Decimal `json:"ratings"`
	NumReviews     int             `json:"numOfReviews"`
	Reviews        []Review        `json:"reviews,omitempty"`
	Specifications []Specification `json:"specifications,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	IsFeatured     bool            `json:"isFeatured"`
	IsActive       bool            `json:"isActive"`
	CreatedBy      string          `json:"createdBy,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Validate checks the catalog constraints and fills the derived discount.
func (p *Product) Validate() error {
	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		return fmt.Errorf("product name required: %w", ErrValidation)
	case len([]rune(name)) > maxProductNameLen:
		return fmt.Errorf("product name cannot exceed %d characters: %w", maxProductNameLen, ErrValidation)
	case strings.TrimSpace(p.Description) == "":
		return fmt.Errorf("product description required: %w", ErrValidation)
	case len([]rune(p.Description)) > maxProductDescriptionLen:
		return fmt.Errorf("description cannot exceed %d characters: %w", maxProductDescriptionLen, ErrValidation)
	case p.Price.IsNegative():
		return fmt.Errorf("price cannot be negative: %w", ErrValidation)
	case p.OriginalPrice.IsNegative():
		return fmt.Errorf("original price cannot be negative: %w", ErrValidation)
	case !p.Category.Valid():
		return fmt.Errorf("unknown category %q: %w", p.Category, ErrValidation)
	case p.Stock < 0:
		return fmt.Errorf("stock cannot be negative: %w", ErrValidation)
	}
	p.Name = name
	p.Discount = DiscountPercent(p.Price, p.OriginalPrice)
	return nil
}

// Thumbnail returns the first image URL, if any.
func (p Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// UpsertReview replaces the author's existing review in place or appends a new
// one, then recomputes the rating aggregate.
func (p *Product) UpsertReview(r Review) {
	replaced := false
	for i := range p.Reviews {
		if p.Reviews[i].UserID == r.UserID {
			if r.ID == "" {
				r.ID = p.Reviews[i].ID
			}
			p.Reviews[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		p.Reviews = append(p.Reviews, r)
	}
	p.Rating, p.NumReviews = RatingSummary(p.Reviews)
}

// RatingSummary returns the mean rating rounded to one decimal and the review
// count, or zero values when there are no reviews.
func RatingSummary(reviews []Review) (decimal.Decimal, int) {
	if len(reviews) == 0 {
		return decimal.Zero, 0
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	mean := decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(len(reviews))))
	return mean.Round(1), len(reviews)
}

// DiscountPercent is the whole-number markdown of price against original.
func DiscountPercent(price, original decimal.Decimal) int {
	if !original.IsPositive() || price.GreaterThanOrEqual(original) {
		return 0
	}
	pct := original.Sub(price).Div(original).Mul(decimal.NewFromInt(100)).Round(0)
	return int(pct.IntPart())
}

// ProductFilter narrows catalog listings. Zero values mean "no filter".
type ProductFilter struct {
	Category  Category
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	MinRating *decimal.Decimal
	Featured  *bool
	Search    string
	Sort      ProductSort
	Page      Page
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price"
	SortPriceDesc ProductSort = "-price"
	SortRating    ProductSort = "rating"
	SortName      ProductSort = "name"
)

// ParseProductSort maps a client sort key onto a known ordering, defaulting to newest.
func ParseProductSort(s string) ProductSort {
	switch ProductSort(strings.TrimSpace(s)) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	case SortRating, "-rating", "-ratings":
		return SortRating
	case SortName:
		return SortName
	default:
		return SortNewest
	}
}
