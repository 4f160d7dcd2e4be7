package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

const productColumns = `id::text, name, description, price, original_price, discount, category, brand,
images, stock, rating, num_reviews, specifications, tags, is_featured, is_active,
COALESCE(created_by::text, ''), created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("product_repo")}
}

func (r *postgresRepo) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	where, args := listConditions(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	page := filter.Page
	q := fmt.Sprintf(`
SELECT %s
FROM products
WHERE %s
ORDER BY %s
LIMIT %d OFFSET %d
`, productColumns, where, orderBy(filter.Sort), page.Limit, page.Offset())

	products, err := queryProducts(ctx, r.pool, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	r.logger.Debug("list", zap.Int("count", len(products)), zap.Int("total", total))
	return products, total, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if !domain.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	p, err := getProduct(ctx, r.pool, id, false)
	if err != nil {
		return nil, err
	}
	if p.Reviews, err = listReviews(ctx, r.pool, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) GetMany(ctx context.Context, ids []string) ([]domain.Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if domain.ValidID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []domain.Product{}, nil
	}
	q := fmt.Sprintf(`
SELECT %s
FROM products
WHERE id = ANY($1::uuid[])
ORDER BY array_position($1::uuid[], id)
`, productColumns)
	products, err := queryProducts(ctx, r.pool, q, valid)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	return products, nil
}

func (r *postgresRepo) Featured(ctx context.Context, limit int) ([]domain.Product, error) {
	q := fmt.Sprintf(`
SELECT %s
FROM products
WHERE is_featured AND is_active
ORDER BY created_at DESC
LIMIT $1
`, productColumns)
	return queryProducts(ctx, r.pool, q, limit)
}

func (r *postgresRepo) Categories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[domain.Category])
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	q := fmt.Sprintf(`
INSERT INTO products (name, description, price, original_price, discount, category, brand, images,
    stock, specifications, tags, is_featured, is_active, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, '')::uuid)
RETURNING %s
`, productColumns)
	created, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.Name, p.Description, p.Price, p.OriginalPrice, p.Discount, p.Category, p.Brand, images(p),
		p.Stock, specifications(p), tags(p), p.IsFeatured, p.IsActive, p.CreatedBy,
	))
	if err != nil {
		r.logger.Error("create failed", zap.String("name", p.Name), zap.Error(err))
		return nil, fmt.Errorf("create product: %w", err)
	}
	r.logger.Info("created", zap.String("productID", created.ID))
	return &created, nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, fn MutateFunc) (*domain.Product, error) {
	if !domain.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	q := fmt.Sprintf(`
UPDATE products
SET name = $2, description = $3, price = $4, original_price = $5, discount = $6, category = $7,
    brand = $8, images = $9, stock = $10, specifications = $11, tags = $12, is_featured = $13,
    is_active = $14, updated_at = now()
WHERE id = $1
RETURNING %s
`, productColumns)
	var updated domain.Product
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := getProduct(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		updated, err = scanProduct(tx.QueryRow(ctx, q,
			id, p.Name, p.Description, p.Price, p.OriginalPrice, p.Discount, p.Category, p.Brand, images(*p),
			p.Stock, specifications(*p), tags(*p), p.IsFeatured, p.IsActive,
		))
		if err != nil {
			return fmt.Errorf("update product %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	if !domain.ValidID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("deleted", zap.String("productID", id))
	return nil
}

// Upsert inserts p, or overwrites the catalog fields of the product with p.ID.
// Reviews and the rating aggregate are left untouched.
func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	q := fmt.Sprintf(`
INSERT INTO products (id, name, description, price, original_price, discount, category, brand, images,
    stock, specifications, tags, is_featured, is_active)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    original_price = EXCLUDED.original_price,
    discount = EXCLUDED.discount,
    category = EXCLUDED.category,
    brand = EXCLUDED.brand,
    images = EXCLUDED.images,
    stock = EXCLUDED.stock,
    specifications = EXCLUDED.specifications,
    tags = EXCLUDED.tags,
    is_featured = EXCLUDED.is_featured,
    is_active = EXCLUDED.is_active,
    updated_at = now()
RETURNING %s
`, productColumns)
	res, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.ID, p.Name, p.Description, p.Price, p.OriginalPrice, p.Discount, p.Category, p.Brand, images(p),
		p.Stock, specifications(p), tags(p), p.IsFeatured, p.IsActive,
	))
	if err != nil {
		r.logger.Error("upsert failed", zap.String("productID", p.ID), zap.String("name", p.Name), zap.Error(err))
		return nil, fmt.Errorf("upsert product %q: %w", p.Name, err)
	}
	r.logger.Debug("upserted", zap.String("productID", res.ID))
	return &res, nil
}

// UpsertReview stores the author's review and the recomputed rating aggregate
// in one transaction with the product row locked.
func (r *postgresRepo) UpsertReview(ctx context.Context, productID string, review domain.Review) (*domain.Product, error) {
	if !domain.ValidID(productID) {
		return nil, domain.ErrNotFound
	}
	var result *domain.Product
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := getProduct(ctx, tx, productID, true)
		if err != nil {
			return err
		}
		if p.Reviews, err = listReviews(ctx, tx, productID); err != nil {
			return err
		}
		p.UpsertReview(review)

		if _, err := tx.Exec(ctx, `
INSERT INTO product_reviews (product_id, user_id, name, rating, comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (product_id, user_id) DO UPDATE SET
    name = EXCLUDED.name,
    rating = EXCLUDED.rating,
    comment = EXCLUDED.comment,
    created_at = EXCLUDED.created_at
`, productID, review.UserID, review.Name, review.Rating, review.Comment, review.CreatedAt); err != nil {
			return fmt.Errorf("save review: %w", err)
		}
		if _, err := tx.Exec(ctx, `
UPDATE products SET rating = $2, num_reviews = $3, updated_at = now() WHERE id = $1
`, productID, p.Rating, p.NumReviews); err != nil {
			return fmt.Errorf("update rating: %w", err)
		}
		if p.Reviews, err = listReviews(ctx, tx, productID); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("review saved",
		zap.String("productID", productID),
		zap.String("userID", review.UserID),
		zap.String("rating", result.Rating.String()),
		zap.Int("reviews", result.NumReviews),
	)
	return result, nil
}

func getProduct(ctx context.Context, q db.Querier, id string, lock bool) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	if lock {
		query += ` FOR UPDATE`
	}
	p, err := scanProduct(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &p, nil
}

func listReviews(ctx context.Context, q db.Querier, productID string) ([]domain.Review, error) {
	rows, err := q.Query(ctx, `
SELECT id::text, user_id::text, name, rating, comment, created_at
FROM product_reviews
WHERE product_id = $1
ORDER BY seq ASC
`, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.Name, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func queryProducts(ctx context.Context, q db.Querier, query string, args ...any) ([]domain.Product, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.OriginalPrice,
		&p.Discount,
		&p.Category,
		&p.Brand,
		&p.Images,
		&p.Stock,
		&p.Rating,
		&p.NumReviews,
		&p.Specifications,
		&p.Tags,
		&p.IsFeatured,
		&p.IsActive,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func listConditions(f domain.ProductFilter) (string, []any) {
	conds := []string{"is_active"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Category != "" {
		conds = append(conds, "category = "+arg(f.Category))
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*f.MaxPrice))
	}
	if f.MinRating != nil {
		conds = append(conds, "rating >= "+arg(*f.MinRating))
	}
	if f.Featured != nil {
		conds = append(conds, "is_featured = "+arg(*f.Featured))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := arg("%" + escapeLike(s) + "%")
		exact := arg(strings.ToLower(s))
		conds = append(conds, fmt.Sprintf(
			"(name ILIKE %[1]s OR description ILIKE %[1]s OR brand ILIKE %[1]s OR %[2]s = ANY(tags))", like, exact))
	}
	return strings.Join(conds, " AND "), args
}

func orderBy(s domain.ProductSort) string {
	switch s {
	case domain.SortPriceAsc:
		return "price ASC, id"
	case domain.SortPriceDesc:
		return "price DESC, id"
	case domain.SortRating:
		return "rating DESC, num_reviews DESC, id"
	case domain.SortName:
		return "name ASC, id"
	default:
		return "created_at DESC, id"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func images(p domain.Product) []domain.ProductImage {
	if p.Images == nil {
		return []domain.ProductImage{}
	}
	return p.Images
}

func specifications(p domain.Product) []domain.Specification {
	if p.Specifications == nil {
		return []domain.Specification{}
	}
	return p.Specifications
}

func tags(p domain.Product) []string {
	if p.Tags == nil {
		return []string{}
	}
	return p.Tags
}
