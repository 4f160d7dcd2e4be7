package wishlist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("wishlist_repo")}
}

func (r *postgresRepo) ProductIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
SELECT product_id::text
FROM wishlist_items
WHERE user_id = $1
ORDER BY created_at DESC, product_id
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist of %s: %w", userID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresRepo) Add(ctx context.Context, userID, productID string) error {
	if !domain.ValidID(productID) {
		return fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO wishlist_items (user_id, product_id) VALUES ($1, $2)`, userID, productID)
	switch {
	case db.IsUniqueViolation(err):
		return fmt.Errorf("product %s already in wishlist: %w", productID, domain.ErrAlreadyExists)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	case err != nil:
		return fmt.Errorf("add to wishlist: %w", err)
	}
	r.logger.Debug("wishlist add", zap.String("userID", userID), zap.String("productID", productID))
	return nil
}

func (r *postgresRepo) Remove(ctx context.Context, userID, productID string) error {
	if !domain.ValidID(productID) {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID); err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}
	return nil
}
