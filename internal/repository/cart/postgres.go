package cart

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
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
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("cart_repo")}
}

func (r *postgresRepo) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	if _, err := r.pool.Exec(ctx, `
INSERT INTO carts (user_id) VALUES ($1)
ON CONFLICT (user_id) DO NOTHING
`, userID); err != nil {
		return nil, fmt.Errorf("ensure cart for %s: %w", userID, err)
	}

	var cart domain.Cart
	if err := r.pool.QueryRow(ctx, `
SELECT id::text, user_id::text, created_at, updated_at
FROM carts
WHERE user_id = $1
`, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
		return nil, fmt.Errorf("get cart for %s: %w", userID, err)
	}
	if err := loadItems(ctx, r.pool, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *postgresRepo) Update(ctx context.Context, userID string, fn MutateFunc) (*domain.Cart, error) {
	var cart domain.Cart
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		cart = domain.Cart{}
		// The upsert takes the row lock that serializes mutations of one cart.
		if err := tx.QueryRow(ctx, `
INSERT INTO carts (user_id) VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
RETURNING id::text, user_id::text, created_at, updated_at
`, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
			return fmt.Errorf("lock cart for %s: %w", userID, err)
		}
		if err := loadItems(ctx, tx, &cart); err != nil {
			return err
		}
		if err := fn(&cart); err != nil {
			return err
		}
		return saveItems(ctx, tx, &cart)
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("cart updated",
		zap.String("userID", userID),
		zap.Int("lines", len(cart.Items)),
		zap.Int("totalItems", cart.TotalItems),
	)
	return &cart, nil
}

func loadItems(ctx context.Context, q db.Querier, cart *domain.Cart) error {
	rows, err := q.Query(ctx, `
SELECT id::text, product_id::text, name, image, quantity, price
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at ASC, id
`, cart.ID)
	if err != nil {
		return fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Name, &it.Image, &it.Quantity, &it.Price); err != nil {
			return err
		}
		cart.Items = append(cart.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	cart.Recalculate()
	return nil
}

func saveItems(ctx context.Context, tx pgx.Tx, cart *domain.Cart) error {
	keep := make([]string, 0, len(cart.Items))
	for _, it := range cart.Items {
		keep = append(keep, it.ID)
	}
	if _, err := tx.Exec(ctx, `
DELETE FROM cart_items
WHERE cart_id = $1 AND NOT (id = ANY($2::uuid[]))
`, cart.ID, keep); err != nil {
		return fmt.Errorf("prune cart items: %w", err)
	}

	for _, it := range cart.Items {
		if _, err := tx.Exec(ctx, `
INSERT INTO cart_items (id, cart_id, product_id, name, image, quantity, price)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    image = EXCLUDED.image,
    quantity = EXCLUDED.quantity,
    price = EXCLUDED.price
`, it.ID, cart.ID, it.ProductID, it.Name, it.Image, it.Quantity, it.Price); err != nil {
			return fmt.Errorf("save cart item %s: %w", it.ID, err)
		}
	}
	cart.Recalculate()
	return nil
}
