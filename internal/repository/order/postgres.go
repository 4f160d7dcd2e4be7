package order

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

const orderColumns = `id::text, user_id::text, shipping_address, payment_method, payment_id, payment_status,
items_price, tax_price, shipping_price, total_price, status, is_paid, paid_at, is_delivered, delivered_at,
notes, tracking_number, COALESCE(placement_token, ''), created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("order_repo")}
}

func (r *postgresRepo) Place(ctx context.Context, userID, placementToken string, build BuildFunc) (*domain.Order, bool, error) {
	var (
		placed  *domain.Order
		created bool
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		placed, created = nil, false
		if placementToken != "" {
			existing, err := findByToken(ctx, tx, userID, placementToken)
			if err == nil {
				placed = existing
				return nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}

		cart, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		o, err := build(cart)
		if err != nil {
			return err
		}
		o.UserID = userID
		o.PlacementToken = placementToken

		for _, it := range byProduct(o.Items) {
			if err := debitStock(ctx, tx, it); err != nil {
				return err
			}
		}

		id, err := insertOrder(ctx, tx, *o)
		if err != nil {
			return err
		}

		if cart.ID != "" {
			if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}

		if placed, err = getOrder(ctx, tx, id, false); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		// A concurrent request with the same token won the insert race.
		if placementToken != "" && db.IsUniqueViolation(err) {
			existing, findErr := findByToken(ctx, r.pool, userID, placementToken)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	if created {
		r.logger.Info("order placed",
			zap.String("orderID", placed.ID),
			zap.String("userID", placed.UserID),
			zap.Int("lines", len(placed.Items)),
			zap.String("total", placed.TotalPrice.String()),
		)
	} else {
		r.logger.Info("order placement replayed", zap.String("orderID", placed.ID), zap.String("userID", placed.UserID))
	}
	return placed, created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if !domain.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	return getOrder(ctx, r.pool, id, false)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	q := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, orderColumns)
	orders, err := queryOrders(ctx, r.pool, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders of %s: %w", userID, err)
	}
	return orders, nil
}

func (r *postgresRepo) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error) {
	where := "TRUE"
	var args []any
	if filter.Status != "" {
		where = "status = $1"
		args = append(args, filter.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	q := fmt.Sprintf(`
SELECT %s
FROM orders
WHERE %s
ORDER BY created_at DESC, id
LIMIT %d OFFSET %d
`, orderColumns, where, filter.Page.Limit, filter.Page.Offset())
	orders, err := queryOrders(ctx, r.pool, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, fn MutateFunc) (*domain.Order, error) {
	if !domain.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	var updated *domain.Order
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := getOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}
		prevStatus := o.Status
		prevHistory := len(o.StatusHistory)

		if err := fn(o); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
UPDATE orders
SET status = $2, is_paid = $3, paid_at = $4, is_delivered = $5, delivered_at = $6,
    payment_id = $7, payment_status = $8, tracking_number = $9, updated_at = now()
WHERE id = $1
`, o.ID, o.Status, o.IsPaid, o.PaidAt, o.IsDelivered, o.DeliveredAt,
			o.Payment.ID, o.Payment.Status, o.TrackingNumber); err != nil {
			return fmt.Errorf("update order %s: %w", id, err)
		}
		if err := insertHistory(ctx, tx, o.ID, o.StatusHistory[prevHistory:]); err != nil {
			return err
		}
		if prevStatus != domain.StatusCancelled && o.Status == domain.StatusCancelled {
			for _, it := range byProduct(o.Items) {
				if err := creditStock(ctx, tx, it); err != nil {
					return err
				}
			}
		}

		updated, err = getOrder(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("order updated", zap.String("orderID", id), zap.String("status", string(updated.Status)))
	return updated, nil
}

// debitStock decrements stock only while enough units remain, so concurrent
// placements can never drive it below zero.
func debitStock(ctx context.Context, tx pgx.Tx, it domain.OrderItem) error {
	if !domain.ValidID(it.ProductID) {
		return fmt.Errorf("product %s: %w", it.ProductID, domain.ErrNotFound)
	}
	tag, err := tx.Exec(ctx, `
UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND is_active AND stock >= $2
`, it.ProductID, it.Quantity)
	if err != nil {
		return fmt.Errorf("debit stock of %s: %w", it.ProductID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var (
		stock  int
		active bool
	)
	err = tx.QueryRow(ctx, `SELECT stock, is_active FROM products WHERE id = $1`, it.ProductID).Scan(&stock, &active)
	switch {
	case errors.Is(err, pgx.ErrNoRows) || (err == nil && !active):
		return fmt.Errorf("product %s: %w", it.ProductID, domain.ErrNotFound)
	case err != nil:
		return fmt.Errorf("read stock of %s: %w", it.ProductID, err)
	}
	return fmt.Errorf("only %d units of %q left: %w", stock, it.Name, domain.ErrInsufficientStock)
}

// creditStock returns a line's units to the catalog. Products deleted since
// the order was placed are skipped.
func creditStock(ctx context.Context, tx pgx.Tx, it domain.OrderItem) error {
	if _, err := tx.Exec(ctx, `
UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1
`, it.ProductID, it.Quantity); err != nil {
		return fmt.Errorf("credit stock of %s: %w", it.ProductID, err)
	}
	return nil
}

// lockCart reads the user's cart lines under the cart row lock, the same lock
// cart mutations take, so no line can change between the read and the clear.
func lockCart(ctx context.Context, tx pgx.Tx, userID string) (domain.Cart, error) {
	cart := domain.Cart{UserID: userID, Items: []domain.CartItem{}}
	err := tx.QueryRow(ctx, `SELECT id::text FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&cart.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return cart, nil
	}
	if err != nil {
		return cart, fmt.Errorf("lock cart of %s: %w", userID, err)
	}

	rows, err := tx.Query(ctx, `
SELECT id::text, product_id::text, name, image, quantity, price
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at ASC, id
`, cart.ID)
	if err != nil {
		return cart, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Name, &it.Image, &it.Quantity, &it.Price); err != nil {
			return cart, err
		}
		cart.Items = append(cart.Items, it)
	}
	if err := rows.Err(); err != nil {
		return cart, err
	}
	cart.Recalculate()
	return cart, nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, o domain.Order) (string, error) {
	var id string
	if err := tx.QueryRow(ctx, `
INSERT INTO orders (user_id, shipping_address, payment_method, items_price, tax_price, shipping_price,
    total_price, status, notes, placement_token, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $11)
RETURNING id::text
`, o.UserID, o.ShippingAddress, o.Payment.Method, o.ItemsPrice, o.TaxPrice, o.ShippingPrice,
		o.TotalPrice, o.Status, o.Notes, o.PlacementToken, o.CreatedAt).Scan(&id); err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	for i, it := range o.Items {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, position, product_id, name, image, quantity, price)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, id, i, it.ProductID, it.Name, it.Image, it.Quantity, it.Price); err != nil {
			return "", fmt.Errorf("insert order item: %w", err)
		}
	}
	if err := insertHistory(ctx, tx, id, o.StatusHistory); err != nil {
		return "", err
	}
	return id, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, orderID string, entries []domain.StatusChange) error {
	for _, h := range entries {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_status_history (order_id, status, note, created_at) VALUES ($1, $2, $3, $4)
`, orderID, h.Status, h.Note, h.Timestamp); err != nil {
			return fmt.Errorf("append status history: %w", err)
		}
	}
	return nil
}

func findByToken(ctx context.Context, q db.Querier, userID, token string) (*domain.Order, error) {
	var id string
	err := q.QueryRow(ctx, `SELECT id::text FROM orders WHERE user_id = $1 AND placement_token = $2`, userID, token).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return getOrder(ctx, q, id, false)
}

func getOrder(ctx context.Context, q db.Querier, id string, lock bool) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	if lock {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	orders := []domain.Order{o}
	if err := attachDetails(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func queryOrders(ctx context.Context, q db.Querier, query string, args ...any) ([]domain.Order, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachDetails(ctx, q, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachDetails loads line items and status history for a batch of orders.
func attachDetails(ctx context.Context, q db.Querier, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []domain.OrderItem{}
		orders[i].StatusHistory = []domain.StatusChange{}
	}

	rows, err := q.Query(ctx, `
SELECT order_id::text, product_id::text, name, image, quantity, price
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	for rows.Next() {
		var (
			orderID string
			it      domain.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Image, &it.Quantity, &it.Price); err != nil {
			rows.Close()
			return err
		}
		o := &orders[index[orderID]]
		o.Items = append(o.Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.Query(ctx, `
SELECT order_id::text, status, note, created_at
FROM order_status_history
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, id
`, ids)
	if err != nil {
		return fmt.Errorf("load status history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID string
			h       domain.StatusChange
		)
		if err := rows.Scan(&orderID, &h.Status, &h.Note, &h.Timestamp); err != nil {
			return err
		}
		o := &orders[index[orderID]]
		o.StatusHistory = append(o.StatusHistory, h)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.ShippingAddress,
		&o.Payment.Method,
		&o.Payment.ID,
		&o.Payment.Status,
		&o.ItemsPrice,
		&o.TaxPrice,
		&o.ShippingPrice,
		&o.TotalPrice,
		&o.Status,
		&o.IsPaid,
		&o.PaidAt,
		&o.IsDelivered,
		&o.DeliveredAt,
		&o.Notes,
		&o.TrackingNumber,
		&o.PlacementToken,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

// byProduct orders lines by product id so concurrent transactions lock
// product rows in the same order.
func byProduct(items []domain.OrderItem) []domain.OrderItem {
	sorted := make([]domain.OrderItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	return sorted
}
