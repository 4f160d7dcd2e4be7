package user

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

const userColumns = `id::text, name, email, password_hash, role, is_active, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("user_repo")}
}

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}
	q := fmt.Sprintf(`
INSERT INTO users (name, email, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING %s
`, userColumns)
	created, err := r.scanUser(r.pool.QueryRow(ctx, q, u.Name, strings.ToLower(u.Email), u.PasswordHash, role))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("email %s: %w", u.Email, domain.ErrAlreadyExists)
		}
		return nil, err
	}
	r.logger.Info("user created", zap.String("userID", created.ID), zap.String("role", string(created.Role)))
	return created, nil
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE email = lower($1) LIMIT 1`, userColumns)
	return r.scanUser(r.pool.QueryRow(ctx, q, strings.TrimSpace(email)))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !domain.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	q := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) List(ctx context.Context, page domain.Page, search string) ([]domain.User, int, error) {
	pattern := "%"
	if s := strings.TrimSpace(search); s != "" {
		pattern = "%" + escapeLike(s) + "%"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM users WHERE name ILIKE $1 OR email ILIKE $1
`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	q := fmt.Sprintf(`
SELECT %s
FROM users
WHERE name ILIKE $1 OR email ILIKE $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3
`, userColumns)
	rows, err := r.pool.Query(ctx, q, pattern, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *postgresRepo) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	if !domain.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	q := fmt.Sprintf(`UPDATE users SET role = $2, updated_at = now() WHERE id = $1 RETURNING %s`, userColumns)
	u, err := r.scanUser(r.pool.QueryRow(ctx, q, id, role))
	if err != nil {
		return nil, err
	}
	r.logger.Info("user role changed", zap.String("userID", id), zap.String("role", string(role)))
	return u, nil
}

func (r *postgresRepo) Deactivate(ctx context.Context, id string) error {
	if !domain.ValidID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("user deactivated", zap.String("userID", id))
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	if !domain.ValidID(id) {
		return domain.ErrNotFound
	}
	var reviewed []string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT product_id::text FROM product_reviews WHERE user_id = $1`, id)
		if err != nil {
			return fmt.Errorf("list reviews of %s: %w", id, err)
		}
		if reviewed, err = pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
			return fmt.Errorf("list reviews of %s: %w", id, err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return fmt.Errorf("user %s has orders: %w", id, domain.ErrInvalidState)
			}
			return fmt.Errorf("delete user %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		if len(reviewed) == 0 {
			return nil
		}
		// Reviews went with the user; refresh the aggregates they fed.
		if _, err := tx.Exec(ctx, `
UPDATE products p
SET rating = COALESCE((SELECT ROUND(AVG(r.rating)::numeric, 1) FROM product_reviews r WHERE r.product_id = p.id), 0),
    num_reviews = (SELECT COUNT(*) FROM product_reviews r WHERE r.product_id = p.id),
    updated_at = now()
WHERE p.id = ANY($1::uuid[])
`, reviewed); err != nil {
			return fmt.Errorf("refresh ratings: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Info("user deleted", zap.String("userID", id), zap.Int("reviews", len(reviewed)))
	return nil
}

func (r *postgresRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
