package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
	dashboardrepo "storefront/internal/repository/dashboard"
	userrepo "storefront/internal/repository/user"
)

const DefaultUserLimit = 10

// Service exposes store-wide administration. Every call requires an admin.
type Service struct {
	dashboard dashboardrepo.Repository
	users     userrepo.Repository
	logger    *zap.Logger
	now       func() time.Time
}

func New(dashboard dashboardrepo.Repository, users userrepo.Repository, logger *zap.Logger) *Service {
	return &Service{
		dashboard: dashboard,
		users:     users,
		logger:    logging.OrNop(logger).Named("admin"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Stats(ctx context.Context, caller domain.Identity) (*domain.DashboardStats, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.dashboard.Stats(ctx, s.now())
}

func (s *Service) ListUsers(ctx context.Context, caller domain.Identity, page, limit int, search string) ([]domain.User, domain.Pagination, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, domain.Pagination{}, err
	}
	p := domain.NewPage(page, limit, DefaultUserLimit)
	users, total, err := s.users.List(ctx, p, search)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return users, p.Result(total), nil
}

func (s *Service) UpdateUserRole(ctx context.Context, caller domain.Identity, userID, role string) (*domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	r := domain.Role(strings.ToLower(strings.TrimSpace(role)))
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", role, domain.ErrValidation)
	}
	u, err := s.users.UpdateRole(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	s.logger.Info("role updated", zap.String("userID", userID), zap.String("role", string(r)), zap.String("by", caller.UserID))
	return u, nil
}

// DeactivateUser disables an account. Admins cannot deactivate themselves.
func (s *Service) DeactivateUser(ctx context.Context, caller domain.Identity, userID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if userID == caller.UserID {
		return fmt.Errorf("cannot deactivate own account: %w", domain.ErrInvalidState)
	}
	if err := s.users.Deactivate(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user deactivated", zap.String("userID", userID), zap.String("by", caller.UserID))
	return nil
}

// DeleteUser removes an account that has never ordered. Accounts with orders
// keep their history and can only be deactivated.
func (s *Service) DeleteUser(ctx context.Context, caller domain.Identity, userID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if userID == caller.UserID {
		return fmt.Errorf("cannot delete own account: %w", domain.ErrInvalidState)
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("userID", userID), zap.String("by", caller.UserID))
	return nil
}

func requireAdmin(caller domain.Identity) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("admin access required: %w", domain.ErrForbidden)
	}
	return nil
}
