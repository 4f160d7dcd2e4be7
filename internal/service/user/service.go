package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/logging"
	userrepo "storefront/internal/repository/user"
)

const (
	minPasswordLen = 6
	maxNameLen     = 50
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
)

// Service handles registration, login and token verification.
type Service struct {
	repo   userrepo.Repository
	tokens *tokenManager
	logger *zap.Logger
}

func New(repo userrepo.Repository, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: newTokenManager(jwtSecret, tokenTTL),
		logger: logging.OrNop(logger).Named("user"),
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the result of a successful login.
type Session struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Register creates a user account with role user and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case name == "":
		return nil, fmt.Errorf("name required: %w", domain.ErrValidation)
	case len([]rune(name)) > maxNameLen:
		return nil, fmt.Errorf("name cannot exceed %d characters: %w", maxNameLen, domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, fmt.Errorf("valid email required: %w", domain.ErrValidation)
	}
	if err := validatePassword(in.Password, minPasswordLen); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.Create(ctx, domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         domain.RoleUser,
	})
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

// Login validates credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, fmt.Errorf("account deactivated: %w", domain.ErrUnauthorized)
	}
	s.logger.Info("login", zap.String("userID", u.ID))
	return s.session(u)
}

// Authenticate verifies an access token and returns the caller it names.
// The role comes from the stored account, so demotions apply immediately.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	userID, _, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Identity{}, err
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Identity{}, ErrInvalidToken
		}
		return domain.Identity{}, err
	}
	if !u.IsActive {
		return domain.Identity{}, fmt.Errorf("account deactivated: %w", domain.ErrUnauthorized)
	}
	return u.Identity(), nil
}

func (s *Service) Me(ctx context.Context, caller domain.Identity) (*domain.User, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.GetByID(ctx, caller.UserID)
}

func (s *Service) session(u *domain.User) (*Session, error) {
	token, exp, err := s.tokens.Issue(*u)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token, ExpiresAt: exp}, nil
}

func validatePassword(p string, minLen int) error {
	if len([]rune(p)) < minLen {
		return fmt.Errorf("password must be at least %d characters: %w", minLen, domain.ErrValidation)
	}
	return nil
}
