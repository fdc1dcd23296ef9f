package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/supply-ledger/internal/core/domain"
	"github.com/rl1809/supply-ledger/internal/port"
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Session struct {
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

type AuthService struct {
	users     port.UserRepository
	tokens    port.TokenManager
	blocklist port.TokenBlocklist
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthService(users port.UserRepository, tokens port.TokenManager, blocklist port.TokenBlocklist, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		blocklist: blocklist,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := check(in).OrNil(); err != nil {
		return nil, err
	}

	u, err := s.users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(*u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return &Session{Token: token, TokenType: "Bearer", ExpiresAt: claims.ExpiresAt, User: *u}, nil
}

// Logout revokes the token behind claims for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims domain.Claims) error {
	ttl := claims.ExpiresAt.Sub(s.now())
	if err := s.blocklist.Revoke(ctx, claims.TokenID, ttl); err != nil {
		return err
	}
	s.logger.Info("user logged out", zap.Int64("user_id", claims.UserID))
	return nil
}

// Authenticate resolves a bearer token to the current state of its user, so
// role changes and deletions apply to tokens issued before them.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.User, domain.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.User{}, domain.Claims{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	revoked, err := s.blocklist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return domain.User{}, domain.Claims{}, err
	}
	if revoked {
		return domain.User{}, domain.Claims{}, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}

	u, err := s.users.GetUser(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, domain.Claims{}, fmt.Errorf("%w: user %d no longer exists", ErrUnauthenticated, claims.UserID)
	}
	if err != nil {
		return domain.User{}, domain.Claims{}, fmt.Errorf("load user: %w", err)
	}
	return *u, claims, nil
}
