package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rl1809/supply-ledger/internal/core/domain"
	"github.com/rl1809/supply-ledger/internal/port"
)

var ErrInvalidToken = errors.New("invalid token")

type tokenClaims struct {
	Role domain.Role `json:"user_type"`
	jwt.RegisteredClaims
}

// JWTManager issues HS256 access tokens. Every token carries a random jti so
// that it can be revoked individually on logout.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

var _ port.TokenManager = (*JWTManager)(nil)

func NewJWTManager(secret, issuer string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *JWTManager) Issue(u domain.User) (string, domain.Claims, error) {
	now := m.now()
	claims := tokenClaims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(u.ID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", domain.Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, toDomain(claims), nil
}

func (m *JWTManager) Parse(token string) (domain.Claims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return domain.Claims{}, fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}
	if _, err := strconv.ParseInt(claims.Subject, 10, 64); err != nil {
		return domain.Claims{}, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return toDomain(claims), nil
}

func toDomain(c tokenClaims) domain.Claims {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return domain.Claims{
		TokenID:   c.ID,
		UserID:    id,
		Role:      c.Role,
		ExpiresAt: c.ExpiresAt.Time,
	}
}
