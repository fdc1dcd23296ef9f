package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rl1809/supply-ledger/internal/core/domain"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "supply-ledger", time.Hour)
	u := domain.User{ID: 42, Role: domain.RoleSupplier}

	token, issued, err := m.Issue(u)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UserID != 42 || claims.Role != domain.RoleSupplier {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.TokenID == "" || claims.TokenID != issued.TokenID {
		t.Errorf("expected jti %q, got %q", issued.TokenID, claims.TokenID)
	}
}

func TestJWTManager_UniqueTokenIDs(t *testing.T) {
	m := NewJWTManager("secret", "supply-ledger", time.Hour)
	_, a, _ := m.Issue(domain.User{ID: 1})
	_, b, _ := m.Issue(domain.User{ID: 1})
	if a.TokenID == b.TokenID {
		t.Error("two tokens share a jti")
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("secret", "supply-ledger", time.Hour)
	token, _, err := m.Issue(domain.User{ID: 1, Role: domain.RoleWarehouseManager})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	expired := NewJWTManager("secret", "supply-ledger", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "1", Issuer: "supply-ledger", ID: "x",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := []struct {
		name  string
		m     *JWTManager
		token string
	}{
		{"wrong secret", NewJWTManager("other", "supply-ledger", time.Hour), token},
		{"wrong issuer", NewJWTManager("secret", "someone-else", time.Hour), token},
		{"expired", expired, token},
		{"alg none", m, none},
		{"garbage", m, "not.a.token"},
	}
	for _, tc := range cases {
		if _, err := tc.m.Parse(tc.token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", tc.name, err)
		}
	}
}
