package port

import "github.com/rl1809/supply-ledger/internal/core/domain"

type TokenManager interface {
	// Issue signs an access token for u.
	Issue(u domain.User) (string, domain.Claims, error)

	// Parse verifies signature, issuer and expiry of token.
	Parse(token string) (domain.Claims, error)
}
