package port

import (
	"context"
	"time"
)

type TokenBlocklist interface {
	// Revoke marks tokenID as unusable for ttl. Revoking twice is not an error.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error

	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
