// Package session keeps the shopper's Session (API token and username)
// server-side, keyed by an id carried in a signed cookie.
package session

import (
	"context"

	"storefront/internal/domain"
)

// Store persists sessions by id.
type Store interface {
	Get(ctx context.Context, id string) (domain.Session, bool, error)
	Save(ctx context.Context, s domain.Session) error
	Clear(ctx context.Context, id string) error
}
