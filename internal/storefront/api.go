// Package storefront holds the per-session products screen: catalog, cart,
// search and the add-to-cart flow.
package storefront

import (
	"context"

	"storefront/internal/domain"
)

// API is the subset of the REST API the products screen calls.
type API interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	SearchProducts(ctx context.Context, text string) ([]domain.Product, error)
	GetCart(ctx context.Context, token string) ([]domain.CartEntry, error)
	AddToCart(ctx context.Context, token, productID string, qty int) ([]domain.CartEntry, error)
}
