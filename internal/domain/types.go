package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a catalog item as returned by the storefront API.
type Product struct {
	ID       string          `json:"_id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Cost     decimal.Decimal `json:"cost"`
	Rating   int             `json:"rating"`
	Image    string          `json:"image"`
}

// CartEntry is the server-held (productId, qty) pair.
type CartEntry struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// CartLineItem joins a cart entry with its product for display and pricing.
type CartLineItem struct {
	Product Product `json:"product"`
	Qty     int     `json:"qty"`
}

// Subtotal returns cost * qty.
func (i CartLineItem) Subtotal() decimal.Decimal {
	return i.Product.Cost.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Session is the shopper's record of whether, and as whom, they are logged in.
type Session struct {
	ID       string `json:"-"`
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
}

// Authenticated reports whether the session carries an API token.
func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}

// NotificationVariant mirrors the snackbar severities shown to the shopper.
type NotificationVariant string

const (
	VariantSuccess NotificationVariant = "success"
	VariantWarning NotificationVariant = "warning"
	VariantError   NotificationVariant = "error"
)

// Notification is a transient message surfaced once on the next render.
type Notification struct {
	Variant NotificationVariant `json:"variant"`
	Message string              `json:"message"`
}
