package domain

import "github.com/shopspring/decimal"

// BuildLineItems joins cart entries against the catalog by product id.
// Entries whose product is not in the catalog are dropped; entry order is kept.
func BuildLineItems(entries []CartEntry, catalog []Product) []CartLineItem {
	byID := make(map[string]Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}
	items := make([]CartLineItem, 0, len(entries))
	for _, e := range entries {
		p, ok := byID[e.ProductID]
		if !ok {
			continue
		}
		items = append(items, CartLineItem{Product: p, Qty: e.Qty})
	}
	return items
}

// CartTotal sums the subtotals of the given line items.
func CartTotal(items []CartLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount sums quantities across line items.
func ItemCount(items []CartLineItem) int {
	n := 0
	for _, item := range items {
		n += item.Qty
	}
	return n
}

// IsItemInCart reports whether productID already has an entry.
func IsItemInCart(entries []CartEntry, productID string) bool {
	for _, e := range entries {
		if e.ProductID == productID {
			return true
		}
	}
	return false
}
