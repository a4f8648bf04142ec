package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, cost float64) Product {
	return Product{ID: id, Name: "item " + id, Category: "misc", Cost: decimal.NewFromFloat(cost), Rating: 3}
}

func TestBuildLineItems(t *testing.T) {
	testCases := []struct {
		name    string
		entries []CartEntry
		catalog []Product
		wantIDs []string
		wantQty []int
	}{
		{
			name:    "drops entries missing from catalog",
			entries: []CartEntry{{ProductID: "a", Qty: 2}, {ProductID: "b", Qty: 1}},
			catalog: []Product{product("a", 10), product("c", 5)},
			wantIDs: []string{"a"},
			wantQty: []int{2},
		},
		{
			name:    "keeps entry order over catalog order",
			entries: []CartEntry{{ProductID: "c", Qty: 1}, {ProductID: "a", Qty: 4}},
			catalog: []Product{product("a", 10), product("c", 5)},
			wantIDs: []string{"c", "a"},
			wantQty: []int{1, 4},
		},
		{
			name:    "empty cart",
			entries: nil,
			catalog: []Product{product("a", 10)},
			wantIDs: []string{},
			wantQty: []int{},
		},
		{
			name:    "empty catalog",
			entries: []CartEntry{{ProductID: "a", Qty: 1}},
			catalog: nil,
			wantIDs: []string{},
			wantQty: []int{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			items := BuildLineItems(tc.entries, tc.catalog)
			ids := make([]string, 0, len(items))
			qty := make([]int, 0, len(items))
			for _, item := range items {
				ids = append(ids, item.Product.ID)
				qty = append(qty, item.Qty)
			}
			assert.Equal(t, tc.wantIDs, ids)
			assert.Equal(t, tc.wantQty, qty)
		})
	}
}

func TestBuildLineItemsIsIdempotent(t *testing.T) {
	entries := []CartEntry{{ProductID: "a", Qty: 2}, {ProductID: "c", Qty: 1}}
	catalog := []Product{product("a", 10), product("c", 5)}

	first := BuildLineItems(entries, catalog)
	second := BuildLineItems(entries, catalog)
	assert.Equal(t, first, second)
	assert.Equal(t, []CartEntry{{ProductID: "a", Qty: 2}, {ProductID: "c", Qty: 1}}, entries)
}

func TestCartTotalAndItemCount(t *testing.T) {
	items := BuildLineItems(
		[]CartEntry{{ProductID: "a", Qty: 2}, {ProductID: "c", Qty: 3}},
		[]Product{product("a", 10.25), product("c", 0.1)},
	)
	assert.Equal(t, "20.80", CartTotal(items).StringFixed(2))
	assert.Equal(t, 5, ItemCount(items))
	assert.True(t, CartTotal(nil).IsZero())
}

func TestIsItemInCart(t *testing.T) {
	entries := []CartEntry{{ProductID: "x", Qty: 1}}
	assert.True(t, IsItemInCart(entries, "x"))
	assert.False(t, IsItemInCart(entries, "y"))
	assert.False(t, IsItemInCart(nil, "x"))
}

func TestProductDecodesAPIShape(t *testing.T) {
	raw := `{"name":"iPhone XR","category":"Phones","cost":100,"rating":4,"image":"https://i.imgur.com/lulqWzW.jpg","_id":"v4sLtEcMpzabRyfx"}`
	var p Product
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, "v4sLtEcMpzabRyfx", p.ID)
	assert.Equal(t, "100", p.Cost.String())
	assert.Equal(t, 4, p.Rating)
}

func TestSessionAuthenticated(t *testing.T) {
	assert.False(t, Session{}.Authenticated())
	assert.False(t, Session{Token: "  "}.Authenticated())
	assert.True(t, Session{Token: "t", Username: "crio"}.Authenticated())
}
