package storefront

import (
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// View is a render snapshot of a Screen.
type View struct {
	Username      string                `json:"username,omitempty"`
	LoggedIn      bool                  `json:"loggedIn"`
	Query         string                `json:"query"`
	Products      []domain.Product      `json:"products"`
	Loading       bool                  `json:"loading"`
	Empty         bool                  `json:"empty"`
	Failed        bool                  `json:"failed"`
	ShowCart      bool                  `json:"showCart"`
	Cart          []domain.CartLineItem `json:"cart"`
	ItemCount     int                   `json:"itemCount"`
	Total         decimal.Decimal       `json:"total"`
	Pending       bool                  `json:"searchPending"`
	Notifications []domain.Notification `json:"notifications"`
}

// View snapshots the screen for sess and drains queued notifications.
func (s *Screen) View(sess domain.Session) View {
	return s.snapshot(sess, true)
}

// Snapshot is View without draining notifications.
func (s *Screen) Snapshot(sess domain.Session) View {
	return s.snapshot(sess, false)
}

// snapshot rebuilds cart line items from the current catalog and entries.
func (s *Screen) snapshot(sess domain.Session, drain bool) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Username:      sess.Username,
		LoggedIn:      sess.Authenticated(),
		Query:         s.query,
		Products:      append([]domain.Product(nil), s.catalog...),
		Loading:       s.loading,
		Empty:         s.empty,
		Failed:        s.failed,
		Pending:       s.awaiting,
		Notifications: append([]domain.Notification(nil), s.notes...),
	}
	if drain {
		s.notes = nil
	}
	if v.LoggedIn {
		v.ShowCart = true
		v.Cart = domain.BuildLineItems(s.entries, s.catalog)
		v.ItemCount = domain.ItemCount(v.Cart)
		v.Total = domain.CartTotal(v.Cart)
	}
	return v
}

// CartEntries returns a copy of the server-held cart entries.
func (s *Screen) CartEntries() []domain.CartEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartEntry(nil), s.entries...)
}
