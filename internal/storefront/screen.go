package storefront

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/apiclient"
	"storefront/internal/debounce"
	"storefront/internal/domain"
	"storefront/internal/util"
)

// Shopper-facing messages.
const (
	MsgLoginToAdd         = "Login to add an item to the Cart"
	MsgAlreadyInCart      = "Item already in cart. Use the cart sidebar to update quantity or remove item."
	MsgSomethingWrong     = "Something went wrong"
	MsgCartUnreachable    = "Could not fetch cart details. Check that the backend is running, reachable and returns valid JSON."
	MsgCatalogUnreachable = "Could not fetch products. Check that the backend is running, reachable and returns valid JSON."
)

const searchTimeout = 15 * time.Second

// Options tunes a Screen.
type Options struct {
	DebounceWait time.Duration
	Clock        debounce.Clock
}

// Screen is the products screen state of one session.
type Screen struct {
	api API

	mu      sync.Mutex
	catalog []domain.Product
	entries []domain.CartEntry
	query   string
	loading bool
	empty   bool
	failed  bool
	notes   []domain.Notification
	// awaiting is set by a keystroke and cleared once the debounced search
	// it scheduled has started.
	awaiting bool
	// issued counts catalog and search requests; applied is the newest one
	// whose response reached the state.
	issued  uint64
	applied uint64

	debouncer *debounce.Debouncer
}

// NewScreen builds an idle screen.
func NewScreen(api API, opts Options) *Screen {
	s := &Screen{api: api}
	s.debouncer = debounce.New(opts.DebounceWait, opts.Clock, func(text string) {
		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()
		s.search(ctx, text, true)
	})
	return s
}

// Mount loads the catalog and, for signed-in sessions, the cart. The two
// fetches run concurrently and fail independently; the first failure is
// returned after both have settled.
func (s *Screen) Mount(ctx context.Context, sess domain.Session) error {
	var g errgroup.Group
	g.Go(func() error { return s.FetchCatalog(ctx) })
	g.Go(func() error { return s.FetchCart(ctx, sess) })
	return g.Wait()
}

// FetchCatalog replaces the catalog with the full product list.
func (s *Screen) FetchCatalog(ctx context.Context) error {
	s.mu.Lock()
	seq := s.beginLocked()
	s.mu.Unlock()
	return s.loadCatalog(ctx, seq)
}

func (s *Screen) loadCatalog(ctx context.Context, seq uint64) error {
	products, err := s.api.ListProducts(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.landLocked(seq) {
		return nil
	}
	if err != nil {
		s.failed = true
		s.pushLocked(domain.VariantError, MsgCatalogUnreachable)
		return fmt.Errorf("fetch catalog: %w", err)
	}
	s.catalog = products
	s.empty = false
	s.failed = false
	return nil
}

// FetchCart replaces the cart entries with the server's list. Anonymous
// sessions have no cart and make no call.
func (s *Screen) FetchCart(ctx context.Context, sess domain.Session) error {
	if !sess.Authenticated() {
		return nil
	}
	entries, err := s.api.GetCart(ctx, sess.Token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if msg, ok := apiclient.ClientErrorMessage(err); ok {
			s.pushLocked(domain.VariantError, msg)
		} else {
			s.pushLocked(domain.VariantError, MsgCartUnreachable)
		}
		return fmt.Errorf("fetch cart: %w", err)
	}
	s.entries = entries
	return nil
}

// Search filters the catalog on the server. Empty text restores the full
// catalog. A not-found answer empties the grid and is not retried.
func (s *Screen) Search(ctx context.Context, text string) {
	s.search(ctx, text, false)
}

// search runs a server search. A debounced run also settles the keystroke
// that scheduled it, under the same lock that marks the request loading, so
// a snapshot never sees the screen idle between the two.
func (s *Screen) search(ctx context.Context, text string, debounced bool) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if debounced {
		s.awaiting = false
	}
	s.query = text
	seq := s.beginLocked()
	s.mu.Unlock()

	logger := util.LoggerFromContext(ctx)
	if text == "" {
		if err := s.loadCatalog(ctx, seq); err != nil {
			logger.Warn("catalog fetch failed", "err", err)
		}
		return
	}

	products, err := s.api.SearchProducts(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.landLocked(seq) {
		logger.Debug("discarding stale search response", "query", text, "seq", seq)
		return
	}
	switch {
	case err == nil:
		s.catalog = products
		s.empty = false
		s.failed = false
	case apiclient.IsNotFound(err):
		s.catalog = nil
		s.empty = true
		s.failed = false
	default:
		logger.Warn("search failed", "query", text, "err", err)
		s.pushLocked(domain.VariantError, MsgCatalogUnreachable)
	}
}

// DebounceSearch records a keystroke and schedules a search once typing
// pauses.
func (s *Screen) DebounceSearch(text string) {
	s.mu.Lock()
	s.query = text
	s.awaiting = true
	s.mu.Unlock()
	s.debouncer.Trigger(text)
}

// AddToCart adds a product from the catalog grid. Anonymous sessions and
// products already in the cart are refused without calling the API.
func (s *Screen) AddToCart(ctx context.Context, sess domain.Session, productID string, qty int) {
	if !sess.Authenticated() {
		s.Notify(domain.VariantWarning, MsgLoginToAdd)
		return
	}
	s.mu.Lock()
	if domain.IsItemInCart(s.entries, productID) {
		s.pushLocked(domain.VariantWarning, MsgAlreadyInCart)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.postCart(ctx, sess, productID, qty)
}

// UpdateQuantity sets the quantity of a cart line. Zero removes it.
func (s *Screen) UpdateQuantity(ctx context.Context, sess domain.Session, productID string, qty int) {
	if !sess.Authenticated() {
		s.Notify(domain.VariantWarning, MsgLoginToAdd)
		return
	}
	if qty < 0 {
		qty = 0
	}
	s.postCart(ctx, sess, productID, qty)
}

func (s *Screen) postCart(ctx context.Context, sess domain.Session, productID string, qty int) {
	entries, err := s.api.AddToCart(ctx, sess.Token, productID, qty)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		util.LoggerFromContext(ctx).Warn("cart update failed", "product_id", productID, "err", err)
		s.pushLocked(domain.VariantError, MsgSomethingWrong)
		return
	}
	s.entries = entries
}

// Close stops any pending debounced search.
func (s *Screen) Close() {
	s.debouncer.Cancel()
	s.mu.Lock()
	s.awaiting = false
	s.mu.Unlock()
}

// Notify queues a message for the next render.
func (s *Screen) Notify(variant domain.NotificationVariant, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushLocked(variant, msg)
}

func (s *Screen) pushLocked(variant domain.NotificationVariant, msg string) {
	s.notes = append(s.notes, domain.Notification{Variant: variant, Message: msg})
}

// beginLocked issues the next catalog or search sequence number and marks
// the grid loading.
func (s *Screen) beginLocked() uint64 {
	s.issued++
	s.loading = true
	return s.issued
}

// landLocked reports whether the response for seq is still the newest one
// and, if so, records it. Loading ends when the latest request lands.
func (s *Screen) landLocked(seq uint64) bool {
	if seq <= s.applied {
		return false
	}
	s.applied = seq
	if seq == s.issued {
		s.loading = false
	}
	return true
}
