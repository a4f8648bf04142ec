package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/util"
	"storefront/internal/web"
)

const maxFormBytes = 64 << 10

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	screen := s.screen(r.Context(), sess)
	if q := r.URL.Query(); q.Has("q") {
		screen.Search(r.Context(), q.Get("q"))
	}
	view := screen.View(sess)
	page := web.ProductsPage{
		Header: web.NewHeaderView(false, sess, &web.SearchBox{Query: view.Query}),
		View:   view,
	}
	renderHTML(w, r, http.StatusOK, func(out io.Writer) error {
		return s.render.Products(out, page)
	})
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	page := web.ProductsPage{View: s.screen(r.Context(), sess).View(sess)}
	renderHTML(w, r, http.StatusOK, func(out io.Writer) error {
		return s.render.Grid(out, page)
	})
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, s.screen(r.Context(), sess).Snapshot(sess))
}

func (s *Server) handleSearchInput(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !s.allowRate(w, r, s.searchLimiter, sess.ID, "too many search requests") {
		return
	}
	if !parseForm(w, r) {
		return
	}
	s.screen(r.Context(), sess).DebounceSearch(r.PostForm.Get("value"))
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleCatalogRetry(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	screen, created := s.screens.Screen(sess.ID)
	var err error
	if created {
		err = screen.Mount(r.Context(), sess)
	} else {
		err = screen.FetchCatalog(r.Context())
	}
	if err != nil {
		util.LoggerFromContext(r.Context()).Warn("catalog retry failed", "err", err)
	}
	redirectHome(w, r)
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !parseForm(w, r) {
		return
	}
	productID := strings.TrimSpace(r.PostForm.Get("productId"))
	if productID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	s.screen(r.Context(), sess).AddToCart(r.Context(), sess, productID, 1)
	redirectHome(w, r)
}

func (s *Server) handleCartQuantity(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !parseForm(w, r) {
		return
	}
	productID := strings.TrimSpace(r.PostForm.Get("productId"))
	qty, qtyErr := strconv.Atoi(r.PostForm.Get("qty"))
	delta, deltaErr := strconv.Atoi(r.PostForm.Get("delta"))
	if productID == "" || qtyErr != nil || deltaErr != nil {
		writeError(w, http.StatusBadRequest, "productId, qty and delta are required")
		return
	}
	s.screen(r.Context(), sess).UpdateQuantity(r.Context(), sess, productID, qty+delta)
	redirectHome(w, r)
}

func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return false
	}
	return true
}
