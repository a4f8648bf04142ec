// Package web renders the storefront screens with html/template.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/storefront"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const maxRating = 5

// HeaderMode selects the header's action cluster.
type HeaderMode string

const (
	HeaderBack  HeaderMode = "back"
	HeaderUser  HeaderMode = "user"
	HeaderGuest HeaderMode = "guest"
)

// SearchBox is the search input injected into the header slot.
type SearchBox struct {
	Query string
}

// HeaderView is the header's render model.
type HeaderView struct {
	Mode     HeaderMode
	Username string
	Search   *SearchBox
}

// NewHeaderView picks exactly one action cluster. Back mode wins over the
// session; the user cluster needs a username to show and a token behind it.
func NewHeaderView(isBackMode bool, sess domain.Session, search *SearchBox) HeaderView {
	h := HeaderView{Search: search}
	switch {
	case isBackMode:
		h.Mode = HeaderBack
	case strings.TrimSpace(sess.Username) != "" && sess.Authenticated():
		h.Mode = HeaderUser
		h.Username = sess.Username
	default:
		h.Mode = HeaderGuest
	}
	return h
}

func (h HeaderView) IsBack() bool { return h.Mode == HeaderBack }
func (h HeaderView) IsUser() bool { return h.Mode == HeaderUser }

// ProductsPage is the data for the products screen.
type ProductsPage struct {
	Header HeaderView
	View   storefront.View
}

// AuthPage is the data for the login and register screens.
type AuthPage struct {
	Header   HeaderView
	Register bool
	Username string
	Error    string
}

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("storefront").Funcs(template.FuncMap{
		"currency": FormatCurrency,
		"stars":    Stars,
		"initial":  initial,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Products renders the full products screen.
func (r *Renderer) Products(w io.Writer, page ProductsPage) error {
	return r.tmpl.ExecuteTemplate(w, "products", page)
}

// Grid renders only the product grid and notifications, for in-place refresh.
func (r *Renderer) Grid(w io.Writer, page ProductsPage) error {
	return r.tmpl.ExecuteTemplate(w, "grid", page)
}

// Auth renders the login or register screen.
func (r *Renderer) Auth(w io.Writer, page AuthPage) error {
	return r.tmpl.ExecuteTemplate(w, "auth", page)
}

// StaticHandler serves the embedded stylesheet and script.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

// FormatCurrency renders a cost as dollars with cents.
func FormatCurrency(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Stars returns maxRating flags, true for each filled star.
func Stars(rating int) []bool {
	out := make([]bool, maxRating)
	for i := range out {
		out[i] = i < rating
	}
	return out
}

func initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return strings.ToUpper(string(r))
}
