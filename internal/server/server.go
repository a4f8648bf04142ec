// Package server exposes the storefront screens over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"storefront/internal/apiclient"
	"storefront/internal/domain"
	"storefront/internal/ratelimit"
	"storefront/internal/session"
	"storefront/internal/storefront"
	"storefront/internal/util"
	"storefront/internal/web"
)

const serviceName = "storefront"

// AuthAPI is the account part of the REST API.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (apiclient.AuthResult, error)
	Register(ctx context.Context, username, password string) error
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	Auth                     AuthAPI
	Screens                  *storefront.Registry
	Sessions                 *session.Accessor
	Renderer                 *web.Renderer
	TrustedProxies           *util.TrustedProxies
	RedisAddr                string
	RedisPassword            string
	SearchRateLimitPerMinute int
	AuthRateLimitPerMinute   int
}

// Server serves the storefront pages.
type Server struct {
	auth          AuthAPI
	screens       *storefront.Registry
	sessions      *session.Accessor
	render        *web.Renderer
	trusted       *util.TrustedProxies
	mux           *http.ServeMux
	searchLimiter *ratelimit.FixedWindowLimiter
	authLimiter   *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured. Per-session screens are
// dropped whenever a session logs out.
func New(cfg Config) (*Server, error) {
	if cfg.Auth == nil || cfg.Screens == nil || cfg.Sessions == nil || cfg.Renderer == nil {
		return nil, errors.New("server requires auth api, screens, sessions and renderer")
	}
	searchLimit := cfg.SearchRateLimitPerMinute
	if searchLimit <= 0 {
		searchLimit = 240
	}
	authLimit := cfg.AuthRateLimitPerMinute
	if authLimit <= 0 {
		authLimit = 10
	}
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "storefront:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	searchLimiter, err := newLimiter("search", searchLimit)
	if err != nil {
		return nil, err
	}
	authLimiter, err := newLimiter("auth", authLimit)
	if err != nil {
		return nil, err
	}
	s := &Server{
		auth:          cfg.Auth,
		screens:       cfg.Screens,
		sessions:      cfg.Sessions,
		render:        cfg.Renderer,
		trusted:       cfg.TrustedProxies,
		mux:           http.NewServeMux(),
		searchLimiter: searchLimiter,
		authLimiter:   authLimiter,
	}
	cfg.Sessions.Subscribe(cfg.Screens.Drop)
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	traced := otelhttp.NewHandler(s.mux, serviceName)
	return util.WithRequestID(util.WithRequestLog(serviceName, s.trusted, util.WithSecurityHeaders(traced)))
}

// Close releases the rate limiter connections.
func (s *Server) Close() error {
	return errors.Join(s.searchLimiter.Close(), s.authLimiter.Close())
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/static/", http.StripPrefix("/static/", web.StaticHandler()))

	// products screen
	s.mux.Handle("/", s.withSession(s.handleProducts))
	s.mux.Handle("/grid", s.withSession(s.handleGrid))
	s.mux.Handle("/screen", s.withSession(s.handleScreen))
	s.mux.Handle("/search/input", s.withSession(s.handleSearchInput))
	s.mux.Handle("/catalog/retry", s.withSession(s.handleCatalogRetry))

	// cart
	s.mux.Handle("/cart/add", s.withSession(s.handleCartAdd))
	s.mux.Handle("/cart/quantity", s.withSession(s.handleCartQuantity))

	// auth
	s.mux.Handle("/login", s.withSession(s.handleLogin))
	s.mux.Handle("/register", s.withSession(s.handleRegister))
	s.mux.Handle("/logout", s.withSession(s.handleLogout))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionHandler func(http.ResponseWriter, *http.Request, domain.Session)

func (s *Server) withSession(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Resolve(w, r)
		if err != nil {
			util.LoggerFromContext(r.Context()).Error("resolve session failed", "err", err)
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}
		next(w, r.WithContext(session.WithSession(r.Context(), sess)), sess)
	})
}

// screen returns the session's screen, loading it on first use.
func (s *Server) screen(ctx context.Context, sess domain.Session) *storefront.Screen {
	screen, created := s.screens.Screen(sess.ID)
	if created {
		if err := screen.Mount(ctx, sess); err != nil {
			util.LoggerFromContext(ctx).Warn("screen mount incomplete", "err", err)
		}
	}
	return screen
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trusted),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, key, msg string) bool {
	decision := limiter.Allow(r.Context(), r.URL.Path+"|"+key)
	if decision.Allowed {
		return true
	}
	retry := int(decision.RetryAfter.Round(time.Second) / time.Second)
	if retry < 1 {
		retry = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func renderHTML(w http.ResponseWriter, r *http.Request, status int, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		util.LoggerFromContext(r.Context()).Error("render page failed", "path", r.URL.Path, "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("encode json response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
