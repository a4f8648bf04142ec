package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"storefront/internal/apiclient"
	"storefront/internal/domain"
	"storefront/internal/util"
	"storefront/internal/web"
)

const (
	minUsernameLength = 6
	minPasswordLength = 6

	msgBackendUnreachable = "Something went wrong. Check that the backend is running, reachable and returns valid JSON."
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	switch r.Method {
	case http.MethodGet:
		s.renderAuth(w, r, http.StatusOK, sess, web.AuthPage{})
	case http.MethodPost:
		s.login(w, r, sess)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if !s.allowRate(w, r, s.authLimiter, util.ClientIP(r, s.trusted), "too many login attempts") {
		s.audit(r, "storefront.login", "rate_limited")
		return
	}
	if !parseForm(w, r) {
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	page := web.AuthPage{Username: username}
	if username == "" || password == "" {
		page.Error = "Username and password are required"
		s.renderAuth(w, r, http.StatusBadRequest, sess, page)
		return
	}

	res, err := s.auth.Login(r.Context(), username, password)
	if err != nil {
		s.audit(r, "storefront.login", "fail", "reason", err.Error())
		status, msg := authFailure(err)
		page.Error = msg
		s.renderAuth(w, r, status, sess, page)
		return
	}
	if res.Username == "" {
		res.Username = username
	}
	signed, err := s.sessions.SignIn(r.Context(), w, sess, res.Token, res.Username)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("store session failed", "err", err)
		page.Error = msgBackendUnreachable
		s.renderAuth(w, r, http.StatusServiceUnavailable, sess, page)
		return
	}
	s.audit(r, "storefront.login", "success", "username", res.Username)

	// The pre-login screen went with the old id; this one loads the cart too.
	screen := s.screen(r.Context(), signed)
	screen.Notify(domain.VariantSuccess, "Logged in successfully")
	redirectHome(w, r)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	switch r.Method {
	case http.MethodGet:
		s.renderAuth(w, r, http.StatusOK, sess, web.AuthPage{Register: true})
	case http.MethodPost:
		s.register(w, r, sess)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if !s.allowRate(w, r, s.authLimiter, util.ClientIP(r, s.trusted), "too many register attempts") {
		s.audit(r, "storefront.register", "rate_limited")
		return
	}
	if !parseForm(w, r) {
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	page := web.AuthPage{Register: true, Username: username}
	if msg := validateRegistration(username, r.PostForm.Get("password"), r.PostForm.Get("confirmPassword")); msg != "" {
		page.Error = msg
		s.renderAuth(w, r, http.StatusBadRequest, sess, page)
		return
	}
	if err := s.auth.Register(r.Context(), username, r.PostForm.Get("password")); err != nil {
		s.audit(r, "storefront.register", "fail", "reason", err.Error())
		status, msg := authFailure(err)
		page.Error = msg
		s.renderAuth(w, r, status, sess, page)
		return
	}
	s.audit(r, "storefront.register", "success", "username", username)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := s.sessions.Logout(r.Context(), w, sess); err != nil {
		s.audit(r, "storefront.logout", "fail", "reason", err.Error())
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	s.audit(r, "storefront.logout", "success", "username", sess.Username)
	redirectHome(w, r)
}

func (s *Server) renderAuth(w http.ResponseWriter, r *http.Request, status int, sess domain.Session, page web.AuthPage) {
	page.Header = web.NewHeaderView(true, sess, nil)
	renderHTML(w, r, status, func(out io.Writer) error {
		return s.render.Auth(out, page)
	})
}

// validateRegistration returns the first problem with the form, or "".
func validateRegistration(username, password, confirm string) string {
	switch {
	case username == "":
		return "Username is a required field"
	case len(username) < minUsernameLength:
		return "Username must be at least 6 characters"
	case password == "":
		return "Password is a required field"
	case len(password) < minPasswordLength:
		return "Password must be at least 6 characters"
	case password != confirm:
		return "Passwords do not match"
	default:
		return ""
	}
}

// authFailure maps an API error to the page status and message. API
// messages on 4xx answers are shown as is.
func authFailure(err error) (int, string) {
	var apiErr *apiclient.APIError
	if msg, ok := apiclient.ClientErrorMessage(err); ok && errors.As(err, &apiErr) {
		return apiErr.Status, msg
	}
	return http.StatusBadGateway, msgBackendUnreachable
}
