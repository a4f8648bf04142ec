package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

const defaultCookieName = "storefront_session"

// AccessorConfig wires an Accessor.
type AccessorConfig struct {
	Store        Store
	Codec        *CookieCodec
	CookieName   string
	CookieSecure bool
}

// Accessor reads and clears the Session of an HTTP request.
// Holders of per-session state subscribe to be told when a session ends.
type Accessor struct {
	store      Store
	codec      *CookieCodec
	cookieName string
	secure     bool

	mu          sync.RWMutex
	subscribers []func(sessionID string)
}

// NewAccessor builds an Accessor.
func NewAccessor(cfg AccessorConfig) (*Accessor, error) {
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Codec == nil {
		return nil, errors.New("session cookie codec is required")
	}
	name := strings.TrimSpace(cfg.CookieName)
	if name == "" {
		name = defaultCookieName
	}
	return &Accessor{
		store:      cfg.Store,
		codec:      cfg.Codec,
		cookieName: name,
		secure:     cfg.CookieSecure,
	}, nil
}

// Subscribe registers fn to run after a session ends, either on logout or
// when sign-in replaces it with a fresh id.
func (a *Accessor) Subscribe(fn func(sessionID string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// Resolve returns the request's session, issuing a fresh anonymous one when
// the cookie is absent or fails verification.
func (a *Accessor) Resolve(w http.ResponseWriter, r *http.Request) (domain.Session, error) {
	if cookie, err := r.Cookie(a.cookieName); err == nil {
		id, err := a.codec.Decode(cookie.Value)
		if err == nil {
			sess, ok, err := a.store.Get(r.Context(), id)
			if err != nil {
				return domain.Session{}, fmt.Errorf("load session: %w", err)
			}
			if !ok {
				return domain.Session{ID: id}, nil
			}
			sess.ID = id
			return sess, nil
		}
		slog.Debug("rejecting session cookie", "err", err)
	}
	id := uuid.NewString()
	if err := a.setCookie(w, id); err != nil {
		return domain.Session{}, err
	}
	return domain.Session{ID: id}, nil
}

// SignIn stores the API token and username under a new session id and
// points the cookie at it. The pre-login id is cleared so a cookie issued
// before authentication never carries the signed-in state.
func (a *Accessor) SignIn(ctx context.Context, w http.ResponseWriter, prev domain.Session, token, username string) (domain.Session, error) {
	sess := domain.Session{ID: uuid.NewString(), Token: token, Username: username}
	if err := a.store.Save(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	if err := a.setCookie(w, sess.ID); err != nil {
		return domain.Session{}, err
	}
	if prev.ID != "" {
		if err := a.store.Clear(ctx, prev.ID); err != nil {
			slog.Warn("clear pre-login session failed", "err", err)
		}
		a.notify(prev.ID)
	}
	return sess, nil
}

// Logout clears token and username together, expires the cookie and
// notifies subscribers.
func (a *Accessor) Logout(ctx context.Context, w http.ResponseWriter, sess domain.Session) error {
	if err := a.store.Clear(ctx, sess.ID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	a.notify(sess.ID)
	return nil
}

func (a *Accessor) notify(sessionID string) {
	a.mu.RLock()
	subs := append([]func(string){}, a.subscribers...)
	a.mu.RUnlock()
	for _, fn := range subs {
		fn(sessionID)
	}
}

func (a *Accessor) setCookie(w http.ResponseWriter, id string) error {
	value, err := a.codec.Encode(id)
	if err != nil {
		return fmt.Errorf("sign session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.codec.TTL().Seconds()),
	})
	return nil
}

type sessionContextKey struct{}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess domain.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(domain.Session)
	return sess, ok
}
