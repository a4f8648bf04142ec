package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"storefront/internal/domain"
)

func TestRedisStoreRoundTripAndClear(t *testing.T) {
	redis := miniredis.RunT(t)
	s, err := NewRedisStore(redis.Addr(), "", time.Minute)
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "sid-1"); err != nil || ok {
		t.Fatalf("expected missing session, got ok=%v err=%v", ok, err)
	}
	if err := s.Save(ctx, domain.Session{ID: "sid-1", Token: "tok", Username: "crio.do"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := s.Get(ctx, "sid-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Token != "tok" || got.Username != "crio.do" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if ttl := redis.TTL("storefront:session:sid-1"); ttl != time.Minute {
		t.Fatalf("ttl = %v, want %v", ttl, time.Minute)
	}

	if err := s.Clear(ctx, "sid-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if redis.Exists("storefront:session:sid-1") {
		t.Fatal("expected session key removed")
	}
}

func TestRedisStoreExpires(t *testing.T) {
	redis := miniredis.RunT(t)
	s, err := NewRedisStore(redis.Addr(), "", time.Minute)
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	ctx := context.Background()
	if err := s.Save(ctx, domain.Session{ID: "sid-2", Token: "tok"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	redis.FastForward(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "sid-2"); ok {
		t.Fatal("expected session to expire")
	}
}

func TestNewRedisStoreRequiresAddr(t *testing.T) {
	if _, err := NewRedisStore(" ", "", time.Minute); err == nil {
		t.Fatal("expected error for empty redis addr")
	}
}

func TestCookieCodecRejectsTampering(t *testing.T) {
	codec, err := NewCookieCodec("secret-1", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	value, err := codec.Encode("sid-9")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	id, err := codec.Decode(value)
	if err != nil || id != "sid-9" {
		t.Fatalf("decode = (%q, %v), want sid-9", id, err)
	}

	other, _ := NewCookieCodec("secret-2", time.Hour)
	if _, err := other.Decode(value); err == nil {
		t.Fatal("expected signature mismatch to be rejected")
	}
	if _, err := codec.Decode(value + "x"); err == nil {
		t.Fatal("expected modified token to be rejected")
	}
	if _, err := NewCookieCodec("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func newTestAccessor(t *testing.T, store Store) *Accessor {
	t.Helper()
	codec, err := NewCookieCodec("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	acc, err := NewAccessor(AccessorConfig{Store: store, Codec: codec})
	if err != nil {
		t.Fatalf("new accessor: %v", err)
	}
	return acc
}

func TestResolveIssuesAnonymousSession(t *testing.T) {
	acc := newTestAccessor(t, NewMemoryStore())

	rec := httptest.NewRecorder()
	sess, err := acc.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sess.ID == "" || sess.Authenticated() {
		t.Fatalf("expected anonymous session with id, got %+v", sess)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != defaultCookieName || !cookies[0].HttpOnly {
		t.Fatalf("expected one http-only session cookie, got %+v", cookies)
	}

	// Same cookie resolves to the same session without reissuing.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	again, err := acc.Resolve(rec2, req)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if again.ID != sess.ID {
		t.Fatalf("session id changed: %q -> %q", sess.ID, again.ID)
	}
	if len(rec2.Result().Cookies()) != 0 {
		t.Fatal("valid cookie should not be reissued")
	}
}

func TestResolveReplacesForgedCookie(t *testing.T) {
	acc := newTestAccessor(t, NewMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: defaultCookieName, Value: "not-a-token"})
	rec := httptest.NewRecorder()

	sess, err := acc.Resolve(rec, req)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sess.ID == "" || sess.ID == "not-a-token" {
		t.Fatalf("expected fresh id, got %q", sess.ID)
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Fatal("expected replacement cookie")
	}
}

func TestSignInRotatesSessionID(t *testing.T) {
	store := NewMemoryStore()
	acc := newTestAccessor(t, store)
	ctx := context.Background()

	var ended []string
	acc.Subscribe(func(id string) { ended = append(ended, id) })

	rec := httptest.NewRecorder()
	sess, err := acc.SignIn(ctx, rec, domain.Session{ID: "sid-anon"}, "tok", "crio.do")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if sess.ID == "" || sess.ID == "sid-anon" {
		t.Fatalf("expected a fresh session id, got %q", sess.ID)
	}
	if stored, ok, _ := store.Get(ctx, sess.ID); !ok || stored.Token != "tok" || stored.Username != "crio.do" {
		t.Fatalf("sign in not persisted: %+v", stored)
	}
	if len(ended) != 1 || ended[0] != "sid-anon" {
		t.Fatalf("expected pre-login session to end, got %v", ended)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	resolved, err := acc.Resolve(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ID != sess.ID || resolved.Username != "crio.do" {
		t.Fatalf("cookie does not resolve to signed-in session: %+v", resolved)
	}
}

func TestLogoutClearsStoreAndNotifies(t *testing.T) {
	store := NewMemoryStore()
	acc := newTestAccessor(t, store)
	ctx := context.Background()

	sess, err := acc.SignIn(ctx, httptest.NewRecorder(), domain.Session{}, "tok", "crio.do")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	var notified []string
	acc.Subscribe(func(id string) { notified = append(notified, id) })

	rec := httptest.NewRecorder()
	if err := acc.Logout(ctx, rec, sess); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok, _ := store.Get(ctx, sess.ID); ok {
		t.Fatal("expected token and username cleared")
	}
	if len(notified) != 1 || notified[0] != sess.ID {
		t.Fatalf("unexpected notifications: %v", notified)
	}
	setCookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(setCookie, "Max-Age=0") {
		t.Fatalf("expected cookie expiry, got %q", setCookie)
	}
}

func TestSessionContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no session in empty context")
	}
	ctx := WithSession(context.Background(), domain.Session{ID: "sid", Username: "u"})
	got, ok := FromContext(ctx)
	if !ok || got.Username != "u" {
		t.Fatalf("unexpected session from context: %+v", got)
	}
}
