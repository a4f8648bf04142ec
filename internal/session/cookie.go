package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const cookieIssuer = "storefront"

// CookieCodec signs and verifies the session id carried in the cookie.
type CookieCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewCookieCodec builds an HS256 codec.
func NewCookieCodec(secret string, ttl time.Duration) (*CookieCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CookieCodec{secret: []byte(secret), ttl: ttl}, nil
}

// Encode wraps a session id in a signed token.
func (c *CookieCodec) Encode(sessionID string) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    cookieIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	})
	return token.SignedString(c.secret)
}

// Decode verifies value and returns the session id.
func (c *CookieCodec) Decode(value string) (string, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("session cookie: %w", err)
	}
	id := strings.TrimSpace(claims.Subject)
	if id == "" {
		return "", errors.New("session cookie: subject missing")
	}
	return id, nil
}

// TTL returns the cookie lifetime.
func (c *CookieCodec) TTL() time.Duration {
	return c.ttl
}
