// Package apiclient calls the storefront REST API over HTTP.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"storefront/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client calls the storefront API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a structured API error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is a 404 API response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// ClientErrorMessage returns the API message of a 4xx response carrying one.
func ClientErrorMessage(err error) (string, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	if apiErr.Status < 400 || apiErr.Status >= 500 {
		return "", false
	}
	msg := strings.TrimSpace(apiErr.Message)
	return msg, msg != ""
}

// NewClient constructs an API client. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ListProducts fetches the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.doJSON(ctx, http.MethodGet, "/products", "", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// SearchProducts fetches products matching text. A 404 means no match.
func (c *Client) SearchProducts(ctx context.Context, text string) ([]domain.Product, error) {
	path := "/products/search?value=" + url.QueryEscape(text)
	var products []domain.Product
	if err := c.doJSON(ctx, http.MethodGet, path, "", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetCart fetches the cart entries of the token's owner.
func (c *Client) GetCart(ctx context.Context, token string) ([]domain.CartEntry, error) {
	var entries []domain.CartEntry
	if err := c.doJSON(ctx, http.MethodGet, "/cart", token, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// AddToCart sets qty for productID and returns the full new cart.
// The API treats qty 0 as removal.
func (c *Client) AddToCart(ctx context.Context, token, productID string, qty int) ([]domain.CartEntry, error) {
	payload := domain.CartEntry{ProductID: productID, Qty: qty}
	var entries []domain.CartEntry
	if err := c.doJSON(ctx, http.MethodPost, "/cart", token, payload, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// AuthResult is the API's login response.
type AuthResult struct {
	Success  bool    `json:"success"`
	Token    string  `json:"token"`
	Username string  `json:"username"`
	Balance  float64 `json:"balance"`
}

// Login exchanges credentials for an API token.
func (c *Client) Login(ctx context.Context, username, password string) (AuthResult, error) {
	payload := map[string]string{"username": username, "password": password}
	var resp AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", payload, &resp); err != nil {
		return AuthResult{}, err
	}
	return resp, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	payload := map[string]string{"username": username, "password": password}
	return c.doJSON(ctx, http.MethodPost, "/auth/register", "", payload, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&errResp)
		msg := strings.TrimSpace(errResp.Message)
		if msg == "" {
			msg = strings.TrimSpace(errResp.Error)
		}
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
