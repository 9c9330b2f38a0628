// Package upstream is the client for the order API that holds server-truth
// reservations. Any network failure or non-2xx response is reported as
// ErrUnavailable so callers can degrade to the local queue instead of
// treating the upstream as fatal.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"vehicle-rental-api/models"
	"vehicle-rental-api/reconcile"
)

// ErrUnavailable means the upstream could not serve the request (network
// error, timeout or non-2xx status).
var ErrUnavailable = errors.New("order API unavailable")

// OrderAPI is the part of the upstream surface the reconciliation service
// consumes.
type OrderAPI interface {
	List(ctx context.Context) ([]reconcile.RawOrder, error)
	Create(ctx context.Context, order reconcile.RawOrder) error
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drainAndClose(resp)
		return nil, fmt.Errorf("%w: %s %s returned %d", ErrUnavailable, method, path, resp.StatusCode)
	}
	return resp, nil
}

// drainAndClose empties the body so the underlying connection can be reused.
func drainAndClose(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// List fetches all server-side order records in their raw shape.
func (c *Client) List(ctx context.Context) ([]reconcile.RawOrder, error) {
	resp, err := c.do(ctx, http.MethodGet, "/orders", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var orders []reconcile.RawOrder
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return orders, nil
}

// Create submits a new reservation to the upstream store.
func (c *Client) Create(ctx context.Context, order reconcile.RawOrder) error {
	resp, err := c.do(ctx, http.MethodPost, "/orders", order)
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}

// UpdateStatus sets a server order's status, translating the canonical enum
// into the upstream vocabulary {pending, confirmed, cancelled}.
func (c *Client) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	body := map[string]string{"status": models.BackendStatus(status)}
	resp, err := c.do(ctx, http.MethodPut, "/orders/"+id, body)
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}
