// Package remote fetches the full product collection from an HTTP endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"productcatalog/domain"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ProductsPath is the endpoint path appended to the base URL.
const ProductsPath = "/api/products"

// maxBody caps the response size read from the endpoint.
const maxBody = 10 << 20

// ErrMalformedBody is returned when the body is not {data: Product[]}.
var ErrMalformedBody = errors.New("remote: response data is not a product array")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: unexpected status %d", e.Code)
}

// Client retrieves products from <base>/api/products.
type Client struct {
	endpoint        string
	httpClient      *http.Client
	log             *zap.Logger
	maxRetries      uint64
	initialInterval time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRetry sets how many times a transient failure is retried and the
// first backoff interval.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		if initial > 0 {
			c.initialInterval = initial
		}
	}
}

// New builds a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	endpoint, err := url.JoinPath(baseURL, ProductsPath)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid base url %q: %w", baseURL, err)
	}
	c := &Client{
		endpoint:        endpoint,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		log:             zap.NewNop(),
		maxRetries:      2,
		initialInterval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the resolved products URL.
func (c *Client) Endpoint() string { return c.endpoint }

// FetchProducts performs the GET, retrying network errors and 5xx
// responses. 4xx responses and malformed bodies fail immediately.
func (c *Client) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)

	var products []domain.Product
	op := func() error {
		list, err := c.fetchOnce(ctx)
		if err != nil {
			return err
		}
		products = list
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn("product fetch failed, retrying",
			zap.String("endpoint", c.endpoint),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	c.log.Debug("fetched products", zap.String("endpoint", c.endpoint), zap.Int("count", len(products)))
	return products, nil
}

func (c *Client) fetchOnce(ctx context.Context) ([]domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: get %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		serr := &StatusError{Code: resp.StatusCode}
		if resp.StatusCode >= 500 {
			return nil, serr
		}
		return nil, backoff.Permanent(serr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("remote: read body: %w", err)
	}
	list, err := Decode(body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return list, nil
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Decode accepts {data: Product[]} and rejects every other shape.
func Decode(body []byte) ([]domain.Product, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	raw := bytes.TrimSpace(env.Data)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, ErrMalformedBody
	}
	var list []domain.Product
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return list, nil
}

// IsStatusError reports whether err carries a non-2xx status.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
