package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/upb/order-protection/internal/shared"
	"github.com/upb/order-protection/services/providers"
	"go.uber.org/zap"
)

const (
	// PlatformName is the registry key of this integration
	PlatformName = "shopify"

	headerRequestID = "X-Request-ID"

	// maxErrorBody bounds how much of a failed response is kept on the error
	maxErrorBody = 4 << 10
)

// Client performs JSON requests against a storefront's AJAX API
type Client struct {
	baseURL     *url.URL
	providerTag string
	headers     map[string]string
	httpClient  *http.Client
}

// NewClient creates a storefront client from provider configuration
func NewClient(config providers.ProviderConfig) (*Client, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, fmt.Errorf("storefront base url is required")
	}

	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid storefront base url %q: %w", config.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid storefront base url %q: scheme and host required", config.BaseURL)
	}

	if config.ProviderTag == "" {
		config.ProviderTag = providers.DefaultProviderTag
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:     u,
		providerTag: config.ProviderTag,
		headers:     config.Headers,
		httpClient:  httpClient,
	}, nil
}

// Get issues a GET request and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body and decodes the response into out
func (c *Client) Post(ctx context.Context, op, path string, body, out any) error {
	return c.do(ctx, op, http.MethodPost, path, body, out)
}

// URL returns the absolute request URL for a storefront path
func (c *Client) URL(path string) string {
	rel := &url.URL{Path: path, RawQuery: url.Values{"provider": {c.providerTag}}.Encode()}
	return c.baseURL.ResolveReference(rel).String()
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if cookie := shared.StorefrontCookie(ctx); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if requestID := shared.RequestID(ctx); requestID != "" {
		req.Header.Set(headerRequestID, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &providers.TransportError{Platform: PlatformName, Op: op, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &providers.HTTPStatusError{
			Platform:   PlatformName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// NewBuilder returns the registry builder for the shopify platform
func NewBuilder() providers.Builder {
	return func(config providers.ProviderConfig, logger *zap.Logger) (*providers.Platform, error) {
		client, err := NewClient(config)
		if err != nil {
			return nil, err
		}
		return &providers.Platform{
			Name:     PlatformName,
			Carts:    NewCartProvider(client, logger),
			Products: NewProductProvider(client, config.Protection, logger),
		}, nil
	}
}
