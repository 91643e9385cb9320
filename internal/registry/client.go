// Package registry is the HTTP client for the peripheral registry.
package registry

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"modbusmgr/internal/domain"
)

const patternParam = "identifier_pattern"

var (
	// ErrUnexpectedStatus is wrapped by every non-2xx response error except 404
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrUnexpectedShape is wrapped when a response body is not what the call expects
	ErrUnexpectedShape = errors.New("unexpected response shape")

	errMissingEndpoint = errors.New("registry endpoint is required")
)

// Config holds client settings
type Config struct {
	// BaseURL is the peripheral collection, e.g. https://nuvla.io/api/nuvlabox-peripheral
	BaseURL   string
	Insecure  bool
	Timeout   time.Duration
	APIKey    string
	APISecret string
	// Context is merged into every created record
	Context domain.Context
}

// Client talks to the peripheral registry over HTTP
type Client struct {
	baseURL string
	http    *http.Client
	cfg     Config
	log     zerolog.Logger
}

// NewClient creates a registry client
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errMissingEndpoint
	}

	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse registry endpoint: %w", err)
	}

	//nolint:gosec // insecure is an explicit operator choice for self-signed registries
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Insecure,
		},
	}

	return &Client{
		baseURL: base,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		cfg: cfg,
		log: log,
	}, nil
}

type listEntry struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
}

// List returns every entry whose identifier matches pattern.
// A non-2xx status or a body that is not a JSON list is an error.
func (c *Client) List(ctx context.Context, pattern string) ([]domain.RegistryEntry, error) {
	q := url.Values{}
	q.Set(patternParam, pattern)

	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer c.closeResponse(resp)

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedShape, err)
	}

	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a list", ErrUnexpectedShape)
	}

	var items []listEntry
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedShape, err)
	}

	entries := make([]domain.RegistryEntry, 0, len(items))
	for _, item := range items {
		if item.Identifier == "" {
			c.log.Debug().Str("id", item.ID).Msg("Skipping registry entry without identifier")
			continue
		}
		entries = append(entries, domain.RegistryEntry{ID: item.ID, Identifier: item.Identifier})
	}

	return entries, nil
}

type createResponse struct {
	ResourceID string `json:"resource-id"`
}

// Create submits the peripheral's present fields plus the registry context
func (c *Client) Create(ctx context.Context, p domain.Peripheral) (string, error) {
	body, err := json.Marshal(p.Payload(c.cfg.Context))
	if err != nil {
		return "", fmt.Errorf("marshal peripheral: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return "", err
	}
	defer c.closeResponse(resp)

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnexpectedShape, err)
	}

	if created.ResourceID == "" {
		return "", fmt.Errorf("%w: missing resource-id", ErrUnexpectedShape)
	}

	return created.ResourceID, nil
}

// Delete removes the entry with identifier. A 404 wraps domain.ErrNotFound.
func (c *Client) Delete(ctx context.Context, identifier string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.entryURL(identifier), nil)
	if err != nil {
		return err
	}
	c.closeResponse(resp)

	return nil
}

// MarkUnavailable sets available=false on the entry with identifier
func (c *Client) MarkUnavailable(ctx context.Context, identifier string) error {
	body, err := json.Marshal(map[string]any{"available": false})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPut, c.entryURL(identifier), body)
	if err != nil {
		return err
	}
	c.closeResponse(resp)

	return nil
}

func (c *Client) entryURL(identifier string) string {
	return c.baseURL + "/" + url.PathEscape(identifier)
}

// do sends the request and returns the response only for 2xx statuses
func (c *Client) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.SetBasicAuth(c.cfg.APIKey, c.cfg.APISecret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.closeResponse(resp)

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s %s: %w", method, target, domain.ErrNotFound)
		}

		return nil, fmt.Errorf("%s %s: %w: %d %s", method, target, ErrUnexpectedStatus,
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return resp, nil
}

// closeResponse closes the HTTP response body, logging any errors.
func (c *Client) closeResponse(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.log.Debug().Err(err).Msg("Failed to close response body")
	}
}
