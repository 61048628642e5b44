package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/usestring/places-text/internal/schema"
)

// DefaultBaseURL is the default base URL for the Places API (New).
const DefaultBaseURL = "https://places.googleapis.com/v1"

// DefaultPageDelay is the pause between successive page requests. Page
// tokens are not valid immediately after they are issued.
const DefaultPageDelay = 2100 * time.Millisecond

// Client is a Places Text Search client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	pageDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithPageDelay sets the pause between successive page requests.
func WithPageDelay(d time.Duration) Option {
	return func(c *Client) {
		c.pageDelay = d
	}
}

// New creates a new Places API client authenticated with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
		pageDelay:  DefaultPageDelay,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelopeValidator is compiled once from searchTextEnvelope.
var envelopeValidator = sync.OnceValues(func() (*schema.Validator, error) {
	return schema.NewValidatorFor(&searchTextEnvelope{})
})

// post performs a POST request with the Places auth and field mask headers
// and returns the decoded, shape-validated response body.
func (c *Client) post(ctx context.Context, path, fieldMask string, body any) (map[string]any, error) {
	start := time.Now()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("HTTP request failed",
			slog.String("method", http.MethodPost),
			slog.String("path", path),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Debug("HTTP request returned error",
			slog.String("method", http.MethodPost),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, &RequestError{StatusCode: resp.StatusCode, Body: truncateBody(raw)}
	}

	decoded, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}

	slog.Debug("HTTP request completed",
		slog.String("method", http.MethodPost),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(raw)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return decoded, nil
}

// decodeEnvelope decodes raw with json.Number preservation and checks it
// against the envelope schema.
func decodeEnvelope(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, &ResponseParseError{Reason: "invalid JSON", Body: truncateBody(raw), Err: err}
	}
	if dec.More() {
		return nil, &ResponseParseError{Reason: "trailing data after JSON value", Body: truncateBody(raw)}
	}

	validator, err := envelopeValidator()
	if err != nil {
		return nil, fmt.Errorf("building response validator: %w", err)
	}
	if res := validator.ValidateValue(value); !res.Valid {
		return nil, &ResponseParseError{Reason: "unexpected shape", Body: truncateBody(raw), Err: res.Err()}
	}

	// The schema guarantees a top-level object.
	return value.(map[string]any), nil
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
