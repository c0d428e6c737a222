// Package fetch issues the plain GET requests matchfed makes: HTML pages
// decoded to UTF-8 text, and binary assets.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	DefaultUserAgent   = "matchfed/1.0 (football match report scraper)"
	DefaultTimeout     = 30 * time.Second
	DefaultEncoding    = "utf-8"
	DefaultMaxBodySize = 32 << 20
	DefaultRetryDelay  = 500 * time.Millisecond
)

// Config holds HTTP settings shared by every request.
type Config struct {
	Timeout   time.Duration
	UserAgent string

	// Encoding is the label page bodies are decoded with, regardless of
	// what the server declares.
	Encoding    string
	MaxBodySize int64

	// Retries applies to asset downloads only; pages are fetched once.
	Retries    int
	RetryDelay time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		Encoding:    DefaultEncoding,
		MaxBodySize: DefaultMaxBodySize,
		Retries:     2,
		RetryDelay:  DefaultRetryDelay,
	}
}

// TransportError reports a failed request: either the round trip failed or
// the server answered with something other than 200.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: HTTP error: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is (or wraps) a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Client performs GET requests with the configured timeout and User-Agent.
type Client struct {
	http *http.Client
	cfg  *Config
}

// NewClient creates a client. A nil config means DefaultConfig.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// Config returns the client's settings.
func (c *Client) Config() *Config {
	return c.cfg
}

// Bytes fetches url and returns the raw body.
func (c *Client) Bytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        errors.New(resp.Status),
		}
	}

	data, err := readLimited(resp.Body, c.cfg.MaxBodySize)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	return data, nil
}

// Text fetches url and decodes the body with the configured encoding.
// Invalid byte sequences become U+FFFD rather than failing the request.
func (c *Client) Text(ctx context.Context, url string) (string, error) {
	data, err := c.Bytes(ctx, url)
	if err != nil {
		return "", err
	}
	return Decode(data, c.cfg.Encoding)
}

// Document fetches url, decodes it and parses it as HTML.
func (c *Client) Document(ctx context.Context, url string) (*goquery.Document, error) {
	text, err := c.Text(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// BytesWithRetry is Bytes retried up to Retries more times on failure.
// Client errors (4xx) are not retried.
func (c *Client) BytesWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.cfg.RetryDelay):
			}
		}

		data, err := c.Bytes(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var te *TransportError
		if errors.As(err, &te) && te.StatusCode >= 400 && te.StatusCode < 500 {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// Decode converts data from the named encoding to a UTF-8 string.
func Decode(data []byte, label string) (string, error) {
	if label == "" {
		label = DefaultEncoding
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return "", fmt.Errorf("unknown encoding %q", label)
	}

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("failed to decode body as %s: %w", label, err)
	}
	return string(out), nil
}

// readLimited reads all of r, failing once more than limit bytes arrive.
// A limit of 0 or less means no limit.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeds maximum allowed size (%d bytes)", limit)
	}
	return data, nil
}
