// Package upstream talks to the WeatherAPI.com provider: it builds request
// URLs, performs the single GET per gateway request and decodes the provider
// documents into the gateway's records.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 8 << 20

// Fetcher retrieves the raw body behind a provider URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Client is the net/http Fetcher. It performs exactly one attempt per call.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a Client. A zero timeout leaves the transport defaults in
// place.
func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// Fetch implements Fetcher. A 2xx body is returned as-is, any other status
// yields a *StatusError and connection or read failures a *TransportError.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("build request for %s: %w", Redact(rawURL), redactErr(err))}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: redactErr(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Status: resp.StatusCode, Body: string(body)}
	}

	return string(body), nil
}

// Endpoints builds provider URLs. APIKey is the provider secret.
type Endpoints struct {
	BaseURL string
	APIKey  string
}

// Forecast returns the forecast.json URL for city and days. Air quality is
// always requested and alerts never are.
func (e Endpoints) Forecast(city string, days int) string {
	return e.build("forecast.json", [][2]string{
		{"key", e.APIKey},
		{"q", city},
		{"days", strconv.Itoa(days)},
		{"aqi", "yes"},
		{"alerts", "no"},
	})
}

// Search returns the search.json URL for query.
func (e Endpoints) Search(query string) string {
	return e.build("search.json", [][2]string{
		{"key", e.APIKey},
		{"q", query},
	})
}

// build keeps parameters in the given order; url.Values would sort them.
func (e Endpoints) build(path string, params [][2]string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(e.BaseURL, "/"))
	b.WriteByte('/')
	b.WriteString(path)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}

// Redact replaces the value of the key query parameter so a provider URL can
// be logged or traced.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparsable url>"
	}
	q := u.Query()
	if !q.Has("key") {
		return rawURL
	}
	q.Set("key", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}

func redactErr(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: Redact(ue.URL), Err: ue.Err}
	}
	return err
}
