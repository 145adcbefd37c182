// Package zillow is a client for the Zillow RapidAPI proxy.
package zillow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://zillow-com1.p.rapidapi.com"
	defaultHost    = "zillow-com1.p.rapidapi.com"
)

// Client fetches search and property payloads from Zillow.
type Client interface {
	// Search calls /propertyExtendedSearch and returns the decoded JSON body.
	Search(ctx context.Context, location string) (any, error)
	// Property calls /property with details enabled. A non-object body
	// decodes to nil.
	Property(ctx context.Context, zpid string) (map[string]any, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHost overrides the X-RapidAPI-Host header.
func WithHost(host string) Option {
	return func(c *httpClient) {
		c.host = host
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit throttles outbound requests. RapidAPI plans cap requests
// per second; rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	host    string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Zillow client. An empty apiKey is accepted; every
// call then fails with ErrMissingCredentials before touching the network.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		host:    defaultHost,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, location string) (any, error) {
	return c.get(ctx, "/propertyExtendedSearch", map[string]string{"location": location})
}

func (c *httpClient) Property(ctx context.Context, zpid string) (map[string]any, error) {
	body, err := c.get(ctx, "/property", map[string]string{"zpid": zpid, "details": "true"})
	if err != nil {
		return nil, err
	}
	obj, _ := body.(map[string]any)
	return obj, nil
}

func (c *httpClient) get(ctx context.Context, path string, params map[string]string) (any, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredentials
	}

	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "zillow: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "zillow: create request")
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "zillow: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "zillow: read response")
	}

	var body any
	decodeErr := json.Unmarshal(raw, &body)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	if ok {
		if decodeErr != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: "zillow API returned a non-JSON response"}
		}
		return body, nil
	}

	if decodeErr != nil {
		body = nil
	}
	return nil, newAPIError(resp.StatusCode, body)
}
