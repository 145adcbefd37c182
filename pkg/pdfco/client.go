// Package pdfco is a client for the PDF.co text conversion API.
package pdfco

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.pdf.co/v1"

// ErrMissingAPIKey is returned when no PDF.co key is configured.
var ErrMissingAPIKey = eris.New("pdfco: API key is not configured")

// Client defines the PDF.co operations used for assessment parsing.
type Client interface {
	// StartTextConversion submits an async PDF-to-text job for a signed URL.
	StartTextConversion(ctx context.Context, signedURL string) (*JobResponse, error)
	// CheckJob returns the current state of an async job.
	CheckJob(ctx context.Context, jobID string) (*JobResponse, error)
	// Download fetches a result file produced by a job.
	Download(ctx context.Context, url string) (string, error)
}

// ConvertRequest is the body for POST /pdf/convert/to/text.
type ConvertRequest struct {
	URL     string `json:"url"`
	Async   bool   `json:"async"`
	Encrypt bool   `json:"encrypt"`
	Inline  bool   `json:"inline"`
}

// JobCheckRequest is the body for POST /job/check. Both spellings of the
// id are sent.
type JobCheckRequest struct {
	JobID      string `json:"jobId"`
	JobIDLower string `json:"jobid"`
}

// JobResponse is returned by both the conversion and job check endpoints.
type JobResponse struct {
	Body             string     `json:"body"`
	URL              string     `json:"url"`
	PageCount        *int64     `json:"pageCount"`
	Credits          *int64     `json:"credits"`
	RemainingCredits *int64     `json:"remainingCredits"`
	Error            ErrorField `json:"error"`
	Message          string     `json:"message"`
	Status           Status     `json:"status"`
	JobID            string     `json:"jobId"`
	JobIDLower       string     `json:"jobid"`
}

// ID returns the job id under either spelling.
func (r *JobResponse) ID() string {
	if r.JobID != "" {
		return r.JobID
	}
	return r.JobIDLower
}

// ErrorField decodes the "error" member, which is either a flag or a message.
type ErrorField struct {
	Set  bool
	Text string
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *ErrorField) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		e.Set = b
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Text = s
		e.Set = s != ""
		return nil
	}
	// null and other shapes mean no error.
	return nil
}

// Status decodes "status", which PDF.co sends as a string or an HTTP code.
// It is always lower-cased.
type Status string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Status(strings.ToLower(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Status(n.String())
	}
	return nil
}

// APIError is returned when PDF.co responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pdfco: %s (status %d)", e.Message, e.StatusCode)
}

// Status returns the HTTP status code.
func (e *APIError) Status() int {
	return e.StatusCode
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a PDF.co client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) StartTextConversion(ctx context.Context, signedURL string) (*JobResponse, error) {
	body := ConvertRequest{URL: signedURL, Async: true, Encrypt: false, Inline: true}
	var resp JobResponse
	if err := c.post(ctx, "/pdf/convert/to/text", body, &resp, "PDF.co request failed with status %d"); err != nil {
		return nil, eris.Wrap(err, "pdfco: start text conversion")
	}
	return &resp, nil
}

func (c *httpClient) CheckJob(ctx context.Context, jobID string) (*JobResponse, error) {
	var resp JobResponse
	body := JobCheckRequest{JobID: jobID, JobIDLower: jobID}
	if err := c.post(ctx, "/job/check", body, &resp, "PDF.co job check failed with status %d"); err != nil {
		return nil, eris.Wrapf(err, "pdfco: check job %s", jobID)
	}
	return &resp, nil
}

func (c *httpClient) Download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "pdfco: create download request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "pdfco: download result")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "pdfco: read result")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("PDF.co result download failed with status %d", resp.StatusCode),
		}
	}
	return string(data), nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out *JobResponse, fallback string) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	decodeErr := json.Unmarshal(data, out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(out, fmt.Sprintf(fallback, resp.StatusCode)),
		}
	}
	if decodeErr != nil {
		return eris.Wrap(decodeErr, "decode response")
	}
	return nil
}

// errorMessage picks the first non-blank of the payload's error text and
// message, else fallback.
func errorMessage(r *JobResponse, fallback string) string {
	for _, candidate := range []string{r.Error.Text, r.Message} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return fallback
}
