// Package openai is a minimal client for the OpenAI Responses API with
// JSON-schema structured output.
package openai

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

const defaultBaseURL = "https://api.openai.com/v1"

// ErrMissingAPIKey is returned when no OpenAI key is configured.
var ErrMissingAPIKey = eris.New("openai: API key is not configured")

// Client defines the Responses API operations used by appeal-cli.
type Client interface {
	CreateResponse(ctx context.Context, req ResponseRequest) (*Response, error)
}

// ResponseRequest is the body for POST /responses.
type ResponseRequest struct {
	Model           string         `json:"model"`
	Input           []InputMessage `json:"input"`
	Text            *TextConfig    `json:"text,omitempty"`
	MaxOutputTokens int            `json:"max_output_tokens,omitempty"`
}

// InputMessage is one role-tagged input turn.
type InputMessage struct {
	Role    string         `json:"role"`
	Content []InputContent `json:"content"`
}

// InputContent is a content part of an input message.
type InputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewInputText builds an input message with a single input_text part.
func NewInputText(role, text string) InputMessage {
	return InputMessage{Role: role, Content: []InputContent{{Type: "input_text", Text: text}}}
}

// TextConfig selects the output text format.
type TextConfig struct {
	Format Format `json:"format"`
}

// Format describes a json_schema output format.
type Format struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Schema any    `json:"schema"`
	Strict bool   `json:"strict"`
}

// JSONSchemaFormat returns a strict json_schema text config.
func JSONSchemaFormat(name string, schema any) *TextConfig {
	return &TextConfig{Format: Format{Type: "json_schema", Name: name, Schema: schema, Strict: true}}
}

// Response is the decoded /responses payload.
type Response struct {
	ID         string       `json:"id"`
	Model      string       `json:"model"`
	OutputText OutputText   `json:"output_text"`
	Output     []OutputItem `json:"output"`
	Usage      *Usage       `json:"usage"`
	Error      *ErrorBody   `json:"error"`
}

// OutputText accepts either a string or an array of strings.
type OutputText []string

// UnmarshalJSON implements json.Unmarshaler.
func (o *OutputText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "" {
			*o = OutputText{s}
		}
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*o = arr
	}
	return nil
}

// OutputItem is one element of the output array.
type OutputItem struct {
	Type    string          `json:"type"`
	Role    string          `json:"role"`
	Content []OutputContent `json:"content"`
}

// OutputContent is a text or refusal chunk.
type OutputContent struct {
	Type    string   `json:"type"`
	Text    *string  `json:"text"`
	Refusal *Refusal `json:"refusal"`
}

// Refusal is sent either as a plain string or as {reason, message}.
type Refusal struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Refusal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Message = s
		return nil
	}
	type plain Refusal
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return eris.Wrap(err, "openai: decode refusal")
	}
	*r = Refusal(p)
	return nil
}

// Usage reports token consumption.
type Usage struct {
	InputTokens  *int64 `json:"input_tokens"`
	OutputTokens *int64 `json:"output_tokens"`
	TotalTokens  *int64 `json:"total_tokens"`
}

// ErrorBody is the error member of a failed response.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Text returns the first structured text chunk. A refusal is returned as an
// error. An empty string with a nil error means there was no content.
func (r *Response) Text() (string, error) {
	if len(r.OutputText) > 0 && r.OutputText[0] != "" {
		return r.OutputText[0], nil
	}
	for _, item := range r.Output {
		for _, chunk := range item.Content {
			if chunk.Refusal != nil {
				msg := chunk.Refusal.Message
				if msg == "" {
					msg = chunk.Refusal.Reason
				}
				if msg == "" {
					msg = "Model refused to comply."
				}
				return "", &RefusalError{Message: msg}
			}
			if chunk.Text != nil {
				return *chunk.Text, nil
			}
		}
	}
	return "", nil
}

// RefusalError is returned by Text when the model declined to answer.
type RefusalError struct {
	Message string
}

func (e *RefusalError) Error() string { return e.Message }

// APIError is returned when OpenAI responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai: %s (status %d)", e.Message, e.StatusCode)
}

// Status returns the HTTP status code.
func (e *APIError) Status() int { return e.StatusCode }

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

// NewClient creates a new OpenAI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
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

func (c *httpClient) CreateResponse(ctx context.Context, r ResponseRequest) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	buf, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "openai: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(buf))
	if err != nil {
		return nil, eris.Wrap(err, "openai: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "openai: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "openai: read response body")
	}

	var out Response
	decodeErr := json.Unmarshal(data, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("OpenAI request failed with status %d", resp.StatusCode)
		if decodeErr == nil {
			if out.Error != nil && out.Error.Message != "" {
				msg = out.Error.Message
			} else if text, _ := out.Text(); text != "" {
				msg = text
			}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, eris.Wrap(decodeErr, "openai: decode response")
	}
	return &out, nil
}
