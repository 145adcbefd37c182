// Package llm hides the structured-output differences between the OpenAI
// Responses API and Anthropic Messages API behind one JSON completion call.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/appeal-cli/internal/model"
)

// ErrEmptyContent is returned when the model produced no text.
var ErrEmptyContent = eris.New("llm: response did not include content")

// Client completes a prompt into JSON matching a schema.
type Client interface {
	CompleteJSON(ctx context.Context, req Request) (*Response, error)
	// Provider names the backend, e.g. "openai".
	Provider() string
}

// Request describes one structured completion.
type Request struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int
	// SchemaName labels the schema for backends that require one.
	SchemaName string
	Schema     map[string]any
}

// Response is the raw JSON text and its usage.
type Response struct {
	Text  string
	Usage model.TokenUsage
}

// Decode coerces the text into JSON and unmarshals it into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal([]byte(CoerceJSON(r.Text)), v)
}

// CoerceJSON strips wrapping quotes, backticks and markdown code fences
// that models sometimes put around JSON.
func CoerceJSON(raw string) string {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
		return strings.TrimSpace(s)
	case strings.HasPrefix(s, "'''"):
		s = strings.TrimSuffix(strings.TrimPrefix(s, "'''"), "'''")
		return strings.TrimSpace(s)
	case strings.HasPrefix(s, "`"):
		return strings.Trim(s, "` \t\r\n")
	case len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'"):
		return s[1 : len(s)-1]
	}
	return s
}

// MissingKeys returns the keys of want absent from the JSON object text.
func MissingKeys(text string, want []string) ([]string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(CoerceJSON(text)), &obj); err != nil {
		return nil, eris.Wrap(err, "llm: decode object")
	}
	var missing []string
	for _, k := range want {
		if _, ok := obj[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing, nil
}
