package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/appeal-cli/internal/config"
	"github.com/sells-group/appeal-cli/pkg/anthropic"
	"github.com/sells-group/appeal-cli/pkg/openai"
)

func TestCoerceJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: ` {"a":1} `, want: `{"a":1}`},
		{name: "single quotes", in: `'{"a":1}'`, want: `{"a":1}`},
		{name: "backticks", in: "`{\"a\":1}`", want: `{"a":1}`},
		{name: "fenced json", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fenced bare", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fenced one line", in: "```{\"a\":1}```", want: `{"a":1}`},
		{name: "triple quotes", in: `'''{"a":1}'''`, want: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoerceJSON(tt.in))
		})
	}
}

func TestMissingKeys(t *testing.T) {
	missing, err := MissingKeys(`{"a":null,"b":2}`, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, missing)

	_, err = MissingKeys(`not json`, []string{"a"})
	require.Error(t, err)
}

func TestResponseDecode(t *testing.T) {
	r := &Response{Text: "```json\n{\"header\":\"H\"}\n```"}
	var out struct {
		Header string `json:"header"`
	}
	require.NoError(t, r.Decode(&out))
	assert.Equal(t, "H", out.Header)
}

func TestOpenAIAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4.1-mini", body["model"])
		assert.EqualValues(t, 1200, body["max_output_tokens"])
		format := body["text"].(map[string]any)["format"].(map[string]any)
		assert.Equal(t, "appeal_letter", format["name"])
		_, _ = w.Write([]byte(`{"output_text":["{\"ok\":true}"],"usage":{"input_tokens":5,"output_tokens":3,"total_tokens":8}}`))
	}))
	defer srv.Close()

	c := NewOpenAI(openai.NewClient("k", openai.WithBaseURL(srv.URL)))
	assert.Equal(t, "openai", c.Provider())

	resp, err := c.CompleteJSON(context.Background(), Request{
		Model:      "gpt-4.1-mini",
		System:     "sys",
		Prompt:     "prompt",
		MaxTokens:  1200,
		SchemaName: "appeal_letter",
		Schema:     map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Text)
	assert.Equal(t, "gpt-4.1-mini", resp.Usage.Model)
	assert.Equal(t, int64(8), *resp.Usage.TotalTokens)
}

func TestOpenAIAdapter_EmptyAndRefusal(t *testing.T) {
	bodies := map[string]string{
		"empty":   `{"output":[]}`,
		"refusal": `{"output":[{"content":[{"refusal":{"message":"Cannot help"}}]}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := NewOpenAI(openai.NewClient("k", openai.WithBaseURL(srv.URL))).
				CompleteJSON(context.Background(), Request{Model: "m"})
			require.Error(t, err)
			if name == "empty" {
				assert.True(t, errors.Is(err, ErrEmptyContent))
			} else {
				assert.Contains(t, err.Error(), "Cannot help")
			}
		})
	}
}

type fakeAnthropic struct {
	got  anthropic.MessageRequest
	resp *anthropic.MessageResponse
	err  error
}

func (f *fakeAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestAnthropicAdapter(t *testing.T) {
	fake := &fakeAnthropic{resp: &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"ok":true}`}},
		Usage:   anthropic.TokenUsage{InputTokens: 10, OutputTokens: 4, CacheReadInputTokens: 90},
	}}
	c := NewAnthropic(fake)
	assert.Equal(t, "anthropic", c.Provider())

	resp, err := c.CompleteJSON(context.Background(), Request{
		Model:     "claude-haiku-4-5-20251001",
		System:    "Extract.",
		Prompt:    "text",
		MaxTokens: 800,
		Schema:    map[string]any{"required": []string{"ok"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Text)
	assert.Equal(t, int64(100), *resp.Usage.InputTokens)
	assert.Equal(t, int64(104), *resp.Usage.TotalTokens)

	require.Len(t, fake.got.System, 1)
	assert.Contains(t, fake.got.System[0].Text, `{"required":["ok"]}`)
	assert.Equal(t, "5m", fake.got.System[0].CacheControl.TTL)
	assert.Equal(t, int64(800), fake.got.MaxTokens)
}

func TestAnthropicAdapter_Empty(t *testing.T) {
	fake := &fakeAnthropic{resp: &anthropic.MessageResponse{}}
	_, err := NewAnthropic(fake).CompleteJSON(context.Background(), Request{Model: "m"})
	assert.True(t, errors.Is(err, ErrEmptyContent))
}

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	cfg.OpenAI.ExtractionModel = "gpt-4o-mini-2024-07-18"
	cfg.OpenAI.LetterModel = "gpt-4.1-mini"
	cfg.Anthropic.ExtractionModel = "claude-haiku-4-5-20251001"

	c, models, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Provider())
	assert.Equal(t, "gpt-4.1-mini", models.Letter)
	assert.False(t, HasCredentials(cfg))

	cfg.LLM.Provider = "anthropic"
	cfg.Anthropic.Key = "sk-ant"
	c, models, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Provider())
	assert.Equal(t, "claude-haiku-4-5-20251001", models.Extraction)
	assert.True(t, HasCredentials(cfg))

	cfg.LLM.Provider = "cohere"
	_, _, err = New(cfg)
	require.Error(t, err)
}
