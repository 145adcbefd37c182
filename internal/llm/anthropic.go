package llm

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/appeal-cli/internal/model"
	"github.com/sells-group/appeal-cli/pkg/anthropic"
)

type anthropicClient struct {
	client anthropic.Client
}

// NewAnthropic adapts an Anthropic Messages client. The Messages API has
// no schema-constrained output, so the schema is appended to the cached
// system prompt.
func NewAnthropic(client anthropic.Client) Client {
	return &anthropicClient{client: client}
}

func (c *anthropicClient) Provider() string { return "anthropic" }

func (c *anthropicClient) CompleteJSON(ctx context.Context, req Request) (*Response, error) {
	schema, err := json.Marshal(req.Schema)
	if err != nil {
		return nil, eris.Wrap(err, "llm: marshal schema")
	}
	system := req.System +
		"\n\nRespond with a single JSON object and nothing else. It must validate against this JSON schema:\n" +
		string(schema)

	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     req.Model,
		MaxTokens: int64(req.MaxTokens),
		System:    anthropic.CachedSystemBlocks(system, "5m"),
		Messages:  []anthropic.Message{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return nil, err
	}

	text := resp.Text()
	if text == "" {
		return nil, ErrEmptyContent
	}

	in := resp.Usage.InputTokens + resp.Usage.CacheCreationInputTokens + resp.Usage.CacheReadInputTokens
	out := resp.Usage.OutputTokens
	total := in + out
	return &Response{
		Text: text,
		Usage: model.TokenUsage{
			Model:        req.Model,
			InputTokens:  &in,
			OutputTokens: &out,
			TotalTokens:  &total,
		},
	}, nil
}
