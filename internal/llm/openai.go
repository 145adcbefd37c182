package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/appeal-cli/internal/model"
	"github.com/sells-group/appeal-cli/pkg/openai"
)

type openAIClient struct {
	client openai.Client
}

// NewOpenAI adapts an OpenAI Responses client. The schema is enforced
// through a strict json_schema text format.
func NewOpenAI(client openai.Client) Client {
	return &openAIClient{client: client}
}

func (c *openAIClient) Provider() string { return "openai" }

func (c *openAIClient) CompleteJSON(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.client.CreateResponse(ctx, openai.ResponseRequest{
		Model: req.Model,
		Input: []openai.InputMessage{
			openai.NewInputText("system", req.System),
			openai.NewInputText("user", req.Prompt),
		},
		Text:            openai.JSONSchemaFormat(req.SchemaName, req.Schema),
		MaxOutputTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	text, err := resp.Text()
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai refusal")
	}
	if text == "" {
		return nil, ErrEmptyContent
	}

	usage := model.TokenUsage{Model: req.Model}
	if resp.Usage != nil {
		usage.InputTokens = resp.Usage.InputTokens
		usage.OutputTokens = resp.Usage.OutputTokens
		usage.TotalTokens = resp.Usage.TotalTokens
	}
	return &Response{Text: text, Usage: usage}, nil
}
