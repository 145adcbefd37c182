package letter

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/appeal-cli/internal/llm"
	"github.com/sells-group/appeal-cli/internal/model"
)

const draftingPrompt = "You are an expert property tax consultant creating persuasive homeowner appeal letters. Respond using the provided JSON schema. Keep tone professional, encouraging, and grounded in the supplied facts. Never fabricate data."

func stringList(description string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": description}
}

func stringField(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// Schema is the JSON schema for Sections.
var Schema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required": []string{
		"header", "salutation", "body", "closing",
		"signature", "filingReminders", "attachments", "disclaimer",
	},
	"properties": map[string]any{
		"header":     stringField("Letterhead block including owner name, address, tax year."),
		"salutation": stringField("Formal greeting addressed to the appropriate authority (e.g., Board of Revision)."),
		"body": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"minItems":    2,
			"description": "Ordered paragraphs written in persuasive, plain language.",
		},
		"closing":         stringField("Closing phrase (e.g., 'Respectfully submitted')."),
		"signature":       stringField("Owner name and optional contact info formatted as a single string."),
		"filingReminders": stringList("Bullet list of concrete filing steps and deadlines tailored to the county."),
		"attachments":     stringList("Descriptions of evidence packets or supporting docs. Provide empty array if none."),
		"disclaimer":      stringField("Friendly reminder that this service is not a law firm and does not give legal advice."),
	},
}

// Sections is the structured letter returned by the model.
type Sections struct {
	Header          string   `json:"header"`
	Salutation      string   `json:"salutation"`
	Body            []string `json:"body"`
	Closing         string   `json:"closing"`
	Signature       string   `json:"signature"`
	FilingReminders []string `json:"filingReminders"`
	Attachments     []string `json:"attachments"`
	Disclaimer      string   `json:"disclaimer"`
}

// Draft is a generated letter and the tokens it used.
type Draft struct {
	Sections Sections         `json:"sections"`
	Usage    model.TokenUsage `json:"usage"`
}

// Generator drafts appeal letters with an LLM.
type Generator struct {
	llm       llm.Client
	model     string
	maxTokens int
}

// NewGenerator creates a Generator. maxTokens <= 0 uses 1200.
func NewGenerator(client llm.Client, model string, maxTokens int) *Generator {
	if maxTokens <= 0 {
		maxTokens = 1200
	}
	return &Generator{llm: client, model: model, maxTokens: maxTokens}
}

// Generate drafts a letter for c. modelOverride replaces the configured
// model when non-empty.
func (g *Generator) Generate(ctx context.Context, c Context, modelOverride string) (*Draft, error) {
	m := g.model
	if modelOverride != "" {
		m = modelOverride
	}

	resp, err := g.llm.CompleteJSON(ctx, llm.Request{
		Model:      m,
		System:     draftingPrompt,
		Prompt:     "Build a property tax appeal letter using the following context:\n" + Prompt(c),
		MaxTokens:  g.maxTokens,
		SchemaName: "appeal_letter",
		Schema:     Schema,
	})
	if errors.Is(err, llm.ErrEmptyContent) {
		return nil, eris.New("Model response did not include structured letter content.")
	}
	if err != nil {
		return nil, eris.Wrapf(err, "letter: %s generation", g.llm.Provider())
	}

	var sections Sections
	if err := json.Unmarshal([]byte(llm.CoerceJSON(resp.Text)), &sections); err != nil {
		return nil, eris.New("Failed to parse structured letter JSON.")
	}
	if sections.Attachments == nil {
		sections.Attachments = []string{}
	}
	if sections.FilingReminders == nil {
		sections.FilingReminders = []string{}
	}
	if sections.Body == nil {
		sections.Body = []string{}
	}

	zap.L().Info("letter: drafted",
		zap.String("model", m),
		zap.Int("paragraphs", len(sections.Body)),
		zap.Int64p("total_tokens", resp.Usage.TotalTokens),
	)
	return &Draft{Sections: sections, Usage: resp.Usage}, nil
}
