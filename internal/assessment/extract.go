// Package assessment turns an assessment notice PDF into structured fields.
package assessment

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/appeal-cli/internal/llm"
	"github.com/sells-group/appeal-cli/internal/model"
)

const systemPrompt = "You are an expert property tax analyst. Extract key fields from assessment notices and respond strictly using the provided JSON schema."

// ErrIncompletePayload is returned when a stored or generated extraction
// lacks one of the expected keys.
var ErrIncompletePayload = eris.New("assessment: extraction payload is missing expected fields")

func nullable(kind, description string) map[string]any {
	return map[string]any{"type": []string{kind, "null"}, "description": description}
}

// Schema is the JSON schema for model.AssessmentExtraction.
var Schema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"parcelId":        nullable("string", "Parcel or property identifier."),
		"ownerName":       nullable("string", "Primary owner name."),
		"propertyAddress": nullable("string", "Mailing or site address."),
		"assessedValue":   nullable("number", "Assessed property value in dollars. Strip currency symbols."),
		"marketValue":     nullable("number", "Fair market value if provided."),
		"taxYear":         nullable("string", "Tax year covered by the assessment."),
		"assessmentDate":  nullable("string", "Date the assessment notice was issued (ISO 8601 preferred)."),
		"appealDeadline":  nullable("string", "Appeal deadline (ISO 8601 or human-readable if relative)."),
		"notes":           nullable("string", "Any additional details relevant to the appeal workflow."),
	},
	"required": model.AssessmentFields,
}

// Extraction is the structured result of one extraction call.
type Extraction struct {
	Fields model.AssessmentExtraction
	Usage  model.TokenUsage
}

// Extractor asks an LLM to fill the assessment schema from notice text.
type Extractor struct {
	llm       llm.Client
	model     string
	maxTokens int
}

// NewExtractor creates an Extractor. maxTokens <= 0 uses 800.
func NewExtractor(client llm.Client, model string, maxTokens int) *Extractor {
	if maxTokens <= 0 {
		maxTokens = 800
	}
	return &Extractor{llm: client, model: model, maxTokens: maxTokens}
}

// Extract returns the assessment fields found in text. A non-empty
// modelOverride replaces the configured extraction model.
func (e *Extractor) Extract(ctx context.Context, text, modelOverride string) (*Extraction, error) {
	if text == "" {
		return nil, eris.New("Assessment text is required for extraction.")
	}

	m := e.model
	if modelOverride != "" {
		m = modelOverride
	}
	resp, err := e.llm.CompleteJSON(ctx, llm.Request{
		Model:      m,
		System:     systemPrompt,
		Prompt:     "Assessment notice text:\n" + text,
		MaxTokens:  e.maxTokens,
		SchemaName: "assessment_extraction",
		Schema:     Schema,
	})
	if errors.Is(err, llm.ErrEmptyContent) {
		return nil, eris.New("Model response did not include structured content.")
	}
	if err != nil {
		return nil, eris.Wrapf(err, "assessment: %s extraction", e.llm.Provider())
	}

	fields, err := DecodePayload([]byte(llm.CoerceJSON(resp.Text)))
	if err != nil {
		return nil, err
	}
	return &Extraction{Fields: *fields, Usage: resp.Usage}, nil
}

// DecodePayload parses an extraction JSON object and checks that every
// key in model.AssessmentFields is present. Null values are allowed.
func DecodePayload(raw []byte) (*model.AssessmentExtraction, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, eris.New("Failed to parse structured assessment JSON.")
	}
	for _, key := range model.AssessmentFields {
		if _, ok := obj[key]; !ok {
			return nil, eris.Wrapf(ErrIncompletePayload, "missing %s", key)
		}
	}

	var fields model.AssessmentExtraction
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, eris.Wrap(err, "assessment: decode fields")
	}
	return &fields, nil
}
