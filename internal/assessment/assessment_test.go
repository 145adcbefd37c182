package assessment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/appeal-cli/internal/llm"
	llmmocks "github.com/sells-group/appeal-cli/internal/llm/mocks"
	"github.com/sells-group/appeal-cli/internal/model"
	"github.com/sells-group/appeal-cli/pkg/pdfco"
	pdfmocks "github.com/sells-group/appeal-cli/pkg/pdfco/mocks"
)

const fullPayload = `{
	"parcelId": "010-123456-00",
	"ownerName": "Jane Doe",
	"propertyAddress": "123 Main St, Columbus, OH 43215",
	"assessedValue": 410000,
	"marketValue": null,
	"taxYear": "2024",
	"assessmentDate": "2024-08-01",
	"appealDeadline": "2025-03-31",
	"notes": null
}`

func int64p(v int64) *int64 { return &v }

func TestExtract(t *testing.T) {
	client := llmmocks.NewMockClient(t)
	client.On("CompleteJSON", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Model == "gpt-4o-mini-2024-07-18" &&
			r.MaxTokens == 800 &&
			r.SchemaName == "assessment_extraction" &&
			r.Prompt == "Assessment notice text:\nnotice body"
	})).Return(&llm.Response{
		Text:  "```json\n" + fullPayload + "\n```",
		Usage: model.TokenUsage{Model: "gpt-4o-mini-2024-07-18", TotalTokens: int64p(210)},
	}, nil)

	ex, err := NewExtractor(client, "gpt-4o-mini-2024-07-18", 0).Extract(context.Background(), "notice body", "")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", *ex.Fields.OwnerName)
	assert.InDelta(t, 410000, *ex.Fields.AssessedValue, 0.001)
	assert.Nil(t, ex.Fields.MarketValue)
	assert.Equal(t, int64(210), *ex.Usage.TotalTokens)
}

func TestExtract_ModelOverride(t *testing.T) {
	client := llmmocks.NewMockClient(t)
	client.On("CompleteJSON", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Model == "gpt-4.1"
	})).Return(&llm.Response{Text: fullPayload, Usage: model.TokenUsage{Model: "gpt-4.1"}}, nil)

	ex, err := NewExtractor(client, "gpt-4o-mini-2024-07-18", 0).Extract(context.Background(), "notice body", "gpt-4.1")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", ex.Usage.Model)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		resp    *llm.Response
		err     error
		wantErr string
		wantIs  error
	}{
		{name: "empty text", text: "", wantErr: "Assessment text is required"},
		{name: "no content", text: "x", err: llm.ErrEmptyContent, wantErr: "did not include structured content"},
		{name: "backend error", text: "x", err: errors.New("boom"), wantErr: "assessment: mock extraction"},
		{name: "bad json", text: "x", resp: &llm.Response{Text: "not json"}, wantErr: "Failed to parse structured assessment JSON."},
		{name: "missing key", text: "x", resp: &llm.Response{Text: `{"parcelId":null}`}, wantErr: "missing ownerName", wantIs: ErrIncompletePayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llmmocks.NewMockClient(t)
			if tt.text != "" {
				client.On("CompleteJSON", mock.Anything, mock.Anything).Return(tt.resp, tt.err)
			}
			_, err := NewExtractor(client, "m", 100).Extract(context.Background(), tt.text, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			if tt.wantIs != nil {
				assert.True(t, errors.Is(err, tt.wantIs))
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	fields, err := DecodePayload([]byte(fullPayload))
	require.NoError(t, err)
	assert.Equal(t, "2024", *fields.TaxYear)

	_, err = DecodePayload([]byte(`null`))
	require.Error(t, err)

	_, err = DecodePayload([]byte(`{"parcelId":"1"}`))
	assert.True(t, errors.Is(err, ErrIncompletePayload))
}

func TestSchemaRequiresEveryField(t *testing.T) {
	props := Schema["properties"].(map[string]any)
	assert.Len(t, props, len(model.AssessmentFields))
	for _, k := range model.AssessmentFields {
		assert.Contains(t, props, k)
	}
}

func TestParse(t *testing.T) {
	pdf := pdfmocks.NewMockClient(t)
	pdf.On("StartTextConversion", mock.Anything, "https://storage.test/a.pdf").
		Return(&pdfco.JobResponse{Body: "notice body", PageCount: int64p(2), Credits: int64p(1)}, nil)

	client := llmmocks.NewMockClient(t)
	client.On("CompleteJSON", mock.Anything, mock.Anything).Return(&llm.Response{
		Text:  fullPayload,
		Usage: model.TokenUsage{Model: "gpt-4o-mini-2024-07-18", InputTokens: int64p(150)},
	}, nil)

	res, err := NewParser(pdf, NewExtractor(client, "gpt-4o-mini-2024-07-18", 800)).
		Parse(context.Background(), "https://storage.test/a.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, "notice body", res.RawText)
	assert.Equal(t, "010-123456-00", *res.Extracted.ParcelID)
	assert.Equal(t, int64(2), *res.Metadata.PDFCo.PageCount)
	assert.Equal(t, int64(1), *res.Metadata.PDFCo.Credits)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", res.Metadata.LLM.Model)
}

func TestParse_PDFError(t *testing.T) {
	pdf := pdfmocks.NewMockClient(t)
	pdf.On("StartTextConversion", mock.Anything, mock.Anything).
		Return(nil, &pdfco.APIError{StatusCode: 401, Message: "Invalid API Key"})

	_, err := NewParser(pdf, NewExtractor(llmmocks.NewMockClient(t), "m", 0)).
		Parse(context.Background(), "https://storage.test/a.pdf", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API Key")
}
