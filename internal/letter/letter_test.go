package letter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/appeal-cli/internal/llm"
	llmmocks "github.com/sells-group/appeal-cli/internal/llm/mocks"
	"github.com/sells-group/appeal-cli/internal/model"
	"github.com/sells-group/appeal-cli/internal/valuation"
)

func strp(s string) *string   { return &s }
func f64p(v float64) *float64 { return &v }
func int64p(v int64) *int64   { return &v }

func counties(t *testing.T) *Counties {
	t.Helper()
	c, err := LoadCounties("")
	require.NoError(t, err)
	return c
}

func sampleAssessment() model.AssessmentExtraction {
	return model.AssessmentExtraction{
		ParcelID:        strp("010-123456-00"),
		OwnerName:       strp("Jane Doe"),
		PropertyAddress: strp("123 Main St, Columbus, OH 43215"),
		AssessedValue:   f64p(410000),
		TaxYear:         strp("2024"),
		AppealDeadline:  strp("2025-03-31"),
	}
}

func TestBuildContext(t *testing.T) {
	a := sampleAssessment()
	val := &valuation.Summary{Provider: "zillow", Amount: int64p(385250), Analytics: &valuation.Analytics{}}

	c := BuildContext(a, val, nil)
	require.NotNil(t, c.SavingsEstimate)
	assert.Equal(t, int64(24750), *c.SavingsEstimate)
	assert.Equal(t, "zillow", *c.ValuationSource)
	assert.Same(t, val.Analytics, c.Analytics)

	c = BuildContext(a, nil, nil)
	assert.Nil(t, c.SavingsEstimate)
	assert.Nil(t, c.ValuationSource)
	assert.Nil(t, c.Analytics)

	c = BuildContext(a, &valuation.Summary{Provider: "zillow"}, nil)
	assert.Nil(t, c.SavingsEstimate)

	a.AssessedValue = nil
	c = BuildContext(a, val, nil)
	assert.Nil(t, c.SavingsEstimate)
}

func TestResolveCounty(t *testing.T) {
	c := counties(t)

	t.Run("by fips", func(t *testing.T) {
		m := c.Resolve(&valuation.Analytics{CountyFIPS: strp("17031")}, model.AssessmentExtraction{})
		require.NotNil(t, m)
		assert.Equal(t, "Cook County, Illinois", m.Jurisdiction)
		assert.Equal(t, "2024", *m.TaxYear)
		assert.Equal(t, "Cook County Assessor's Office", *m.PrimaryAuthority)
		assert.Len(t, m.AlternateWindows, 2)
		assert.Nil(t, m.FilingWindow)
		require.Len(t, m.SubmissionChannels, 3)
		assert.Equal(t, "online", m.SubmissionChannels[0].Type)
		assert.Len(t, m.Forms, 2)
	})

	t.Run("by address keywords", func(t *testing.T) {
		a := model.AssessmentExtraction{PropertyAddress: strp("55 Elm St, Franklin County, Columbus OH 43215")}
		m := c.Resolve(nil, a)
		require.NotNil(t, m)
		assert.Equal(t, "Franklin County, Ohio", m.Jurisdiction)
		assert.Equal(t, "2024", *m.TaxYear)
		require.NotNil(t, m.FilingWindow)
		assert.Equal(t, "2025-01-01", *m.FilingWindow.Start)
		assert.Equal(t, "2025-03-31", *m.FilingWindow.End)
		assert.Equal(t, "Postmarked on or before March 31", m.SubmissionChannels[1].PostmarkRequirement)
	})

	t.Run("filing deadline alias", func(t *testing.T) {
		m := c.Resolve(&valuation.Analytics{CountyFIPS: strp("48453")}, model.AssessmentExtraction{})
		require.NotNil(t, m)
		require.NotNil(t, m.FilingWindow)
		assert.Nil(t, m.FilingWindow.Start)
		assert.Equal(t, "2025-05-15", *m.FilingWindow.End)
	})

	t.Run("unknown fips falls back to address", func(t *testing.T) {
		a := model.AssessmentExtraction{PropertyAddress: strp("1 Congress Ave, Austin, Travis County, TX 78701")}
		m := c.Resolve(&valuation.Analytics{CountyFIPS: strp("99999")}, a)
		require.NotNil(t, m)
		assert.Equal(t, "Travis County, Texas", m.Jurisdiction)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Nil(t, c.Resolve(nil, sampleAssessment()))
	})
}

func TestParseCounties_Shapes(t *testing.T) {
	c, err := ParseCounties([]byte(`
franklin_oh:
  notes: only notes
  submission_channels:
    - label: no type
    - not-a-map
  forms:
    - name: missing url
`))
	require.NoError(t, err)
	m := c.Resolve(&valuation.Analytics{CountyFIPS: strp("39049")}, model.AssessmentExtraction{})
	require.NotNil(t, m)
	assert.Equal(t, "franklin_oh", m.Jurisdiction)
	assert.Nil(t, m.TaxYear)
	assert.Nil(t, m.PrimaryAuthority)
	require.Len(t, m.SubmissionChannels, 1)
	assert.Equal(t, "unknown", m.SubmissionChannels[0].Type)
	assert.Empty(t, m.Forms)

	_, err = ParseCounties([]byte("{not yaml"))
	require.Error(t, err)
}

func TestPrompt(t *testing.T) {
	an := &valuation.Analytics{
		ProjectedSavingsVsLatest: int64p(1250),
		ProjectedTaxAtMarket:     int64p(9625),
		TaxHistory: []valuation.TaxHistoryEntry{
			{Year: 2024, AssessedValue: f64p(400000), TaxPaid: f64p(10000)},
			{Year: 2023, AssessedValue: f64p(380000)},
			{Year: 2022},
			{Year: 2021},
		},
	}
	c := BuildContext(sampleAssessment(), &valuation.Summary{Provider: "zillow", Amount: int64p(385000), Analytics: an},
		counties(t).Resolve(&valuation.Analytics{CountyFIPS: strp("39049")}, model.AssessmentExtraction{}))

	p := Prompt(c)
	assert.Contains(t, p, "Owner Name: Jane Doe")
	assert.Contains(t, p, "Assessed Value: $410,000")
	assert.Contains(t, p, "Market Value: Unknown")
	assert.Contains(t, p, "Estimated Savings: $25,000")
	assert.Contains(t, p, "Notice Date: Unknown")
	assert.Contains(t, p, "  Projected Savings vs Latest Tax Bill: $1,250")
	assert.Contains(t, p, "    Year 2024: assessed=$400,000, taxPaid=$10,000")
	assert.Contains(t, p, "    Year 2023: assessed=$380,000, taxPaid=Unknown")
	assert.NotContains(t, p, "Year 2021")
	assert.Contains(t, p, "  Primary Authority: Franklin County Board of Revision")
	assert.Contains(t, p, "  Filing Window: start=2025-01-01, end=2025-03-31")
	assert.Contains(t, p, "    - online: Auditor e-file portal | https://www.franklincountyauditor.com/real-estate/board-of-revision")
	assert.NotContains(t, p, "Additional Notes")
}

const letterJSON = `{
	"header": "Jane Doe\n123 Main St, Columbus, OH 43215\nTax Year 2024",
	"salutation": "Dear Members of the Franklin County Board of Revision:",
	"body": ["I am writing to contest the assessed value.", "Recent market data supports a lower value."],
	"closing": "Respectfully submitted,",
	"signature": "Jane Doe",
	"filingReminders": ["File DTE Form 1 by March 31."],
	"disclaimer": "This service is not a law firm."
}`

func TestGenerate(t *testing.T) {
	client := llmmocks.NewMockClient(t)
	client.On("CompleteJSON", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Model == "gpt-4.1" && r.MaxTokens == 1200 && r.SchemaName == "appeal_letter" &&
			strings.HasPrefix(r.Prompt, "Build a property tax appeal letter using the following context:\nOwner Name: Jane Doe")
	})).Return(&llm.Response{Text: letterJSON, Usage: model.TokenUsage{Model: "gpt-4.1", TotalTokens: int64p(900)}}, nil)

	g := NewGenerator(client, "gpt-4.1-mini", 0)
	d, err := g.Generate(context.Background(), BuildContext(sampleAssessment(), nil, nil), "gpt-4.1")
	require.NoError(t, err)
	assert.Len(t, d.Sections.Body, 2)
	assert.Equal(t, []string{}, d.Sections.Attachments)
	assert.Equal(t, "gpt-4.1", d.Usage.Model)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		resp    *llm.Response
		err     error
		wantErr string
	}{
		{name: "empty", err: llm.ErrEmptyContent, wantErr: "did not include structured letter content"},
		{name: "bad json", resp: &llm.Response{Text: "Dear sir"}, wantErr: "Failed to parse structured letter JSON."},
		{name: "backend", err: errors.New("HTTP 500"), wantErr: "letter: mock generation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llmmocks.NewMockClient(t)
			client.On("CompleteJSON", mock.Anything, mock.Anything).Return(tt.resp, tt.err)
			_, err := NewGenerator(client, "m", 10).Generate(context.Background(), Context{}, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRender(t *testing.T) {
	s := Sections{
		Header:          "Jane Doe",
		Salutation:      "Dear Board:",
		Body:            []string{"Short paragraph.", "Another."},
		Closing:         "Respectfully submitted,",
		Signature:       "Jane Doe",
		FilingReminders: []string{"File by March 31."},
		Attachments:     []string{"Comparable sales"},
		Disclaimer:      "Not legal advice.",
	}
	short, err := Render(s)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(short), "%PDF-"))

	long := s
	long.Body = nil
	for range 80 {
		long.Body = append(long.Body, strings.Repeat("The assessed value exceeds recent comparable sales in the neighborhood. ", 3))
	}
	out, err := Render(long)
	require.NoError(t, err)
	assert.Greater(t, strings.Count(string(out), "/Type /Page"), strings.Count(string(short), "/Type /Page"))
}

func TestWrap(t *testing.T) {
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.AddPage()
	doc.SetFont("Times", "", 12)
	pdf := &renderer{pdf: doc, tr: func(s string) string { return s }, y: pageMargin}
	lines := pdf.wrap(strings.Repeat("word ", 200))
	assert.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, pdf.pdf.GetStringWidth(l), pageWidth-2*pageMargin)
	}
	assert.Equal(t, []string{""}, pdf.wrap(""))
}
