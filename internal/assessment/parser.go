package assessment

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/appeal-cli/internal/model"
	"github.com/sells-group/appeal-cli/pkg/pdfco"
)

// PDFMeta is the PDF.co usage of one conversion.
type PDFMeta struct {
	PageCount *int64 `json:"pageCount"`
	Credits   *int64 `json:"credits"`
}

// Metadata reports what a parse consumed.
type Metadata struct {
	PDFCo PDFMeta          `json:"pdfco"`
	LLM   model.TokenUsage `json:"llm"`
}

// Result is a parsed assessment notice.
type Result struct {
	RawText   string                     `json:"rawText"`
	Extracted model.AssessmentExtraction `json:"extracted"`
	Metadata  Metadata                   `json:"metadata"`
}

// Parser converts a notice PDF to text and extracts its fields.
type Parser struct {
	pdf       pdfco.Client
	pollOpts  []pdfco.PollOption
	extractor *Extractor
}

// NewParser creates a Parser.
func NewParser(pdf pdfco.Client, extractor *Extractor, pollOpts ...pdfco.PollOption) *Parser {
	return &Parser{pdf: pdf, extractor: extractor, pollOpts: pollOpts}
}

// Parse reads the PDF at signedURL, extracting with modelOverride when set.
func (p *Parser) Parse(ctx context.Context, signedURL, modelOverride string) (*Result, error) {
	text, err := pdfco.ConvertToText(ctx, p.pdf, signedURL, p.pollOpts...)
	if err != nil {
		return nil, err
	}

	extraction, err := p.extractor.Extract(ctx, text.Text, modelOverride)
	if err != nil {
		return nil, err
	}

	zap.L().Info("assessment: parsed notice",
		zap.Int("text_len", len(text.Text)),
		zap.String("model", extraction.Usage.Model),
		zap.Int64p("page_count", text.PageCount),
		zap.Int64p("total_tokens", extraction.Usage.TotalTokens),
	)

	return &Result{
		RawText:   text.Text,
		Extracted: extraction.Fields,
		Metadata: Metadata{
			PDFCo: PDFMeta{PageCount: text.PageCount, Credits: text.Credits},
			LLM:   extraction.Usage,
		},
	}, nil
}
