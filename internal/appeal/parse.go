package appeal

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/appeal-cli/internal/assessment"
	"github.com/sells-group/appeal-cli/internal/llm"
	"github.com/sells-group/appeal-cli/internal/model"
	"github.com/sells-group/appeal-cli/internal/resilience"
	"github.com/sells-group/appeal-cli/internal/valuation"
	"github.com/sells-group/appeal-cli/pkg/zillow"
)

// ParseInput identifies a stored upload to parse.
type ParseInput struct {
	Path            string
	DocumentGroupID string
	// ExpiresInSeconds overrides the signed URL lifetime handed to PDF.co.
	ExpiresInSeconds int
	// Model overrides the extraction model for this request.
	Model string
}

// ParseResult is the parsed assessment plus any valuation found for it.
type ParseResult struct {
	Extracted              model.AssessmentExtraction `json:"extracted"`
	Metadata               assessment.Metadata        `json:"metadata"`
	RawText                string                     `json:"rawText"`
	AssessmentExtractionID string                     `json:"assessmentExtractionId"`
	Valuation              *valuation.Summary         `json:"valuation"`
}

// Parse extracts the assessment fields of an upload, looks up a market
// valuation for its address and persists both. A failed valuation lookup
// is logged and leaves Valuation nil.
func (w *Workflow) Parse(ctx context.Context, in ParseInput) (*ParseResult, error) {
	if strings.TrimSpace(in.Path) == "" {
		return nil, fail(http.StatusBadRequest, "storage path is required.", nil)
	}
	if w.cfg.PDFCo.Key == "" {
		return nil, fail(http.StatusInternalServerError, "PDF.co API key is not configured.", nil)
	}
	if w.parser == nil || !llm.HasCredentials(w.cfg) {
		return nil, fail(http.StatusInternalServerError, "LLM API key is not configured.", nil)
	}

	group, err := w.store.GetDocumentGroup(ctx, in.DocumentGroupID)
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Unexpected error during parsing.", err)
	}
	if group == nil || group.Type != model.DocumentGroupUpload {
		return nil, fail(http.StatusNotFound, "Upload document group not found.", nil)
	}

	expires := ttl(w.cfg.Storage.ParseURLTTLSecs, 60)
	if in.ExpiresInSeconds > 0 {
		expires = ttl(in.ExpiresInSeconds, 60)
	}
	signed, err := w.docs.SignedURL(ctx, in.Path, expires)
	if err != nil || signed == "" {
		return nil, fail(http.StatusInternalServerError, "Unable to create signed URL for PDF.", err)
	}

	result, err := w.parser.Parse(ctx, signed, in.Model)
	if err != nil {
		return nil, fail(http.StatusInternalServerError, messageOr(err, "Unexpected error during parsing."), err)
	}

	var summary *valuation.Summary
	if addr := result.Extracted.PropertyAddress; addr != nil && strings.TrimSpace(*addr) != "" {
		summary = w.attachValuation(ctx, in.DocumentGroupID, *addr)
	}

	payload, err := json.Marshal(result.Extracted)
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Unexpected error during parsing.", err)
	}
	usage := result.Metadata.LLM
	id, err := w.store.UpsertExtraction(ctx, &model.ExtractionRecord{
		DocumentGroupID: in.DocumentGroupID,
		Payload:         payload,
		RawText:         result.RawText,
		Model:           usage.Model,
		PDFPageCount:    result.Metadata.PDFCo.PageCount,
		PDFCredits:      result.Metadata.PDFCo.Credits,
		InputTokens:     usage.InputTokens,
		OutputTokens:    usage.OutputTokens,
		TotalTokens:     usage.TotalTokens,
	})
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to persist assessment extraction.", err)
	}

	zap.L().Info("appeal: assessment parsed",
		zap.String("document_group_id", in.DocumentGroupID),
		zap.String("extraction_id", id),
		zap.Bool("valuation", summary != nil),
		zap.Float64("cost_usd", w.costCalc.Tokens(usage)+w.costCalc.PDFCo(result.Metadata.PDFCo.Credits)),
	)

	return &ParseResult{
		Extracted:              result.Extracted,
		Metadata:               result.Metadata,
		RawText:                result.RawText,
		AssessmentExtractionID: id,
		Valuation:              summary,
	}, nil
}

// attachValuation looks up, enriches and stores the valuation for addr.
// Every failure is logged and yields nil.
func (w *Workflow) attachValuation(ctx context.Context, groupID, addr string) *valuation.Summary {
	if w.valuations == nil {
		return nil
	}
	log := zap.L().With(zap.String("document_group_id", groupID))

	v, err := w.LookupValuation(ctx, addr)
	if err != nil {
		if zillow.IsMissingCredentials(err) {
			log.Error("appeal: zillow credentials missing, skipping valuation", zap.Error(err))
		} else {
			log.Warn("appeal: valuation lookup failed", zap.Error(err))
		}
		return nil
	}
	if v == nil {
		return nil
	}

	v = w.withAssessmentRatio(ctx, v)

	rec, err := v.Record(groupID)
	if err != nil {
		log.Warn("appeal: encode valuation", zap.Error(err))
		return nil
	}
	if err := w.store.UpsertValuation(ctx, rec); err != nil {
		log.Warn("appeal: persist valuation", zap.Error(err))
		return nil
	}
	return v.Summary()
}

// LookupValuation queries the valuation provider, retrying transient
// failures behind the provider's circuit breaker.
func (w *Workflow) LookupValuation(ctx context.Context, addr string, opts ...valuation.LookupOption) (*valuation.Valuation, error) {
	return resilience.DoVal(ctx, w.retry, func(ctx context.Context) (*valuation.Valuation, error) {
		return resilience.ExecuteVal(ctx, w.breaker, func(ctx context.Context) (*valuation.Valuation, error) {
			return w.valuations.Lookup(ctx, addr, opts...)
		})
	})
}

// withAssessmentRatio returns v with the county assessment ratio attached.
// v may be a shared cache entry, so it is copied rather than modified.
func (w *Workflow) withAssessmentRatio(ctx context.Context, v *valuation.Valuation) *valuation.Valuation {
	if w.ratios == nil || v.Analytics == nil || v.Analytics.CountyFIPS == nil {
		return v
	}
	ratio, err := w.ratios.AssessmentRatio(ctx, *v.Analytics.CountyFIPS)
	if err != nil {
		zap.L().Warn("appeal: assessment ratio lookup failed", zap.Error(err))
		return v
	}
	if ratio == nil {
		return v
	}
	analytics := *v.Analytics
	analytics.AssessmentRatio = ratio
	out := *v
	out.Analytics = &analytics
	return &out
}

func messageOr(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}

// Valuation looks up addr for direct callers. It returns nil with no error
// when the provider has no match.
func (w *Workflow) Valuation(ctx context.Context, addr string, useCache bool) (*valuation.Summary, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fail(http.StatusBadRequest, "address is required.", nil)
	}
	if w.valuations == nil {
		return nil, fail(http.StatusInternalServerError, "Zillow API key is not configured.", nil)
	}
	v, err := w.LookupValuation(ctx, addr, valuation.WithCache(useCache))
	if zillow.IsMissingCredentials(err) {
		return nil, fail(http.StatusInternalServerError, "Zillow API key is not configured.", err)
	}
	if err != nil {
		return nil, fail(http.StatusBadGateway, messageOr(err, "Valuation lookup failed."), err)
	}
	if v == nil {
		return nil, nil
	}
	return w.withAssessmentRatio(ctx, v).Summary(), nil
}
