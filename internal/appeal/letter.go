package appeal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/appeal-cli/internal/assessment"
	"github.com/sells-group/appeal-cli/internal/letter"
	"github.com/sells-group/appeal-cli/internal/model"
	"github.com/sells-group/appeal-cli/internal/valuation"
)

// LetterInput selects the upload group to draft a letter for.
type LetterInput struct {
	DocumentGroupID string
	// Model overrides the configured letter model.
	Model string
}

// LetterResult describes a generated, stored letter version.
type LetterResult struct {
	Bucket                string           `json:"bucket"`
	DocumentGroupID       string           `json:"documentGroupId"`
	ParentDocumentGroupID string           `json:"parentDocumentGroupId"`
	DocumentID            string           `json:"documentId"`
	Path                  string           `json:"path"`
	Version               int              `json:"version"`
	SignedURL             *string          `json:"signedUrl"`
	Usage                 model.TokenUsage `json:"usage"`
	Sections              letter.Sections  `json:"sections"`
}

// GenerateLetter drafts an appeal letter from a parsed upload, renders it
// to PDF and stores it as the next version of the upload's letter group.
func (w *Workflow) GenerateLetter(ctx context.Context, in LetterInput) (*LetterResult, error) {
	if w.letters == nil {
		return nil, fail(http.StatusInternalServerError, "LLM API key is not configured.", nil)
	}

	upload, err := w.store.GetDocumentGroup(ctx, in.DocumentGroupID)
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to load document group.", err)
	}
	if upload == nil || upload.Type != model.DocumentGroupUpload {
		return nil, fail(http.StatusNotFound, "Upload document group not found.", nil)
	}

	extraction, err := w.store.GetExtraction(ctx, upload.ID)
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to load assessment data.", err)
	}
	if extraction == nil {
		return nil, fail(http.StatusConflict, "Assessment data is missing. Parse the assessment before generating a letter.", nil)
	}
	fields, err := assessment.DecodePayload(extraction.Payload)
	if err != nil {
		return nil, fail(http.StatusConflict, "Assessment extraction payload is missing expected fields. Re-run parsing.", err)
	}

	rec, err := w.store.GetValuation(ctx, upload.ID, valuation.Provider)
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to load valuation.", err)
	}
	summary := valuation.SummaryFromRecord(rec)

	var analytics *valuation.Analytics
	if summary != nil {
		analytics = summary.Analytics
	}
	var county *letter.CountyMetadata
	if w.counties != nil {
		county = w.counties.Resolve(analytics, *fields)
	}

	draft, err := w.letters.Generate(ctx, letter.BuildContext(*fields, summary, county), in.Model)
	if err != nil {
		return nil, fail(http.StatusBadGateway, messageOr(err, "Letter generation failed."), err)
	}

	pdf, err := letter.Render(draft.Sections)
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Unable to render letter PDF.", err)
	}

	group, err := w.store.EnsureLetterGroup(ctx, upload.ID, upload.UserID)
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to prepare letter group.", err)
	}
	version, err := w.store.NextDocumentVersion(ctx, group.ID)
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to prepare letter group.", err)
	}
	path := fmt.Sprintf("%s/%s/v%d/appeal-letter-v%d.pdf", upload.UserID, group.ID, version, version)

	if err := w.docs.EnsureBucket(ctx); err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to upload generated letter.", err)
	}
	if err := w.docs.Upload(ctx, path, pdf, pdfMime, nil); err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to upload generated letter: "+err.Error(), err)
	}

	sum := sha256.Sum256(pdf)
	doc, err := w.store.CreateGeneratedDocument(ctx, model.NewDocument{
		GroupID:       group.ID,
		VersionNumber: version,
		StoragePath:   path,
		FileHash:      hex.EncodeToString(sum[:]),
		SizeBytes:     int64(len(pdf)),
		MimeType:      pdfMime,
		Label:         fmt.Sprintf("Appeal Letter v%d", version),
		Source:        model.DocumentSourceGenerated,
	})
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to persist letter metadata.", err)
	}

	signed, err := w.docs.SignedURL(ctx, path, ttl(w.cfg.Storage.LetterURLTTLSecs, 600))
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Generated letter but failed to create download URL: "+err.Error(), err)
	}

	zap.L().Info("appeal: letter generated",
		zap.String("parent_group_id", upload.ID),
		zap.String("document_id", doc.ID),
		zap.Int("version", version),
		zap.Float64("cost_usd", w.costCalc.Tokens(draft.Usage)),
	)

	return &LetterResult{
		Bucket:                w.docs.Bucket(),
		DocumentGroupID:       group.ID,
		ParentDocumentGroupID: upload.ID,
		DocumentID:            doc.ID,
		Path:                  path,
		Version:               doc.VersionNumber,
		SignedURL:             &signed,
		Usage:                 draft.Usage,
		Sections:              draft.Sections,
	}, nil
}

// Documents lists the stored versions of a document group.
func (w *Workflow) Documents(ctx context.Context, groupID string) ([]model.Document, error) {
	group, err := w.store.GetDocumentGroup(ctx, groupID)
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to load document group.", err)
	}
	if group == nil {
		return nil, fail(http.StatusNotFound, "Document group not found.", nil)
	}
	docs, err := w.store.ListDocuments(ctx, groupID)
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to list documents.", err)
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return docs, nil
}
