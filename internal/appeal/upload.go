package appeal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/appeal-cli/internal/model"
)

const (
	pdfMime        = "application/pdf"
	defaultMaxSize = 25 * 1024 * 1024
)

// UploadInput is an assessment notice to store.
type UploadInput struct {
	UserID      string
	FileName    string
	ContentType string
	Data        []byte
}

// UploadResult describes a stored upload.
type UploadResult struct {
	Bucket          string `json:"bucket"`
	Path            string `json:"path"`
	Message         string `json:"message"`
	DocumentGroupID string `json:"documentGroupId"`
	DocumentID      string `json:"documentId"`
	UserID          string `json:"userId"`
}

// MaxUploadBytes is the largest accepted upload.
func (w *Workflow) MaxUploadBytes() int64 {
	if w.cfg.Upload.MaxBytes > 0 {
		return w.cfg.Upload.MaxBytes
	}
	return defaultMaxSize
}

// Upload stores a PDF under ingest/<year>/<uuid>.pdf and records it as
// version 1 of a new upload group.
func (w *Workflow) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if len(in.Data) == 0 {
		return nil, fail(http.StatusBadRequest, "Missing PDF file payload.", nil)
	}
	if in.ContentType != "" && in.ContentType != pdfMime {
		return nil, fail(http.StatusUnsupportedMediaType, "Only PDF uploads are supported.", nil)
	}
	if limit := w.MaxUploadBytes(); int64(len(in.Data)) > limit {
		msg := fmt.Sprintf("PDF exceeds %dMB limit.", limit/(1024*1024))
		return nil, fail(http.StatusRequestEntityTooLarge, msg, nil)
	}

	if err := w.docs.EnsureBucket(ctx); err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to prepare document storage.", err)
	}

	path := fmt.Sprintf("ingest/%d/%s.pdf", w.now().UTC().Year(), w.newID())
	sum := sha256.Sum256(in.Data)

	name := in.FileName
	if name == "" {
		name = "unknown.pdf"
	}
	meta := map[string]string{
		"originalName": name,
		"size":         strconv.Itoa(len(in.Data)),
	}
	if err := w.docs.Upload(ctx, path, in.Data, pdfMime, meta); err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to persist PDF: "+err.Error(), err)
	}

	label := in.FileName
	if label == "" {
		label = "Assessment"
	}
	group, doc, err := w.store.CreateUpload(ctx, in.UserID, model.NewDocument{
		StoragePath: path,
		FileHash:    hex.EncodeToString(sum[:]),
		SizeBytes:   int64(len(in.Data)),
		MimeType:    pdfMime,
		Label:       label,
	})
	if err != nil {
		return nil, fail(http.StatusInternalServerError, "Failed to register document metadata.", err)
	}

	zap.L().Info("appeal: upload stored",
		zap.String("user_id", in.UserID),
		zap.String("document_group_id", group.ID),
		zap.String("path", path),
		zap.Int("size", len(in.Data)),
	)

	return &UploadResult{
		Bucket:          w.docs.Bucket(),
		Path:            path,
		Message:         "Upload complete.",
		DocumentGroupID: group.ID,
		DocumentID:      doc.ID,
		UserID:          in.UserID,
	}, nil
}
