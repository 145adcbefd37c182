package store

import (
	"context"

	"github.com/sells-group/appeal-cli/internal/model"
)

// Store defines the persistence interface for uploads, parsing results and
// generated letters.
type Store interface {
	// Uploads
	CreateUpload(ctx context.Context, userID string, doc model.NewDocument) (*model.DocumentGroup, *model.Document, error)
	GetDocumentGroup(ctx context.Context, groupID string) (*model.DocumentGroup, error)

	// Extractions
	UpsertExtraction(ctx context.Context, rec *model.ExtractionRecord) (string, error)
	GetExtraction(ctx context.Context, groupID string) (*model.ExtractionRecord, error)

	// Valuations
	UpsertValuation(ctx context.Context, rec *model.ValuationRecord) error
	GetValuation(ctx context.Context, groupID, provider string) (*model.ValuationRecord, error)

	// Generated letters
	EnsureLetterGroup(ctx context.Context, parentGroupID, userID string) (*model.DocumentGroup, error)
	NextDocumentVersion(ctx context.Context, groupID string) (int, error)
	CreateGeneratedDocument(ctx context.Context, doc model.NewDocument) (*model.Document, error)
	ListDocuments(ctx context.Context, groupID string) ([]model.Document, error)

	// Tax profiles
	UpsertTaxProfile(ctx context.Context, profile model.JurisdictionTaxProfile) error
	GetAssessmentRatio(ctx context.Context, fips string) (*float64, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
