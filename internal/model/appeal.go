package model

import (
	"encoding/json"
	"time"
)

// DocumentGroupType distinguishes user uploads from generated artifacts.
type DocumentGroupType string

const (
	DocumentGroupUpload    DocumentGroupType = "UPLOAD"
	DocumentGroupGenerated DocumentGroupType = "GENERATED"
)

// DocumentSource records how a document version was produced.
type DocumentSource string

const (
	DocumentSourceUploaded  DocumentSource = "UPLOADED"
	DocumentSourceGenerated DocumentSource = "GENERATED"
)

// DocumentGroup collects the versions of one logical document. Generated
// groups point at the upload group they were derived from.
type DocumentGroup struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	Type          DocumentGroupType `json:"type"`
	ParentGroupID *string           `json:"parentGroupId,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// Document is a single stored file version.
type Document struct {
	ID            string         `json:"id"`
	GroupID       string         `json:"groupId"`
	VersionNumber int            `json:"versionNumber"`
	StoragePath   string         `json:"storagePath"`
	FileHash      string         `json:"fileHash"`
	SizeBytes     int64          `json:"sizeBytes"`
	MimeType      string         `json:"mimeType"`
	Label         string         `json:"label"`
	Source        DocumentSource `json:"source"`
	IsActive      bool           `json:"isActive"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// NewDocument describes a document version to insert.
type NewDocument struct {
	GroupID       string
	VersionNumber int
	StoragePath   string
	FileHash      string
	SizeBytes     int64
	MimeType      string
	Label         string
	Source        DocumentSource
}

// AssessmentExtraction holds the fields read from an assessment notice.
// Every key is always serialized, null when the notice omits it.
type AssessmentExtraction struct {
	ParcelID        *string  `json:"parcelId"`
	OwnerName       *string  `json:"ownerName"`
	PropertyAddress *string  `json:"propertyAddress"`
	AssessedValue   *float64 `json:"assessedValue"`
	MarketValue     *float64 `json:"marketValue"`
	TaxYear         *string  `json:"taxYear"`
	AssessmentDate  *string  `json:"assessmentDate"`
	AppealDeadline  *string  `json:"appealDeadline"`
	Notes           *string  `json:"notes"`
}

// AssessmentFields lists the keys every extraction payload must carry.
var AssessmentFields = []string{
	"parcelId",
	"ownerName",
	"propertyAddress",
	"assessedValue",
	"marketValue",
	"taxYear",
	"assessmentDate",
	"appealDeadline",
	"notes",
}

// TokenUsage tracks LLM token consumption for a single call.
type TokenUsage struct {
	Model        string `json:"model"`
	InputTokens  *int64 `json:"inputTokens"`
	OutputTokens *int64 `json:"outputTokens"`
	TotalTokens  *int64 `json:"totalTokens"`
}

// ExtractionRecord is the persisted result of parsing one upload group.
type ExtractionRecord struct {
	ID              string          `json:"id"`
	DocumentGroupID string          `json:"documentGroupId"`
	Payload         json.RawMessage `json:"payload"`
	RawText         string          `json:"rawText"`
	Model           string          `json:"model"`
	PDFPageCount    *int64          `json:"pdfPageCount"`
	PDFCredits      *int64          `json:"pdfCredits"`
	InputTokens     *int64          `json:"inputTokens"`
	OutputTokens    *int64          `json:"outputTokens"`
	TotalTokens     *int64          `json:"totalTokens"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ValuationRecord is a persisted third-party market valuation.
// RawResponse carries the search hit, property detail and analytics.
type ValuationRecord struct {
	ID              string          `json:"id"`
	DocumentGroupID string          `json:"documentGroupId"`
	Provider        string          `json:"provider"`
	ProviderID      *string         `json:"providerId"`
	Amount          *int64          `json:"amount"`
	Currency        *string         `json:"currency"`
	Confidence      *string         `json:"confidence"`
	ValuationDate   *time.Time      `json:"valuationDate"`
	RawResponse     json.RawMessage `json:"rawResponse"`
	FetchedAt       time.Time       `json:"fetchedAt"`
}

// JurisdictionTaxProfile carries county-level tax settings keyed by FIPS.
type JurisdictionTaxProfile struct {
	FIPS                   string   `json:"fips"`
	Name                   string   `json:"name"`
	DefaultAssessmentRatio *float64 `json:"defaultAssessmentRatio"`
}
