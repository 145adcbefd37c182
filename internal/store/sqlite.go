package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/appeal-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS document_groups (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL REFERENCES users(id),
	type            TEXT NOT NULL,
	parent_group_id TEXT REFERENCES document_groups(id),
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_document_groups_parent ON document_groups(parent_group_id, type);

CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	group_id       TEXT NOT NULL REFERENCES document_groups(id),
	version_number INTEGER NOT NULL,
	storage_path   TEXT NOT NULL,
	file_hash      TEXT NOT NULL,
	size_bytes     INTEGER NOT NULL,
	mime_type      TEXT NOT NULL,
	label          TEXT NOT NULL DEFAULT '',
	source         TEXT NOT NULL,
	is_active      BOOLEAN NOT NULL DEFAULT 1,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (group_id, version_number)
);

CREATE TABLE IF NOT EXISTS assessment_extractions (
	id                TEXT PRIMARY KEY,
	document_group_id TEXT NOT NULL UNIQUE REFERENCES document_groups(id),
	payload           TEXT NOT NULL,
	raw_text          TEXT NOT NULL,
	model             TEXT NOT NULL,
	pdf_page_count    INTEGER,
	pdf_credits       INTEGER,
	input_tokens      INTEGER,
	output_tokens     INTEGER,
	total_tokens      INTEGER,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS property_valuations (
	id                TEXT PRIMARY KEY,
	document_group_id TEXT NOT NULL REFERENCES document_groups(id),
	provider          TEXT NOT NULL,
	provider_id       TEXT,
	amount            INTEGER,
	currency          TEXT,
	confidence        TEXT,
	valuation_date    DATETIME,
	raw_response      TEXT,
	fetched_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (document_group_id, provider)
);

CREATE TABLE IF NOT EXISTS jurisdiction_tax_profiles (
	fips                     TEXT PRIMARY KEY,
	name                     TEXT NOT NULL DEFAULT '',
	default_assessment_ratio REAL,
	updated_at               DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTx mirrors db.WithTx for database/sql.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func (s *SQLiteStore) CreateUpload(ctx context.Context, userID string, doc model.NewDocument) (*model.DocumentGroup, *model.Document, error) {
	now := time.Now().UTC()
	group := &model.DocumentGroup{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      model.DocumentGroupUpload,
		CreatedAt: now,
	}
	doc.GroupID = group.ID
	doc.VersionNumber = 1
	doc.Source = model.DocumentSourceUploaded

	var created *model.Document
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, created_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`,
			userID, now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert user %s", userID)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO document_groups (id, user_id, type, parent_group_id, created_at) VALUES (?, ?, ?, NULL, ?)`,
			group.ID, group.UserID, string(group.Type), now,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert document group")
		}

		d, err := insertDocumentSQLite(ctx, tx, doc, now)
		if err != nil {
			return err
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return group, created, nil
}

func (s *SQLiteStore) GetDocumentGroup(ctx context.Context, groupID string) (*model.DocumentGroup, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, type, parent_group_id, created_at FROM document_groups WHERE id = ?`,
		groupID,
	)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get document group %s", groupID)
	}
	return g, nil
}

func (s *SQLiteStore) UpsertExtraction(ctx context.Context, rec *model.ExtractionRecord) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO assessment_extractions
			(id, document_group_id, payload, raw_text, model, pdf_page_count, pdf_credits,
			 input_tokens, output_tokens, total_tokens, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (document_group_id) DO UPDATE SET
			payload = excluded.payload,
			raw_text = excluded.raw_text,
			model = excluded.model,
			pdf_page_count = excluded.pdf_page_count,
			pdf_credits = excluded.pdf_credits,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			total_tokens = excluded.total_tokens,
			updated_at = excluded.updated_at
		 RETURNING id`,
		uuid.New().String(), rec.DocumentGroupID, string(rec.Payload), rec.RawText, rec.Model,
		rec.PDFPageCount, rec.PDFCredits, rec.InputTokens, rec.OutputTokens, rec.TotalTokens,
		time.Now().UTC(), time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: upsert extraction for group %s", rec.DocumentGroupID)
	}
	return id, nil
}

func (s *SQLiteStore) GetExtraction(ctx context.Context, groupID string) (*model.ExtractionRecord, error) {
	var r model.ExtractionRecord
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_group_id, payload, raw_text, model, pdf_page_count, pdf_credits,
			input_tokens, output_tokens, total_tokens, updated_at
		 FROM assessment_extractions WHERE document_group_id = ?`,
		groupID,
	).Scan(&r.ID, &r.DocumentGroupID, &payload, &r.RawText, &r.Model, &r.PDFPageCount, &r.PDFCredits,
		&r.InputTokens, &r.OutputTokens, &r.TotalTokens, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get extraction for group %s", groupID)
	}
	r.Payload = []byte(payload)
	return &r, nil
}

func (s *SQLiteStore) UpsertValuation(ctx context.Context, rec *model.ValuationRecord) error {
	fetchedAt := rec.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	var raw *string
	if len(rec.RawResponse) > 0 {
		v := string(rec.RawResponse)
		raw = &v
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO property_valuations
			(id, document_group_id, provider, provider_id, amount, currency, confidence,
			 valuation_date, raw_response, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (document_group_id, provider) DO UPDATE SET
			provider_id = excluded.provider_id,
			amount = excluded.amount,
			currency = excluded.currency,
			confidence = excluded.confidence,
			valuation_date = excluded.valuation_date,
			raw_response = excluded.raw_response,
			fetched_at = excluded.fetched_at`,
		uuid.New().String(), rec.DocumentGroupID, rec.Provider, rec.ProviderID, rec.Amount,
		rec.Currency, rec.Confidence, rec.ValuationDate, raw, fetchedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert %s valuation for group %s", rec.Provider, rec.DocumentGroupID)
}

func (s *SQLiteStore) GetValuation(ctx context.Context, groupID, provider string) (*model.ValuationRecord, error) {
	var r model.ValuationRecord
	var raw *string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_group_id, provider, provider_id, amount, currency, confidence,
			valuation_date, raw_response, fetched_at
		 FROM property_valuations WHERE document_group_id = ? AND provider = ?`,
		groupID, provider,
	).Scan(&r.ID, &r.DocumentGroupID, &r.Provider, &r.ProviderID, &r.Amount, &r.Currency,
		&r.Confidence, &r.ValuationDate, &raw, &r.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s valuation for group %s", provider, groupID)
	}
	if raw != nil {
		r.RawResponse = []byte(*raw)
	}
	return &r, nil
}

func (s *SQLiteStore) EnsureLetterGroup(ctx context.Context, parentGroupID, userID string) (*model.DocumentGroup, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, type, parent_group_id, created_at FROM document_groups
		 WHERE parent_group_id = ? AND type = ? ORDER BY created_at LIMIT 1`,
		parentGroupID, string(model.DocumentGroupGenerated),
	)
	g, err := scanGroup(row)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(err, "sqlite: find letter group for %s", parentGroupID)
	}

	parent := parentGroupID
	g = &model.DocumentGroup{
		ID:            uuid.New().String(),
		UserID:        userID,
		Type:          model.DocumentGroupGenerated,
		ParentGroupID: &parent,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO document_groups (id, user_id, type, parent_group_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.UserID, string(g.Type), parent, g.CreatedAt,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: create letter group for %s", parentGroupID)
	}
	return g, nil
}

func (s *SQLiteStore) NextDocumentVersion(ctx context.Context, groupID string) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM documents WHERE group_id = ?`,
		groupID,
	).Scan(&next)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: next document version for %s", groupID)
	}
	return next, nil
}

func (s *SQLiteStore) CreateGeneratedDocument(ctx context.Context, doc model.NewDocument) (*model.Document, error) {
	doc.Source = model.DocumentSourceGenerated
	var created *model.Document
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET is_active = 0 WHERE group_id = ?`,
			doc.GroupID,
		); err != nil {
			return eris.Wrapf(err, "sqlite: deactivate documents in %s", doc.GroupID)
		}
		d, err := insertDocumentSQLite(ctx, tx, doc, time.Now().UTC())
		if err != nil {
			return err
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *SQLiteStore) UpsertTaxProfile(ctx context.Context, profile model.JurisdictionTaxProfile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jurisdiction_tax_profiles (fips, name, default_assessment_ratio, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (fips) DO UPDATE SET
			name = excluded.name,
			default_assessment_ratio = excluded.default_assessment_ratio,
			updated_at = excluded.updated_at`,
		profile.FIPS, profile.Name, profile.DefaultAssessmentRatio, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert tax profile %s", profile.FIPS)
}

func (s *SQLiteStore) GetAssessmentRatio(ctx context.Context, fips string) (*float64, error) {
	var ratio *float64
	err := s.db.QueryRowContext(ctx,
		`SELECT default_assessment_ratio FROM jurisdiction_tax_profiles WHERE fips = ?`,
		fips,
	).Scan(&ratio)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get assessment ratio %s", fips)
	}
	return ratio, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, groupID string) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, version_number, storage_path, file_hash, size_bytes, mime_type,
			label, source, is_active, created_at
		 FROM documents WHERE group_id = ? ORDER BY version_number DESC`,
		groupID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list documents in %s", groupID)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		var source string
		if err := rows.Scan(&d.ID, &d.GroupID, &d.VersionNumber, &d.StoragePath, &d.FileHash,
			&d.SizeBytes, &d.MimeType, &d.Label, &source, &d.IsActive, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		d.Source = model.DocumentSource(source)
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list documents iterate")
}

func insertDocumentSQLite(ctx context.Context, tx *sql.Tx, doc model.NewDocument, now time.Time) (*model.Document, error) {
	d := &model.Document{
		ID:            uuid.New().String(),
		GroupID:       doc.GroupID,
		VersionNumber: doc.VersionNumber,
		StoragePath:   doc.StoragePath,
		FileHash:      doc.FileHash,
		SizeBytes:     doc.SizeBytes,
		MimeType:      doc.MimeType,
		Label:         doc.Label,
		Source:        doc.Source,
		IsActive:      true,
		CreatedAt:     now,
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO documents
			(id, group_id, version_number, storage_path, file_hash, size_bytes, mime_type, label, source, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.GroupID, d.VersionNumber, d.StoragePath, d.FileHash, d.SizeBytes,
		d.MimeType, d.Label, string(d.Source), d.IsActive, d.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert document v%d in %s", doc.VersionNumber, doc.GroupID)
	}
	return d, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanGroup(row scannable) (*model.DocumentGroup, error) {
	var g model.DocumentGroup
	var groupType string
	if err := row.Scan(&g.ID, &g.UserID, &groupType, &g.ParentGroupID, &g.CreatedAt); err != nil {
		return nil, err
	}
	g.Type = model.DocumentGroupType(groupType)
	return &g, nil
}
