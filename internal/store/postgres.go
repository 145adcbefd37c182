package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/appeal-cli/internal/db"
	"github.com/sells-group/appeal-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS document_groups (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL REFERENCES users(id),
	type            TEXT NOT NULL,
	parent_group_id TEXT REFERENCES document_groups(id),
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_document_groups_parent ON document_groups(parent_group_id, type);

CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	group_id       TEXT NOT NULL REFERENCES document_groups(id),
	version_number INTEGER NOT NULL,
	storage_path   TEXT NOT NULL,
	file_hash      TEXT NOT NULL,
	size_bytes     BIGINT NOT NULL,
	mime_type      TEXT NOT NULL,
	label          TEXT NOT NULL DEFAULT '',
	source         TEXT NOT NULL,
	is_active      BOOLEAN NOT NULL DEFAULT true,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (group_id, version_number)
);

CREATE TABLE IF NOT EXISTS assessment_extractions (
	id                TEXT PRIMARY KEY,
	document_group_id TEXT NOT NULL UNIQUE REFERENCES document_groups(id),
	payload           JSONB NOT NULL,
	raw_text          TEXT NOT NULL,
	model             TEXT NOT NULL,
	pdf_page_count    BIGINT,
	pdf_credits       BIGINT,
	input_tokens      BIGINT,
	output_tokens     BIGINT,
	total_tokens      BIGINT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS property_valuations (
	id                TEXT PRIMARY KEY,
	document_group_id TEXT NOT NULL REFERENCES document_groups(id),
	provider          TEXT NOT NULL,
	provider_id       TEXT,
	amount            BIGINT,
	currency          TEXT,
	confidence        TEXT,
	valuation_date    TIMESTAMPTZ,
	raw_response      JSONB,
	fetched_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (document_group_id, provider)
);

CREATE TABLE IF NOT EXISTS jurisdiction_tax_profiles (
	fips                     TEXT PRIMARY KEY,
	name                     TEXT NOT NULL DEFAULT '',
	default_assessment_ratio DOUBLE PRECISION,
	updated_at               TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateUpload(ctx context.Context, userID string, doc model.NewDocument) (*model.DocumentGroup, *model.Document, error) {
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
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, created_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			userID, now,
		); err != nil {
			return eris.Wrapf(err, "postgres: upsert user %s", userID)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO document_groups (id, user_id, type, parent_group_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
			group.ID, group.UserID, string(group.Type), nil, now,
		); err != nil {
			return eris.Wrap(err, "postgres: insert document group")
		}

		d, err := insertDocumentPg(ctx, tx, doc, now)
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

func (s *PostgresStore) GetDocumentGroup(ctx context.Context, groupID string) (*model.DocumentGroup, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, type, parent_group_id, created_at FROM document_groups WHERE id = $1`,
		groupID,
	)
	g, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get document group %s", groupID)
	}
	return g, nil
}

func (s *PostgresStore) UpsertExtraction(ctx context.Context, rec *model.ExtractionRecord) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO assessment_extractions
			(id, document_group_id, payload, raw_text, model, pdf_page_count, pdf_credits,
			 input_tokens, output_tokens, total_tokens, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		 ON CONFLICT (document_group_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			raw_text = EXCLUDED.raw_text,
			model = EXCLUDED.model,
			pdf_page_count = EXCLUDED.pdf_page_count,
			pdf_credits = EXCLUDED.pdf_credits,
			input_tokens = EXCLUDED.input_tokens,
			output_tokens = EXCLUDED.output_tokens,
			total_tokens = EXCLUDED.total_tokens,
			updated_at = EXCLUDED.updated_at
		 RETURNING id`,
		uuid.New().String(), rec.DocumentGroupID, []byte(rec.Payload), rec.RawText, rec.Model,
		rec.PDFPageCount, rec.PDFCredits, rec.InputTokens, rec.OutputTokens, rec.TotalTokens,
		time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: upsert extraction for group %s", rec.DocumentGroupID)
	}
	return id, nil
}

func (s *PostgresStore) GetExtraction(ctx context.Context, groupID string) (*model.ExtractionRecord, error) {
	var r model.ExtractionRecord
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, document_group_id, payload, raw_text, model, pdf_page_count, pdf_credits,
			input_tokens, output_tokens, total_tokens, updated_at
		 FROM assessment_extractions WHERE document_group_id = $1`,
		groupID,
	).Scan(&r.ID, &r.DocumentGroupID, &payload, &r.RawText, &r.Model, &r.PDFPageCount, &r.PDFCredits,
		&r.InputTokens, &r.OutputTokens, &r.TotalTokens, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get extraction for group %s", groupID)
	}
	r.Payload = payload
	return &r, nil
}

func (s *PostgresStore) UpsertValuation(ctx context.Context, rec *model.ValuationRecord) error {
	fetchedAt := rec.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	var raw []byte
	if len(rec.RawResponse) > 0 {
		raw = rec.RawResponse
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO property_valuations
			(id, document_group_id, provider, provider_id, amount, currency, confidence,
			 valuation_date, raw_response, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (document_group_id, provider) DO UPDATE SET
			provider_id = EXCLUDED.provider_id,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			confidence = EXCLUDED.confidence,
			valuation_date = EXCLUDED.valuation_date,
			raw_response = EXCLUDED.raw_response,
			fetched_at = EXCLUDED.fetched_at`,
		uuid.New().String(), rec.DocumentGroupID, rec.Provider, rec.ProviderID, rec.Amount,
		rec.Currency, rec.Confidence, rec.ValuationDate, raw, fetchedAt,
	)
	return eris.Wrapf(err, "postgres: upsert %s valuation for group %s", rec.Provider, rec.DocumentGroupID)
}

func (s *PostgresStore) GetValuation(ctx context.Context, groupID, provider string) (*model.ValuationRecord, error) {
	var r model.ValuationRecord
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, document_group_id, provider, provider_id, amount, currency, confidence,
			valuation_date, raw_response, fetched_at
		 FROM property_valuations WHERE document_group_id = $1 AND provider = $2`,
		groupID, provider,
	).Scan(&r.ID, &r.DocumentGroupID, &r.Provider, &r.ProviderID, &r.Amount, &r.Currency,
		&r.Confidence, &r.ValuationDate, &raw, &r.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s valuation for group %s", provider, groupID)
	}
	r.RawResponse = raw
	return &r, nil
}

func (s *PostgresStore) EnsureLetterGroup(ctx context.Context, parentGroupID, userID string) (*model.DocumentGroup, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, type, parent_group_id, created_at FROM document_groups
		 WHERE parent_group_id = $1 AND type = $2 ORDER BY created_at LIMIT 1`,
		parentGroupID, string(model.DocumentGroupGenerated),
	)
	g, err := scanGroup(row)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(err, "postgres: find letter group for %s", parentGroupID)
	}

	parent := parentGroupID
	g = &model.DocumentGroup{
		ID:            uuid.New().String(),
		UserID:        userID,
		Type:          model.DocumentGroupGenerated,
		ParentGroupID: &parent,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO document_groups (id, user_id, type, parent_group_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		g.ID, g.UserID, string(g.Type), parent, g.CreatedAt,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: create letter group for %s", parentGroupID)
	}
	return g, nil
}

func (s *PostgresStore) NextDocumentVersion(ctx context.Context, groupID string) (int, error) {
	var next int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM documents WHERE group_id = $1`,
		groupID,
	).Scan(&next)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: next document version for %s", groupID)
	}
	return next, nil
}

func (s *PostgresStore) CreateGeneratedDocument(ctx context.Context, doc model.NewDocument) (*model.Document, error) {
	doc.Source = model.DocumentSourceGenerated
	var created *model.Document
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE documents SET is_active = false WHERE group_id = $1`,
			doc.GroupID,
		); err != nil {
			return eris.Wrapf(err, "postgres: deactivate documents in %s", doc.GroupID)
		}
		d, err := insertDocumentPg(ctx, tx, doc, time.Now().UTC())
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

func (s *PostgresStore) UpsertTaxProfile(ctx context.Context, profile model.JurisdictionTaxProfile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jurisdiction_tax_profiles (fips, name, default_assessment_ratio, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (fips) DO UPDATE SET
			name = EXCLUDED.name,
			default_assessment_ratio = EXCLUDED.default_assessment_ratio,
			updated_at = EXCLUDED.updated_at`,
		profile.FIPS, profile.Name, profile.DefaultAssessmentRatio, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert tax profile %s", profile.FIPS)
}

func (s *PostgresStore) GetAssessmentRatio(ctx context.Context, fips string) (*float64, error) {
	var ratio *float64
	err := s.pool.QueryRow(ctx,
		`SELECT default_assessment_ratio FROM jurisdiction_tax_profiles WHERE fips = $1`,
		fips,
	).Scan(&ratio)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get assessment ratio %s", fips)
	}
	return ratio, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, groupID string) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, group_id, version_number, storage_path, file_hash, size_bytes, mime_type,
			label, source, is_active, created_at
		 FROM documents WHERE group_id = $1 ORDER BY version_number DESC`,
		groupID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list documents in %s", groupID)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		var source string
		if err := rows.Scan(&d.ID, &d.GroupID, &d.VersionNumber, &d.StoragePath, &d.FileHash,
			&d.SizeBytes, &d.MimeType, &d.Label, &source, &d.IsActive, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		d.Source = model.DocumentSource(source)
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list documents iterate")
}

func insertDocumentPg(ctx context.Context, tx pgx.Tx, doc model.NewDocument, now time.Time) (*model.Document, error) {
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
	_, err := tx.Exec(ctx,
		`INSERT INTO documents
			(id, group_id, version_number, storage_path, file_hash, size_bytes, mime_type, label, source, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.GroupID, d.VersionNumber, d.StoragePath, d.FileHash, d.SizeBytes,
		d.MimeType, d.Label, string(d.Source), d.IsActive, d.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert document v%d in %s", doc.VersionNumber, doc.GroupID)
	}
	return d, nil
}
