package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/appeal-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateUpload(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs("user-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO document_groups`).
		WithArgs(pgxmock.AnyArg(), "user-1", "UPLOAD", nil, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 1, "ingest/2025/abc.pdf", "deadbeef", int64(1024),
			"application/pdf", "notice.pdf", "UPLOADED", true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	group, doc, err := s.CreateUpload(context.Background(), "user-1", uploadDoc())
	require.NoError(t, err)
	assert.Equal(t, model.DocumentGroupUpload, group.Type)
	assert.Equal(t, group.ID, doc.GroupID)
	assert.Equal(t, 1, doc.VersionNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateUpload_RollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO document_groups`).WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, _, err := s.CreateUpload(context.Background(), "user-1", uploadDoc())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: insert document group")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDocumentGroup(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, user_id, type, parent_group_id, created_at FROM document_groups WHERE id = \$1`).
		WithArgs("g-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "type", "parent_group_id", "created_at"}).
			AddRow("g-1", "user-1", "UPLOAD", nil, created))

	g, err := s.GetDocumentGroup(context.Background(), "g-1")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, model.DocumentGroupUpload, g.Type)
	assert.Nil(t, g.ParentGroupID)
	assert.Equal(t, created, g.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDocumentGroup_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM document_groups WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	g, err := s.GetDocumentGroup(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, g)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDocumentGroup_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM document_groups`).WillReturnError(errors.New("conn refused"))

	_, err := s.GetDocumentGroup(context.Background(), "g-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: get document group g-1")
}

func TestPostgresStore_UpsertExtraction(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`(?s)INSERT INTO assessment_extractions .* ON CONFLICT \(document_group_id\) DO UPDATE .* RETURNING id`).
		WithArgs(pgxmock.AnyArg(), "g-1", []byte(`{"parcelId":null}`), "text", "gpt-4o-mini",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("ext-1"))

	id, err := s.UpsertExtraction(context.Background(), &model.ExtractionRecord{
		DocumentGroupID: "g-1",
		Payload:         json.RawMessage(`{"parcelId":null}`),
		RawText:         "text",
		Model:           "gpt-4o-mini",
	})
	require.NoError(t, err)
	assert.Equal(t, "ext-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetExtraction_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM assessment_extractions WHERE document_group_id = \$1`).
		WithArgs("g-1").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.GetExtraction(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertValuation(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`(?s)INSERT INTO property_valuations .* ON CONFLICT \(document_group_id, provider\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "g-1", "zillow", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertValuation(context.Background(), &model.ValuationRecord{
		DocumentGroupID: "g-1",
		Provider:        "zillow",
		Amount:          int64p(405123),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertValuation_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO property_valuations`).WillReturnError(errors.New("boom"))

	err := s.UpsertValuation(context.Background(), &model.ValuationRecord{DocumentGroupID: "g-1", Provider: "zillow"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: upsert zillow valuation for group g-1")
}

func TestPostgresStore_GetValuation_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM property_valuations WHERE document_group_id = \$1 AND provider = \$2`).
		WithArgs("g-1", "zillow").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.GetValuation(context.Background(), "g-1", "zillow")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureLetterGroup_Creates(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM document_groups\s+WHERE parent_group_id = \$1 AND type = \$2`).
		WithArgs("g-1", "GENERATED").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO document_groups`).
		WithArgs(pgxmock.AnyArg(), "user-1", "GENERATED", "g-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	g, err := s.EnsureLetterGroup(context.Background(), "g-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentGroupGenerated, g.Type)
	require.NotNil(t, g.ParentGroupID)
	assert.Equal(t, "g-1", *g.ParentGroupID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureLetterGroup_Existing(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	parent := "g-1"

	mock.ExpectQuery(`FROM document_groups\s+WHERE parent_group_id = \$1`).
		WithArgs("g-1", "GENERATED").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "type", "parent_group_id", "created_at"}).
			AddRow("letters-1", "user-1", "GENERATED", &parent, time.Now()))

	g, err := s.EnsureLetterGroup(context.Background(), "g-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "letters-1", g.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_NextDocumentVersion(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version_number\), 0\) \+ 1 FROM documents WHERE group_id = \$1`).
		WithArgs("letters-1").
		WillReturnRows(pgxmock.NewRows([]string{"next"}).AddRow(3))

	v, err := s.NextDocumentVersion(context.Background(), "letters-1")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateGeneratedDocument(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE documents SET is_active = false WHERE group_id = \$1`).
		WithArgs("letters-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(pgxmock.AnyArg(), "letters-1", 3, "u/letters-1/v3/appeal-letter-v3.pdf", "abc", int64(10),
			"application/pdf", "Appeal Letter v3", "GENERATED", true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	doc, err := s.CreateGeneratedDocument(context.Background(), model.NewDocument{
		GroupID:       "letters-1",
		VersionNumber: 3,
		StoragePath:   "u/letters-1/v3/appeal-letter-v3.pdf",
		FileHash:      "abc",
		SizeBytes:     10,
		MimeType:      "application/pdf",
		Label:         "Appeal Letter v3",
	})
	require.NoError(t, err)
	assert.Equal(t, model.DocumentSourceGenerated, doc.Source)
	assert.True(t, doc.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAssessmentRatio_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT default_assessment_ratio FROM jurisdiction_tax_profiles WHERE fips = \$1`).
		WithArgs("00000").
		WillReturnError(pgx.ErrNoRows)

	ratio, err := s.GetAssessmentRatio(context.Background(), "00000")
	require.NoError(t, err)
	assert.Nil(t, ratio)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertTaxProfile(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	r := 0.35

	mock.ExpectExec(`(?s)INSERT INTO jurisdiction_tax_profiles .* ON CONFLICT \(fips\) DO UPDATE`).
		WithArgs("39049", "Franklin County, OH", &r, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertTaxProfile(context.Background(), model.JurisdictionTaxProfile{
		FIPS: "39049", Name: "Franklin County, OH", DefaultAssessmentRatio: &r,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MigrateAndPing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`SELECT 1`).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
