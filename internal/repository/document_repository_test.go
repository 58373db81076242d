package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"document-routing-server/config"
	"document-routing-server/internal/apperrors"
	"document-routing-server/internal/model"
	"document-routing-server/internal/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDatabase(t *testing.T) (*config.Database, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return &config.Database{DB: sqlx.NewDb(mockDB, "sqlmock")}, mock
}

var documentRows = []string{
	"uuid", "owner_uuid", "department_id", "subject", "description", "order_number",
	"document_type", "status", "is_public", "public_token", "barcode_value",
	"through_department_ids", "created_at", "updated_at", "deleted_at",
}

func documentRow(uuid string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(documentRows).AddRow(
		uuid, "owner", "dep-a", "О закупке", "", "A-091525-001",
		"order", "pending", false, nil, "A091525001",
		[]byte("{dep-b,dep-c}"), now, now, nil,
	)
}

// ===== Create =====

func TestDocumentRepository_Create_Success(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WithArgs("doc1", "owner", "dep-a", "О закупке", "", "A-091525-001",
			model.TypeOrder, model.DocStatusPending, false, "A091525001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), db, &model.Document{
		UUID:                 "doc1",
		OwnerUUID:            "owner",
		DepartmentID:         "dep-a",
		Subject:              "О закупке",
		OrderNumber:          "A-091525-001",
		DocumentType:         model.TypeOrder,
		Status:               model.DocStatusPending,
		BarcodeValue:         "A091525001",
		ThroughDepartmentIDs: pq.StringArray{"dep-b"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_Create_UniqueViolation(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	// гонка за номер приказа упирается в уникальный индекс
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), db, &model.Document{UUID: "doc1", OrderNumber: "A-091525-001"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateOrderNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ===== Чтение =====

func TestDocumentRepository_GetByUUID_Success(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM documents WHERE uuid = \$1 AND deleted_at IS NULL`).
		WithArgs("doc1").
		WillReturnRows(documentRow("doc1"))

	document, err := repo.GetByUUID(context.Background(), db, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "doc1", document.UUID)
	assert.Equal(t, pq.StringArray{"dep-b", "dep-c"}, document.ThroughDepartmentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_GetByUUID_NotFound(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM documents WHERE uuid = \$1`).
		WithArgs("no-such").
		WillReturnRows(sqlmock.NewRows(documentRows))

	_, err := repo.GetByUUID(context.Background(), db, "no-such")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDocumentRepository_GetForUpdate_LocksRow(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM documents WHERE uuid = \$1 AND deleted_at IS NULL FOR UPDATE`).
		WithArgs("doc1").
		WillReturnRows(documentRow("doc1"))

	_, err := repo.GetForUpdate(context.Background(), db, "doc1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_GetByBarcode(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	// при коллизии штрихкода берется самый свежий неархивный документ
	mock.ExpectQuery(`WHERE barcode_value = \$1 AND status <> \$2 AND deleted_at IS NULL\s+ORDER BY created_at DESC\s+LIMIT 1`).
		WithArgs("A091525001", model.DocStatusArchived).
		WillReturnRows(documentRow("doc1"))

	document, err := repo.GetByBarcode(context.Background(), db, "A091525001")
	require.NoError(t, err)
	assert.Equal(t, "A091525001", document.BarcodeValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ===== Нумерация =====

func TestDocumentRepository_MaxOrderSuffix(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(CAST(split_part(order_number, '-', 3) AS INTEGER)), 0)`)).
		WithArgs("dep-a", sqlmock.AnyArg(), sqlmock.AnyArg(), model.DocStatusArchived).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(7))

	suffix, err := repo.MaxOrderSuffix(context.Background(), db, "dep-a", model.TypeOrder, time.Now(), false)
	require.NoError(t, err)
	assert.Equal(t, 7, suffix)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_MaxOrderSuffix_PerType(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	// президентский отдел: счетчик с фильтром по типу документа
	mock.ExpectQuery(`AND document_type = \$5`).
		WithArgs("dep-p", sqlmock.AnyArg(), sqlmock.AnyArg(), model.DocStatusArchived, model.TypeMemorandum).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	suffix, err := repo.MaxOrderSuffix(context.Background(), db, "dep-p", model.TypeMemorandum, time.Now(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, suffix)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_OrderNumberExists(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("dep-a", "A-091525-007", sqlmock.AnyArg(), sqlmock.AnyArg(), model.DocStatusArchived).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.OrderNumberExists(context.Background(), db, "dep-a", "A-091525-007", time.Now())
	require.NoError(t, err)
	assert.True(t, exists)
}

// ===== Обновления и удаление =====

func TestDocumentRepository_UpdateStatus(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	mock.ExpectExec(`UPDATE documents\s+SET status = \$2, updated_at = NOW\(\)`).
		WithArgs("doc1", model.DocStatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), db, "doc1", model.DocStatusApproved)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_SetPublic(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	mock.ExpectExec(`SET is_public = TRUE, public_token = \$2`).
		WithArgs("doc1", "tok123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetPublic(context.Background(), db, "doc1", "tok123")
	require.NoError(t, err)
}

func TestDocumentRepository_Delete_ReturnsFilePaths(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT file_path FROM document_files WHERE document_uuid = $1`)).
		WithArgs("doc1").
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).
			AddRow("documents/doc1/f1.pdf").
			AddRow("documents/doc1/f2.pdf"))

	for _, table := range []string{"document_files", "document_recipients", "document_activity_logs", "documents"} {
		mock.ExpectExec(`DELETE FROM ` + table).
			WithArgs("doc1").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	paths, err := repo.Delete(context.Background(), db, "doc1")
	require.NoError(t, err)
	assert.Equal(t, []string{"documents/doc1/f1.pdf", "documents/doc1/f2.pdf"}, paths)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_ListForActor_BadCursor(t *testing.T) {
	db, _ := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	_, _, err := repo.ListForActor(context.Background(), db, "user", "dep-a", "не-дата", 20)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestDocumentRepository_ListForActor(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewDocumentRepository(db)

	mock.ExpectQuery(`SELECT DISTINCT d\.uuid`).
		WithArgs("user", "dep-a").
		WillReturnRows(documentRow("doc1"))

	docs, cursor, err := repo.ListForActor(context.Background(), db, "user", "dep-a", "", 20)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	// страница неполная — курсора нет
	assert.Empty(t, cursor)
	assert.NoError(t, mock.ExpectationsWereMet())
}
