package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"document-routing-server/internal/model"
	"document-routing-server/internal/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recipientRows = []string{
	"uuid", "document_uuid", "sequence", "department_id", "user_uuid", "forwarded_by",
	"final_recipient_department_id", "status", "is_active", "comments",
	"responded_at", "received_at", "received_by", "created_at",
}

func TestRecipientRepository_ListByDocument(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewRecipientRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM document_recipients\s+WHERE document_uuid = \$1\s+ORDER BY sequence ASC, created_at ASC`).
		WithArgs("doc1").
		WillReturnRows(sqlmock.NewRows(recipientRows).
			AddRow("r1", "doc1", 1, "dep-b", nil, "owner", "dep-c", "forwarded", false, nil, now, nil, nil, now).
			AddRow("r2", "doc1", 2, "dep-c", nil, "u-b", "dep-c", "pending", true, nil, nil, nil, nil, now))

	entries, err := repo.ListByDocument(context.Background(), db, "doc1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Sequence)
	assert.Equal(t, model.RecipientForwarded, entries[0].Status)
	assert.Equal(t, "dep-c", *entries[1].DepartmentID)
	assert.True(t, entries[1].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepository_Insert(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewRecipientRepository(db)

	departmentID := "dep-c"
	forwardedBy := "u-b"
	final := "dep-c"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_recipients")).
		WithArgs("r2", "doc1", 2, &departmentID, nil, &forwardedBy, &final,
			model.RecipientPending, true, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), db, &model.DocumentRecipient{
		UUID:                       "r2",
		DocumentUUID:               "doc1",
		Sequence:                   2,
		DepartmentID:               &departmentID,
		ForwardedBy:                &forwardedBy,
		FinalRecipientDepartmentID: &final,
		Status:                     model.RecipientPending,
		IsActive:                   true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepository_Close_WithoutReceiver(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewRecipientRepository(db)

	mock.ExpectExec(`UPDATE document_recipients\s+SET status = \$2`).
		WithArgs("r1", model.RecipientForwarded, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Close(context.Background(), db, "r1", model.RecipientForwarded, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepository_Close_WithReceiver(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewRecipientRepository(db)

	receivedBy := "u-c"
	mock.ExpectExec(`received_at = CASE WHEN \$3::text IS NOT NULL THEN NOW\(\) ELSE received_at END`).
		WithArgs("r1", model.RecipientReceived, &receivedBy).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Close(context.Background(), db, "r1", model.RecipientReceived, &receivedBy)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepository_Deactivate(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := repository.NewRecipientRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE document_recipients SET is_active = FALSE WHERE uuid = $1`)).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Deactivate(context.Background(), db, "r1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
