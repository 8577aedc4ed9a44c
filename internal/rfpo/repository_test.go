package rfpo

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/testutil"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

func strPtr(s string) *string { return &s }

func setupRepo(t *testing.T) (*gorm.DB, *Repository) {
	t.Helper()
	db := testutil.NewSQLiteDB(t, &RFPO{}, &LineItem{}, &UploadedFile{})
	return db, NewRepository(db)
}

func TestRepository_ApprovalView(t *testing.T) {
	_, repo := setupRepo(t)
	ctx := context.Background()

	rec, err := repo.Create(ctx, &CreateRFPODTO{
		Title:        "  Dyno time  ",
		VendorID:     strPtr("V-100"),
		ConsortiumID: strPtr("C-1"),
	}, "U1")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusDraft, rec.Status)
	assert.Contains(t, rec.RFPONumber, "RFPO-")

	_, err = repo.AddLineItem(ctx, rec.ID, &AddLineItemDTO{Description: "Hours", Quantity: 4, UnitPrice: 12500}, "U1")
	require.NoError(t, err)
	second, err := repo.AddLineItem(ctx, rec.ID, &AddLineItemDTO{Description: "Setup", Quantity: 1, UnitPrice: 2000}, "U1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.LineNumber)

	require.NoError(t, repo.RecordFile(ctx, &UploadedFile{RFPOID: rec.ID, FileName: "q.pdf", StorageKey: "k1", DocumentType: "quote"}))
	require.NoError(t, repo.RecordFile(ctx, &UploadedFile{RFPOID: rec.ID, FileName: "misc.txt", StorageKey: "k2"}))

	view, err := repo.GetRequest(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dyno time", view.Title)
	assert.Equal(t, int64(52000), view.TotalAmount)
	assert.Equal(t, 2, view.LineItemCount)
	assert.Equal(t, []string{"quote"}, view.DocumentTypes)
	ref, ok := view.EntityRef(model.WorkflowTypeConsortium)
	assert.True(t, ok)
	assert.Equal(t, "C-1", ref)
	_, ok = view.EntityRef(model.WorkflowTypeProject)
	assert.False(t, ok)
}

func TestRepository_StatusGuardsEditing(t *testing.T) {
	db, repo := setupRepo(t)
	ctx := context.Background()

	rec, err := repo.Create(ctx, &CreateRFPODTO{Title: "Sensors", VendorID: strPtr("V-2")}, "U1")
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return repo.UpdateRequestStatusInTx(ctx, tx, rec.ID, model.RequestStatusSubmitted, "U1")
	})
	require.NoError(t, err)

	_, err = repo.AddLineItem(ctx, rec.ID, &AddLineItemDTO{Description: "x", Quantity: 1, UnitPrice: 1}, "U1")
	assert.ErrorIs(t, err, ErrNotEditable)

	err = repo.RecordFile(ctx, &UploadedFile{RFPOID: rec.ID, FileName: "late.pdf", StorageKey: "k3"})
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestRepository_NotFound(t *testing.T) {
	db, repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.GetRequest(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrRequestNotFound)

	err = db.Transaction(func(tx *gorm.DB) error {
		return repo.UpdateRequestStatusInTx(ctx, tx, uuid.New(), model.RequestStatusApproved, "U1")
	})
	assert.ErrorIs(t, err, model.ErrRequestNotFound)
}

func setupMockRepo(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *Repository) {
	t.Helper()
	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, sqlMock, NewRepository(db)
}

func TestRepository_LockRequestInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns View Read Under Lock", func(t *testing.T) {
		db, repo := setupRepo(t)
		rec, err := repo.Create(ctx, &CreateRFPODTO{Title: "Chamber", VendorID: strPtr("V-3"), TeamID: strPtr("T-1")}, "U1")
		require.NoError(t, err)
		_, err = repo.AddLineItem(ctx, rec.ID, &AddLineItemDTO{Description: "Rental", Quantity: 2, UnitPrice: 700}, "U1")
		require.NoError(t, err)

		var view *model.ApprovalRequest
		err = db.Transaction(func(tx *gorm.DB) error {
			var err error
			view, err = repo.LockRequestInTx(ctx, tx, rec.ID)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1400), view.TotalAmount)
		assert.Equal(t, 1, view.LineItemCount)
		assert.Equal(t, model.RequestStatusDraft, view.Status)
	})

	t.Run("Not Found", func(t *testing.T) {
		db, repo := setupRepo(t)
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := repo.LockRequestInTx(ctx, tx, uuid.New())
			return err
		})
		assert.ErrorIs(t, err, model.ErrRequestNotFound)
	})

	t.Run("Takes Row Lock Before Loading", func(t *testing.T) {
		db, sqlMock, repo := setupMockRepo(t)
		sqlMock.ExpectBegin()
		tx := db.Begin()

		id := uuid.New()
		sqlMock.ExpectQuery(`SELECT .* FROM "rfpos" WHERE id = \$1 LIMIT \$2 FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.LockRequestInTx(ctx, tx, id)
		assert.ErrorIs(t, err, model.ErrRequestNotFound)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Lock Error", func(t *testing.T) {
		db, sqlMock, repo := setupMockRepo(t)
		sqlMock.ExpectBegin()
		tx := db.Begin()

		sqlMock.ExpectQuery(`FOR UPDATE`).WillReturnError(errors.New("could not obtain lock"))

		_, err := repo.LockRequestInTx(ctx, tx, uuid.New())
		assert.ErrorContains(t, err, "could not obtain lock")
		assert.NotErrorIs(t, err, model.ErrRequestNotFound)
	})
}

func TestRepository_EditsTakeRowLock(t *testing.T) {
	ctx := context.Background()
	_, sqlMock, repo := setupMockRepo(t)

	id := uuid.New()
	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(`SELECT .* FROM "rfpos" WHERE id = \$1 LIMIT \$2 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	sqlMock.ExpectRollback()

	_, err := repo.AddLineItem(ctx, id, &AddLineItemDTO{Description: "x", Quantity: 1, UnitPrice: 1}, "U1")
	assert.ErrorIs(t, err, model.ErrRequestNotFound)

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(`SELECT .* FROM "rfpos" WHERE id = \$1 LIMIT \$2 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	sqlMock.ExpectRollback()

	err = repo.RecordFile(ctx, &UploadedFile{RFPOID: id, FileName: "q.pdf", StorageKey: "k"})
	assert.ErrorIs(t, err, model.ErrRequestNotFound)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
