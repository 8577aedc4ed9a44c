package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, sqlMock
}

func completedAction() *model.ApprovalAction {
	now := time.Now().UTC()
	by := "u-a"
	return &model.ApprovalAction{
		BaseModel:   model.BaseModel{ID: uuid.New()},
		Status:      model.ActionStatusApproved,
		CompletedAt: &now,
		CompletedBy: &by,
	}
}

func TestApprovalRepository_CompleteActionInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Pending Row Updated", func(t *testing.T) {
		db, sqlMock := setupTestDB(t)
		repo := NewApprovalRepository()
		sqlMock.ExpectBegin()
		tx := db.Begin()

		action := completedAction()
		sqlMock.ExpectExec(`UPDATE "approval_actions" SET .* WHERE id = \$\d+ AND status = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CompleteActionInTx(ctx, tx, action)
		assert.NoError(t, err)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Row No Longer Pending", func(t *testing.T) {
		db, sqlMock := setupTestDB(t)
		repo := NewApprovalRepository()
		sqlMock.ExpectBegin()
		tx := db.Begin()

		sqlMock.ExpectExec(`UPDATE "approval_actions" SET .* WHERE id = \$\d+ AND status = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.CompleteActionInTx(ctx, tx, completedAction())
		assert.ErrorIs(t, err, model.ErrAlreadyCompleted)
	})

	t.Run("Database Error", func(t *testing.T) {
		db, sqlMock := setupTestDB(t)
		repo := NewApprovalRepository()
		sqlMock.ExpectBegin()
		tx := db.Begin()

		sqlMock.ExpectExec(`UPDATE "approval_actions"`).WillReturnError(errors.New("deadlock detected"))

		err := repo.CompleteActionInTx(ctx, tx, completedAction())
		assert.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrAlreadyCompleted)
		assert.Contains(t, err.Error(), "deadlock detected")
	})
}

func TestApprovalRepository_GetWaitingInstanceByRequestIDInTx(t *testing.T) {
	ctx := context.Background()
	db, sqlMock := setupTestDB(t)
	repo := NewApprovalRepository()
	sqlMock.ExpectBegin()
	tx := db.Begin()

	requestID := uuid.New()
	sqlMock.ExpectQuery(`SELECT \* FROM "approval_instances" WHERE request_id = \$1 AND overall_status = \$2 LIMIT \$3`).
		WithArgs(requestID, model.InstanceStatusWaiting, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "request_id", "overall_status"}))

	instance, err := repo.GetWaitingInstanceByRequestIDInTx(ctx, tx, requestID)
	assert.NoError(t, err)
	assert.Nil(t, instance)
}

func TestApprovalRepository_UpdateInstanceInTx_NotFound(t *testing.T) {
	ctx := context.Background()
	db, sqlMock := setupTestDB(t)
	repo := NewApprovalRepository()
	sqlMock.ExpectBegin()
	tx := db.Begin()

	sqlMock.ExpectExec(`UPDATE "approval_instances" SET .* WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateInstanceInTx(ctx, tx, &model.ApprovalInstance{BaseModel: model.BaseModel{ID: uuid.New()}})
	assert.ErrorIs(t, err, model.ErrInstanceNotFound)
}

func TestApprovalRepository_DeleteInstanceInTx(t *testing.T) {
	ctx := context.Background()
	db, sqlMock := setupTestDB(t)
	repo := NewApprovalRepository()
	sqlMock.ExpectBegin()
	tx := db.Begin()

	instanceID := uuid.New()
	sqlMock.ExpectExec(`DELETE FROM "approval_actions" WHERE instance_id = \$1`).
		WithArgs(instanceID).
		WillReturnResult(sqlmock.NewResult(0, 3))
	sqlMock.ExpectExec(`DELETE FROM "approval_instance_phases" WHERE instance_id = \$1`).
		WithArgs(instanceID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	sqlMock.ExpectExec(`DELETE FROM "approval_instances" WHERE id = \$1`).
		WithArgs(instanceID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteInstanceInTx(ctx, tx, instanceID)
	assert.NoError(t, err)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
