package rfpo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

var ErrNotEditable = errors.New("request can no longer be edited")

// Repository persists RFPOs and exposes them to the approval engine.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func generateNumber(now time.Time) string {
	return fmt.Sprintf("RFPO-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// Create stores a new draft request.
func (r *Repository) Create(ctx context.Context, createReq *CreateRFPODTO, createdBy string) (*RFPO, error) {
	if createReq == nil {
		return nil, fmt.Errorf("create request cannot be nil")
	}
	rec := &RFPO{
		RFPONumber:   generateNumber(time.Now().UTC()),
		Title:        strings.TrimSpace(createReq.Title),
		Description:  createReq.Description,
		VendorID:     createReq.VendorID,
		ProjectID:    createReq.ProjectID,
		TeamID:       createReq.TeamID,
		ConsortiumID: createReq.ConsortiumID,
		Status:       model.RequestStatusDraft,
		CreatedBy:    createdBy,
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("failed to create rfpo: %w", err)
	}
	log.Info().Str("rfpo_id", rec.ID.String()).Str("rfpo_number", rec.RFPONumber).Msg("rfpo created")
	return rec, nil
}

// Get loads a request with its line items and files.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*RFPO, error) {
	return r.getInTx(ctx, r.db, id)
}

func (r *Repository) getInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*RFPO, error) {
	var rec RFPO
	err := tx.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrRequestNotFound, id)
		}
		return nil, fmt.Errorf("failed to get rfpo %s: %w", id, err)
	}
	return &rec, nil
}

// lockInTx takes a row lock on the request. Edits and submission both hold it, so a
// submission never plans against line items or files that are still changing.
func (r *Repository) lockInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	var rec RFPO
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Take(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", model.ErrRequestNotFound, id)
		}
		return fmt.Errorf("failed to lock rfpo %s: %w", id, err)
	}
	return nil
}

func (r *Repository) getLockedInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*RFPO, error) {
	if err := r.lockInTx(ctx, tx, id); err != nil {
		return nil, err
	}
	return r.getInTx(ctx, tx, id)
}

// AddLineItem appends a line to an editable request.
func (r *Repository) AddLineItem(ctx context.Context, rfpoID uuid.UUID, itemReq *AddLineItemDTO, actorID string) (*LineItem, error) {
	var item *LineItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.getLockedInTx(ctx, tx, rfpoID)
		if err != nil {
			return err
		}
		if !rec.IsEditable() {
			return fmt.Errorf("%w: status is %s", ErrNotEditable, rec.Status)
		}

		item = &LineItem{
			RFPOID:      rfpoID,
			LineNumber:  len(rec.LineItems) + 1,
			Description: itemReq.Description,
			Quantity:    itemReq.Quantity,
			UnitPrice:   itemReq.UnitPrice,
			TotalPrice:  int64(itemReq.Quantity) * itemReq.UnitPrice,
		}
		if err := tx.Create(item).Error; err != nil {
			return fmt.Errorf("failed to create line item: %w", err)
		}
		return tx.Model(&RFPO{}).Where("id = ?", rfpoID).Update("updated_by", actorID).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RecordFile attaches uploaded file metadata to an editable request.
func (r *Repository) RecordFile(ctx context.Context, file *UploadedFile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.getLockedInTx(ctx, tx, file.RFPOID)
		if err != nil {
			return err
		}
		if !rec.IsEditable() {
			return fmt.Errorf("%w: status is %s", ErrNotEditable, rec.Status)
		}
		if err := tx.Create(file).Error; err != nil {
			return fmt.Errorf("failed to record uploaded file: %w", err)
		}
		return nil
	})
}

// GetRequest returns the approval view of a request.
func (r *Repository) GetRequest(ctx context.Context, requestID uuid.UUID) (*model.ApprovalRequest, error) {
	return r.GetRequestInTx(ctx, r.db, requestID)
}

func (r *Repository) GetRequestInTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*model.ApprovalRequest, error) {
	rec, err := r.getInTx(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	return rec.ApprovalView(), nil
}

// LockRequestInTx locks the request row for the rest of tx and returns its approval view as
// read under that lock.
func (r *Repository) LockRequestInTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*model.ApprovalRequest, error) {
	rec, err := r.getLockedInTx(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	return rec.ApprovalView(), nil
}

// UpdateRequestStatusInTx writes the request status as part of an approval transition.
func (r *Repository) UpdateRequestStatusInTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, status model.RequestStatus, actorID string) error {
	result := tx.WithContext(ctx).Model(&RFPO{}).
		Where("id = ?", requestID).
		Updates(map[string]any{"status": status, "updated_by": actorID, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to update status of request %s: %w", requestID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", model.ErrRequestNotFound, requestID)
	}
	return nil
}
