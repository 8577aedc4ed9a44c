package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

// ApprovalRepository persists approval instances and their actions. Every method takes the
// transaction handle so that a full state transition commits or rolls back as one unit.
type ApprovalRepository interface {
	CreateInstanceInTx(ctx context.Context, tx *gorm.DB, instance *model.ApprovalInstance, phases []model.ApprovalInstancePhase) error
	GetInstanceByIDInTx(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) (*model.ApprovalInstance, error)
	GetWaitingInstanceByRequestIDInTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*model.ApprovalInstance, error)
	GetLatestInstanceByRequestIDInTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*model.ApprovalInstance, error)
	UpdateInstanceInTx(ctx context.Context, tx *gorm.DB, instance *model.ApprovalInstance) error
	DeleteInstanceInTx(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) error

	CreateActionsInTx(ctx context.Context, tx *gorm.DB, actions []model.ApprovalAction) ([]model.ApprovalAction, error)
	GetActionByIDInTx(ctx context.Context, tx *gorm.DB, actionID uuid.UUID) (*model.ApprovalAction, error)
	GetActionsByInstanceIDInTx(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) ([]model.ApprovalAction, error)
	CompleteActionInTx(ctx context.Context, tx *gorm.DB, action *model.ApprovalAction) error
	ListActionableByApproverInTx(ctx context.Context, tx *gorm.DB, approverID string, offset, limit int) ([]model.ApprovalAction, int64, error)
}

type approvalRepository struct{}

// NewApprovalRepository returns the gorm-backed ApprovalRepository.
func NewApprovalRepository() ApprovalRepository {
	return &approvalRepository{}
}

func (r *approvalRepository) CreateInstanceInTx(ctx context.Context, tx *gorm.DB, instance *model.ApprovalInstance, phases []model.ApprovalInstancePhase) error {
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(instance).Error; err != nil {
		return fmt.Errorf("failed to create approval instance: %w", err)
	}
	if len(phases) == 0 {
		return nil
	}
	for i := range phases {
		phases[i].InstanceID = instance.ID
	}
	if err := tx.WithContext(ctx).Create(&phases).Error; err != nil {
		return fmt.Errorf("failed to create approval instance phases: %w", err)
	}
	return nil
}

func (r *approvalRepository) GetInstanceByIDInTx(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) (*model.ApprovalInstance, error) {
	var instance model.ApprovalInstance
	if err := tx.WithContext(ctx).First(&instance, "id = ?", instanceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrInstanceNotFound, instanceID)
		}
		return nil, fmt.Errorf("failed to get approval instance %s: %w", instanceID, err)
	}
	return &instance, nil
}

func (r *approvalRepository) GetWaitingInstanceByRequestIDInTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*model.ApprovalInstance, error) {
	var instances []model.ApprovalInstance
	err := tx.WithContext(ctx).
		Where("request_id = ? AND overall_status = ?", requestID, model.InstanceStatusWaiting).
		Limit(1).
		Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query approval instances for request %s: %w", requestID, err)
	}
	if len(instances) == 0 {
		return nil, nil
	}
	return &instances[0], nil
}

func (r *approvalRepository) GetLatestInstanceByRequestIDInTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*model.ApprovalInstance, error) {
	var instance model.ApprovalInstance
	err := tx.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("submitted_at DESC").
		First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no instance for request %s", model.ErrInstanceNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to get approval instance for request %s: %w", requestID, err)
	}
	return &instance, nil
}

// UpdateInstanceInTx writes the live pointers and status. The snapshot is never rewritten.
func (r *approvalRepository) UpdateInstanceInTx(ctx context.Context, tx *gorm.DB, instance *model.ApprovalInstance) error {
	result := tx.WithContext(ctx).Model(&model.ApprovalInstance{}).
		Where("id = ?", instance.ID).
		Updates(map[string]any{
			"current_phase":       instance.CurrentPhase,
			"current_stage_order": instance.CurrentStageOrder,
			"current_step_order":  instance.CurrentStepOrder,
			"overall_status":      instance.OverallStatus,
			"completed_at":        instance.CompletedAt,
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update approval instance %s: %w", instance.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", model.ErrInstanceNotFound, instance.ID)
	}
	return nil
}

func (r *approvalRepository) DeleteInstanceInTx(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) error {
	db := tx.WithContext(ctx)
	if err := db.Where("instance_id = ?", instanceID).Delete(&model.ApprovalAction{}).Error; err != nil {
		return fmt.Errorf("failed to delete approval actions: %w", err)
	}
	if err := db.Where("instance_id = ?", instanceID).Delete(&model.ApprovalInstancePhase{}).Error; err != nil {
		return fmt.Errorf("failed to delete approval instance phases: %w", err)
	}
	result := db.Where("id = ?", instanceID).Delete(&model.ApprovalInstance{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete approval instance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", model.ErrInstanceNotFound, instanceID)
	}
	return nil
}

func (r *approvalRepository) CreateActionsInTx(ctx context.Context, tx *gorm.DB, actions []model.ApprovalAction) ([]model.ApprovalAction, error) {
	if len(actions) == 0 {
		return actions, nil
	}
	if err := tx.WithContext(ctx).Create(&actions).Error; err != nil {
		return nil, fmt.Errorf("failed to create approval actions: %w", err)
	}
	return actions, nil
}

func (r *approvalRepository) GetActionByIDInTx(ctx context.Context, tx *gorm.DB, actionID uuid.UUID) (*model.ApprovalAction, error) {
	var action model.ApprovalAction
	if err := tx.WithContext(ctx).First(&action, "id = ?", actionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrActionNotFound, actionID)
		}
		return nil, fmt.Errorf("failed to get approval action %s: %w", actionID, err)
	}
	return &action, nil
}

func (r *approvalRepository) GetActionsByInstanceIDInTx(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) ([]model.ApprovalAction, error) {
	var actions []model.ApprovalAction
	err := tx.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("phase_number, stage_order, step_order").
		Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get approval actions for instance %s: %w", instanceID, err)
	}
	return actions, nil
}

// CompleteActionInTx moves a pending action to its decided status. The update is conditional on
// the row still being pending, so of two racing completions exactly one succeeds; the other
// receives ErrAlreadyCompleted.
func (r *approvalRepository) CompleteActionInTx(ctx context.Context, tx *gorm.DB, action *model.ApprovalAction) error {
	result := tx.WithContext(ctx).Model(&model.ApprovalAction{}).
		Where("id = ? AND status = ?", action.ID, model.ActionStatusPending).
		Updates(map[string]any{
			"status":       action.Status,
			"comments":     action.Comments,
			"completed_at": action.CompletedAt,
			"completed_by": action.CompletedBy,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete approval action %s: %w", action.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", model.ErrAlreadyCompleted, action.ID)
	}
	return nil
}

// ListActionableByApproverInTx returns the approver's pending actions that sit at their instance's current step.
func (r *approvalRepository) ListActionableByApproverInTx(ctx context.Context, tx *gorm.DB, approverID string, offset, limit int) ([]model.ApprovalAction, int64, error) {
	query := func() *gorm.DB {
		return tx.WithContext(ctx).Model(&model.ApprovalAction{}).
			Joins("JOIN approval_instances ON approval_instances.id = approval_actions.instance_id").
			Where("approval_actions.approver_id = ? AND approval_actions.status = ?", approverID, model.ActionStatusPending).
			Where("approval_instances.overall_status = ?", model.InstanceStatusWaiting).
			Where("approval_actions.phase_number = approval_instances.current_phase").
			Where("approval_actions.stage_order = approval_instances.current_stage_order").
			Where("approval_actions.step_order = approval_instances.current_step_order")
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count pending actions: %w", err)
	}

	var actions []model.ApprovalAction
	if err := query().Order("approval_actions.created_at").Offset(offset).Limit(limit).Find(&actions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list pending actions: %w", err)
	}
	return actions, total, nil
}
