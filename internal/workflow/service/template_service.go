package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/catalog"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
	"github.com/luckyjohnb/rfpo-application-sub000/utils"
)

// TemplateService manages workflow templates and their stages and steps.
type TemplateService struct {
	db      *gorm.DB
	catalog Catalog
	users   UserDirectory
}

// NewTemplateService creates a new instance of TemplateService.
func NewTemplateService(db *gorm.DB, catalog Catalog, users UserDirectory) *TemplateService {
	return &TemplateService{db: db, catalog: catalog, users: users}
}

// GetActiveTemplate returns the active template for a scope with its stages and steps in order,
// or nil when the scope has none.
func (s *TemplateService) GetActiveTemplate(ctx context.Context, workflowType model.WorkflowType, entityID string) (*model.WorkflowTemplate, error) {
	column := model.EntityColumn(workflowType)
	if column == "" {
		return nil, fmt.Errorf("unknown workflow type %q", workflowType)
	}

	var templates []model.WorkflowTemplate
	err := s.withStages(s.db.WithContext(ctx)).
		Where("workflow_type = ? AND is_active = ? AND "+column+" = ?", workflowType, true, entityID).
		Order("updated_at DESC").
		Limit(1).
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query active %s template: %w", workflowType, err)
	}
	if len(templates) == 0 {
		return nil, nil
	}
	return &templates[0], nil
}

func (s *TemplateService) withStages(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("stage_order") }).
		Preload("Stages.Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order") })
}

// CreateTemplate creates an inactive template with no stages.
func (s *TemplateService) CreateTemplate(ctx context.Context, createReq *model.CreateTemplateDTO, actorID string) (*model.WorkflowTemplate, error) {
	if createReq == nil {
		return nil, fmt.Errorf("create request cannot be nil")
	}
	var violations []string
	if strings.TrimSpace(createReq.Name) == "" {
		violations = append(violations, "name is required")
	}
	if !createReq.WorkflowType.IsValid() {
		violations = append(violations, fmt.Sprintf("workflow type %q is not one of project, team, consortium", createReq.WorkflowType))
	}
	if strings.TrimSpace(createReq.EntityID) == "" {
		violations = append(violations, "entity id is required")
	}
	if err := model.NewValidationError(violations...); err != nil {
		return nil, err
	}

	template := &model.WorkflowTemplate{
		Name:         strings.TrimSpace(createReq.Name),
		Description:  createReq.Description,
		Version:      createReq.Version,
		WorkflowType: createReq.WorkflowType,
		CreatedBy:    actorID,
		UpdatedBy:    actorID,
	}
	if template.Version == "" {
		template.Version = "1.0"
	}
	template.SetEntity(strings.TrimSpace(createReq.EntityID))

	if err := s.db.WithContext(ctx).Create(template).Error; err != nil {
		return nil, fmt.Errorf("failed to create workflow template: %w", err)
	}
	log.Info().Str("template_id", template.ID.String()).Str("workflow_type", string(template.WorkflowType)).
		Str("entity_id", template.EntityID()).Msg("workflow template created")
	return template, nil
}

// GetTemplate retrieves a template with its stages and steps.
func (s *TemplateService) GetTemplate(ctx context.Context, templateID uuid.UUID) (*model.WorkflowTemplate, error) {
	return s.getTemplateInTx(ctx, s.db, templateID)
}

func (s *TemplateService) getTemplateInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (*model.WorkflowTemplate, error) {
	var template model.WorkflowTemplate
	if err := s.withStages(tx.WithContext(ctx)).First(&template, "id = ?", templateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrTemplateNotFound, templateID)
		}
		return nil, fmt.Errorf("failed to get workflow template %s: %w", templateID, err)
	}
	return &template, nil
}

// ListTemplates retrieves templates matching the filter, newest first.
func (s *TemplateService) ListTemplates(ctx context.Context, filter model.TemplateFilter) (*model.TemplateListResult, error) {
	query := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&model.WorkflowTemplate{})
		if filter.WorkflowType != nil {
			q = q.Where("workflow_type = ?", *filter.WorkflowType)
			if filter.EntityID != nil {
				if column := model.EntityColumn(*filter.WorkflowType); column != "" {
					q = q.Where(column+" = ?", *filter.EntityID)
				}
			}
		} else if filter.EntityID != nil {
			q = q.Where("project_id = ? OR team_id = ? OR consortium_id = ?", *filter.EntityID, *filter.EntityID, *filter.EntityID)
		}
		if filter.ActiveOnly {
			q = q.Where("is_active = ?", true)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count workflow templates: %w", err)
	}

	offset, limit := utils.GetPaginationParams(filter.Offset, filter.Limit)
	var templates []model.WorkflowTemplate
	if err := s.withStages(query()).Order("created_at DESC").Offset(offset).Limit(limit).Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to list workflow templates: %w", err)
	}

	return &model.TemplateListResult{
		TotalCount: total,
		Items:      templates,
		Offset:     offset,
		Limit:      limit,
	}, nil
}

// UpdateTemplate edits template metadata. Scope and activation are not editable here.
func (s *TemplateService) UpdateTemplate(ctx context.Context, templateID uuid.UUID, updateReq *model.UpdateTemplateDTO, actorID string) (*model.WorkflowTemplate, error) {
	if updateReq == nil {
		return nil, fmt.Errorf("update request cannot be nil")
	}
	updates := map[string]any{"updated_by": actorID}
	if updateReq.Name != nil {
		name := strings.TrimSpace(*updateReq.Name)
		if name == "" {
			return nil, model.NewValidationError("name is required")
		}
		updates["name"] = name
	}
	if updateReq.Description != nil {
		updates["description"] = *updateReq.Description
	}
	if updateReq.Version != nil && *updateReq.Version != "" {
		updates["version"] = *updateReq.Version
	}

	var template *model.WorkflowTemplate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.WorkflowTemplate{}).Where("id = ?", templateID).Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update workflow template: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", model.ErrTemplateNotFound, templateID)
		}
		var err error
		template, err = s.getTemplateInTx(ctx, tx, templateID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

// ActivateTemplate makes the template the active one for its scope, deactivating any other
// template of the same type and entity in the same transaction.
func (s *TemplateService) ActivateTemplate(ctx context.Context, templateID uuid.UUID, actorID string) (*model.WorkflowTemplate, error) {
	var template *model.WorkflowTemplate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		template, err = s.getTemplateInTx(ctx, tx, templateID)
		if err != nil {
			return err
		}

		if _, err := s.lockScopeInTx(ctx, tx, template.WorkflowType, template.EntityID()); err != nil {
			return err
		}

		column := model.EntityColumn(template.WorkflowType)
		result := tx.Model(&model.WorkflowTemplate{}).
			Where("workflow_type = ? AND "+column+" = ? AND id <> ? AND is_active = ?",
				template.WorkflowType, template.EntityID(), template.ID, true).
			Updates(map[string]any{"is_active": false, "updated_by": actorID})
		if result.Error != nil {
			return fmt.Errorf("failed to deactivate sibling templates: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			log.Info().Str("template_id", template.ID.String()).Int64("deactivated", result.RowsAffected).
				Msg("deactivated previously active templates for scope")
		}

		if err := tx.Model(&model.WorkflowTemplate{}).Where("id = ?", template.ID).
			Updates(map[string]any{"is_active": true, "updated_by": actorID}).Error; err != nil {
			return fmt.Errorf("failed to activate workflow template: %w", err)
		}
		template.IsActive = true
		template.UpdatedBy = actorID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

// lockScopeInTx takes row locks on every template of one scope, in id order, so concurrent
// activations for the same scope run one after the other.
func (s *TemplateService) lockScopeInTx(ctx context.Context, tx *gorm.DB, workflowType model.WorkflowType, entityID string) ([]model.WorkflowTemplate, error) {
	column := model.EntityColumn(workflowType)
	if column == "" {
		return nil, fmt.Errorf("unknown workflow type %q", workflowType)
	}
	var rows []model.WorkflowTemplate
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("workflow_type = ? AND "+column+" = ?", workflowType, entityID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s templates for scope: %w", workflowType, err)
	}
	return rows, nil
}

// DeactivateTemplate clears the active flag. Running instances are unaffected.
func (s *TemplateService) DeactivateTemplate(ctx context.Context, templateID uuid.UUID, actorID string) (*model.WorkflowTemplate, error) {
	var template *model.WorkflowTemplate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.WorkflowTemplate{}).Where("id = ?", templateID).
			Updates(map[string]any{"is_active": false, "updated_by": actorID})
		if result.Error != nil {
			return fmt.Errorf("failed to deactivate workflow template: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", model.ErrTemplateNotFound, templateID)
		}
		var err error
		template, err = s.getTemplateInTx(ctx, tx, templateID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

// DeleteTemplate removes a template with its stages and steps. A template that an instance
// still waiting for approval was built from cannot be deleted.
func (s *TemplateService) DeleteTemplate(ctx context.Context, templateID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		template, err := s.getTemplateInTx(ctx, tx, templateID)
		if err != nil {
			return err
		}

		var inUse int64
		err = tx.Model(&model.ApprovalInstancePhase{}).
			Joins("JOIN approval_instances ON approval_instances.id = approval_instance_phases.instance_id").
			Where("approval_instance_phases.workflow_template_id = ? AND approval_instances.overall_status = ?",
				templateID, model.InstanceStatusWaiting).
			Count(&inUse).Error
		if err != nil {
			return fmt.Errorf("failed to check template usage: %w", err)
		}
		if inUse > 0 {
			return fmt.Errorf("%w: %d instance(s) waiting", model.ErrTemplateInUse, inUse)
		}

		approvers := approversOf(template.Stages...)
		stageIDs := make([]uuid.UUID, 0, len(template.Stages))
		for _, stage := range template.Stages {
			stageIDs = append(stageIDs, stage.ID)
		}
		if len(stageIDs) > 0 {
			if err := tx.Where("stage_id IN ?", stageIDs).Delete(&model.WorkflowStep{}).Error; err != nil {
				return fmt.Errorf("failed to delete workflow steps: %w", err)
			}
			if err := tx.Where("id IN ?", stageIDs).Delete(&model.WorkflowStage{}).Error; err != nil {
				return fmt.Errorf("failed to delete workflow stages: %w", err)
			}
		}
		if err := tx.Delete(&model.WorkflowTemplate{}, "id = ?", templateID).Error; err != nil {
			return fmt.Errorf("failed to delete workflow template: %w", err)
		}

		log.Info().Str("template_id", templateID.String()).Msg("workflow template deleted")
		return s.syncApproverFlagsInTx(ctx, tx, approvers...)
	})
}

// AddStage appends a stage gated by a catalog budget bracket. The stage name is derived from the
// bracket ceiling.
func (s *TemplateService) AddStage(ctx context.Context, templateID uuid.UUID, addReq *model.AddStageDTO) (*model.WorkflowStage, error) {
	if addReq == nil {
		return nil, fmt.Errorf("add stage request cannot be nil")
	}
	bracketKey := strings.TrimSpace(addReq.BudgetBracketKey)
	if bracketKey == "" {
		return nil, model.NewValidationError("budget bracket is required")
	}
	amount, err := s.resolveBracket(ctx, bracketKey)
	if err != nil {
		return nil, err
	}
	docTypes, err := s.normalizeDocumentTypes(ctx, addReq.RequiredDocumentTypes)
	if err != nil {
		return nil, err
	}

	stage := &model.WorkflowStage{
		WorkflowTemplateID:    templateID,
		StageName:             catalog.StageName(amount),
		Description:           addReq.Description,
		BudgetBracketKey:      bracketKey,
		BudgetBracketAmount:   amount,
		RequiredDocumentTypes: docTypes,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureTemplateExistsInTx(ctx, tx, templateID); err != nil {
			return err
		}
		if err := s.ensureBracketFreeInTx(ctx, tx, templateID, bracketKey, uuid.Nil); err != nil {
			return err
		}

		var maxOrder int
		if err := tx.Model(&model.WorkflowStage{}).Where("workflow_template_id = ?", templateID).
			Select("COALESCE(MAX(stage_order), 0)").Scan(&maxOrder).Error; err != nil {
			return fmt.Errorf("failed to compute stage order: %w", err)
		}
		stage.StageOrder = maxOrder + 1

		if err := tx.Create(stage).Error; err != nil {
			return fmt.Errorf("failed to create workflow stage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stage, nil
}

// UpdateStage edits a stage. Changing the bracket re-derives the amount and name.
func (s *TemplateService) UpdateStage(ctx context.Context, stageID uuid.UUID, updateReq *model.UpdateStageDTO) (*model.WorkflowStage, error) {
	if updateReq == nil {
		return nil, fmt.Errorf("update request cannot be nil")
	}
	updates := map[string]any{}
	var bracketKey string
	if updateReq.BudgetBracketKey != nil {
		bracketKey = strings.TrimSpace(*updateReq.BudgetBracketKey)
		if bracketKey == "" {
			return nil, model.NewValidationError("budget bracket is required")
		}
		amount, err := s.resolveBracket(ctx, bracketKey)
		if err != nil {
			return nil, err
		}
		updates["budget_bracket_key"] = bracketKey
		updates["budget_bracket_amount"] = amount
		updates["stage_name"] = catalog.StageName(amount)
	}
	if updateReq.Description != nil {
		updates["description"] = *updateReq.Description
	}

	var docTypes []string
	if updateReq.RequiredDocumentTypes != nil {
		var err error
		docTypes, err = s.normalizeDocumentTypes(ctx, updateReq.RequiredDocumentTypes)
		if err != nil {
			return nil, err
		}
	}

	var stage model.WorkflowStage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.getStageInTx(ctx, tx, stageID, &stage); err != nil {
			return err
		}
		if bracketKey != "" {
			if err := s.ensureBracketFreeInTx(ctx, tx, stage.WorkflowTemplateID, bracketKey, stage.ID); err != nil {
				return err
			}
		}
		if updateReq.RequiredDocumentTypes != nil {
			stage.RequiredDocumentTypes = docTypes
			if err := tx.Model(&stage).Select("required_document_types").Updates(&stage).Error; err != nil {
				return fmt.Errorf("failed to update stage documents: %w", err)
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&model.WorkflowStage{}).Where("id = ?", stageID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update workflow stage: %w", err)
			}
		}
		return s.getStageInTx(ctx, tx, stageID, &stage)
	})
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

// RemoveStage deletes a stage and its steps. Remaining stages keep their order values.
func (s *TemplateService) RemoveStage(ctx context.Context, stageID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stage model.WorkflowStage
		if err := tx.Preload("Steps").First(&stage, "id = ?", stageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", model.ErrStageNotFound, stageID)
			}
			return fmt.Errorf("failed to get workflow stage: %w", err)
		}
		if err := tx.Where("stage_id = ?", stageID).Delete(&model.WorkflowStep{}).Error; err != nil {
			return fmt.Errorf("failed to delete workflow steps: %w", err)
		}
		if err := tx.Delete(&model.WorkflowStage{}, "id = ?", stageID).Error; err != nil {
			return fmt.Errorf("failed to delete workflow stage: %w", err)
		}
		return s.syncApproverFlagsInTx(ctx, tx, approversOf(stage)...)
	})
}

// AddStep appends a sequential approval step to a stage.
func (s *TemplateService) AddStep(ctx context.Context, stageID uuid.UUID, addReq *model.AddStepDTO) (*model.WorkflowStep, error) {
	if addReq == nil {
		return nil, fmt.Errorf("add step request cannot be nil")
	}
	var violations []string
	typeKey := strings.TrimSpace(addReq.ApprovalTypeKey)
	if typeKey == "" {
		violations = append(violations, "approval type is required")
	}
	primary := strings.TrimSpace(addReq.PrimaryApproverID)
	if primary == "" {
		violations = append(violations, "primary approver is required")
	}
	if err := model.NewValidationError(violations...); err != nil {
		return nil, err
	}

	typeName, err := s.resolveApprovalType(ctx, typeKey)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActiveApprover(ctx, primary); err != nil {
		return nil, err
	}

	step := &model.WorkflowStep{
		StageID:           stageID,
		StepName:          strings.TrimSpace(addReq.StepName),
		Description:       addReq.Description,
		ApprovalTypeKey:   typeKey,
		ApprovalTypeName:  typeName,
		PrimaryApproverID: primary,
		BackupApproverID:  trimmedOrNil(addReq.BackupApproverID),
		IsRequired:        true,
	}
	if step.StepName == "" {
		step.StepName = typeName
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stage model.WorkflowStage
		if err := s.getStageInTx(ctx, tx, stageID, &stage); err != nil {
			return err
		}

		var maxOrder int
		if err := tx.Model(&model.WorkflowStep{}).Where("stage_id = ?", stageID).
			Select("COALESCE(MAX(step_order), 0)").Scan(&maxOrder).Error; err != nil {
			return fmt.Errorf("failed to compute step order: %w", err)
		}
		step.StepOrder = maxOrder + 1

		if err := tx.Create(step).Error; err != nil {
			return fmt.Errorf("failed to create workflow step: %w", err)
		}
		return s.syncApproverFlagsInTx(ctx, tx, approversOfStep(step)...)
	})
	if err != nil {
		return nil, err
	}
	return step, nil
}

// UpdateStep edits a step. Approver changes re-sync the approver flag of everyone involved.
func (s *TemplateService) UpdateStep(ctx context.Context, stepID uuid.UUID, updateReq *model.UpdateStepDTO) (*model.WorkflowStep, error) {
	if updateReq == nil {
		return nil, fmt.Errorf("update request cannot be nil")
	}
	updates := map[string]any{}
	if updateReq.ApprovalTypeKey != nil {
		typeKey := strings.TrimSpace(*updateReq.ApprovalTypeKey)
		typeName, err := s.resolveApprovalType(ctx, typeKey)
		if err != nil {
			return nil, err
		}
		updates["approval_type_key"] = typeKey
		updates["approval_type_name"] = typeName
	}
	if updateReq.StepName != nil {
		name := strings.TrimSpace(*updateReq.StepName)
		if name == "" {
			return nil, model.NewValidationError("step name cannot be empty")
		}
		updates["step_name"] = name
	}
	if updateReq.Description != nil {
		updates["description"] = *updateReq.Description
	}
	if updateReq.PrimaryApproverID != nil {
		primary := strings.TrimSpace(*updateReq.PrimaryApproverID)
		if primary == "" {
			return nil, model.NewValidationError("primary approver is required")
		}
		if err := s.ensureActiveApprover(ctx, primary); err != nil {
			return nil, err
		}
		updates["primary_approver_id"] = primary
	}
	switch {
	case updateReq.ClearBackup:
		updates["backup_approver_id"] = nil
	case updateReq.BackupApproverID != nil:
		updates["backup_approver_id"] = trimmedOrNil(updateReq.BackupApproverID)
	}

	var step model.WorkflowStep
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.getStepInTx(ctx, tx, stepID, &step); err != nil {
			return err
		}
		before := approversOfStep(&step)
		if len(updates) > 0 {
			if err := tx.Model(&model.WorkflowStep{}).Where("id = ?", stepID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update workflow step: %w", err)
			}
		}
		if err := s.getStepInTx(ctx, tx, stepID, &step); err != nil {
			return err
		}
		return s.syncApproverFlagsInTx(ctx, tx, append(before, approversOfStep(&step)...)...)
	})
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// RemoveStep deletes a step. Remaining steps keep their order values.
func (s *TemplateService) RemoveStep(ctx context.Context, stepID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var step model.WorkflowStep
		if err := s.getStepInTx(ctx, tx, stepID, &step); err != nil {
			return err
		}
		if err := tx.Delete(&model.WorkflowStep{}, "id = ?", stepID).Error; err != nil {
			return fmt.Errorf("failed to delete workflow step: %w", err)
		}
		return s.syncApproverFlagsInTx(ctx, tx, approversOfStep(&step)...)
	})
}

// syncApproverFlagsInTx recomputes the approver flag from the steps that reference each user.
func (s *TemplateService) syncApproverFlagsInTx(ctx context.Context, tx *gorm.DB, userIDs ...string) error {
	seen := make(map[string]bool, len(userIDs))
	for _, userID := range userIDs {
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true

		var refs int64
		if err := tx.WithContext(ctx).Model(&model.WorkflowStep{}).
			Where("primary_approver_id = ? OR backup_approver_id = ?", userID, userID).
			Count(&refs).Error; err != nil {
			return fmt.Errorf("failed to count step assignments for %s: %w", userID, err)
		}
		if err := s.users.SetApproverFlagInTx(ctx, tx, userID, refs > 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *TemplateService) ensureTemplateExistsInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&model.WorkflowTemplate{}).Where("id = ?", templateID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check workflow template: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", model.ErrTemplateNotFound, templateID)
	}
	return nil
}

// ensureBracketFreeInTx rejects a bracket key already used by another stage of the template.
func (s *TemplateService) ensureBracketFreeInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, bracketKey string, exceptStageID uuid.UUID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&model.WorkflowStage{}).
		Where("workflow_template_id = ? AND LOWER(budget_bracket_key) = LOWER(?) AND id <> ?", templateID, bracketKey, exceptStageID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check budget bracket: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", model.ErrDuplicateBracket, bracketKey)
	}
	return nil
}

func (s *TemplateService) getStageInTx(ctx context.Context, tx *gorm.DB, stageID uuid.UUID, stage *model.WorkflowStage) error {
	if err := tx.WithContext(ctx).First(stage, "id = ?", stageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", model.ErrStageNotFound, stageID)
		}
		return fmt.Errorf("failed to get workflow stage %s: %w", stageID, err)
	}
	return nil
}

func (s *TemplateService) getStepInTx(ctx context.Context, tx *gorm.DB, stepID uuid.UUID, step *model.WorkflowStep) error {
	if err := tx.WithContext(ctx).First(step, "id = ?", stepID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", model.ErrStepNotFound, stepID)
		}
		return fmt.Errorf("failed to get workflow step %s: %w", stepID, err)
	}
	return nil
}

func (s *TemplateService) resolveBracket(ctx context.Context, key string) (int64, error) {
	amount, err := s.catalog.ResolveBracket(ctx, key)
	if err != nil {
		return 0, lookupError(err)
	}
	return amount, nil
}

func (s *TemplateService) resolveApprovalType(ctx context.Context, key string) (string, error) {
	name, err := s.catalog.ResolveApprovalType(ctx, key)
	if err != nil {
		return "", lookupError(err)
	}
	return name, nil
}

// normalizeDocumentTypes trims, de-duplicates and checks each key against the catalog.
func (s *TemplateService) normalizeDocumentTypes(ctx context.Context, keys []string) ([]string, error) {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		norm := strings.ToLower(key)
		if key == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		if _, err := s.catalog.ResolveDocumentType(ctx, key); err != nil {
			return nil, lookupError(err)
		}
		out = append(out, key)
	}
	return out, nil
}

func (s *TemplateService) ensureActiveApprover(ctx context.Context, userID string) error {
	active, err := s.users.IsActiveApprover(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check approver %s: %w", userID, err)
	}
	if !active {
		return fmt.Errorf("%w: %s", model.ErrInactiveApprover, userID)
	}
	return nil
}

// lookupError maps a missing catalog entry to ErrUnknownLookup.
func lookupError(err error) error {
	if errors.Is(err, catalog.ErrEntryNotFound) {
		return fmt.Errorf("%w: %v", model.ErrUnknownLookup, err)
	}
	return err
}

func approversOf(stages ...model.WorkflowStage) []string {
	var ids []string
	for i := range stages {
		for j := range stages[i].Steps {
			ids = append(ids, approversOfStep(&stages[i].Steps[j])...)
		}
	}
	return ids
}

func approversOfStep(step *model.WorkflowStep) []string {
	ids := []string{step.PrimaryApproverID}
	if step.BackupApproverID != nil {
		ids = append(ids, *step.BackupApproverID)
	}
	return ids
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
