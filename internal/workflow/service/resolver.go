package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

// ResolveApplicablePhases returns the active templates that apply to a request, in
// project, team, consortium order. Phase numbers are contiguous from 1 and skip scopes
// without an active template. An empty result is not an error here.
func ResolveApplicablePhases(ctx context.Context, provider TemplateProvider, request *model.ApprovalRequest) ([]model.ApplicablePhase, error) {
	phases := make([]model.ApplicablePhase, 0, len(model.PhaseOrder))
	for _, workflowType := range model.PhaseOrder {
		entityID, ok := request.EntityRef(workflowType)
		if !ok {
			continue
		}
		template, err := provider.GetActiveTemplate(ctx, workflowType, entityID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s workflow for %s: %w", workflowType, entityID, err)
		}
		if template == nil {
			continue
		}
		phases = append(phases, model.ApplicablePhase{
			PhaseNumber:  len(phases) + 1,
			WorkflowType: workflowType,
			EntityID:     entityID,
			Template:     template,
		})
	}
	return phases, nil
}

// ResolveStage picks the stage with the smallest bracket ceiling that covers total.
// A total above every ceiling falls back to the highest-ceiling stage.
func ResolveStage(template *model.WorkflowTemplate, total int64) (*model.WorkflowStage, error) {
	if template == nil || len(template.Stages) == 0 {
		return nil, model.ErrNoStageConfigured
	}

	stages := make([]*model.WorkflowStage, len(template.Stages))
	for i := range template.Stages {
		stages[i] = &template.Stages[i]
	}
	sort.SliceStable(stages, func(i, j int) bool {
		if stages[i].BudgetBracketAmount != stages[j].BudgetBracketAmount {
			return stages[i].BudgetBracketAmount < stages[j].BudgetBracketAmount
		}
		return stages[i].StageOrder < stages[j].StageOrder
	})

	for _, stage := range stages {
		if stage.BudgetBracketAmount >= total {
			return stage, nil
		}
	}
	return stages[len(stages)-1], nil
}
