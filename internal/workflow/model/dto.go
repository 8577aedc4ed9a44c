package model

import "github.com/google/uuid"

// CreateTemplateDTO is the payload for creating a workflow template.
type CreateTemplateDTO struct {
	Name         string       `json:"name" binding:"required"`
	Description  string       `json:"description"`
	Version      string       `json:"version"`
	WorkflowType WorkflowType `json:"workflowType" binding:"required,oneof=project team consortium"`
	EntityID     string       `json:"entityId" binding:"required"` // project, team or consortium id matching WorkflowType
}

// UpdateTemplateDTO edits template metadata. Nil fields are left unchanged.
type UpdateTemplateDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Version     *string `json:"version"`
}

type AddStageDTO struct {
	BudgetBracketKey      string   `json:"budgetBracketKey" binding:"required"`
	Description           string   `json:"description"`
	RequiredDocumentTypes []string `json:"requiredDocumentTypes"`
}

type UpdateStageDTO struct {
	BudgetBracketKey      *string  `json:"budgetBracketKey"`
	Description           *string  `json:"description"`
	RequiredDocumentTypes []string `json:"requiredDocumentTypes"` // nil keeps the current list
}

type AddStepDTO struct {
	ApprovalTypeKey   string  `json:"approvalTypeKey" binding:"required"`
	StepName          string  `json:"stepName"` // Defaults to the approval type display name
	Description       string  `json:"description"`
	PrimaryApproverID string  `json:"primaryApproverId" binding:"required"`
	BackupApproverID  *string `json:"backupApproverId"`
}

type UpdateStepDTO struct {
	ApprovalTypeKey   *string `json:"approvalTypeKey"`
	StepName          *string `json:"stepName"`
	Description       *string `json:"description"`
	PrimaryApproverID *string `json:"primaryApproverId"`
	BackupApproverID  *string `json:"backupApproverId"`
	ClearBackup       bool    `json:"clearBackup"`
}

// ApplicablePhase is one template that applies to a request, in evaluation order.
type ApplicablePhase struct {
	PhaseNumber  int               `json:"phaseNumber"`
	WorkflowType WorkflowType      `json:"workflowType"`
	EntityID     string            `json:"entityId"`
	Template     *WorkflowTemplate `json:"template"`
}

// DocumentValidation is the outcome of checking attached files against a stage's requirements.
type DocumentValidation struct {
	RequiredDocuments []string `json:"requiredDocuments"`
	UploadedDocuments []string `json:"uploadedDocuments"`
	MissingDocuments  []string `json:"missingDocuments"`
}

func (d *DocumentValidation) IsComplete() bool {
	return len(d.MissingDocuments) == 0
}

// PhaseValidation details one phase of a pre-submission check.
type PhaseValidation struct {
	PhaseNumber  int                 `json:"phaseNumber"`
	WorkflowType WorkflowType        `json:"workflowType"`
	WorkflowID   uuid.UUID           `json:"workflowId"`
	WorkflowName string              `json:"workflowName"`
	StageName    string              `json:"stageName,omitempty"`
	StepCount    int                 `json:"stepCount"`
	Documents    *DocumentValidation `json:"documents,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// ValidationReport answers "could this request be submitted now, and what would run".
type ValidationReport struct {
	IsValid  bool              `json:"isValid"`
	Errors   []string          `json:"errors"`
	Warnings []string          `json:"warnings"`
	Phases   []PhaseValidation `json:"phases"`
}

// CompleteActionDTO is the approver's decision.
type CompleteActionDTO struct {
	Decision ActionStatus `json:"decision" binding:"required,oneof=approved refused"`
	Comments string       `json:"comments"`
}

// CompletionStatus is the status derived purely from an instance's actions.
type CompletionStatus struct {
	InstanceID      uuid.UUID      `json:"instanceId"`
	StoredStatus    InstanceStatus `json:"storedStatus"`
	DerivedStatus   InstanceStatus `json:"derivedStatus"`
	CurrentPhase    int            `json:"currentPhase"`
	CurrentStage    int            `json:"currentStageOrder"`
	CurrentStep     int            `json:"currentStepOrder"`
	PendingActions  int            `json:"pendingActions"`
	ApprovedActions int            `json:"approvedActions"`
	RefusedActions  int            `json:"refusedActions"`
	TotalSteps      int            `json:"totalSteps"`
	Consistent      bool           `json:"consistent"`
}

// ReconcileResult reports what a repair pass changed.
type ReconcileResult struct {
	InstanceID     uuid.UUID      `json:"instanceId"`
	PreviousStatus InstanceStatus `json:"previousStatus"`
	Status         InstanceStatus `json:"status"`
	Changed        bool           `json:"changed"`
}

// CompleteActionResult is the instance after a decision plus what the decision produced.
type CompleteActionResult struct {
	Instance     *ApprovalInstance `json:"instance"`
	Action       *ApprovalAction   `json:"action"`
	NewlyPending []ApprovalAction  `json:"newlyPending"`
}

// PendingActionListResult is a page of an approver's inbox.
type PendingActionListResult struct {
	TotalCount int64            `json:"totalCount"`
	Items      []ApprovalAction `json:"items"`
	Offset     int              `json:"offset"`
	Limit      int              `json:"limit"`
}
