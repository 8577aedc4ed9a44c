package model

import (
	"github.com/google/uuid"
)

// WorkflowType is the scope an approval template applies to.
type WorkflowType string

const (
	WorkflowTypeProject    WorkflowType = "project"
	WorkflowTypeTeam       WorkflowType = "team"
	WorkflowTypeConsortium WorkflowType = "consortium"
)

// PhaseOrder is the fixed order in which scopes are evaluated for a request.
// Narrower scopes run before broader ones.
var PhaseOrder = []WorkflowType{WorkflowTypeProject, WorkflowTypeTeam, WorkflowTypeConsortium}

func (t WorkflowType) IsValid() bool {
	switch t {
	case WorkflowTypeProject, WorkflowTypeTeam, WorkflowTypeConsortium:
		return true
	}
	return false
}

// WorkflowTemplate is a reusable approval definition attached to exactly one project, team or consortium.
type WorkflowTemplate struct {
	BaseModel
	Name         string          `gorm:"type:varchar(255);column:name;not null" json:"name"`                         // Human-readable name of the template
	Description  string          `gorm:"type:text;column:description" json:"description"`                            // Optional description
	Version      string          `gorm:"type:varchar(50);column:version;not null;default:'1.0'" json:"version"`      // Free-form version label
	WorkflowType WorkflowType    `gorm:"type:varchar(20);column:workflow_type;not null;index" json:"workflowType"`   // project, team or consortium
	ProjectID    *string         `gorm:"type:varchar(100);column:project_id;index" json:"projectId,omitempty"`       // Set only for project templates
	TeamID       *string         `gorm:"type:varchar(100);column:team_id;index" json:"teamId,omitempty"`             // Set only for team templates
	ConsortiumID *string         `gorm:"type:varchar(100);column:consortium_id;index" json:"consortiumId,omitempty"` // Set only for consortium templates
	IsActive     bool            `gorm:"column:is_active;not null" json:"isActive"`                                  // At most one active template per (type, entity)
	CreatedBy    string          `gorm:"type:varchar(100);column:created_by" json:"createdBy,omitempty"`
	UpdatedBy    string          `gorm:"type:varchar(100);column:updated_by" json:"updatedBy,omitempty"`
	Stages       []WorkflowStage `gorm:"foreignKey:WorkflowTemplateID;constraint:OnDelete:CASCADE" json:"stages,omitempty"`
}

func (wt *WorkflowTemplate) TableName() string {
	return "workflow_templates"
}

// EntityID returns the id of the entity the template is attached to, matching its workflow type.
func (wt *WorkflowTemplate) EntityID() string {
	var ref *string
	switch wt.WorkflowType {
	case WorkflowTypeProject:
		ref = wt.ProjectID
	case WorkflowTypeTeam:
		ref = wt.TeamID
	case WorkflowTypeConsortium:
		ref = wt.ConsortiumID
	}
	if ref == nil {
		return ""
	}
	return *ref
}

// SetEntity clears all entity columns and populates the one matching the template type.
func (wt *WorkflowTemplate) SetEntity(entityID string) {
	wt.ProjectID, wt.TeamID, wt.ConsortiumID = nil, nil, nil
	id := entityID
	switch wt.WorkflowType {
	case WorkflowTypeProject:
		wt.ProjectID = &id
	case WorkflowTypeTeam:
		wt.TeamID = &id
	case WorkflowTypeConsortium:
		wt.ConsortiumID = &id
	}
}

// EntityColumn returns the column holding the entity reference for a workflow type.
func EntityColumn(t WorkflowType) string {
	switch t {
	case WorkflowTypeProject:
		return "project_id"
	case WorkflowTypeTeam:
		return "team_id"
	case WorkflowTypeConsortium:
		return "consortium_id"
	}
	return ""
}

// WorkflowStage is a budget-bracket gated step group within a template.
type WorkflowStage struct {
	BaseModel
	WorkflowTemplateID    uuid.UUID      `gorm:"type:uuid;column:workflow_template_id;not null;index" json:"workflowTemplateId"`
	StageOrder            int            `gorm:"column:stage_order;not null" json:"stageOrder"`                 // Unique within the template
	StageName             string         `gorm:"type:varchar(255);column:stage_name;not null" json:"stageName"` // Derived, e.g. "Up to $5,000"
	Description           string         `gorm:"type:text;column:description" json:"description,omitempty"`
	BudgetBracketKey      string         `gorm:"type:varchar(50);column:budget_bracket_key;not null" json:"budgetBracketKey"`            // Catalog key, unique within the template
	BudgetBracketAmount   int64          `gorm:"column:budget_bracket_amount;not null" json:"budgetBracketAmount"`                       // Ceiling in cents, resolved from the catalog
	RequiredDocumentTypes []string       `gorm:"type:jsonb;column:required_document_types;serializer:json" json:"requiredDocumentTypes"` // Document type keys
	Steps                 []WorkflowStep `gorm:"foreignKey:StageID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
}

func (ws *WorkflowStage) TableName() string {
	return "workflow_stages"
}

// WorkflowStep is a single sequential approval within a stage.
type WorkflowStep struct {
	BaseModel
	StageID           uuid.UUID `gorm:"type:uuid;column:stage_id;not null;index" json:"stageId"`
	StepOrder         int       `gorm:"column:step_order;not null" json:"stepOrder"`
	StepName          string    `gorm:"type:varchar(255);column:step_name;not null" json:"stepName"`
	Description       string    `gorm:"type:text;column:description" json:"description,omitempty"`
	ApprovalTypeKey   string    `gorm:"type:varchar(50);column:approval_type_key;not null" json:"approvalTypeKey"`
	ApprovalTypeName  string    `gorm:"type:varchar(255);column:approval_type_name;not null" json:"approvalTypeName"`
	PrimaryApproverID string    `gorm:"type:varchar(100);column:primary_approver_id;not null;index" json:"primaryApproverId"`
	BackupApproverID  *string   `gorm:"type:varchar(100);column:backup_approver_id;index" json:"backupApproverId,omitempty"` // Stored only, never substituted automatically
	IsRequired        bool      `gorm:"column:is_required;not null" json:"isRequired"`
}

func (ws *WorkflowStep) TableName() string {
	return "workflow_steps"
}

// TemplateFilter narrows template listings.
type TemplateFilter struct {
	WorkflowType *WorkflowType
	EntityID     *string
	ActiveOnly   bool
	Offset       *int
	Limit        *int
}

// TemplateListResult is a page of templates.
type TemplateListResult struct {
	TotalCount int64              `json:"totalCount"`
	Items      []WorkflowTemplate `json:"items"`
	Offset     int                `json:"offset"`
	Limit      int                `json:"limit"`
}
