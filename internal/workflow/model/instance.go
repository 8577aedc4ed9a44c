package model

import (
	"time"

	"github.com/google/uuid"
)

type InstanceStatus string

const (
	InstanceStatusWaiting  InstanceStatus = "waiting"  // At least one approval is outstanding
	InstanceStatusApproved InstanceStatus = "approved" // Every step of every phase was approved
	InstanceStatusRefused  InstanceStatus = "refused"  // A single refusal ended the instance
)

// IsTerminal reports whether no further action can change the status.
func (s InstanceStatus) IsTerminal() bool {
	return s == InstanceStatusApproved || s == InstanceStatusRefused
}

type ActionStatus string

const (
	ActionStatusPending  ActionStatus = "pending"
	ActionStatusApproved ActionStatus = "approved"
	ActionStatusRefused  ActionStatus = "refused"
)

// ApprovalInstance is the live execution of one or more templates for a single request.
type ApprovalInstance struct {
	BaseModel
	// A request has at most one waiting instance.
	RequestID         uuid.UUID        `gorm:"type:uuid;column:request_id;not null;index;uniqueIndex:idx_approval_instances_waiting_request,where:overall_status = 'waiting'" json:"requestId"`
	WorkflowName      string           `gorm:"type:varchar(255);column:workflow_name;not null" json:"workflowName"` // Names of all phases joined for display
	Snapshot          Snapshot         `gorm:"type:jsonb;column:snapshot;not null;serializer:json" json:"snapshot"` // Write-once copy of every phase
	CurrentPhase      int              `gorm:"column:current_phase;not null" json:"currentPhase"`
	CurrentStageOrder int              `gorm:"column:current_stage_order;not null" json:"currentStageOrder"`
	CurrentStepOrder  int              `gorm:"column:current_step_order;not null" json:"currentStepOrder"`
	OverallStatus     InstanceStatus   `gorm:"type:varchar(20);column:overall_status;not null;index" json:"overallStatus"`
	SubmittedAt       time.Time        `gorm:"column:submitted_at;not null" json:"submittedAt"`
	SubmittedBy       string           `gorm:"type:varchar(100);column:submitted_by;not null" json:"submittedBy"`
	CompletedAt       *time.Time       `gorm:"column:completed_at" json:"completedAt,omitempty"`
	Actions           []ApprovalAction `gorm:"foreignKey:InstanceID;constraint:OnDelete:CASCADE" json:"actions,omitempty"`
}

func (ai *ApprovalInstance) TableName() string {
	return "approval_instances"
}

// ApprovalInstancePhase indexes which templates an instance was built from.
// The snapshot is authoritative; this table only answers "is this template in use".
type ApprovalInstancePhase struct {
	BaseModel
	InstanceID         uuid.UUID    `gorm:"type:uuid;column:instance_id;not null;index" json:"instanceId"`
	PhaseNumber        int          `gorm:"column:phase_number;not null" json:"phaseNumber"`
	WorkflowType       WorkflowType `gorm:"type:varchar(20);column:workflow_type;not null" json:"workflowType"`
	WorkflowTemplateID uuid.UUID    `gorm:"type:uuid;column:workflow_template_id;not null;index" json:"workflowTemplateId"`
}

func (aip *ApprovalInstancePhase) TableName() string {
	return "approval_instance_phases"
}

// ApprovalAction is one approver decision, materialized when its stage becomes current.
type ApprovalAction struct {
	BaseModel
	InstanceID      uuid.UUID    `gorm:"type:uuid;column:instance_id;not null;index" json:"instanceId"`
	PhaseNumber     int          `gorm:"column:phase_number;not null" json:"phaseNumber"`
	WorkflowType    WorkflowType `gorm:"type:varchar(20);column:workflow_type;not null" json:"workflowType"`
	StageOrder      int          `gorm:"column:stage_order;not null" json:"stageOrder"`
	StepOrder       int          `gorm:"column:step_order;not null" json:"stepOrder"`
	StageName       string       `gorm:"type:varchar(255);column:stage_name;not null" json:"stageName"`
	StepName        string       `gorm:"type:varchar(255);column:step_name;not null" json:"stepName"`
	ApprovalTypeKey string       `gorm:"type:varchar(50);column:approval_type_key" json:"approvalTypeKey"`
	ApproverID      string       `gorm:"type:varchar(100);column:approver_id;not null;index" json:"approverId"`
	ApproverName    string       `gorm:"type:varchar(255);column:approver_name" json:"approverName"`
	Status          ActionStatus `gorm:"type:varchar(20);column:status;not null;index" json:"status"`
	Comments        string       `gorm:"type:text;column:comments" json:"comments,omitempty"`
	CompletedAt     *time.Time   `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CompletedBy     *string      `gorm:"type:varchar(100);column:completed_by" json:"completedBy,omitempty"`
}

func (aa *ApprovalAction) TableName() string {
	return "approval_actions"
}

// Position identifies a step within an instance.
type Position struct {
	Phase int
	Stage int
	Step  int
}

// At reports whether the action sits at the given position.
func (aa *ApprovalAction) At(p Position) bool {
	return aa.PhaseNumber == p.Phase && aa.StageOrder == p.Stage && aa.StepOrder == p.Step
}

// CurrentPosition returns the instance's live pointers.
func (ai *ApprovalInstance) CurrentPosition() Position {
	return Position{Phase: ai.CurrentPhase, Stage: ai.CurrentStageOrder, Step: ai.CurrentStepOrder}
}
