package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// SnapshotVersion is bumped whenever the persisted snapshot layout changes.
const SnapshotVersion = 1

// Snapshot is the denormalized copy of every applicable phase taken at submission.
// It is never rewritten after the instance is created.
type Snapshot struct {
	Version      int             `json:"version"`
	RequestTotal int64           `json:"requestTotal"` // cents
	CapturedAt   time.Time       `json:"capturedAt"`
	Phases       []SnapshotPhase `json:"phases"`
}

type SnapshotPhase struct {
	PhaseNumber  int             `json:"phaseNumber"`
	WorkflowType WorkflowType    `json:"workflowType"`
	WorkflowID   uuid.UUID       `json:"workflowId"`
	WorkflowName string          `json:"workflowName"`
	Version      string          `json:"version"`
	EntityID     string          `json:"entityId"`
	Stages       []SnapshotStage `json:"stages"`
}

type SnapshotStage struct {
	StageOrder            int            `json:"stageOrder"`
	StageName             string         `json:"stageName"`
	BudgetBracketKey      string         `json:"budgetBracketKey"`
	BudgetBracketAmount   int64          `json:"budgetBracketAmount"`
	RequiredDocumentTypes []string       `json:"requiredDocumentTypes"`
	Steps                 []SnapshotStep `json:"steps"`
}

type SnapshotStep struct {
	StepOrder           int     `json:"stepOrder"`
	StepName            string  `json:"stepName"`
	ApprovalTypeKey     string  `json:"approvalTypeKey"`
	ApprovalTypeName    string  `json:"approvalTypeName"`
	PrimaryApproverID   string  `json:"primaryApproverId"`
	PrimaryApproverName string  `json:"primaryApproverName"`
	BackupApproverID    *string `json:"backupApproverId,omitempty"`
	IsRequired          bool    `json:"isRequired"`
}

// Phase returns the snapshot phase with the given number.
func (s *Snapshot) Phase(number int) (*SnapshotPhase, bool) {
	for i := range s.Phases {
		if s.Phases[i].PhaseNumber == number {
			return &s.Phases[i], true
		}
	}
	return nil, false
}

// Stage returns the stage with the given order within the phase.
func (p *SnapshotPhase) Stage(order int) (*SnapshotStage, bool) {
	for i := range p.Stages {
		if p.Stages[i].StageOrder == order {
			return &p.Stages[i], true
		}
	}
	return nil, false
}

// NextStage returns the stage following the given order, in stage order.
func (p *SnapshotPhase) NextStage(order int) (*SnapshotStage, bool) {
	var next *SnapshotStage
	for i := range p.Stages {
		s := &p.Stages[i]
		if s.StageOrder > order && (next == nil || s.StageOrder < next.StageOrder) {
			next = s
		}
	}
	return next, next != nil
}

// FirstStage returns the lowest-ordered stage of the phase.
func (p *SnapshotPhase) FirstStage() (*SnapshotStage, bool) {
	return p.NextStage(math.MinInt)
}

// FirstStep returns the lowest-ordered step of the stage.
func (s *SnapshotStage) FirstStep() (*SnapshotStep, bool) {
	var first *SnapshotStep
	for i := range s.Steps {
		if first == nil || s.Steps[i].StepOrder < first.StepOrder {
			first = &s.Steps[i]
		}
	}
	return first, first != nil
}

// StartPosition returns where a fresh instance built from this snapshot begins.
func (s *Snapshot) StartPosition() (Position, bool) {
	phase, ok := s.Phase(1)
	if !ok {
		return Position{}, false
	}
	stage, ok := phase.FirstStage()
	if !ok {
		return Position{}, false
	}
	step, ok := stage.FirstStep()
	if !ok {
		return Position{}, false
	}
	return Position{Phase: phase.PhaseNumber, Stage: stage.StageOrder, Step: step.StepOrder}, true
}

// TotalSteps counts every step across all phases and stages.
func (s *Snapshot) TotalSteps() int {
	n := 0
	for _, p := range s.Phases {
		for _, st := range p.Stages {
			n += len(st.Steps)
		}
	}
	return n
}
