package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoStageSnapshot() Snapshot {
	return Snapshot{
		Version: SnapshotVersion,
		Phases: []SnapshotPhase{
			{
				PhaseNumber: 1,
				Stages: []SnapshotStage{
					{StageOrder: 3, Steps: []SnapshotStep{{StepOrder: 2}, {StepOrder: 1}}},
					{StageOrder: 1, Steps: []SnapshotStep{{StepOrder: 1}}},
				},
			},
			{
				PhaseNumber: 2,
				Stages:      []SnapshotStage{{StageOrder: 1, Steps: []SnapshotStep{{StepOrder: 1}}}},
			},
		},
	}
}

func TestSnapshot_Navigation(t *testing.T) {
	snap := twoStageSnapshot()

	start, ok := snap.StartPosition()
	require.True(t, ok)
	assert.Equal(t, Position{Phase: 1, Stage: 1, Step: 1}, start)

	phase, ok := snap.Phase(1)
	require.True(t, ok)

	next, ok := phase.NextStage(1)
	require.True(t, ok)
	assert.Equal(t, 3, next.StageOrder)

	first, ok := next.FirstStep()
	require.True(t, ok)
	assert.Equal(t, 1, first.StepOrder)

	_, ok = phase.NextStage(3)
	assert.False(t, ok)

	_, ok = snap.Phase(3)
	assert.False(t, ok)

	assert.Equal(t, 4, snap.TotalSteps())
}

func TestSnapshot_StartPositionEmpty(t *testing.T) {
	snap := Snapshot{Phases: []SnapshotPhase{{PhaseNumber: 1}}}
	_, ok := snap.StartPosition()
	assert.False(t, ok)
}

func TestApprovalRequest_Violations(t *testing.T) {
	req := ApprovalRequest{}
	assert.Len(t, req.Violations(), 4)

	vendor := "V-1"
	req = ApprovalRequest{Title: "Lab equipment", VendorID: &vendor, LineItemCount: 1, TotalAmount: 100}
	assert.Empty(t, req.Violations())
}

func TestWorkflowTemplate_SetEntity(t *testing.T) {
	tmpl := WorkflowTemplate{WorkflowType: WorkflowTypeTeam}
	tmpl.SetEntity("T-7")

	assert.Nil(t, tmpl.ProjectID)
	assert.Nil(t, tmpl.ConsortiumID)
	require.NotNil(t, tmpl.TeamID)
	assert.Equal(t, "T-7", tmpl.EntityID())
	assert.Equal(t, "team_id", EntityColumn(tmpl.WorkflowType))
}

func TestNoStageConfiguredError_Is(t *testing.T) {
	var err error = &NoStageConfiguredError{PhaseNumber: 2, WorkflowType: WorkflowTypeTeam, WorkflowName: "Team flow"}
	assert.ErrorIs(t, err, ErrNoStageConfigured)
	assert.Contains(t, err.Error(), "phase 2")
	assert.Nil(t, NewValidationError())
}
