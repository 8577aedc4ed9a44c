package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

// MockTemplateProvider is a mock implementation of TemplateProvider
type MockTemplateProvider struct {
	mock.Mock
}

func (m *MockTemplateProvider) GetActiveTemplate(ctx context.Context, workflowType model.WorkflowType, entityID string) (*model.WorkflowTemplate, error) {
	args := m.Called(ctx, workflowType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkflowTemplate), args.Error(1)
}

func strPtr(s string) *string { return &s }

func TestResolveApplicablePhases(t *testing.T) {
	ctx := context.Background()

	t.Run("Project Team Consortium Order", func(t *testing.T) {
		provider := new(MockTemplateProvider)
		project := &model.WorkflowTemplate{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "P"}
		team := &model.WorkflowTemplate{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "T"}
		consortium := &model.WorkflowTemplate{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "C"}
		provider.On("GetActiveTemplate", ctx, model.WorkflowTypeProject, "p1").Return(project, nil).Once()
		provider.On("GetActiveTemplate", ctx, model.WorkflowTypeTeam, "t1").Return(team, nil).Once()
		provider.On("GetActiveTemplate", ctx, model.WorkflowTypeConsortium, "c1").Return(consortium, nil).Once()

		request := &model.ApprovalRequest{ProjectID: strPtr("p1"), TeamID: strPtr("t1"), ConsortiumID: strPtr("c1")}
		phases, err := ResolveApplicablePhases(ctx, provider, request)
		require.NoError(t, err)
		require.Len(t, phases, 3)
		assert.Equal(t, 1, phases[0].PhaseNumber)
		assert.Equal(t, model.WorkflowTypeProject, phases[0].WorkflowType)
		assert.Equal(t, 2, phases[1].PhaseNumber)
		assert.Equal(t, model.WorkflowTypeTeam, phases[1].WorkflowType)
		assert.Equal(t, 3, phases[2].PhaseNumber)
		assert.Equal(t, "c1", phases[2].EntityID)
		provider.AssertExpectations(t)
	})

	t.Run("Phase Numbers Skip Scopes Without Template", func(t *testing.T) {
		provider := new(MockTemplateProvider)
		consortium := &model.WorkflowTemplate{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "C"}
		provider.On("GetActiveTemplate", ctx, model.WorkflowTypeProject, "p1").Return(nil, nil).Once()
		provider.On("GetActiveTemplate", ctx, model.WorkflowTypeConsortium, "c1").Return(consortium, nil).Once()

		request := &model.ApprovalRequest{ProjectID: strPtr("p1"), ConsortiumID: strPtr("c1")}
		phases, err := ResolveApplicablePhases(ctx, provider, request)
		require.NoError(t, err)
		require.Len(t, phases, 1)
		assert.Equal(t, 1, phases[0].PhaseNumber)
		assert.Equal(t, model.WorkflowTypeConsortium, phases[0].WorkflowType)
		provider.AssertNotCalled(t, "GetActiveTemplate", ctx, model.WorkflowTypeTeam, mock.Anything)
	})

	t.Run("No References", func(t *testing.T) {
		provider := new(MockTemplateProvider)
		phases, err := ResolveApplicablePhases(ctx, provider, &model.ApprovalRequest{TeamID: strPtr("")})
		require.NoError(t, err)
		assert.Empty(t, phases)
	})

	t.Run("Provider Error", func(t *testing.T) {
		provider := new(MockTemplateProvider)
		dbErr := errors.New("db down")
		provider.On("GetActiveTemplate", ctx, model.WorkflowTypeTeam, "t1").Return(nil, dbErr).Once()

		_, err := ResolveApplicablePhases(ctx, provider, &model.ApprovalRequest{TeamID: strPtr("t1")})
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestResolveStage(t *testing.T) {
	template := &model.WorkflowTemplate{
		Stages: []model.WorkflowStage{
			{StageOrder: 1, BudgetBracketKey: "B10K", BudgetBracketAmount: 1_000_000},
			{StageOrder: 2, BudgetBracketKey: "B1K", BudgetBracketAmount: 100_000},
			{StageOrder: 3, BudgetBracketKey: "B5K", BudgetBracketAmount: 500_000},
		},
	}

	cases := []struct {
		name  string
		total int64
		want  string
	}{
		{"below smallest ceiling", 50_000, "B1K"},
		{"exactly on a ceiling", 100_000, "B1K"},
		{"between ceilings", 100_001, "B5K"},
		{"highest ceiling", 1_000_000, "B10K"},
		{"above every ceiling falls back to highest", 5_000_000, "B10K"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stage, err := ResolveStage(template, tc.total)
			require.NoError(t, err)
			assert.Equal(t, tc.want, stage.BudgetBracketKey)
		})
	}

	t.Run("No Stages", func(t *testing.T) {
		_, err := ResolveStage(&model.WorkflowTemplate{}, 100)
		assert.ErrorIs(t, err, model.ErrNoStageConfigured)
	})

	t.Run("Input Order Is Not Modified", func(t *testing.T) {
		_, err := ResolveStage(template, 1)
		require.NoError(t, err)
		assert.Equal(t, "B10K", template.Stages[0].BudgetBracketKey)
	})
}
