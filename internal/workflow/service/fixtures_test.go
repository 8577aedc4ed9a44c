package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/auth"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/catalog"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/database"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/rfpo"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/testutil"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	required  [][]model.ApprovalAction
	completed []model.InstanceStatus
}

func (n *recordingNotifier) ApprovalRequired(_ context.Context, _ *model.ApprovalInstance, actions []model.ApprovalAction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.required = append(n.required, actions)
}

func (n *recordingNotifier) InstanceCompleted(_ context.Context, instance *model.ApprovalInstance) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, instance.OverallStatus)
}

type engineFixture struct {
	t         *testing.T
	ctx       context.Context
	db        *gorm.DB
	users     *auth.AuthService
	catalog   *catalog.Store
	rfpos     *rfpo.Repository
	repo      ApprovalRepository
	templates *TemplateService
	approvals *ApprovalService
	notifier  *recordingNotifier
}

func newEngineFixture(t *testing.T, cfg ApprovalServiceConfig) *engineFixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t, database.Models()...)

	store := catalog.NewStore(db, nil)
	_, err := store.SeedIfEmpty(ctx)
	require.NoError(t, err)

	users := auth.NewAuthService(db)
	rfpos := rfpo.NewRepository(db)
	repo := NewApprovalRepository()
	templates := NewTemplateService(db, store, users)
	notifier := &recordingNotifier{}

	return &engineFixture{
		t:         t,
		ctx:       ctx,
		db:        db,
		users:     users,
		catalog:   store,
		rfpos:     rfpos,
		repo:      repo,
		templates: templates,
		approvals: NewApprovalService(db, templates, repo, rfpos, store, users, notifier, cfg),
		notifier:  notifier,
	}
}

func (f *engineFixture) user(recordID, fullName string, admin bool) {
	f.t.Helper()
	require.NoError(f.t, f.users.UpsertUser(f.ctx, &auth.User{
		RecordID: recordID,
		FullName: fullName,
		Email:    recordID + "@example.org",
		Active:   true,
		IsAdmin:  admin,
	}))
}

// stageDef describes one stage of a fixture template: a catalog bracket key and the approvers
// of its steps in order.
type stageDef struct {
	bracket   string
	approvers []string
	documents []string
}

// activeTemplate creates and activates a template for a scope.
func (f *engineFixture) activeTemplate(workflowType model.WorkflowType, entityID, name string, stages ...stageDef) *model.WorkflowTemplate {
	f.t.Helper()
	template, err := f.templates.CreateTemplate(f.ctx, &model.CreateTemplateDTO{
		Name:         name,
		WorkflowType: workflowType,
		EntityID:     entityID,
	}, "admin")
	require.NoError(f.t, err)

	for _, def := range stages {
		stage, err := f.templates.AddStage(f.ctx, template.ID, &model.AddStageDTO{
			BudgetBracketKey:      def.bracket,
			RequiredDocumentTypes: def.documents,
		})
		require.NoError(f.t, err)
		for _, approver := range def.approvers {
			_, err := f.templates.AddStep(f.ctx, stage.ID, &model.AddStepDTO{
				ApprovalTypeKey:   "10",
				PrimaryApproverID: approver,
			})
			require.NoError(f.t, err)
		}
	}

	activated, err := f.templates.ActivateTemplate(f.ctx, template.ID, "admin")
	require.NoError(f.t, err)
	return activated
}

type requestDef struct {
	project, team, consortium string
	totalCents                int64
	documents                 []string
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// request creates a draft request with a single line item totalling totalCents.
func (f *engineFixture) request(def requestDef) uuid.UUID {
	f.t.Helper()
	rec, err := f.rfpos.Create(f.ctx, &rfpo.CreateRFPODTO{
		Title:        "Test equipment",
		VendorID:     optional("vendor-1"),
		ProjectID:    optional(def.project),
		TeamID:       optional(def.team),
		ConsortiumID: optional(def.consortium),
	}, "requester")
	require.NoError(f.t, err)

	if def.totalCents > 0 {
		_, err = f.rfpos.AddLineItem(f.ctx, rec.ID, &rfpo.AddLineItemDTO{
			Description: "Equipment",
			Quantity:    1,
			UnitPrice:   def.totalCents,
		}, "requester")
		require.NoError(f.t, err)
	}

	for _, docType := range def.documents {
		require.NoError(f.t, f.rfpos.RecordFile(f.ctx, &rfpo.UploadedFile{
			RFPOID:       rec.ID,
			FileName:     docType + ".pdf",
			StorageKey:   uuid.NewString(),
			DocumentType: docType,
			UploadedBy:   "requester",
		}))
	}
	return rec.ID
}

func (f *engineFixture) requestStatus(requestID uuid.UUID) model.RequestStatus {
	f.t.Helper()
	rec, err := f.rfpos.Get(f.ctx, requestID)
	require.NoError(f.t, err)
	return rec.Status
}

func (f *engineFixture) actions(instanceID uuid.UUID) []model.ApprovalAction {
	f.t.Helper()
	instance, err := f.approvals.GetInstance(f.ctx, instanceID)
	require.NoError(f.t, err)
	return instance.Actions
}

func pendingOf(actions []model.ApprovalAction) []model.ApprovalAction {
	var pending []model.ApprovalAction
	for _, a := range actions {
		if a.Status == model.ActionStatusPending {
			pending = append(pending, a)
		}
	}
	return pending
}

func (f *engineFixture) decide(actionID uuid.UUID, decision model.ActionStatus, completerID string) (*model.CompleteActionResult, error) {
	return f.approvals.CompleteAction(f.ctx, actionID, &model.CompleteActionDTO{Decision: decision}, completerID)
}
