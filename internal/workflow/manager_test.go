package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/auth"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/catalog"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/database"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/rfpo"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/testutil"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

type apiFixture struct {
	t      *testing.T
	engine *gin.Engine
	tokens *auth.TokenExtractor
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db := testutil.NewSQLiteDB(t, database.Models()...)
	store := catalog.NewStore(db, nil)
	_, err := store.SeedIfEmpty(ctx)
	require.NoError(t, err)

	users := auth.NewAuthService(db)
	for _, u := range []auth.User{
		{RecordID: "u-admin", FullName: "Ada Admin", Email: "admin@example.org", Active: true, IsAdmin: true},
		{RecordID: "u-requester", FullName: "Rita Requester", Email: "rita@example.org", Active: true},
		{RecordID: "u-approver", FullName: "Arno Approver", Email: "arno@example.org", Active: true},
	} {
		require.NoError(t, users.UpsertUser(ctx, &u))
	}

	m := NewManager(Dependencies{
		DB:      db,
		Catalog: store,
		Users:   users,
		RFPOs:   rfpo.NewRepository(db),
	})
	tokens := auth.NewTokenExtractor("test-secret", "rfpo")

	engine := gin.New()
	engine.Use(auth.Middleware(users, tokens))
	m.RegisterRoutes(engine.Group("/api/v1"))
	return &apiFixture{t: t, engine: engine, tokens: tokens}
}

func (f *apiFixture) call(method, path, user string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := f.tokens.IssueToken(user, time.Hour)
		require.NoError(f.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details"`
}

type idBody struct {
	ID uuid.UUID `json:"id"`
}

func TestManager_ApprovalRoundTrip(t *testing.T) {
	f := newAPIFixture(t)

	// template editing is admin only
	assert.Equal(t, http.StatusUnauthorized, f.call(http.MethodGet, "/templates", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.call(http.MethodGet, "/templates", "u-requester", nil).Code)

	w := f.call(http.MethodPost, "/templates", "u-admin", gin.H{"name": "Powertrain", "workflowType": "project", "entityId": "p1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	template := decode[idBody](t, w)

	w = f.call(http.MethodPost, "/templates/"+template.ID.String()+"/stages", "u-admin", gin.H{"budgetBracketKey": "10"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	stage := decode[model.WorkflowStage](t, w)
	assert.Equal(t, "Up to $5,000", stage.StageName)

	w = f.call(http.MethodPost, "/templates/"+template.ID.String()+"/stages", "u-admin", gin.H{"budgetBracketKey": "10"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_bracket", decode[errorBody](t, w).Code)

	w = f.call(http.MethodPost, "/stages/"+stage.ID.String()+"/steps", "u-admin", gin.H{"approvalTypeKey": "10", "primaryApproverId": "u-approver"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.call(http.MethodPost, "/templates/"+template.ID.String()+"/activate", "u-admin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[model.WorkflowTemplate](t, w).IsActive)

	// requester drafts and submits
	w = f.call(http.MethodPost, "/requests", "u-requester", gin.H{"title": "Dyno time", "vendorId": "v-1", "projectId": "p1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	request := decode[idBody](t, w)
	requestPath := "/requests/" + request.ID.String()

	w = f.call(http.MethodPost, requestPath+"/line-items", "u-requester", gin.H{"description": "Dyno hours", "quantity": 2, "unitPrice": 100_000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.call(http.MethodGet, requestPath+"/validation", "u-requester", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[model.ValidationReport](t, w).IsValid)

	w = f.call(http.MethodPost, requestPath+"/submit", "u-requester", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	instance := decode[model.ApprovalInstance](t, w)
	require.Len(t, instance.Actions, 1)
	actionPath := "/actions/" + instance.Actions[0].ID.String() + "/complete"

	w = f.call(http.MethodPost, requestPath+"/submit", "u-requester", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_submitted", decode[errorBody](t, w).Code)

	w = f.call(http.MethodPost, requestPath+"/line-items", "u-requester", gin.H{"description": "More", "quantity": 1, "unitPrice": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	// approver decides
	w = f.call(http.MethodGet, "/me/actions", "u-approver", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[model.PendingActionListResult](t, w).TotalCount)

	w = f.call(http.MethodPost, actionPath, "u-requester", gin.H{"decision": "approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_authorized", decode[errorBody](t, w).Code)

	assert.Equal(t, http.StatusBadRequest, f.call(http.MethodPost, actionPath, "u-approver", gin.H{"decision": "maybe"}).Code)

	w = f.call(http.MethodPost, actionPath, "u-approver", gin.H{"decision": "approved", "comments": "ok"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[model.CompleteActionResult](t, w)
	assert.Equal(t, model.InstanceStatusApproved, result.Instance.OverallStatus)

	w = f.call(http.MethodPost, actionPath, "u-approver", gin.H{"decision": "approved"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_completed", decode[errorBody](t, w).Code)

	w = f.call(http.MethodGet, requestPath, "u-requester", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.RequestStatusApproved, decode[rfpo.RFPO](t, w).Status)

	instancePath := "/instances/" + instance.ID.String()
	w = f.call(http.MethodGet, instancePath+"/status", "u-requester", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[model.CompletionStatus](t, w)
	assert.True(t, status.Consistent)
	assert.Equal(t, model.InstanceStatusApproved, status.DerivedStatus)

	assert.Equal(t, http.StatusForbidden, f.call(http.MethodPost, instancePath+"/reconcile", "u-requester", nil).Code)
	w = f.call(http.MethodPost, instancePath+"/reconcile", "u-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[model.ReconcileResult](t, w).Changed)

	w = f.call(http.MethodGet, requestPath+"/instance", "u-requester", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, instance.ID, decode[idBody](t, w).ID)

	// the template is no longer referenced by a waiting instance
	assert.Equal(t, http.StatusNoContent, f.call(http.MethodDelete, "/templates/"+template.ID.String(), "u-admin", nil).Code)
}

func TestManager_ErrorResponses(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("Malformed Id", func(t *testing.T) {
		w := f.call(http.MethodGet, "/instances/not-a-uuid", "u-requester", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decode[errorBody](t, w).Code)
	})

	t.Run("Unknown Instance", func(t *testing.T) {
		w := f.call(http.MethodGet, "/instances/"+uuid.NewString(), "u-requester", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "instance_not_found", decode[errorBody](t, w).Code)
	})

	t.Run("Validation Details", func(t *testing.T) {
		w := f.call(http.MethodPost, "/requests", "u-requester", gin.H{"title": "No vendor", "projectId": "p1"})
		require.Equal(t, http.StatusCreated, w.Code)
		request := decode[idBody](t, w)

		w = f.call(http.MethodPost, "/requests/"+request.ID.String()+"/submit", "u-requester", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decode[errorBody](t, w)
		assert.Equal(t, "validation_failed", body.Code)
		assert.Contains(t, body.Details, "vendor is required")
	})

	t.Run("No Workflow", func(t *testing.T) {
		w := f.call(http.MethodPost, "/requests", "u-requester", gin.H{"title": "Orphan", "vendorId": "v-1", "teamId": "t-none"})
		require.Equal(t, http.StatusCreated, w.Code)
		request := decode[idBody](t, w)
		w = f.call(http.MethodPost, "/requests/"+request.ID.String()+"/line-items", "u-requester", gin.H{"description": "x", "quantity": 1, "unitPrice": 500})
		require.Equal(t, http.StatusCreated, w.Code)

		w = f.call(http.MethodPost, "/requests/"+request.ID.String()+"/submit", "u-requester", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "no_workflow_configured", decode[errorBody](t, w).Code)
	})

	t.Run("Inactive Approver", func(t *testing.T) {
		w := f.call(http.MethodPost, "/templates", "u-admin", gin.H{"name": "T", "workflowType": "team", "entityId": "t1"})
		require.Equal(t, http.StatusCreated, w.Code)
		template := decode[idBody](t, w)
		w = f.call(http.MethodPost, "/templates/"+template.ID.String()+"/stages", "u-admin", gin.H{"budgetBracketKey": "20"})
		require.Equal(t, http.StatusCreated, w.Code)
		stage := decode[idBody](t, w)

		w = f.call(http.MethodPost, "/stages/"+stage.ID.String()+"/steps", "u-admin", gin.H{"approvalTypeKey": "10", "primaryApproverId": "u-ghost"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "inactive_approver", decode[errorBody](t, w).Code)
	})

	t.Run("Missing Body Field", func(t *testing.T) {
		w := f.call(http.MethodPost, "/templates", "u-admin", gin.H{"workflowType": "project"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Delete Instance Requires Admin", func(t *testing.T) {
		w := f.call(http.MethodDelete, "/instances/"+uuid.NewString(), "u-requester", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
