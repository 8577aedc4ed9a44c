package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/rfpo"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/service"
	"github.com/luckyjohnb/rfpo-application-sub000/utils"
)

// ApprovalRouter serves requests, approval instances and approver actions.
type ApprovalRouter struct {
	as    *service.ApprovalService
	rfpos *rfpo.Repository
}

func NewApprovalRouter(as *service.ApprovalService, rfpos *rfpo.Repository) *ApprovalRouter {
	return &ApprovalRouter{as: as, rfpos: rfpos}
}

// HandleCreateRequest handles POST /requests
func (r *ApprovalRouter) HandleCreateRequest(c *gin.Context) {
	var req rfpo.CreateRFPODTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	rec, err := r.rfpos.Create(c.Request.Context(), &req, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// HandleGetRequest handles GET /requests/:id
func (r *ApprovalRouter) HandleGetRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rec, err := r.rfpos.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleAddLineItem handles POST /requests/:id/line-items
func (r *ApprovalRouter) HandleAddLineItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req rfpo.AddLineItemDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	item, err := r.rfpos.AddLineItem(c.Request.Context(), id, &req, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// HandleListApplicableWorkflows handles GET /requests/:id/workflows
func (r *ApprovalRouter) HandleListApplicableWorkflows(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	phases, err := r.as.ListApplicableWorkflows(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phases": phases})
}

// HandleValidateForApproval handles GET /requests/:id/validation
func (r *ApprovalRouter) HandleValidateForApproval(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	report, err := r.as.ValidateForApproval(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleSubmitForApproval handles POST /requests/:id/submit
func (r *ApprovalRouter) HandleSubmitForApproval(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	instance, err := r.as.SubmitForApproval(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, instance)
}

// HandleGetRequestInstance handles GET /requests/:id/instance
func (r *ApprovalRouter) HandleGetRequestInstance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	instance, err := r.as.GetInstanceForRequest(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, instance)
}

// HandleGetInstance handles GET /instances/:id
func (r *ApprovalRouter) HandleGetInstance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	instance, err := r.as.GetInstance(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, instance)
}

// HandleCheckCompletionStatus handles GET /instances/:id/status
func (r *ApprovalRouter) HandleCheckCompletionStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	status, err := r.as.CheckCompletionStatus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// HandleReconcileStatus handles POST /instances/:id/reconcile
func (r *ApprovalRouter) HandleReconcileStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := r.as.ReconcileStatus(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleCheckInstanceDocuments handles GET /instances/:id/documents
func (r *ApprovalRouter) HandleCheckInstanceDocuments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	phases, err := r.as.CheckInstanceDocuments(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phases": phases})
}

// HandleDeleteInstance handles DELETE /instances/:id
func (r *ApprovalRouter) HandleDeleteInstance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := r.as.DeleteInstance(c.Request.Context(), id, actorID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleCompleteAction handles POST /actions/:id/complete
func (r *ApprovalRouter) HandleCompleteAction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.CompleteActionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	result, err := r.as.CompleteAction(c.Request.Context(), id, &req, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleListMyActions handles GET /me/actions?offset=&limit=
func (r *ApprovalRouter) HandleListMyActions(c *gin.Context) {
	offset, limit, err := utils.ParsePaginationQuery(c.Query("offset"), c.Query("limit"))
	if err != nil {
		badRequest(c, err.Error(), nil)
		return
	}
	result, err := r.as.ListPendingActions(c.Request.Context(), actorID(c), offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
