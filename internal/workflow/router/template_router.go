package router

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/auth"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/service"
	"github.com/luckyjohnb/rfpo-application-sub000/utils"
)

// TemplateRouter serves the administrative template editor.
type TemplateRouter struct {
	ts *service.TemplateService
}

func NewTemplateRouter(ts *service.TemplateService) *TemplateRouter {
	return &TemplateRouter{ts: ts}
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func actorID(c *gin.Context) string {
	return auth.GetAuthContext(c.Request.Context()).UserID()
}

// HandleCreateTemplate handles POST /templates
func (r *TemplateRouter) HandleCreateTemplate(c *gin.Context) {
	var req model.CreateTemplateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	template, err := r.ts.CreateTemplate(c.Request.Context(), &req, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

// HandleListTemplates handles GET /templates?workflowType=&entityId=&active=&offset=&limit=
func (r *TemplateRouter) HandleListTemplates(c *gin.Context) {
	var filter model.TemplateFilter
	if v := c.Query("workflowType"); v != "" {
		workflowType := model.WorkflowType(v)
		filter.WorkflowType = &workflowType
	}
	if v := c.Query("entityId"); v != "" {
		filter.EntityID = &v
	}
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "invalid 'active' query parameter, must be a boolean", nil)
			return
		}
		filter.ActiveOnly = active
	}
	offset, limit, err := utils.ParsePaginationQuery(c.Query("offset"), c.Query("limit"))
	if err != nil {
		badRequest(c, err.Error(), nil)
		return
	}
	filter.Offset, filter.Limit = offset, limit

	result, err := r.ts.ListTemplates(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleGetTemplate handles GET /templates/:id
func (r *TemplateRouter) HandleGetTemplate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	template, err := r.ts.GetTemplate(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

// HandleUpdateTemplate handles PUT /templates/:id
func (r *TemplateRouter) HandleUpdateTemplate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateTemplateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	template, err := r.ts.UpdateTemplate(c.Request.Context(), id, &req, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

// HandleDeleteTemplate handles DELETE /templates/:id
func (r *TemplateRouter) HandleDeleteTemplate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := r.ts.DeleteTemplate(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleActivateTemplate handles POST /templates/:id/activate
func (r *TemplateRouter) HandleActivateTemplate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	template, err := r.ts.ActivateTemplate(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

// HandleDeactivateTemplate handles POST /templates/:id/deactivate
func (r *TemplateRouter) HandleDeactivateTemplate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	template, err := r.ts.DeactivateTemplate(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

// HandleAddStage handles POST /templates/:id/stages
func (r *TemplateRouter) HandleAddStage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.AddStageDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	stage, err := r.ts.AddStage(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stage)
}

// HandleUpdateStage handles PUT /stages/:id
func (r *TemplateRouter) HandleUpdateStage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateStageDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	stage, err := r.ts.UpdateStage(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

// HandleRemoveStage handles DELETE /stages/:id
func (r *TemplateRouter) HandleRemoveStage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := r.ts.RemoveStage(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleAddStep handles POST /stages/:id/steps
func (r *TemplateRouter) HandleAddStep(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.AddStepDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	step, err := r.ts.AddStep(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, step)
}

// HandleUpdateStep handles PUT /steps/:id
func (r *TemplateRouter) HandleUpdateStep(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateStepDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	step, err := r.ts.UpdateStep(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// HandleRemoveStep handles DELETE /steps/:id
func (r *TemplateRouter) HandleRemoveStep(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := r.ts.RemoveStep(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
