package workflow

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/auth"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/catalog"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/rfpo"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/router"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/service"
)

// Dependencies are the collaborators the approval engine is built from.
type Dependencies struct {
	DB       *gorm.DB
	Catalog  *catalog.Store
	Users    *auth.AuthService
	RFPOs    *rfpo.Repository
	Notifier service.Notifier // Optional
	Config   service.ApprovalServiceConfig
}

// Manager wires the engine's services to their HTTP routers.
type Manager struct {
	templateService *service.TemplateService
	approvalService *service.ApprovalService
	templateRouter  *router.TemplateRouter
	approvalRouter  *router.ApprovalRouter
}

func NewManager(deps Dependencies) *Manager {
	templateService := service.NewTemplateService(deps.DB, deps.Catalog, deps.Users)
	approvalService := service.NewApprovalService(
		deps.DB,
		templateService,
		service.NewApprovalRepository(),
		deps.RFPOs,
		deps.Catalog,
		deps.Users,
		deps.Notifier,
		deps.Config,
	)

	return &Manager{
		templateService: templateService,
		approvalService: approvalService,
		templateRouter:  router.NewTemplateRouter(templateService),
		approvalRouter:  router.NewApprovalRouter(approvalService, deps.RFPOs),
	}
}

func (m *Manager) TemplateService() *service.TemplateService {
	return m.templateService
}

func (m *Manager) ApprovalService() *service.ApprovalService {
	return m.approvalService
}

// RegisterRoutes mounts the engine API on api. The auth middleware must already be installed.
// Template editing and reconciliation are restricted to administrators.
func (m *Manager) RegisterRoutes(api *gin.RouterGroup) {
	admin := api.Group("", auth.RequireAdmin())
	{
		tr := m.templateRouter
		admin.POST("/templates", tr.HandleCreateTemplate)
		admin.GET("/templates", tr.HandleListTemplates)
		admin.GET("/templates/:id", tr.HandleGetTemplate)
		admin.PUT("/templates/:id", tr.HandleUpdateTemplate)
		admin.DELETE("/templates/:id", tr.HandleDeleteTemplate)
		admin.POST("/templates/:id/activate", tr.HandleActivateTemplate)
		admin.POST("/templates/:id/deactivate", tr.HandleDeactivateTemplate)
		admin.POST("/templates/:id/stages", tr.HandleAddStage)
		admin.PUT("/stages/:id", tr.HandleUpdateStage)
		admin.DELETE("/stages/:id", tr.HandleRemoveStage)
		admin.POST("/stages/:id/steps", tr.HandleAddStep)
		admin.PUT("/steps/:id", tr.HandleUpdateStep)
		admin.DELETE("/steps/:id", tr.HandleRemoveStep)

		admin.POST("/instances/:id/reconcile", m.approvalRouter.HandleReconcileStatus)
	}

	authed := api.Group("", auth.RequireAuth())
	{
		ar := m.approvalRouter
		authed.POST("/requests", ar.HandleCreateRequest)
		authed.GET("/requests/:id", ar.HandleGetRequest)
		authed.POST("/requests/:id/line-items", ar.HandleAddLineItem)
		authed.GET("/requests/:id/workflows", ar.HandleListApplicableWorkflows)
		authed.GET("/requests/:id/validation", ar.HandleValidateForApproval)
		authed.POST("/requests/:id/submit", ar.HandleSubmitForApproval)
		authed.GET("/requests/:id/instance", ar.HandleGetRequestInstance)

		authed.GET("/instances/:id", ar.HandleGetInstance)
		authed.GET("/instances/:id/status", ar.HandleCheckCompletionStatus)
		authed.GET("/instances/:id/documents", ar.HandleCheckInstanceDocuments)
		// DeleteInstance checks the administrator flag itself.
		authed.DELETE("/instances/:id", ar.HandleDeleteInstance)

		authed.POST("/actions/:id/complete", ar.HandleCompleteAction)
		authed.GET("/me/actions", ar.HandleListMyActions)
	}
}
