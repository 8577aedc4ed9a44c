package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

// Catalog resolves lookup keys. Implemented by catalog.Store.
type Catalog interface {
	ResolveBracket(ctx context.Context, key string) (int64, error)
	ResolveApprovalType(ctx context.Context, key string) (string, error)
	ResolveDocumentType(ctx context.Context, key string) (string, error)
}

// UserDirectory answers questions about users. Implemented by auth.AuthService.
type UserDirectory interface {
	IsActiveApprover(ctx context.Context, userID string) (bool, error)
	DisplayName(ctx context.Context, userID string) (string, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	SetApproverFlagInTx(ctx context.Context, tx *gorm.DB, userID string, isApprover bool) error
}

// RequestRepository gives the engine read access to requests and write access to their status.
// LockRequestInTx must hold a row lock until tx ends so that submission and request edits
// serialize. Implemented by rfpo.Repository.
type RequestRepository interface {
	GetRequest(ctx context.Context, requestID uuid.UUID) (*model.ApprovalRequest, error)
	GetRequestInTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*model.ApprovalRequest, error)
	LockRequestInTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*model.ApprovalRequest, error)
	UpdateRequestStatusInTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, status model.RequestStatus, actorID string) error
}

// TemplateProvider finds the active template for a scope. It returns nil, nil when there is none.
type TemplateProvider interface {
	GetActiveTemplate(ctx context.Context, workflowType model.WorkflowType, entityID string) (*model.WorkflowTemplate, error)
}

// Notifier is told about approval events after they are committed. Implementations must not block.
type Notifier interface {
	ApprovalRequired(ctx context.Context, instance *model.ApprovalInstance, actions []model.ApprovalAction)
	InstanceCompleted(ctx context.Context, instance *model.ApprovalInstance)
}

type noopNotifier struct{}

func (noopNotifier) ApprovalRequired(context.Context, *model.ApprovalInstance, []model.ApprovalAction) {
}

func (noopNotifier) InstanceCompleted(context.Context, *model.ApprovalInstance) {}
