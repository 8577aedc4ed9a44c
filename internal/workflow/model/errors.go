package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoWorkflowConfigured = errors.New("no approval workflow is configured for this request")
	ErrNoStageConfigured    = errors.New("approval workflow has no stage configured")
	ErrAlreadySubmitted     = errors.New("request already has an approval in progress")
	ErrRequestChanged       = errors.New("request changed while it was being submitted")
	ErrNotAuthorized        = errors.New("not authorized to perform this action")
	ErrAlreadyCompleted     = errors.New("approval action is already completed")
	ErrTemplateInUse        = errors.New("workflow template is referenced by an approval in progress")
	ErrStepNotCurrent       = errors.New("approval action is not the current step")
	ErrInstanceClosed       = errors.New("approval instance is already closed")
	ErrDuplicateBracket     = errors.New("budget bracket is already used by another stage of this template")
	ErrInactiveApprover     = errors.New("approver is not an active user")
	ErrUnknownLookup        = errors.New("lookup value not found")

	ErrTemplateNotFound = errors.New("workflow template not found")
	ErrStageNotFound    = errors.New("workflow stage not found")
	ErrStepNotFound     = errors.New("workflow step not found")
	ErrInstanceNotFound = errors.New("approval instance not found")
	ErrActionNotFound   = errors.New("approval action not found")
	ErrRequestNotFound  = errors.New("request not found")
)

// ValidationError carries every violation found, not just the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Violations, "; "))
}

// NewValidationError returns nil when there are no violations.
func NewValidationError(violations ...string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// NoStageConfiguredError names the phase whose template resolved to no stage.
type NoStageConfiguredError struct {
	PhaseNumber  int
	WorkflowType WorkflowType
	WorkflowName string
}

func (e *NoStageConfiguredError) Error() string {
	return fmt.Sprintf("%s: phase %d (%s workflow %q)", ErrNoStageConfigured, e.PhaseNumber, e.WorkflowType, e.WorkflowName)
}

func (e *NoStageConfiguredError) Is(target error) bool {
	return target == ErrNoStageConfigured
}
