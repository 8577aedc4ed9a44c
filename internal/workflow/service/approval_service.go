package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/observability"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
	"github.com/luckyjohnb/rfpo-application-sub000/utils"
)

// ApprovalServiceConfig holds engine policy switches.
type ApprovalServiceConfig struct {
	// RequireDocuments makes missing stage documents block submission instead of warning.
	RequireDocuments bool
}

// ApprovalService creates approval instances for requests and drives them to completion.
type ApprovalService struct {
	db        *gorm.DB
	templates TemplateProvider
	repo      ApprovalRepository
	requests  RequestRepository
	catalog   Catalog
	users     UserDirectory
	notifier  Notifier
	sm        *ApprovalStateMachine
	cfg       ApprovalServiceConfig
	now       func() time.Time
}

// NewApprovalService creates a new instance of ApprovalService. A nil notifier disables notifications.
func NewApprovalService(
	db *gorm.DB,
	templates TemplateProvider,
	repo ApprovalRepository,
	requests RequestRepository,
	catalog Catalog,
	users UserDirectory,
	notifier Notifier,
	cfg ApprovalServiceConfig,
) *ApprovalService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ApprovalService{
		db:        db,
		templates: templates,
		repo:      repo,
		requests:  requests,
		catalog:   catalog,
		users:     users,
		notifier:  notifier,
		sm:        NewApprovalStateMachine(repo),
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// plannedPhase is an applicable phase together with what it would run for a request.
type plannedPhase struct {
	model.ApplicablePhase
	Stage     *model.WorkflowStage
	Documents *model.DocumentValidation
	Err       error
}

// planPhases resolves phases, stages and document checks for a request without side effects.
// Per-phase stage problems are recorded on the phase rather than returned.
func (s *ApprovalService) planPhases(ctx context.Context, request *model.ApprovalRequest) ([]plannedPhase, error) {
	phases, err := ResolveApplicablePhases(ctx, s.templates, request)
	if err != nil {
		return nil, err
	}

	planned := make([]plannedPhase, 0, len(phases))
	for _, phase := range phases {
		p := plannedPhase{ApplicablePhase: phase}
		stage, err := ResolveStage(phase.Template, request.TotalAmount)
		if err == nil && len(stage.Steps) == 0 {
			err = model.ErrNoStageConfigured
		}
		if err != nil {
			if !errors.Is(err, model.ErrNoStageConfigured) {
				return nil, err
			}
			p.Err = &model.NoStageConfiguredError{
				PhaseNumber:  phase.PhaseNumber,
				WorkflowType: phase.WorkflowType,
				WorkflowName: phase.Template.Name,
			}
			planned = append(planned, p)
			continue
		}

		p.Stage = stage
		p.Documents, err = ValidateDocuments(ctx, s.catalog, stage.RequiredDocumentTypes, request.DocumentTypes)
		if err != nil {
			return nil, fmt.Errorf("failed to validate documents for phase %d: %w", phase.PhaseNumber, err)
		}
		planned = append(planned, p)
	}
	return planned, nil
}

// missingDocumentMessages describes every phase with missing documents.
func missingDocumentMessages(planned []plannedPhase) []string {
	var messages []string
	for _, p := range planned {
		if p.Documents == nil || p.Documents.IsComplete() {
			continue
		}
		messages = append(messages, fmt.Sprintf("phase %d (%s): missing documents: %s",
			p.PhaseNumber, p.WorkflowType, strings.Join(p.Documents.MissingDocuments, ", ")))
	}
	return messages
}

// ListApplicableWorkflows returns the phases that would run for a request, in order.
func (s *ApprovalService) ListApplicableWorkflows(ctx context.Context, requestID uuid.UUID) ([]model.ApplicablePhase, error) {
	request, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return ResolveApplicablePhases(ctx, s.templates, request)
}

// ValidateForApproval reports whether a request could be submitted now and what each phase would run.
func (s *ApprovalService) ValidateForApproval(ctx context.Context, requestID uuid.UUID) (*model.ValidationReport, error) {
	request, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	report := &model.ValidationReport{
		Errors:   []string{},
		Warnings: []string{},
		Phases:   []model.PhaseValidation{},
	}
	report.Errors = append(report.Errors, request.Violations()...)

	existing, err := s.repo.GetWaitingInstanceByRequestIDInTx(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		report.Errors = append(report.Errors, model.ErrAlreadySubmitted.Error())
	}

	planned, err := s.planPhases(ctx, request)
	if err != nil {
		return nil, err
	}
	if len(planned) == 0 {
		report.Errors = append(report.Errors, model.ErrNoWorkflowConfigured.Error())
	}

	for _, p := range planned {
		pv := model.PhaseValidation{
			PhaseNumber:  p.PhaseNumber,
			WorkflowType: p.WorkflowType,
			WorkflowID:   p.Template.ID,
			WorkflowName: p.Template.Name,
		}
		if p.Err != nil {
			pv.Error = p.Err.Error()
			report.Errors = append(report.Errors, p.Err.Error())
		} else {
			pv.StageName = p.Stage.StageName
			pv.StepCount = len(p.Stage.Steps)
			pv.Documents = p.Documents
		}
		report.Phases = append(report.Phases, pv)
	}

	if docs := missingDocumentMessages(planned); len(docs) > 0 {
		if s.cfg.RequireDocuments {
			report.Errors = append(report.Errors, docs...)
		} else {
			report.Warnings = append(report.Warnings, docs...)
		}
	}

	report.IsValid = len(report.Errors) == 0
	return report, nil
}

// SubmitForApproval snapshots every applicable phase and creates a waiting instance with the
// actions of phase 1's resolved stage. The request moves to Submitted in the same transaction.
func (s *ApprovalService) SubmitForApproval(ctx context.Context, requestID uuid.UUID, submittedBy string) (*model.ApprovalInstance, error) {
	instance, err := s.submit(ctx, requestID, submittedBy)
	if err != nil {
		observability.SubmissionsTotal.WithLabelValues(submissionOutcome(err)).Inc()
		return nil, err
	}
	observability.SubmissionsTotal.WithLabelValues("created").Inc()

	log.Info().
		Str("instance_id", instance.ID.String()).
		Str("request_id", requestID.String()).
		Int("phases", len(instance.Snapshot.Phases)).
		Int("pending_actions", len(instance.Actions)).
		Msg("approval instance created")

	s.notifier.ApprovalRequired(ctx, instance, ActionsAt(instance.Actions, instance.CurrentPosition()))
	return instance, nil
}

// maxSubmitAttempts bounds how often submission re-plans after the request changed between
// the unlocked planning read and the locked re-read.
const maxSubmitAttempts = 3

func (s *ApprovalService) submit(ctx context.Context, requestID uuid.UUID, submittedBy string) (*model.ApprovalInstance, error) {
	for attempt := 1; ; attempt++ {
		instance, err := s.trySubmit(ctx, requestID, submittedBy)
		if !errors.Is(err, model.ErrRequestChanged) || attempt == maxSubmitAttempts {
			return instance, err
		}
		log.Info().Str("request_id", requestID.String()).Int("attempt", attempt).
			Msg("request changed during submission, planning again")
	}
}

// trySubmit plans from an unlocked read, then locks the request and proceeds only if the
// locked read still matches what was planned.
func (s *ApprovalService) trySubmit(ctx context.Context, requestID uuid.UUID, submittedBy string) (*model.ApprovalInstance, error) {
	request, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := model.NewValidationError(request.Violations()...); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetWaitingInstanceByRequestIDInTx(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: instance %s", model.ErrAlreadySubmitted, existing.ID)
	}

	planned, err := s.planPhases(ctx, request)
	if err != nil {
		return nil, err
	}
	if len(planned) == 0 {
		return nil, model.ErrNoWorkflowConfigured
	}
	for _, p := range planned {
		if p.Err != nil {
			return nil, p.Err
		}
	}
	if docs := missingDocumentMessages(planned); len(docs) > 0 {
		if s.cfg.RequireDocuments {
			return nil, model.NewValidationError(docs...)
		}
		log.Warn().Str("request_id", requestID.String()).Strs("documents", docs).
			Msg("submitting with missing documents")
	}

	snapshot, err := s.buildSnapshot(ctx, request, planned)
	if err != nil {
		return nil, err
	}

	submittedAt := s.now()
	instance := &model.ApprovalInstance{
		RequestID:     requestID,
		WorkflowName:  workflowName(snapshot),
		Snapshot:      *snapshot,
		OverallStatus: model.InstanceStatusWaiting,
		SubmittedAt:   submittedAt,
		SubmittedBy:   submittedBy,
	}
	phaseRows := make([]model.ApprovalInstancePhase, 0, len(snapshot.Phases))
	for _, phase := range snapshot.Phases {
		phaseRows = append(phaseRows, model.ApprovalInstancePhase{
			PhaseNumber:        phase.PhaseNumber,
			WorkflowType:       phase.WorkflowType,
			WorkflowTemplateID: phase.WorkflowID,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.requests.LockRequestInTx(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if locked.Status == model.RequestStatusSubmitted {
			return fmt.Errorf("%w: request status is %s", model.ErrAlreadySubmitted, locked.Status)
		}
		if !sameApprovalInputs(request, locked) {
			return fmt.Errorf("%w: %s", model.ErrRequestChanged, requestID)
		}

		existing, err := s.repo.GetWaitingInstanceByRequestIDInTx(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: instance %s", model.ErrAlreadySubmitted, existing.ID)
		}

		start, ok := instance.Snapshot.StartPosition()
		if !ok {
			return fmt.Errorf("snapshot has no starting step")
		}
		instance.CurrentPhase, instance.CurrentStageOrder, instance.CurrentStepOrder = start.Phase, start.Stage, start.Step

		if err := s.repo.CreateInstanceInTx(ctx, tx, instance, phaseRows); err != nil {
			return err
		}
		actions, err := s.sm.InitializeActions(ctx, tx, instance)
		if err != nil {
			return err
		}
		instance.Actions = actions

		return s.requests.UpdateRequestStatusInTx(ctx, tx, requestID, model.RequestStatusSubmitted, submittedBy)
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// sameApprovalInputs reports whether two reads of a request agree on everything planning
// and the snapshot depend on. Status is compared separately by the caller.
func sameApprovalInputs(a, b *model.ApprovalRequest) bool {
	if a.Title != b.Title || a.TotalAmount != b.TotalAmount || a.LineItemCount != b.LineItemCount {
		return false
	}
	if !equalStringPtr(a.VendorID, b.VendorID) {
		return false
	}
	for _, wt := range model.PhaseOrder {
		refA, okA := a.EntityRef(wt)
		refB, okB := b.EntityRef(wt)
		if okA != okB || refA != refB {
			return false
		}
	}
	docsA, docsB := slices.Clone(a.DocumentTypes), slices.Clone(b.DocumentTypes)
	slices.Sort(docsA)
	slices.Sort(docsB)
	return slices.Equal(docsA, docsB)
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// buildSnapshot copies every planned phase into the write-once snapshot. Approver display
// names are resolved now so later directory edits do not alter the record.
func (s *ApprovalService) buildSnapshot(ctx context.Context, request *model.ApprovalRequest, planned []plannedPhase) (*model.Snapshot, error) {
	snapshot := &model.Snapshot{
		Version:      model.SnapshotVersion,
		RequestTotal: request.TotalAmount,
		CapturedAt:   s.now(),
		Phases:       make([]model.SnapshotPhase, 0, len(planned)),
	}

	names := make(map[string]string)
	for _, p := range planned {
		stage := p.Stage
		steps := make([]model.SnapshotStep, 0, len(stage.Steps))
		for _, step := range stage.Steps {
			name, ok := names[step.PrimaryApproverID]
			if !ok {
				var err error
				name, err = s.users.DisplayName(ctx, step.PrimaryApproverID)
				if err != nil {
					return nil, fmt.Errorf("failed to resolve approver %s: %w", step.PrimaryApproverID, err)
				}
				names[step.PrimaryApproverID] = name
			}
			var backup *string
			if step.BackupApproverID != nil {
				b := *step.BackupApproverID
				backup = &b
			}
			steps = append(steps, model.SnapshotStep{
				StepOrder:           step.StepOrder,
				StepName:            step.StepName,
				ApprovalTypeKey:     step.ApprovalTypeKey,
				ApprovalTypeName:    step.ApprovalTypeName,
				PrimaryApproverID:   step.PrimaryApproverID,
				PrimaryApproverName: name,
				BackupApproverID:    backup,
				IsRequired:          true,
			})
		}
		sort.SliceStable(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })

		docs := make([]string, len(stage.RequiredDocumentTypes))
		copy(docs, stage.RequiredDocumentTypes)

		snapshot.Phases = append(snapshot.Phases, model.SnapshotPhase{
			PhaseNumber:  p.PhaseNumber,
			WorkflowType: p.WorkflowType,
			WorkflowID:   p.Template.ID,
			WorkflowName: p.Template.Name,
			Version:      p.Template.Version,
			EntityID:     p.EntityID,
			Stages: []model.SnapshotStage{{
				StageOrder:            stage.StageOrder,
				StageName:             stage.StageName,
				BudgetBracketKey:      stage.BudgetBracketKey,
				BudgetBracketAmount:   stage.BudgetBracketAmount,
				RequiredDocumentTypes: docs,
				Steps:                 steps,
			}},
		})
	}
	return snapshot, nil
}

func workflowName(snapshot *model.Snapshot) string {
	names := make([]string, 0, len(snapshot.Phases))
	for _, phase := range snapshot.Phases {
		names = append(names, phase.WorkflowName)
	}
	return strings.Join(names, " / ")
}

// CompleteAction records an approver's decision and advances the instance. The whole
// transition commits or rolls back as one unit.
func (s *ApprovalService) CompleteAction(ctx context.Context, actionID uuid.UUID, decision *model.CompleteActionDTO, completerID string) (*model.CompleteActionResult, error) {
	if decision == nil {
		return nil, model.NewValidationError("decision is required")
	}
	if decision.Decision != model.ActionStatusApproved && decision.Decision != model.ActionStatusRefused {
		return nil, model.NewValidationError(fmt.Sprintf("decision must be %q or %q", model.ActionStatusApproved, model.ActionStatusRefused))
	}

	var result *StateTransitionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		action, err := s.repo.GetActionByIDInTx(ctx, tx, actionID)
		if err != nil {
			return err
		}
		if action.ApproverID != completerID {
			log.Warn().
				Str("action_id", actionID.String()).
				Str("approver_id", action.ApproverID).
				Str("completer_id", completerID).
				Msg("approval action completion attempted by a user who is not its approver")
			return fmt.Errorf("%w: action %s is assigned to another approver", model.ErrNotAuthorized, actionID)
		}

		instance, err := s.repo.GetInstanceByIDInTx(ctx, tx, action.InstanceID)
		if err != nil {
			return err
		}

		switch decision.Decision {
		case model.ActionStatusRefused:
			result, err = s.sm.TransitionToRefused(ctx, tx, instance, action, decision.Comments, completerID)
		default:
			result, err = s.sm.TransitionToApproved(ctx, tx, instance, action, decision.Comments, completerID)
		}
		if err != nil {
			return err
		}

		if result.InstanceFinished {
			status := model.RequestStatusApproved
			if result.Instance.OverallStatus == model.InstanceStatusRefused {
				status = model.RequestStatusRefused
			}
			if err := s.requests.UpdateRequestStatusInTx(ctx, tx, instance.RequestID, status, completerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		observability.ActionRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		return nil, err
	}

	observability.ActionDecisionsTotal.WithLabelValues(string(decision.Decision)).Inc()
	logEvent := log.Info().
		Str("action_id", actionID.String()).
		Str("instance_id", result.Instance.ID.String()).
		Str("decision", string(decision.Decision)).
		Int("newly_pending", len(result.NewlyPending))
	if result.InstanceFinished {
		logEvent = logEvent.Str("overall_status", string(result.Instance.OverallStatus))
	}
	logEvent.Msg("approval action completed")

	if len(result.AwaitingDecision) > 0 {
		s.notifier.ApprovalRequired(ctx, result.Instance, result.AwaitingDecision)
	}
	if result.InstanceFinished {
		observability.InstancesCompletedTotal.WithLabelValues(string(result.Instance.OverallStatus)).Inc()
		s.notifier.InstanceCompleted(ctx, result.Instance)
	}

	return &model.CompleteActionResult{
		Instance:     result.Instance,
		Action:       result.Action,
		NewlyPending: result.NewlyPending,
	}, nil
}

// GetInstance returns an instance with its snapshot and every action in evaluation order.
func (s *ApprovalService) GetInstance(ctx context.Context, instanceID uuid.UUID) (*model.ApprovalInstance, error) {
	instance, err := s.repo.GetInstanceByIDInTx(ctx, s.db, instanceID)
	if err != nil {
		return nil, err
	}
	return s.withActions(ctx, instance)
}

// GetInstanceForRequest returns the most recent instance of a request.
func (s *ApprovalService) GetInstanceForRequest(ctx context.Context, requestID uuid.UUID) (*model.ApprovalInstance, error) {
	instance, err := s.repo.GetLatestInstanceByRequestIDInTx(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	return s.withActions(ctx, instance)
}

func (s *ApprovalService) withActions(ctx context.Context, instance *model.ApprovalInstance) (*model.ApprovalInstance, error) {
	actions, err := s.repo.GetActionsByInstanceIDInTx(ctx, s.db, instance.ID)
	if err != nil {
		return nil, err
	}
	instance.Actions = actions
	return instance, nil
}

// CheckCompletionStatus re-derives what an instance's status should be from its actions.
// It never writes.
func (s *ApprovalService) CheckCompletionStatus(ctx context.Context, instanceID uuid.UUID) (*model.CompletionStatus, error) {
	instance, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	derived := DeriveState(&instance.Snapshot, instance.Actions)
	return completionStatus(instance, derived), nil
}

func completionStatus(instance *model.ApprovalInstance, derived DerivedState) *model.CompletionStatus {
	status := &model.CompletionStatus{
		InstanceID:      instance.ID,
		StoredStatus:    instance.OverallStatus,
		DerivedStatus:   derived.Status,
		CurrentPhase:    derived.Position.Phase,
		CurrentStage:    derived.Position.Stage,
		CurrentStep:     derived.Position.Step,
		PendingActions:  derived.Pending,
		ApprovedActions: derived.Approved,
		RefusedActions:  derived.Refused,
		TotalSteps:      instance.Snapshot.TotalSteps(),
	}
	status.Consistent = instance.OverallStatus == derived.Status &&
		(derived.Status.IsTerminal() || instance.CurrentPosition() == derived.Position) &&
		(derived.Status.IsTerminal() == (instance.CompletedAt != nil)) &&
		derived.CurrentMaterialized
	return status
}

// ReconcileStatus rewrites an instance's status, pointers and completion time to agree with its
// actions, materializing the current stage if its actions are missing. The request status
// follows. A consistent instance is left untouched.
func (s *ApprovalService) ReconcileStatus(ctx context.Context, instanceID uuid.UUID, actorID string) (*model.ReconcileResult, error) {
	var result *model.ReconcileResult
	var finished *model.ApprovalInstance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		instance, err := s.repo.GetInstanceByIDInTx(ctx, tx, instanceID)
		if err != nil {
			return err
		}
		actions, err := s.repo.GetActionsByInstanceIDInTx(ctx, tx, instanceID)
		if err != nil {
			return err
		}

		derived := DeriveState(&instance.Snapshot, actions)
		check := completionStatus(instance, derived)
		result = &model.ReconcileResult{
			InstanceID:     instance.ID,
			PreviousStatus: instance.OverallStatus,
			Status:         derived.Status,
		}
		if check.Consistent {
			return nil
		}
		result.Changed = true

		instance.OverallStatus = derived.Status
		instance.CurrentPhase = derived.Position.Phase
		instance.CurrentStageOrder = derived.Position.Stage
		instance.CurrentStepOrder = derived.Position.Step
		switch {
		case derived.Status.IsTerminal() && instance.CompletedAt == nil:
			completedAt := s.now()
			instance.CompletedAt = &completedAt
		case !derived.Status.IsTerminal():
			instance.CompletedAt = nil
		}

		if derived.Status == model.InstanceStatusWaiting && !derived.CurrentMaterialized {
			restored, err := s.sm.RestoreMissingActions(ctx, tx, instance, derived.Position, actions)
			if err != nil {
				return err
			}
			log.Warn().Str("instance_id", instanceID.String()).Int("restored_actions", len(restored)).
				Msg("restored missing approval actions")
		}
		if err := s.repo.UpdateInstanceInTx(ctx, tx, instance); err != nil {
			return err
		}

		requestStatus := model.RequestStatusSubmitted
		switch derived.Status {
		case model.InstanceStatusApproved:
			requestStatus = model.RequestStatusApproved
		case model.InstanceStatusRefused:
			requestStatus = model.RequestStatusRefused
		}
		if err := s.requests.UpdateRequestStatusInTx(ctx, tx, instance.RequestID, requestStatus, actorID); err != nil {
			return err
		}
		if derived.Status.IsTerminal() && !result.PreviousStatus.IsTerminal() {
			finished = instance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		observability.ReconcileCorrectionsTotal.Inc()
		log.Warn().
			Str("instance_id", instanceID.String()).
			Str("previous_status", string(result.PreviousStatus)).
			Str("status", string(result.Status)).
			Str("actor_id", actorID).
			Msg("approval instance reconciled")
	}
	if finished != nil {
		s.notifier.InstanceCompleted(ctx, finished)
	}
	return result, nil
}

// DeleteInstance removes an instance and its actions and returns the request to Draft.
// Only administrators may delete.
func (s *ApprovalService) DeleteInstance(ctx context.Context, instanceID uuid.UUID, actorID string) error {
	isAdmin, err := s.users.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		log.Warn().Str("instance_id", instanceID.String()).Str("actor_id", actorID).
			Msg("approval instance deletion attempted by a non-administrator")
		return fmt.Errorf("%w: only administrators may delete approval instances", model.ErrNotAuthorized)
	}

	var requestID uuid.UUID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		instance, err := s.repo.GetInstanceByIDInTx(ctx, tx, instanceID)
		if err != nil {
			return err
		}
		requestID = instance.RequestID
		if err := s.repo.DeleteInstanceInTx(ctx, tx, instanceID); err != nil {
			return err
		}
		return s.requests.UpdateRequestStatusInTx(ctx, tx, instance.RequestID, model.RequestStatusDraft, actorID)
	})
	if err != nil {
		return err
	}

	log.Info().Str("instance_id", instanceID.String()).Str("request_id", requestID.String()).
		Str("actor_id", actorID).Msg("approval instance deleted")
	return nil
}

// ListPendingActions returns the approver's actions that are waiting on them right now.
func (s *ApprovalService) ListPendingActions(ctx context.Context, approverID string, offset, limit *int) (*model.PendingActionListResult, error) {
	finalOffset, finalLimit := utils.GetPaginationParams(offset, limit)
	actions, total, err := s.repo.ListActionableByApproverInTx(ctx, s.db, approverID, finalOffset, finalLimit)
	if err != nil {
		return nil, err
	}
	if actions == nil {
		actions = []model.ApprovalAction{}
	}
	return &model.PendingActionListResult{
		TotalCount: total,
		Items:      actions,
		Offset:     finalOffset,
		Limit:      finalLimit,
	}, nil
}

// CheckInstanceDocuments re-derives document validation for every phase of an instance from its
// snapshot, against the documents currently attached to the request.
func (s *ApprovalService) CheckInstanceDocuments(ctx context.Context, instanceID uuid.UUID) ([]model.PhaseValidation, error) {
	instance, err := s.repo.GetInstanceByIDInTx(ctx, s.db, instanceID)
	if err != nil {
		return nil, err
	}
	request, err := s.requests.GetRequest(ctx, instance.RequestID)
	if err != nil {
		return nil, err
	}

	results := make([]model.PhaseValidation, 0, len(instance.Snapshot.Phases))
	for _, phase := range instance.Snapshot.Phases {
		for _, stage := range phase.Stages {
			docs, err := ValidateDocuments(ctx, s.catalog, stage.RequiredDocumentTypes, request.DocumentTypes)
			if err != nil {
				return nil, err
			}
			results = append(results, model.PhaseValidation{
				PhaseNumber:  phase.PhaseNumber,
				WorkflowType: phase.WorkflowType,
				WorkflowID:   phase.WorkflowID,
				WorkflowName: phase.WorkflowName,
				StageName:    stage.StageName,
				StepCount:    len(stage.Steps),
				Documents:    docs,
			})
		}
	}
	return results, nil
}

func submissionOutcome(err error) string {
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return "validation_failed"
	case errors.Is(err, model.ErrAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, model.ErrRequestChanged):
		return "request_changed"
	case errors.Is(err, model.ErrNoWorkflowConfigured):
		return "no_workflow"
	case errors.Is(err, model.ErrNoStageConfigured):
		return "no_stage"
	case errors.Is(err, model.ErrRequestNotFound):
		return "not_found"
	}
	return "error"
}

func rejectionReason(err error) string {
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return "invalid_decision"
	case errors.Is(err, model.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, model.ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, model.ErrInstanceClosed):
		return "instance_closed"
	case errors.Is(err, model.ErrStepNotCurrent):
		return "step_not_current"
	case errors.Is(err, model.ErrActionNotFound):
		return "not_found"
	}
	return "error"
}
