package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

// StateTransitionResult represents the result of an approval instance state transition.
type StateTransitionResult struct {
	// Instance is the instance after the transition, with updated pointers and status.
	Instance *model.ApprovalInstance

	// Action is the action that was completed.
	Action *model.ApprovalAction

	// NewlyPending contains actions materialized by this transition.
	NewlyPending []model.ApprovalAction

	// AwaitingDecision contains the actions at the instance's new current position.
	AwaitingDecision []model.ApprovalAction

	// InstanceFinished indicates the instance reached a terminal status.
	InstanceFinished bool
}

// ApprovalStateMachine drives an approval instance through its snapshot. Actions are materialized
// one stage at a time, only when that stage becomes current, and completed in step order.
type ApprovalStateMachine struct {
	repo ApprovalRepository
	now  func() time.Time
}

// NewApprovalStateMachine creates a new instance of ApprovalStateMachine.
func NewApprovalStateMachine(repo ApprovalRepository) *ApprovalStateMachine {
	return &ApprovalStateMachine{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// InitializeActions positions a new instance at the start of its snapshot and materializes the
// actions of phase 1's first stage.
func (sm *ApprovalStateMachine) InitializeActions(ctx context.Context, tx *gorm.DB, instance *model.ApprovalInstance) ([]model.ApprovalAction, error) {
	if instance == nil {
		return nil, fmt.Errorf("instance cannot be nil")
	}
	phase, ok := instance.Snapshot.Phase(1)
	if !ok {
		return nil, fmt.Errorf("snapshot of instance %s has no phase 1", instance.ID)
	}
	stage, ok := phase.FirstStage()
	if !ok {
		return nil, fmt.Errorf("phase 1 of instance %s has no stages", instance.ID)
	}
	return sm.materializeStage(ctx, tx, instance, phase, stage)
}

// TransitionToApproved records an approval and advances the instance.
func (sm *ApprovalStateMachine) TransitionToApproved(
	ctx context.Context,
	tx *gorm.DB,
	instance *model.ApprovalInstance,
	action *model.ApprovalAction,
	comments string,
	completerID string,
) (*StateTransitionResult, error) {
	if err := sm.canComplete(instance, action); err != nil {
		return nil, err
	}
	if err := sm.completeAction(ctx, tx, action, model.ActionStatusApproved, comments, completerID); err != nil {
		return nil, err
	}

	actions, err := sm.repo.GetActionsByInstanceIDInTx(ctx, tx, instance.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve approval actions: %w", err)
	}
	actions = overlayAction(actions, *action)

	result, err := sm.advance(ctx, tx, instance, actions)
	if err != nil {
		return nil, err
	}
	result.Action = action
	return result, nil
}

// TransitionToRefused records a refusal. Refusal is final for the whole instance: no other
// pending action is evaluated and nothing further is materialized.
func (sm *ApprovalStateMachine) TransitionToRefused(
	ctx context.Context,
	tx *gorm.DB,
	instance *model.ApprovalInstance,
	action *model.ApprovalAction,
	comments string,
	completerID string,
) (*StateTransitionResult, error) {
	if err := sm.canComplete(instance, action); err != nil {
		return nil, err
	}
	if err := sm.completeAction(ctx, tx, action, model.ActionStatusRefused, comments, completerID); err != nil {
		return nil, err
	}

	completedAt := sm.now()
	instance.OverallStatus = model.InstanceStatusRefused
	instance.CompletedAt = &completedAt
	if err := sm.repo.UpdateInstanceInTx(ctx, tx, instance); err != nil {
		return nil, fmt.Errorf("failed to mark instance %s refused: %w", instance.ID, err)
	}

	return &StateTransitionResult{
		Instance:         instance,
		Action:           action,
		NewlyPending:     []model.ApprovalAction{},
		InstanceFinished: true,
	}, nil
}

// advance moves the instance pointers after an approval:
// the next pending step of the stage, else the next stage of the phase, else the first stage of
// the next phase, else the instance is approved.
func (sm *ApprovalStateMachine) advance(ctx context.Context, tx *gorm.DB, instance *model.ApprovalInstance, actions []model.ApprovalAction) (*StateTransitionResult, error) {
	result := &StateTransitionResult{Instance: instance, NewlyPending: []model.ApprovalAction{}}
	pos := instance.CurrentPosition()

	if next, ok := lowestPendingInStage(actions, pos.Phase, pos.Stage); ok {
		instance.CurrentStepOrder = next.StepOrder
		if err := sm.repo.UpdateInstanceInTx(ctx, tx, instance); err != nil {
			return nil, fmt.Errorf("failed to move instance %s to step %d: %w", instance.ID, next.StepOrder, err)
		}
		result.AwaitingDecision = []model.ApprovalAction{*next}
		return result, nil
	}

	phase, ok := instance.Snapshot.Phase(pos.Phase)
	if !ok {
		return nil, fmt.Errorf("snapshot of instance %s has no phase %d", instance.ID, pos.Phase)
	}

	if stage, ok := phase.NextStage(pos.Stage); ok {
		created, err := sm.materializeStage(ctx, tx, instance, phase, stage)
		if err != nil {
			return nil, err
		}
		result.NewlyPending = created
		result.AwaitingDecision = ActionsAt(created, instance.CurrentPosition())
		return result, sm.persistPointers(ctx, tx, instance)
	}

	if nextPhase, ok := instance.Snapshot.Phase(pos.Phase + 1); ok {
		stage, ok := nextPhase.FirstStage()
		if !ok {
			return nil, fmt.Errorf("phase %d of instance %s has no stages", nextPhase.PhaseNumber, instance.ID)
		}
		created, err := sm.materializeStage(ctx, tx, instance, nextPhase, stage)
		if err != nil {
			return nil, err
		}
		result.NewlyPending = created
		result.AwaitingDecision = ActionsAt(created, instance.CurrentPosition())
		return result, sm.persistPointers(ctx, tx, instance)
	}

	completedAt := sm.now()
	instance.OverallStatus = model.InstanceStatusApproved
	instance.CompletedAt = &completedAt
	if err := sm.repo.UpdateInstanceInTx(ctx, tx, instance); err != nil {
		return nil, fmt.Errorf("failed to mark instance %s approved: %w", instance.ID, err)
	}
	result.InstanceFinished = true
	return result, nil
}

func (sm *ApprovalStateMachine) persistPointers(ctx context.Context, tx *gorm.DB, instance *model.ApprovalInstance) error {
	if err := sm.repo.UpdateInstanceInTx(ctx, tx, instance); err != nil {
		return fmt.Errorf("failed to advance instance %s: %w", instance.ID, err)
	}
	return nil
}

// materializeStage points the instance at the stage's first step and creates one pending action
// per step, approver = primary.
func (sm *ApprovalStateMachine) materializeStage(
	ctx context.Context,
	tx *gorm.DB,
	instance *model.ApprovalInstance,
	phase *model.SnapshotPhase,
	stage *model.SnapshotStage,
) ([]model.ApprovalAction, error) {
	first, ok := stage.FirstStep()
	if !ok {
		return nil, fmt.Errorf("stage %d of phase %d has no steps", stage.StageOrder, phase.PhaseNumber)
	}

	created, err := sm.repo.CreateActionsInTx(ctx, tx, buildStageActions(instance.ID, phase, stage))
	if err != nil {
		return nil, fmt.Errorf("failed to materialize stage %d of phase %d: %w", stage.StageOrder, phase.PhaseNumber, err)
	}

	instance.CurrentPhase = phase.PhaseNumber
	instance.CurrentStageOrder = stage.StageOrder
	instance.CurrentStepOrder = first.StepOrder
	return created, nil
}

// RestoreMissingActions creates the pending actions of a stage that have no row yet, leaving
// existing actions and the instance pointers untouched.
func (sm *ApprovalStateMachine) RestoreMissingActions(
	ctx context.Context,
	tx *gorm.DB,
	instance *model.ApprovalInstance,
	pos model.Position,
	existing []model.ApprovalAction,
) ([]model.ApprovalAction, error) {
	phase, ok := instance.Snapshot.Phase(pos.Phase)
	if !ok {
		return nil, fmt.Errorf("snapshot of instance %s has no phase %d", instance.ID, pos.Phase)
	}
	stage, ok := phase.Stage(pos.Stage)
	if !ok {
		return nil, fmt.Errorf("phase %d of instance %s has no stage %d", pos.Phase, instance.ID, pos.Stage)
	}

	var missing []model.ApprovalAction
	for _, action := range buildStageActions(instance.ID, phase, stage) {
		if !hasActionAt(existing, model.Position{Phase: action.PhaseNumber, Stage: action.StageOrder, Step: action.StepOrder}) {
			missing = append(missing, action)
		}
	}
	if len(missing) == 0 {
		return []model.ApprovalAction{}, nil
	}
	created, err := sm.repo.CreateActionsInTx(ctx, tx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to restore actions of stage %d of phase %d: %w", stage.StageOrder, phase.PhaseNumber, err)
	}
	return created, nil
}

// buildStageActions returns one pending action per step of the stage, in step order.
func buildStageActions(instanceID uuid.UUID, phase *model.SnapshotPhase, stage *model.SnapshotStage) []model.ApprovalAction {
	steps := make([]model.SnapshotStep, len(stage.Steps))
	copy(steps, stage.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })

	actions := make([]model.ApprovalAction, 0, len(steps))
	for _, step := range steps {
		actions = append(actions, model.ApprovalAction{
			InstanceID:      instanceID,
			PhaseNumber:     phase.PhaseNumber,
			WorkflowType:    phase.WorkflowType,
			StageOrder:      stage.StageOrder,
			StepOrder:       step.StepOrder,
			StageName:       stage.StageName,
			StepName:        step.StepName,
			ApprovalTypeKey: step.ApprovalTypeKey,
			ApproverID:      step.PrimaryApproverID,
			ApproverName:    step.PrimaryApproverName,
			Status:          model.ActionStatusPending,
		})
	}
	return actions
}

func (sm *ApprovalStateMachine) completeAction(ctx context.Context, tx *gorm.DB, action *model.ApprovalAction, status model.ActionStatus, comments, completerID string) error {
	completedAt := sm.now()
	completedBy := completerID
	action.Status = status
	action.Comments = comments
	action.CompletedAt = &completedAt
	action.CompletedBy = &completedBy
	return sm.repo.CompleteActionInTx(ctx, tx, action)
}

// canComplete checks that the action is pending and is the instance's current step.
func (sm *ApprovalStateMachine) canComplete(instance *model.ApprovalInstance, action *model.ApprovalAction) error {
	if instance == nil || action == nil {
		return fmt.Errorf("instance and action cannot be nil")
	}
	if action.Status != model.ActionStatusPending {
		return fmt.Errorf("%w: %s is %s", model.ErrAlreadyCompleted, action.ID, action.Status)
	}
	if instance.OverallStatus.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", model.ErrInstanceClosed, instance.ID, instance.OverallStatus)
	}
	if action.InstanceID != instance.ID || !action.At(instance.CurrentPosition()) {
		return fmt.Errorf("%w: action is at phase %d stage %d step %d, instance is at phase %d stage %d step %d",
			model.ErrStepNotCurrent, action.PhaseNumber, action.StageOrder, action.StepOrder,
			instance.CurrentPhase, instance.CurrentStageOrder, instance.CurrentStepOrder)
	}
	return nil
}

// DerivedState is what an instance's status and position should be given its actions.
type DerivedState struct {
	Status   model.InstanceStatus
	Position model.Position
	Pending  int
	Approved int
	Refused  int
	// CurrentMaterialized is false when no action row exists at Position.
	CurrentMaterialized bool
}

// DeriveState re-derives status and position from the snapshot and the full action set.
// Any refusal makes the instance refused. Otherwise the first step in snapshot order that is
// not approved is the current one; if every step is approved the instance is approved.
func DeriveState(snapshot *model.Snapshot, actions []model.ApprovalAction) DerivedState {
	state := DerivedState{}
	byPos := make(map[model.Position]model.ApprovalAction, len(actions))
	var refused *model.ApprovalAction
	for i := range actions {
		a := actions[i]
		byPos[model.Position{Phase: a.PhaseNumber, Stage: a.StageOrder, Step: a.StepOrder}] = a
		switch a.Status {
		case model.ActionStatusPending:
			state.Pending++
		case model.ActionStatusApproved:
			state.Approved++
		case model.ActionStatusRefused:
			state.Refused++
			if refused == nil {
				refused = &actions[i]
			}
		}
	}

	if refused != nil {
		state.Status = model.InstanceStatusRefused
		state.Position = model.Position{Phase: refused.PhaseNumber, Stage: refused.StageOrder, Step: refused.StepOrder}
		state.CurrentMaterialized = true
		return state
	}

	positions := orderedPositions(snapshot)
	for _, pos := range positions {
		a, ok := byPos[pos]
		if ok && a.Status == model.ActionStatusApproved {
			continue
		}
		state.Status = model.InstanceStatusWaiting
		state.Position = pos
		state.CurrentMaterialized = ok
		return state
	}

	state.Status = model.InstanceStatusApproved
	if len(positions) > 0 {
		state.Position = positions[len(positions)-1]
	}
	state.CurrentMaterialized = true
	return state
}

// orderedPositions lists every step of the snapshot in evaluation order.
func orderedPositions(snapshot *model.Snapshot) []model.Position {
	phases := make([]model.SnapshotPhase, len(snapshot.Phases))
	copy(phases, snapshot.Phases)
	sort.SliceStable(phases, func(i, j int) bool { return phases[i].PhaseNumber < phases[j].PhaseNumber })

	var positions []model.Position
	for _, phase := range phases {
		stages := make([]model.SnapshotStage, len(phase.Stages))
		copy(stages, phase.Stages)
		sort.SliceStable(stages, func(i, j int) bool { return stages[i].StageOrder < stages[j].StageOrder })
		for _, stage := range stages {
			steps := make([]model.SnapshotStep, len(stage.Steps))
			copy(steps, stage.Steps)
			sort.SliceStable(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })
			for _, step := range steps {
				positions = append(positions, model.Position{Phase: phase.PhaseNumber, Stage: stage.StageOrder, Step: step.StepOrder})
			}
		}
	}
	return positions
}

func lowestPendingInStage(actions []model.ApprovalAction, phase, stage int) (*model.ApprovalAction, bool) {
	var next *model.ApprovalAction
	for i := range actions {
		a := &actions[i]
		if a.PhaseNumber != phase || a.StageOrder != stage || a.Status != model.ActionStatusPending {
			continue
		}
		if next == nil || a.StepOrder < next.StepOrder {
			next = a
		}
	}
	return next, next != nil
}

// ActionsAt returns the actions positioned exactly at pos.
func ActionsAt(actions []model.ApprovalAction, pos model.Position) []model.ApprovalAction {
	var out []model.ApprovalAction
	for i := range actions {
		if actions[i].At(pos) {
			out = append(out, actions[i])
		}
	}
	return out
}

func hasActionAt(actions []model.ApprovalAction, pos model.Position) bool {
	for i := range actions {
		if actions[i].At(pos) {
			return true
		}
	}
	return false
}

// overlayAction replaces the stored copy of an action with its in-memory state.
func overlayAction(actions []model.ApprovalAction, updated model.ApprovalAction) []model.ApprovalAction {
	out := make([]model.ApprovalAction, len(actions))
	copy(out, actions)
	for i := range out {
		if out[i].ID == updated.ID {
			out[i] = updated
			return out
		}
	}
	return append(out, updated)
}
