// Package notify publishes approval events to Redis pub/sub so that web clients and mailers can
// react to them.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/observability"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

type EventType string

const (
	EventApprovalRequired EventType = "approval_required"
	EventRequestApproved  EventType = "request_approved"
	EventRequestRefused   EventType = "request_refused"
)

const defaultPublishTimeout = 2 * time.Second

// Event is the JSON payload published for a single recipient.
type Event struct {
	Type         EventType            `json:"type"`
	RecipientID  string               `json:"recipientId"`
	InstanceID   uuid.UUID            `json:"instanceId"`
	RequestID    uuid.UUID            `json:"requestId"`
	WorkflowName string               `json:"workflowName"`
	ActionID     *uuid.UUID           `json:"actionId,omitempty"`
	StageName    string               `json:"stageName,omitempty"`
	StepName     string               `json:"stepName,omitempty"`
	Status       model.InstanceStatus `json:"status"`
	OccurredAt   time.Time            `json:"occurredAt"`
}

// Channel is the pub/sub channel of one user.
func Channel(recordID string) string {
	return "notifications:user:" + recordID
}

// Publisher sends approval events to Redis. A nil *Publisher drops every event.
type Publisher struct {
	client  *redis.Client
	timeout time.Duration
	now     func() time.Time
}

func NewPublisher(client *redis.Client) *Publisher {
	if client == nil {
		return nil
	}
	return &Publisher{
		client:  client,
		timeout: defaultPublishTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ApprovalRequired tells each approver that an action awaits their decision.
func (p *Publisher) ApprovalRequired(ctx context.Context, instance *model.ApprovalInstance, actions []model.ApprovalAction) {
	if p == nil || instance == nil {
		return
	}
	for i := range actions {
		action := actions[i]
		p.publish(ctx, Event{
			Type:         EventApprovalRequired,
			RecipientID:  action.ApproverID,
			InstanceID:   instance.ID,
			RequestID:    instance.RequestID,
			WorkflowName: instance.WorkflowName,
			ActionID:     &action.ID,
			StageName:    action.StageName,
			StepName:     action.StepName,
			Status:       instance.OverallStatus,
		})
	}
}

// InstanceCompleted tells the submitter the final outcome.
func (p *Publisher) InstanceCompleted(ctx context.Context, instance *model.ApprovalInstance) {
	if p == nil || instance == nil {
		return
	}
	eventType := EventRequestApproved
	if instance.OverallStatus == model.InstanceStatusRefused {
		eventType = EventRequestRefused
	}
	p.publish(ctx, Event{
		Type:         eventType,
		RecipientID:  instance.SubmittedBy,
		InstanceID:   instance.ID,
		RequestID:    instance.RequestID,
		WorkflowName: instance.WorkflowName,
		Status:       instance.OverallStatus,
	})
}

// publish never fails the caller; errors are logged and counted.
func (p *Publisher) publish(ctx context.Context, event Event) {
	if event.RecipientID == "" {
		return
	}
	event.OccurredAt = p.now()

	payload, err := json.Marshal(event)
	if err != nil {
		observability.NotificationFailures.Inc()
		log.Error().Err(err).Str("type", string(event.Type)).Msg("failed to encode notification")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, Channel(event.RecipientID), payload).Err(); err != nil {
		observability.NotificationFailures.Inc()
		log.Warn().Err(err).
			Str("type", string(event.Type)).
			Str("recipient_id", event.RecipientID).
			Str("instance_id", event.InstanceID.String()).
			Msg("failed to publish notification")
		return
	}
	log.Debug().
		Str("type", string(event.Type)).
		Str("recipient_id", event.RecipientID).
		Str("instance_id", event.InstanceID.String()).
		Msg("notification published")
}
