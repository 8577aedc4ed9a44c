package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/observability"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

func setupPublisher(t *testing.T) (*redis.Client, *Publisher) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, NewPublisher(client)
}

func subscribe(t *testing.T, client *redis.Client, recordID string) <-chan *redis.Message {
	t.Helper()
	ctx := context.Background()
	sub := client.Subscribe(ctx, Channel(recordID))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	return sub.Channel()
}

func receive(t *testing.T, ch <-chan *redis.Message) Event {
	t.Helper()
	select {
	case msg := <-ch:
		var event Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
		return Event{}
	}
}

func testInstance(status model.InstanceStatus) *model.ApprovalInstance {
	return &model.ApprovalInstance{
		BaseModel:     model.BaseModel{ID: uuid.New()},
		RequestID:     uuid.New(),
		WorkflowName:  "Engine program / Powertrain team",
		OverallStatus: status,
		SubmittedBy:   "u-requester",
	}
}

func TestPublisher_ApprovalRequired(t *testing.T) {
	client, publisher := setupPublisher(t)
	messages := subscribe(t, client, "u-tech")

	instance := testInstance(model.InstanceStatusWaiting)
	action := model.ApprovalAction{
		BaseModel:  model.BaseModel{ID: uuid.New()},
		ApproverID: "u-tech",
		StageName:  "Up to $5,000",
		StepName:   "Technical Approval",
	}
	publisher.ApprovalRequired(context.Background(), instance, []model.ApprovalAction{action})

	event := receive(t, messages)
	assert.Equal(t, EventApprovalRequired, event.Type)
	assert.Equal(t, "u-tech", event.RecipientID)
	assert.Equal(t, instance.ID, event.InstanceID)
	assert.Equal(t, instance.RequestID, event.RequestID)
	require.NotNil(t, event.ActionID)
	assert.Equal(t, action.ID, *event.ActionID)
	assert.Equal(t, "Technical Approval", event.StepName)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestPublisher_InstanceCompleted(t *testing.T) {
	client, publisher := setupPublisher(t)
	messages := subscribe(t, client, "u-requester")

	publisher.InstanceCompleted(context.Background(), testInstance(model.InstanceStatusApproved))
	assert.Equal(t, EventRequestApproved, receive(t, messages).Type)

	publisher.InstanceCompleted(context.Background(), testInstance(model.InstanceStatusRefused))
	event := receive(t, messages)
	assert.Equal(t, EventRequestRefused, event.Type)
	assert.Equal(t, model.InstanceStatusRefused, event.Status)
	assert.Nil(t, event.ActionID)
}

func TestPublisher_FailuresAreSwallowed(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	publisher := NewPublisher(client)

	before := testutil.ToFloat64(observability.NotificationFailures)
	assert.NotPanics(t, func() {
		publisher.InstanceCompleted(context.Background(), testInstance(model.InstanceStatusApproved))
	})
	assert.Equal(t, before+1, testutil.ToFloat64(observability.NotificationFailures))
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var publisher *Publisher
	assert.Nil(t, NewPublisher(nil))
	assert.NotPanics(t, func() {
		publisher.ApprovalRequired(context.Background(), testInstance(model.InstanceStatusWaiting), []model.ApprovalAction{{ApproverID: "u"}})
		publisher.InstanceCompleted(context.Background(), testInstance(model.InstanceStatusApproved))
	})
}
