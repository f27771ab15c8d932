package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnqueueOrderChain_Options(t *testing.T) {
	q := &MockTaskClient{}
	enq := NewEnqueuer(q, Policy{MaxRetry: 3, InvoiceTimeout: time.Minute}, zap.NewNop())

	require.NoError(t, enq.EnqueueOrderChain(context.Background(), "order-1", "buyer@example.com"))

	require.Len(t, q.Queued, 1)
	qt := q.Queued[0]
	assert.Equal(t, TypeGenerateInvoice, qt.task.Type())
	assert.Equal(t, "invoice:order-1", qt.id)
	assert.Equal(t, QueueOrders, qt.queue)

	var p ChainPayload
	require.NoError(t, json.Unmarshal(qt.task.Payload(), &p))
	assert.Equal(t, ChainPayload{OrderID: "order-1", RecipientEmail: "buyer@example.com"}, p)

	opts := map[asynq.OptionType]interface{}{}
	for _, o := range qt.opts {
		opts[o.Type()] = o.Value()
	}
	assert.Equal(t, 3, opts[asynq.MaxRetryOpt])
	assert.Equal(t, time.Minute, opts[asynq.TimeoutOpt])
}

func TestEnqueue_DuplicateIsSuccess(t *testing.T) {
	q := &MockTaskClient{}
	enq := NewEnqueuer(q, Policy{MaxRetry: 3}, zap.NewNop())

	require.NoError(t, enq.EnqueueOrderChain(context.Background(), "order-1", "a@b.c"))
	require.NoError(t, enq.EnqueueOrderChain(context.Background(), "order-1", "a@b.c"))
	assert.Len(t, q.Queued, 1)

	require.NoError(t, enq.EnqueueConfirmation(context.Background(), ChainPayload{OrderID: "order-1"}))
	assert.Equal(t, []string{TypeGenerateInvoice, TypeSendConfirmation}, q.Types())
	assert.Equal(t, "email:order-1", q.Queued[1].id)
}

func TestEnqueue_BrokerFailure(t *testing.T) {
	q := &MockTaskClient{Err: errors.New("dial tcp: connection refused")}
	enq := NewEnqueuer(q, Policy{MaxRetry: 3}, zap.NewNop())

	err := enq.EnqueueOrderChain(context.Background(), "order-1", "a@b.c")
	assert.ErrorContains(t, err, "connection refused")
}

func TestStageOf(t *testing.T) {
	stage, ok := StageOf(TypeGenerateInvoice)
	assert.True(t, ok)
	assert.EqualValues(t, "invoice", stage)

	stage, ok = StageOf(TypeSendConfirmation)
	assert.True(t, ok)
	assert.EqualValues(t, "email", stage)

	_, ok = StageOf("reminder:send")
	assert.False(t, ok)
}
