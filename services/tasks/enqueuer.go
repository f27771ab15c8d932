package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TaskClient is the part of *asynq.Client used to queue work.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ChainEnqueuer starts, or resumes, an order's invoice → email chain.
type ChainEnqueuer interface {
	EnqueueOrderChain(ctx context.Context, orderID, recipientEmail string) error
}

// Enqueuer queues chain stages on the orders queue.
type Enqueuer struct {
	client TaskClient
	policy Policy
	logger *zap.Logger
}

func NewEnqueuer(client TaskClient, policy Policy, logger *zap.Logger) *Enqueuer {
	return &Enqueuer{client: client, policy: policy, logger: logger}
}

// EnqueueOrderChain queues the invoice stage; it queues the email stage itself on success.
func (e *Enqueuer) EnqueueOrderChain(ctx context.Context, orderID, recipientEmail string) error {
	_, err := e.enqueueInvoice(ctx, ChainPayload{OrderID: orderID, RecipientEmail: recipientEmail})
	return err
}

func (e *Enqueuer) enqueueInvoice(ctx context.Context, p ChainPayload) (bool, error) {
	task, opts, err := NewGenerateInvoiceTask(p, e.policy)
	if err != nil {
		return false, err
	}
	return e.enqueue(ctx, task, opts, p.OrderID)
}

// EnqueueConfirmation queues the email stage of an order whose invoice exists.
func (e *Enqueuer) EnqueueConfirmation(ctx context.Context, p ChainPayload) error {
	_, err := e.enqueueConfirmation(ctx, p)
	return err
}

func (e *Enqueuer) enqueueConfirmation(ctx context.Context, p ChainPayload) (bool, error) {
	task, opts, err := NewSendConfirmationTask(p, e.policy)
	if err != nil {
		return false, err
	}
	return e.enqueue(ctx, task, opts, p.OrderID)
}

// enqueue reports whether a new task was queued. A task that already holds
// the stage's ID is not an error.
func (e *Enqueuer) enqueue(ctx context.Context, task *asynq.Task, opts []asynq.Option, orderID string) (bool, error) {
	info, err := e.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		// The stage is already queued, scheduled for retry, or archived.
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			e.logger.Debug("Task already queued", zap.String("type", task.Type()), zap.String("orderID", orderID))
			return false, nil
		}
		return false, fmt.Errorf("failed to enqueue %s for order %s: %w", task.Type(), orderID, err)
	}
	e.logger.Info("Task enqueued",
		zap.String("type", task.Type()),
		zap.String("orderID", orderID),
		zap.String("taskID", info.ID),
		zap.String("queue", info.Queue),
	)
	return true, nil
}
