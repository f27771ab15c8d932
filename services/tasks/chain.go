package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"marketplace/models"

	"github.com/hibiken/asynq"
)

const (
	QueueOrders = "orders"

	TypeGenerateInvoice  = "order:invoice:generate"
	TypeSendConfirmation = "order:email:confirm"
)

// ChainPayload is carried by both stages of an order's chain.
type ChainPayload struct {
	OrderID        string `json:"order_id"`
	RecipientEmail string `json:"recipient_email"`
}

// Policy bounds how each stage is retried and how long one attempt may run.
type Policy struct {
	MaxRetry       int
	InvoiceTimeout time.Duration
	EmailTimeout   time.Duration
}

// StageOf maps a task type to the chain stage it drives.
func StageOf(taskType string) (models.Stage, bool) {
	switch taskType {
	case TypeGenerateInvoice:
		return models.StageInvoice, true
	case TypeSendConfirmation:
		return models.StageEmail, true
	}
	return "", false
}

// TaskID is unique per order and stage, so a stage is queued at most once at a time.
func TaskID(stage models.Stage, orderID string) string {
	return string(stage) + ":" + orderID
}

func newChainTask(taskType string, stage models.Stage, p ChainPayload, timeout time.Duration, policy Policy) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(taskType, b)
	opts := []asynq.Option{
		asynq.Queue(QueueOrders),
		asynq.MaxRetry(policy.MaxRetry),
		asynq.TaskID(TaskID(stage, p.OrderID)),
	}
	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}
	return task, opts, nil
}

func NewGenerateInvoiceTask(p ChainPayload, policy Policy) (*asynq.Task, []asynq.Option, error) {
	return newChainTask(TypeGenerateInvoice, models.StageInvoice, p, policy.InvoiceTimeout, policy)
}

func NewSendConfirmationTask(p ChainPayload, policy Policy) (*asynq.Task, []asynq.Option, error) {
	return newChainTask(TypeSendConfirmation, models.StageEmail, p, policy.EmailTimeout, policy)
}

// parsePayload rejects payloads no retry could fix.
func parsePayload(task *asynq.Task) (ChainPayload, error) {
	var p ChainPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	if p.OrderID == "" {
		return p, fmt.Errorf("invalid %s payload: missing order_id: %w", task.Type(), asynq.SkipRetry)
	}
	return p, nil
}
