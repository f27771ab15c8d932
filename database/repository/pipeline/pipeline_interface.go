package pipelineRepo

import (
	"context"
	"errors"
	"time"

	"marketplace/models"
)

var ErrChainNotFound = errors.New("order chain not found")

// ChainRepository persists per-stage state of the invoice → email chain so it
// can be inspected and resumed.
type ChainRepository interface {
	Get(ctx context.Context, orderID string) (*models.OrderChain, error)
	// StartAttempt marks the stage running and counts the attempt.
	StartAttempt(ctx context.Context, orderID string, stage models.Stage) error
	// Finish records the outcome of an attempt. A non-terminal failure is
	// recorded as pending with lastErr set.
	Finish(ctx context.Context, orderID string, stage models.Stage, status models.StageStatus, lastErr string) error
	// Touch moves the chain's updatedAt to now without changing any stage, so
	// a swept chain drops to the back of the stalled list.
	Touch(ctx context.Context, orderID string) error
	// ListStalled returns chains with a stage still pending since before
	// cutoff, least recently updated first.
	ListStalled(ctx context.Context, cutoff time.Time, limit int64) ([]models.OrderChain, error)
}
