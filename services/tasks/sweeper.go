package tasks

import (
	"context"
	"time"

	pipelineRepo "marketplace/database/repository/pipeline"
	"marketplace/models"

	"go.uber.org/zap"
)

const sweepBatchSize = 100

// StartChainSweeper re-queues chains that stalled, for example because the
// queue was unreachable when the order was placed. It blocks until ctx is done.
func StartChainSweeper(ctx context.Context, chains pipelineRepo.ChainRepository, enq *Enqueuer, interval, stallAfter time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Chain sweeper shutdown signal received")
			return
		case <-ticker.C:
			n, err := SweepStalledChains(ctx, chains, enq, time.Now().UTC().Add(-stallAfter), logger)
			if err != nil {
				logger.Error("Chain sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("Re-enqueued stalled chains", zap.Int("count", n))
			}
		}
	}
}

// SweepStalledChains re-queues the pending stage of every chain idle since
// before cutoff and returns how many tasks were actually queued. Every swept
// chain is touched, so chains whose task is still queued do not hold later
// chains out of the batch.
func SweepStalledChains(ctx context.Context, chains pipelineRepo.ChainRepository, enq *Enqueuer, cutoff time.Time, logger *zap.Logger) (int, error) {
	stalled, err := chains.ListStalled(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	requeued, alreadyQueued := 0, 0
	for _, c := range stalled {
		p := ChainPayload{OrderID: c.OrderID, RecipientEmail: c.RecipientEmail}
		var queued bool
		if c.Stages.Invoice.Status == models.StagePending {
			queued, err = enq.enqueueInvoice(ctx, p)
		} else {
			queued, err = enq.enqueueConfirmation(ctx, p)
		}
		switch {
		case err != nil:
			logger.Warn("Failed to re-enqueue chain", zap.String("orderID", c.OrderID), zap.Error(err))
		case queued:
			requeued++
		default:
			alreadyQueued++
		}
		if err := chains.Touch(ctx, c.OrderID); err != nil {
			logger.Warn("Failed to mark chain swept", zap.String("orderID", c.OrderID), zap.Error(err))
		}
	}
	if alreadyQueued > 0 {
		logger.Debug("Stalled chains already queued", zap.Int("count", alreadyQueued))
	}
	return requeued, nil
}
