package pipelineRepo

import (
	"context"
	"testing"
	"time"

	"marketplace/database/mongotest"
	"marketplace/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *MongoChainRepo {
	repo := NewMongoChainRepo(mongotest.NewDatabase(t))
	require.NoError(t, repo.EnsureIndexes(context.Background()))
	return repo
}

func insertChain(t *testing.T, repo *MongoChainRepo, orderID string, at time.Time) {
	chain := models.NewOrderChain(orderID, "customer-1", "c@example.com", at.UTC().Truncate(time.Millisecond))
	_, err := repo.coll.InsertOne(context.Background(), chain)
	require.NoError(t, err)
}

func TestStartAttemptAndFinish(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	insertChain(t, repo, "order-1", time.Now())

	require.NoError(t, repo.StartAttempt(ctx, "order-1", models.StageInvoice))
	require.NoError(t, repo.Finish(ctx, "order-1", models.StageInvoice, models.StagePending, "storage down"))
	require.NoError(t, repo.StartAttempt(ctx, "order-1", models.StageInvoice))

	chain, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageRunning, chain.Stages.Invoice.Status)
	assert.Equal(t, 2, chain.Stages.Invoice.Attempts)
	assert.Equal(t, "storage down", chain.Stages.Invoice.LastError)
	assert.Equal(t, models.StagePending, chain.Stages.Email.Status)

	require.NoError(t, repo.Finish(ctx, "order-1", models.StageInvoice, models.StageSucceeded, ""))
	chain, err = repo.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageSucceeded, chain.Stages.Invoice.Status)
	assert.Empty(t, chain.Stages.Invoice.LastError)
}

func TestUpdate_UnknownChain(t *testing.T) {
	repo := setupRepo(t)

	err := repo.StartAttempt(context.Background(), "missing", models.StageEmail)
	assert.ErrorIs(t, err, ErrChainNotFound)
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrChainNotFound)
}

func TestListStalled(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	old := time.Now().Add(-time.Hour)

	insertChain(t, repo, "stalled-invoice", old)
	insertChain(t, repo, "fresh", time.Now())
	insertChain(t, repo, "stalled-email", old)
	insertChain(t, repo, "failed", old)

	repo.now = func() time.Time { return old }
	require.NoError(t, repo.Finish(ctx, "stalled-email", models.StageInvoice, models.StageSucceeded, ""))
	require.NoError(t, repo.Finish(ctx, "failed", models.StageInvoice, models.StageFailed, "boom"))

	chains, err := repo.ListStalled(ctx, time.Now().Add(-30*time.Minute), 10)
	require.NoError(t, err)

	ids := make([]string, 0, len(chains))
	for _, c := range chains {
		ids = append(ids, c.OrderID)
	}
	assert.ElementsMatch(t, []string{"stalled-invoice", "stalled-email"}, ids)
}

func TestTouch_MovesChainBehindOlderStalledChains(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Now().Add(-2 * time.Hour)

	insertChain(t, repo, "oldest", base)
	insertChain(t, repo, "older", base.Add(time.Minute))

	chains, err := repo.ListStalled(ctx, time.Now().Add(-30*time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, "oldest", chains[0].OrderID)

	repo.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, repo.Touch(ctx, "oldest"))

	chains, err = repo.ListStalled(ctx, time.Now().Add(-30*time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, "older", chains[0].OrderID)

	touched, err := repo.Get(ctx, "oldest")
	require.NoError(t, err)
	assert.Equal(t, models.StagePending, touched.Stages.Invoice.Status)
	assert.Zero(t, touched.Stages.Invoice.Attempts)

	assert.ErrorIs(t, repo.Touch(ctx, "missing"), ErrChainNotFound)
}
