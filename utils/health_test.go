package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
	seen string
}

func (f *fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	f.seen = queue
	return f.info, f.err
}

func TestCheckHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	up := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() {
		up.Close()
		down.Close()
	})
	inspector := &fakeInspector{info: &asynq.QueueInfo{Pending: 4, Active: 1, Retry: 2, Archived: 3}}

	status := CheckHealth(context.Background(), HealthTargets{
		Redis:     []*redis.Client{up, down},
		Queue:     inspector,
		QueueName: "orders",
	})

	assert.Equal(t, []bool{true, false}, status.Redis)
	assert.False(t, status.Mongo)
	assert.Equal(t, "orders", inspector.seen)
	assert.Equal(t, QueueHealth{Reachable: true, Pending: 4, Active: 1, Retry: 2, Archived: 3}, status.Queue)
	assert.Equal(t, status, GetHealthStatus())
}

func TestCheckHealth_QueueUnreachable(t *testing.T) {
	status := CheckHealth(context.Background(), HealthTargets{
		Queue:     &fakeInspector{err: errors.New("dial tcp: connection refused")},
		QueueName: "orders",
	})

	require.False(t, status.Queue.Reachable)
	assert.Zero(t, status.Queue.Pending)
}
