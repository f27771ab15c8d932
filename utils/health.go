package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
)

// QueueInspector reports task counts for a queue. *asynq.Inspector satisfies it.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// HealthTargets lists the dependencies checked by the health monitor. Nil
// entries are reported as unhealthy.
type HealthTargets struct {
	Redis []*redis.Client
	Mongo *mongo.Client
	Queue QueueInspector
	// QueueName is the queue whose backlog is reported.
	QueueName string
}

// QueueHealth is the backlog of the task queue at check time.
type QueueHealth struct {
	Reachable bool `json:"reachable"`
	Pending   int  `json:"pending"`
	Active    int  `json:"active"`
	Retry     int  `json:"retry"`
	Archived  int  `json:"archived"`
}

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Mongo     bool        `json:"mongo"`
	Redis     []bool      `json:"redis"`
	Queue     QueueHealth `json:"queue"`
	CheckedAt time.Time   `json:"checkedAt"`
}

var (
	currentHealth HealthStatus
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

// CheckHealth pings every dependency once and stores the snapshot.
func CheckHealth(ctx context.Context, targets HealthTargets) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := HealthStatus{CheckedAt: time.Now()}
	for _, client := range targets.Redis {
		status.Redis = append(status.Redis, client != nil && client.Ping(ctx).Err() == nil)
	}
	if targets.Mongo != nil {
		status.Mongo = targets.Mongo.Ping(ctx, nil) == nil
	}
	if targets.Queue != nil {
		if info, err := targets.Queue.GetQueueInfo(targets.QueueName); err == nil {
			status.Queue = QueueHealth{
				Reachable: true,
				Pending:   info.Pending,
				Active:    info.Active,
				Retry:     info.Retry,
				Archived:  info.Archived,
			}
		}
	}

	mu.Lock()
	currentHealth = status
	mu.Unlock()
	return status
}

// StartHealthMonitor performs periodic health checks and updates in-memory state
// until ctx is cancelled.
func StartHealthMonitor(ctx context.Context, interval time.Duration, targets HealthTargets) {
	go func() {
		CheckHealth(ctx, targets)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CheckHealth(ctx, targets)
			}
		}
	}()
}
