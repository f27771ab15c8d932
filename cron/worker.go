package cron

import (
	"context"
	"time"

	"marketplace/config"
	"marketplace/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	maxStartAttempts      = 5
	redisMonitorInterval  = 10 * time.Second
	workerShutdownTimeout = 30 * time.Second
)

// QueueRedisOpt is the asynq connection shared by the worker and the task client.
func QueueRedisOpt(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
}

// NewOrderWorker builds the asynq server that runs the order task chain.
// Retry spacing comes from backoff; exhausted or non-retryable failures are
// recorded through handler.HandleError.
func NewOrderWorker(cfg config.Config, handler *tasks.ChainHandler, backoff *tasks.Backoff, logger *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	srv := asynq.NewServer(
		QueueRedisOpt(cfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				tasks.QueueOrders: 1,
			},
			RetryDelayFunc:  backoff.RetryDelayFunc,
			ErrorHandler:    asynq.ErrorHandlerFunc(handler.HandleError),
			Logger:          newAsynqLogger(logger),
			ShutdownTimeout: workerShutdownTimeout,
		},
	)

	mux := asynq.NewServeMux()
	handler.Register(mux)
	return srv, mux
}

// StartOrderWorker runs srv in the background, retrying startup a few times
// before giving up. onFatal is called once all attempts failed.
func StartOrderWorker(srv *asynq.Server, mux *asynq.ServeMux, logger *zap.Logger, onFatal func(error)) {
	go func() {
		logger.Info("Starting order task worker")

		for attempts := 1; attempts <= maxStartAttempts; attempts++ {
			err := srv.Start(mux)
			if err == nil {
				return
			}
			logger.Error("Failed to start order task worker",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxStartAttempts),
				zap.Error(err),
			)
			if attempts == maxStartAttempts {
				onFatal(err)
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
}

// MonitorRedisConnection pings the queue database periodically so a lost
// broker shows up in the logs. It returns when ctx is cancelled.
func MonitorRedisConnection(ctx context.Context, client *redis.Client, logger *zap.Logger) {
	ticker := time.NewTicker(redisMonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil && ctx.Err() == nil {
				logger.Warn("Queue Redis connection lost", zap.Error(err))
			}
		}
	}
}
