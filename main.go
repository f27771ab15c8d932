// File: marketplace/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"marketplace/config"
	"marketplace/cron"
	"marketplace/database"
	invoiceRepo "marketplace/database/repository/invoice"
	orderRepo "marketplace/database/repository/order"
	pipelineRepo "marketplace/database/repository/pipeline"
	productRepo "marketplace/database/repository/product"
	userRepoPkg "marketplace/database/repository/user"
	"marketplace/handlers"
	"marketplace/routes"
	"marketplace/services/invoice"
	"marketplace/services/mail"
	"marketplace/services/order"
	"marketplace/services/storage"
	"marketplace/services/tasks"
	"marketplace/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	utils.InitializeLogger()
	logger := utils.GetLogger()
	defer logger.Sync()
	utils.UseJSONFieldNames()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jwtManager, err := utils.NewJWTManager(cfg.JWTSecret)
	if err != nil {
		logger.Fatal("main: invalid JWT configuration", zap.Error(err))
	}

	mongoClient, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("main: failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	db := mongoClient.Database(cfg.DatabaseName)

	// repositories.
	users := userRepoPkg.NewMongoUserRepo(db)
	products := productRepo.NewMongoProductRepo(db)
	orders := orderRepo.NewMongoOrderRepo(db)
	invoices := invoiceRepo.NewMongoInvoiceRepo(db)
	chains := pipelineRepo.NewMongoChainRepo(db)
	for _, repo := range []indexer{users, products, orders, invoices, chains} {
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Fatal("main: failed to ensure indexes", zap.Error(err))
		}
	}

	authCache, err := utils.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisAuthDB)
	if err != nil {
		// Authentication still works against MongoDB without the cache.
		logger.Warn("main: auth cache unavailable, continuing without it", zap.Error(err))
		authCache = nil
	}
	queueRedis := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	})
	defer queueRedis.Close()

	blobs, err := storage.NewBlobStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("main: failed to initialize invoice storage", zap.Error(err))
	}

	// background tasks.
	taskClient := asynq.NewClient(cron.QueueRedisOpt(cfg))
	defer taskClient.Close()
	policy := tasks.Policy{
		MaxRetry:       cfg.TaskMaxRetry,
		InvoiceTimeout: cfg.InvoiceTaskTimeout,
		EmailTimeout:   cfg.EmailTaskTimeout,
	}
	enqueuer := tasks.NewEnqueuer(taskClient, policy, logger)
	chainHandler := tasks.NewChainHandler(tasks.HandlerDeps{
		Orders:   orders,
		Invoices: invoices,
		Chains:   chains,
		Blobs:    blobs,
		Renderer: invoice.NewRenderer(),
		Mailer:   mail.NewMailer(cfg, logger),
		Next:     enqueuer,
		MaxRetry: cfg.TaskMaxRetry,
		Logger:   logger,
	})
	worker, mux := cron.NewOrderWorker(cfg, chainHandler, tasks.NewBackoff(cfg.TaskBackoffBase, cfg.TaskBackoffMax), logger)
	cron.StartOrderWorker(worker, mux, logger, func(err error) {
		logger.Error("main: order task worker could not start", zap.Error(err))
		stop()
	})
	go cron.MonitorRedisConnection(ctx, queueRedis, logger)
	go tasks.StartChainSweeper(ctx, chains, enqueuer, cfg.ChainSweepInterval, cfg.ChainStallAfter, logger)

	inspector := asynq.NewInspector(cron.QueueRedisOpt(cfg))
	defer inspector.Close()
	targets := utils.HealthTargets{
		Redis:     []*redis.Client{queueRedis},
		Mongo:     mongoClient,
		Queue:     inspector,
		QueueName: tasks.QueueOrders,
	}
	if authCache != nil {
		targets.Redis = append(targets.Redis, authCache)
		defer authCache.Close()
	}
	utils.StartHealthMonitor(ctx, 30*time.Second, targets)

	// services.
	orderService := &order.DefaultOrderService{
		Products: products,
		Orders:   orders,
		Invoices: invoices,
		Chains:   chains,
		Blobs:    blobs,
		Enqueuer: enqueuer,
		Logger:   logger,
	}
	orderHandler := handlers.NewOrderHandler(orderService, logger)

	handlerBundle := (&handlers.HandlerBundle{
		UserRepo:          users,
		JWT:               jwtManager,
		AuthCache:         authCache,
		MaxRequestsPerMin: cfg.MaxRequestsPerMin,
		Logger:            logger,
	}).WithOrderHandler(orderHandler)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	routes.RegisterRoutes(router, handlerBundle)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Info("Starting server", zap.String("addr", srv.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("main: server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	worker.Shutdown()

	logger.Info("main: server stopped gracefully")
}
