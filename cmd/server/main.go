package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/riverzaw/wasmer-cloud-solution/internal/config"
	"github.com/riverzaw/wasmer-cloud-solution/internal/handler"
	"github.com/riverzaw/wasmer-cloud-solution/internal/provider"
	"github.com/riverzaw/wasmer-cloud-solution/internal/queue"
	"github.com/riverzaw/wasmer-cloud-solution/internal/repository"
	"github.com/riverzaw/wasmer-cloud-solution/internal/router"
	"github.com/riverzaw/wasmer-cloud-solution/internal/usecase"
	"github.com/riverzaw/wasmer-cloud-solution/internal/worker"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		logger.Fatal("database ping failed", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis ping failed", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repository.NewUserRepo(db)
	appRepo := repository.NewAppRepo(db)
	configRepo := repository.NewSendingConfigRepo(db)
	logRepo := repository.NewEmailLogRepo(db)

	// Providers
	dns := provider.NewPorkbunDNS(cfg.Porkbun, logger)
	registry := provider.NewRegistry(
		provider.NewMailerSend(cfg.MailerSend, logger),
		provider.NewSMTP2GO(cfg.SMTP2GO, dns, logger),
	)

	// Job queue + dispatcher
	jobs := queue.NewRedisQueue(rdb, cfg.QueueKey)
	dispatcher := worker.NewDispatcher(jobs, registry, configRepo, logRepo, logger, worker.Options{
		Workers:         cfg.WorkerCount,
		SendMaxAttempts: cfg.SendMaxAttempts,
		SendRetryDelay:  cfg.SendRetryDelay,
	})
	dispatcher.Start(ctx)

	// Usecases
	emailUC := usecase.NewEmailUsecase(userRepo, appRepo, configRepo, logRepo, jobs, logger)
	providerUC := usecase.NewProviderUsecase(appRepo, configRepo, jobs, logger)
	accountUC := usecase.NewAccountUsecase(userRepo, appRepo, logger)
	usageUC := usecase.NewUsageUsecase(appRepo, logRepo)
	webhookUC := usecase.NewWebhookUsecase(logRepo, logger)

	// Handlers + router
	appHandler := handler.NewAppHandler(emailUC, providerUC, usageUC, logger)
	userHandler := handler.NewUserHandler(accountUC, logger)
	webhookHandler := handler.NewWebhookHandler(webhookUC, cfg.MailerSend.WebhookSecret, logger)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.SetupRoutes(appHandler, userHandler, webhookHandler, logger),
	}

	go func() {
		logger.Info("email platform listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	dispatcher.Stop()
}
