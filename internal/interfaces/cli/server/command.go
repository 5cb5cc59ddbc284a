// Package server boots the full service: database, redis, panels,
// provisioning services, reconciliation scheduler and the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	accountApp "nyxvpn/internal/application/account"
	subscriptionApp "nyxvpn/internal/application/subscription"
	"nyxvpn/internal/infrastructure/cache"
	"nyxvpn/internal/infrastructure/config"
	"nyxvpn/internal/infrastructure/database"
	"nyxvpn/internal/infrastructure/email"
	"nyxvpn/internal/infrastructure/migration"
	"nyxvpn/internal/infrastructure/panel"
	"nyxvpn/internal/infrastructure/repository"
	"nyxvpn/internal/infrastructure/scheduler"
	"nyxvpn/internal/infrastructure/telegram"
	httpRouter "nyxvpn/internal/interfaces/http"
	"nyxvpn/internal/interfaces/http/handlers"
	"nyxvpn/internal/shared/goroutine"
	"nyxvpn/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the provisioning server with the reconciliation scheduler.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run database migrations on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = mapEnvToGinMode(env)

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	log.Infow("starting server", "environment", env, "auto_migrate", autoMigrate)

	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if autoMigrate {
		if env == "production" {
			log.Warnw("auto-migration enabled in production")
		}
		migrationManager := migration.NewManager(env, log)
		if err := migrationManager.Migrate(database.Get()); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		// Caches degrade to the durable store; a dead redis is not fatal.
		log.Warnw("redis unreachable, caches will degrade", "error", err)
	}
	cancelPing()
	defer redisClient.Close()

	accountRepo := repository.NewAccountRepository(database.Get(), log)
	entitlementRepo := repository.NewEntitlementRepository(database.Get(), log)
	subscriptionCache := cache.NewSubscriptionCache(redisClient, log)
	notifyMarks := cache.NewNotifyMarkStore(redisClient, log)

	panels, err := panel.NewRegistry(cfg.Panels, log)
	if err != nil {
		return fmt.Errorf("failed to build panel registry: %w", err)
	}

	subscriptionService := subscriptionApp.NewService(
		accountRepo, entitlementRepo, subscriptionCache, panels, cfg.Subscription, log)
	accountService := accountApp.NewService(accountRepo, cfg.Subscription, log)

	var notifier scheduler.Notifier
	switch cfg.Notifier.Transport {
	case "email":
		notifier = email.NewSMTPNotifier(cfg.Notifier.Email)
	default:
		notifier = telegram.NewNotifier(telegram.NewBotService(cfg.Notifier.Telegram))
	}

	schedulerManager, err := scheduler.NewManager(log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	purgeJob := scheduler.NewPurgeJob(entitlementRepo,
		time.Duration(cfg.Scheduler.PurgeGraceHours)*time.Hour, log)
	notifyJob := scheduler.NewNotifyJob(entitlementRepo, notifyMarks, notifier,
		subscriptionService, time.Duration(cfg.Scheduler.ExpiringSoonDays)*24*time.Hour, log)
	if err := schedulerManager.RegisterReconcilerJobs(cfg.Scheduler, purgeJob, notifyJob); err != nil {
		return fmt.Errorf("failed to register reconciler jobs: %w", err)
	}
	schedulerManager.Start()
	defer schedulerManager.Stop()

	router := httpRouter.NewRouter(
		cfg.Server.Mode,
		handlers.NewSubscriptionHandler(subscriptionService, log),
		handlers.NewAccountHandler(accountService, log),
		log,
	)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	goroutine.SafeGo(log, "http-server", func() {
		log.Infow("server listening", "address", cfg.Server.GetAddr(), "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", "error", err)
		}
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
