package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dialdeskhq/dialdesk-platform/internal/admin"
	"github.com/dialdeskhq/dialdesk-platform/internal/api/router"
	appconfig "github.com/dialdeskhq/dialdesk-platform/internal/config"
	"github.com/dialdeskhq/dialdesk-platform/internal/notify"
	"github.com/dialdeskhq/dialdesk-platform/internal/observability/metrics"
	"github.com/dialdeskhq/dialdesk-platform/internal/realtime"
	"github.com/dialdeskhq/dialdesk-platform/internal/storage"
	"github.com/dialdeskhq/dialdesk-platform/internal/vapi"
	"github.com/dialdeskhq/dialdesk-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dialdesk API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	store := storage.NewPostgres(pool)

	// Tenant refresh signals ride Redis pub/sub when configured.
	var notifier vapi.Notifier = vapi.NopNotifier{}
	var hub *realtime.Hub
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rdb := redis.NewClient(opts)
		publisher := notify.NewRedisPublisher(rdb, logger)
		if err := publisher.Ping(ctx); err != nil {
			logger.Error("redis ping failed", "error", err)
			os.Exit(1)
		}
		notifier = publisher
		hub = realtime.NewHub(rdb, logger)
		go func() {
			if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("realtime hub stopped", "error", err)
			}
		}()
	}

	alerts := notify.NewAlertService(notify.AlertConfig{
		Email:     buildEmailSender(ctx, cfg, logger),
		Recipient: cfg.AlertRecipient,
		Window:    cfg.AlertFailureWindow,
		Budget:    cfg.AlertFailureBudget,
		Logger:    logger,
	})

	registry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	processor := vapi.NewProcessor(vapi.ProcessorConfig{
		Store:    store,
		Notifier: notifier,
		Metrics:  webhookMetrics,
		Alerts:   alerts,
		Logger:   logger,
	})
	webhookHandler := vapi.NewHandler(vapi.HandlerConfig{
		Processor: processor,
		Logger:    logger,
		Secret:    cfg.VapiWebhookSecret,
	})
	adminHandler := admin.NewHandler(store.WebhookLogs(), store.Calls(), logger)

	r := router.New(&router.Config{
		Logger:             logger,
		VapiWebhook:        webhookHandler,
		Admin:              adminHandler,
		Hub:                hub,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminJWTSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildEmailSender picks the operator alert transport from config.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender
		}
	case "ses":
		loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
		if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
			loaders = append(loaders, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
		if err != nil {
			logger.Error("failed to load AWS config, email alerts disabled", "error", err)
			return nil
		}
		client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
			if cfg.AWSEndpointOverride != "" {
				o.BaseEndpoint = aws.String(cfg.AWSEndpointOverride)
			}
		})
		if sender := notify.NewSESSender(client, notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); sender != nil {
			return sender
		}
	}
	return nil
}
