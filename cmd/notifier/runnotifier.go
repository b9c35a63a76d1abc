package main

import (
	"context"
	_ "embed"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/storage"

	"gopkg.in/yaml.v3"

	"github.com/tsvet01/eng-pulse/internal/credentials"
	"github.com/tsvet01/eng-pulse/internal/dispatch"
	"github.com/tsvet01/eng-pulse/internal/email"
	"github.com/tsvet01/eng-pulse/internal/pipeline"
	"github.com/tsvet01/eng-pulse/internal/platform/apns"
	"github.com/tsvet01/eng-pulse/internal/platform/fcm"
	"github.com/tsvet01/eng-pulse/internal/storage/cache"
	fsStore "github.com/tsvet01/eng-pulse/internal/storage/firestore"
	"github.com/tsvet01/eng-pulse/internal/storage/gcs"
	"github.com/tsvet01/eng-pulse/notifierservice"
	"github.com/tsvet01/eng-pulse/notifierservice/config"
	"github.com/tsvet01/eng-pulse/pkg/push"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "eng-pulse-notifier")
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Config Loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, _ := config.NewConfigFromYaml(&yamlCfg, logger)
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Infrastructure Clients ---
	psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("PubSub client failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = psClient.Close() }()

	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("Firestore client failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = fsClient.Close() }()

	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		logger.Error("Storage client failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = gcsClient.Close() }()

	smClient, err := secretmanager.NewClient(ctx)
	if err != nil {
		logger.Error("Secret Manager client failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = smClient.Close() }()

	// --- Endpoint Store (Decorated) ---
	var endpointStore push.EndpointStore = fsStore.NewEndpointStore(fsClient)
	logger.Info("EndpointStore initialized", "type", "firestore")

	if cfg.Redis.Enabled {
		logger.Info("Initializing Redis Cache layer...", "addr", cfg.Redis.Addr)
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer func() { _ = redisClient.Close() }()
		endpointStore = cache.NewCachedEndpointStore(endpointStore, redisClient, 24*time.Hour)
		logger.Info("EndpointStore upgraded", "type", "redis_cached_firestore")
	}

	// --- Senders & Dispatcher ---
	apnsCreds := credentials.NewAPNSCache(
		credentials.NewSecretManagerFetcher(smClient, cfg.ProjectID), logger)
	apnsSender := apns.NewSender(apnsCreds, cfg.BundleID, logger)
	fcmSender := fcm.NewSender(credentials.NewGoogleTokenSource(), cfg.ProjectID, logger)

	dispatcher := dispatch.New(endpointStore, logger, fcmSender, apnsSender)

	// --- Email (optional) ---
	var mailer pipeline.Mailer
	if cfg.SMTP.Username != "" && cfg.SMTP.Password != "" && cfg.SMTP.To != "" {
		m, err := email.NewMailer(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			To:       cfg.SMTP.To,
		}, logger)
		if err != nil {
			logger.Error("Mailer setup failed", "err", err)
			os.Exit(1)
		}
		mailer = m
		logger.Info("Summary email enabled", "recipient", cfg.SMTP.To)
	} else {
		logger.Warn("SMTP credentials missing. Summary email disabled.")
	}

	// --- Pipeline & Service ---
	processor := pipeline.NewProcessor(gcs.NewObjectReader(gcsClient), mailer, dispatcher, logger)
	consumer := pipeline.NewConsumer(psClient, cfg.SubscriptionID, processor, logger)

	service, err := notifierservice.New(cfg, consumer, endpointStore, dispatcher, logger)
	if err != nil {
		logger.Error("Service creation failed", "err", err)
		os.Exit(1)
	}

	// --- Graceful Shutdown ---
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := service.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed", "err", err)
		}
	}()

	logger.Info("Starting service...")
	if err := service.Start(ctx); err != nil {
		logger.Error("Service shutdown with error", "err", err)
		os.Exit(1)
	}
}
