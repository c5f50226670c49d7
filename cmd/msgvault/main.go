package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"msgvault/internal/config"
	"msgvault/internal/constants"
	"msgvault/internal/database"
	"msgvault/internal/errors"
	"msgvault/internal/privacy"
	"msgvault/internal/retry"
	"msgvault/internal/service"
	"msgvault/internal/tracing"
	"msgvault/pkg/discord"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	envPath      = flag.String("env", ".env", "Path to optional .env file")
	version      = flag.Bool("version", false, "Show version information")
	backfillOnly = flag.Bool("backfill", false, "Run historical backfill and exit")
	skipBackfill = flag.Bool("skip-backfill", false, "Do not run backfill on startup")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("msgvault %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting msgvault")

	cfg, err := config.LoadConfig(*envPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"guild_id":  cfg.Discord.GuildID,
		"bot_token": privacy.MaskSecret(cfg.Discord.BotToken),
		"api_key":   privacy.MaskSecret(cfg.APIKey),
	}).Debug("Configuration loaded")

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled")
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// Initialize OpenTelemetry tracing
	tracingManager := tracing.NewTracingManager(tracing.TracingConfig{
		ServiceName:    "msgvault",
		ServiceVersion: Version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Initialize database with exponential backoff retry
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})

	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warnf("Failed to close database: %v", err)
		}
	}()

	restClient := discord.NewClientWithLogger(discord.ClientConfig{
		BotToken:          cfg.Discord.BotToken,
		Timeout:           time.Duration(constants.DefaultHTTPTimeoutSec) * time.Second,
		RequestsPerSecond: constants.DefaultRESTRequestsPerSecond,
		Burst:             constants.DefaultRESTBurst,
	}, logger)

	reconciler := service.NewReconciler(db, logger)
	walker := service.NewBackfillWalker(restClient, db, cfg.Discord.GuildID, logger)

	if *backfillOnly {
		return runBackfill(ctx, walker, cfg.Discord.ChannelIDs, logger)
	}

	gateway := discord.NewGateway(discord.GatewayConfig{
		BotToken: cfg.Discord.BotToken,
		URLFunc:  restClient.GetGatewayURL,
	}, logger)

	if err := gateway.Connect(ctx); err != nil {
		return errors.NewSourceUnavailableError(err)
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logger.Warnf("Failed to close gateway: %v", err)
		}
	}()

	ingestor := service.NewIngestor(reconciler, gateway, cfg.Discord.GuildID, cfg.Discord.ChannelIDs, logger)
	gateway.RegisterHandler(ingestor)

	go func() {
		if err := gateway.Run(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("Gateway stream terminated")
		}
	}()

	// Backfill runs concurrently with the live stream: backfill writes
	// never overwrite rows the stream has already produced.
	if !*skipBackfill {
		go func() {
			if err := runBackfill(ctx, walker, cfg.Discord.ChannelIDs, logger); err != nil && ctx.Err() == nil {
				logger.WithError(err).Warn("Startup backfill failed")
			}
		}()
	}

	queries := service.NewQueryEngine(db, logger)

	server := NewServer(cfg, queries, logger)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

func runBackfill(ctx context.Context, walker *service.BackfillWalker, channelIDs []int64, logger *logrus.Logger) error {
	if len(channelIDs) == 0 {
		logger.Info("No channels configured for backfill")
		return nil
	}

	result, err := walker.Run(ctx, channelIDs)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"channels_walked": result.ChannelsWalked,
		"channels_failed": result.ChannelsFailed,
		"messages_seen":   result.MessagesSeen,
		"messages_added":  result.MessagesAdded,
		"messages_failed": result.MessagesFailed,
	}).Info("Backfill completed")

	return nil
}
