package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/david-dina/Crypto-PP-sub000/internal/application/services"
	"github.com/david-dina/Crypto-PP-sub000/internal/config"
	"github.com/david-dina/Crypto-PP-sub000/internal/infrastructure/database"
	"github.com/david-dina/Crypto-PP-sub000/internal/infrastructure/ethereum"
	"github.com/david-dina/Crypto-PP-sub000/internal/registry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Log.Level)
	defer logger.Sync()

	logger.Info("Starting wallet syncer",
		zap.Duration("poll_interval", cfg.Sync.PollInterval),
	)

	// Apply RPC endpoint overrides before anything reads the registry
	if err := registry.Init(cfg.Chains.RPCOverrides); err != nil {
		logger.Fatal("Invalid chain configuration", zap.Error(err))
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.NewPostgresDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Chain clients are dialed lazily per chain
	pool := ethereum.NewClientPool(cfg.Chains, logger)
	defer pool.Close()
	dialer := services.ChainDialerFunc(func(chain registry.ChainConfig) (services.BalanceReader, error) {
		return pool.ForChain(chain)
	})

	// Create repositories
	walletRepo := database.NewWalletRepo(db.DB())
	holdingRepo := database.NewHoldingRepo(db.DB())
	activityRepo := database.NewActivityRepo(db.DB())

	// Create services
	syncService := services.NewBalanceSyncService(walletRepo, holdingRepo, activityRepo, dialer, cfg.Sync, logger)
	refreshService := services.NewRefreshService(walletRepo, syncService, cfg.Sync, logger)

	// Start refresher
	refreshService.Start(ctx)

	// Start metrics server
	go startMetricsServer(cfg.Sync.MetricsPort, logger)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, stopping syncer...")

	// Graceful shutdown
	refreshService.Stop()

	logger.Info("Syncer stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	return logger
}

func startMetricsServer(port int, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", zap.String("addr", addr))

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Metrics server error", zap.Error(err))
	}
}
