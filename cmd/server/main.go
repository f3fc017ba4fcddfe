package main

import (
	"context"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/coinbase"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/config"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/executor"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/notify"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/pnl"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/signal"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/webhook"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main wires the signal-to-order pipeline and the daily PnL scheduler, then
// runs the webhook server with graceful shutdown support. Exchange
// credentials are deliberately not checked here: they are resolved per
// request so they may arrive after process start.
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	client := coinbase.NewClient(coinbase.EnvCredentials{}, cfg.CoinbaseAPIURL)
	notifier := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)

	normalizer := signal.NewNormalizer(signal.Config{
		DefaultProduct:        cfg.ProductID,
		AllowedProducts:       cfg.AllowedProducts,
		DefaultUSDAmount:      decimal.NewFromFloat(cfg.DefaultUSDAmount),
		RequireExplicitAmount: cfg.RequireExplicitAmount,
	})
	exec := executor.New(client, notifier)
	handlers := webhook.NewGinHandlers(normalizer, exec, client, notifier, cfg.AlwaysAck)

	// Start the daily PnL scheduler
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()
	if cfg.PnLReportEnabled {
		aggregator := pnl.NewAggregator(client, notifier, cfg.ProductID)
		scheduler := pnl.NewScheduler(aggregator, notifier, cfg.PnLReportHour)
		go scheduler.Start(schedulerCtx)
	}

	// Initialize router
	router := gin.Default()
	router.Use(middleware.RateLimit())
	setupRoutes(router, handlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Stop the scheduler, then give outstanding requests 5 seconds to complete
	schedulerCancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures the webhook endpoint and the liveness check.
func setupRoutes(router *gin.Engine, handlers *webhook.GinHandlers) {
	router.GET("/", handlers.HealthHandler())
	router.POST("/webhook", handlers.WebhookHandler())
}
