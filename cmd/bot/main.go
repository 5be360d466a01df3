package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/kalshi-edge-bot/internal/bot"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/config"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/fairvalue"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/kalshi"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/logger"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/monitoring"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/notifications"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/reporting"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/risk"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, err := range errs {
			log.Printf("Configuration error: %v", err)
		}
		os.Exit(1)
	}

	// Key loading happens once here; a failure is fatal to startup.
	signer, err := kalshi.NewSigner(cfg.APIKeyID, cfg.PrivateKeyPath)
	if err != nil {
		log.Printf("Signer initialization failed: %v", err)
		os.Exit(1)
	}

	client := kalshi.NewClient(kalshi.Config{
		BaseURL:           cfg.BaseURL(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.RequestTimeout,
		MaxRetries:        cfg.MaxRetries,
	}, signer)

	riskMgr := risk.NewManager(risk.Config{
		InitialBalance:      cfg.InitialBalance,
		RiskPerTradePct:     cfg.RiskPerTradePct,
		MaxDailyDrawdownPct: cfg.MaxDailyDrawdownPct,
		StopLossDeviation:   cfg.StopLossDeviation,
		MaxPositions:        cfg.MaxOpenPositions,
	})

	estimator := fairvalue.NewRouter()
	healthChecker := monitoring.NewHealthChecker()
	notifier := notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)

	sessionLog, err := logger.NewLogger(cfg.Environment)
	if err != nil {
		log.Printf("Session logger initialization failed: %v", err)
		os.Exit(1)
	}

	reporting.PrintStartup(cfg)

	setupMonitoringServers(cfg, healthChecker)

	b := bot.New(cfg, client, estimator, riskMgr, notifier, healthChecker, sessionLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Run(ctx)
	}()

	if err := notifier.SendAlert("info", "Kalshi edge bot started"); err != nil {
		log.Printf("Failed to send startup notification: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fatal := false
	select {
	case sig := <-sigChan:
		log.Printf("Received %v, shutting down...", sig)
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Fatal trading loop error: %v", err)
			fatal = true
		}
	}

	shutdown(healthChecker, notifier, sessionLog)

	if fatal {
		os.Exit(1)
	}
	log.Println("Bot stopped successfully")
}

// shutdown releases resources on every exit path.
func shutdown(healthChecker *monitoring.HealthChecker, notifier notifications.Notifier, sessionLog *logger.Logger) {
	healthChecker.SetConnected(false)

	if err := sessionLog.Close(); err != nil {
		log.Printf("Error closing session log: %v", err)
	}

	if err := notifier.SendAlert("info", "Kalshi edge bot stopped"); err != nil {
		log.Printf("Failed to send shutdown notification: %v", err)
	}
}

func setupMonitoringServers(cfg *config.Config, healthChecker *monitoring.HealthChecker) {
	healthMux := http.NewServeMux()
	healthMux.Handle("/health", healthChecker)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.HealthPort)
		log.Printf("Starting health server on port %d", cfg.Monitoring.HealthPort)
		server := &http.Server{Addr: addr, Handler: healthMux, ReadHeaderTimeout: 5 * time.Second}
		if err := server.ListenAndServe(); err != nil {
			log.Printf("Health server error: %v", err)
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
		log.Printf("Starting Prometheus server on port %d", cfg.Monitoring.PrometheusPort)
		server := &http.Server{Addr: addr, Handler: monitoring.NewMetricsHandler(), ReadHeaderTimeout: 5 * time.Second}
		if err := server.ListenAndServe(); err != nil {
			log.Printf("Prometheus server error: %v", err)
		}
	}()
}
