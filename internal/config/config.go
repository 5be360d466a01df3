package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// API base URLs per environment.
const (
	DemoBaseURL = "https://demo-api.kalshi.co/trade-api/v2"
	ProdBaseURL = "https://trading-api.kalshi.com/trade-api/v2"
)

// Config holds all bot settings, loaded from the environment.
type Config struct {
	// API credentials
	APIKeyID       string
	PrivateKeyPath string
	Environment    string // "demo" or "prod"

	// Risk management
	InitialBalance      float64
	RiskPerTradePct     float64
	MaxDailyDrawdownPct float64
	MaxOpenPositions    int

	// Trading parameters
	DeviationThreshold   float64
	StopLossDeviation    float64
	ScanInterval         time.Duration
	HaltCooldown         time.Duration
	MarketScanLimit      int
	BalanceRefreshCycles int

	// API client
	RequestsPerSecond float64
	RequestTimeout    time.Duration
	MaxRetries        int

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}

	Notifications struct {
		TelegramToken  string
		TelegramChatID string
	}
}

// Load reads configuration from the environment with sensible defaults.
func Load() *Config {
	cfg := &Config{
		APIKeyID:       getEnv("KALSHI_API_KEY", ""),
		PrivateKeyPath: getEnv("KALSHI_PRIVATE_KEY_PATH", ""),
		Environment:    getEnv("KALSHI_ENV", "demo"),

		InitialBalance:      getEnvFloat("INITIAL_BALANCE", 10000.0),
		RiskPerTradePct:     getEnvFloat("RISK_PER_TRADE_PCT", 0.01),
		MaxDailyDrawdownPct: getEnvFloat("MAX_DAILY_DRAWDOWN_PCT", 0.05),
		MaxOpenPositions:    getEnvInt("MAX_OPEN_POSITIONS", 5),

		DeviationThreshold:   getEnvFloat("DEVIATION_THRESHOLD", 0.05),
		StopLossDeviation:    getEnvFloat("STOP_LOSS_DEVIATION", 0.05),
		ScanInterval:         getEnvDuration("SCAN_INTERVAL", 30*time.Second),
		HaltCooldown:         getEnvDuration("HALT_COOLDOWN", time.Hour),
		MarketScanLimit:      getEnvInt("MARKET_SCAN_LIMIT", 100),
		BalanceRefreshCycles: getEnvInt("BALANCE_REFRESH_CYCLES", 10),

		RequestsPerSecond: getEnvFloat("API_REQUESTS_PER_SECOND", 10.0),
		RequestTimeout:    getEnvDuration("API_REQUEST_TIMEOUT", 30*time.Second),
		MaxRetries:        getEnvInt("API_MAX_RETRIES", 3),
	}

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)
	cfg.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")

	return cfg
}

// BaseURL returns the API base URL for the configured environment.
func (c *Config) BaseURL() string {
	if c.IsSandbox() {
		return DemoBaseURL
	}
	return ProdBaseURL
}

// IsSandbox reports whether the bot is paper trading.
func (c *Config) IsSandbox() bool {
	return c.Environment == "demo"
}

// Validate checks critical configuration and returns all problems found.
// Startup must fail fast on any of them.
func (c *Config) Validate() []error {
	var errs []error

	if c.APIKeyID == "" {
		errs = append(errs, fmt.Errorf("KALSHI_API_KEY not set"))
	}
	if c.PrivateKeyPath == "" {
		errs = append(errs, fmt.Errorf("KALSHI_PRIVATE_KEY_PATH not set"))
	}
	if c.Environment != "demo" && c.Environment != "prod" {
		errs = append(errs, fmt.Errorf("KALSHI_ENV must be 'demo' or 'prod', got %q", c.Environment))
	}
	if c.RiskPerTradePct <= 0 || c.RiskPerTradePct > 0.1 {
		errs = append(errs, fmt.Errorf("RISK_PER_TRADE_PCT must be in (0, 0.1], got %v", c.RiskPerTradePct))
	}
	if c.MaxDailyDrawdownPct <= 0 || c.MaxDailyDrawdownPct > 0.5 {
		errs = append(errs, fmt.Errorf("MAX_DAILY_DRAWDOWN_PCT must be in (0, 0.5], got %v", c.MaxDailyDrawdownPct))
	}
	if c.MaxOpenPositions < 1 {
		errs = append(errs, fmt.Errorf("MAX_OPEN_POSITIONS must be at least 1, got %d", c.MaxOpenPositions))
	}
	if c.DeviationThreshold <= 0 {
		errs = append(errs, fmt.Errorf("DEVIATION_THRESHOLD must be positive, got %v", c.DeviationThreshold))
	}
	if c.StopLossDeviation <= 0 {
		errs = append(errs, fmt.Errorf("STOP_LOSS_DEVIATION must be positive, got %v", c.StopLossDeviation))
	}
	if c.ScanInterval <= 0 {
		errs = append(errs, fmt.Errorf("SCAN_INTERVAL must be positive, got %v", c.ScanInterval))
	}
	if c.HaltCooldown <= 0 {
		errs = append(errs, fmt.Errorf("HALT_COOLDOWN must be positive, got %v", c.HaltCooldown))
	}
	if c.BalanceRefreshCycles < 1 {
		errs = append(errs, fmt.Errorf("BALANCE_REFRESH_CYCLES must be at least 1, got %d", c.BalanceRefreshCycles))
	}
	if c.InitialBalance <= 0 {
		errs = append(errs, fmt.Errorf("INITIAL_BALANCE must be positive, got %v", c.InitialBalance))
	}

	return errs
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
