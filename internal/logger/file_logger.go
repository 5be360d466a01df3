package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger appends trading activity to a dated session log file.
type Logger struct {
	environment string
	logFile     *os.File
	logger      *log.Logger
	mu          sync.Mutex
	logDir      string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// NewLogger creates a session file logger for the given environment.
func NewLogger(environment string) (*Logger, error) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("kalshi_%s_%s.log", environment, timestamp)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		environment: environment,
		logFile:     file,
		logger:      log.New(file, "", 0),
		logDir:      logDir,
	}

	l.writeSessionHeader()

	return l, nil
}

func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🚀 KALSHI EDGE TRADING SESSION STARTED
================================================================================
Environment: %s
Started: %s
================================================================================
`, l.environment, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] [%s] %s", timestamp, level, message)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs portfolio status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogPositionOpened logs a freshly opened position.
func (l *Logger) LogPositionOpened(marketID, side string, size int, entryPrice, fairValue, deviation float64) {
	l.Trade("OPENED %s %s x%d @ %.2f | fair %.2f%% | edge %.2f%%",
		marketID, side, size, entryPrice, fairValue*100, deviation*100)
}

// LogPositionClosed logs a realized exit.
func (l *Logger) LogPositionClosed(marketID string, pnl float64, reason string) {
	l.Trade("CLOSED %s | P&L: $%.2f | Reason: %s", marketID, pnl, reason)
}

// LogHalt logs a capital-preservation halt.
func (l *Logger) LogHalt(dailyPnLPct float64) {
	l.Error("DAILY DRAWDOWN HALT: %.2f%% - preserving capital", dailyPnLPct*100)
}

// Close writes the session footer and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		footer := fmt.Sprintf(`
================================================================================
🛑 KALSHI EDGE TRADING SESSION ENDED
================================================================================
Ended: %s
================================================================================

`, time.Now().Format("2006-01-02 15:04:05"))
		l.logger.Print(footer)

		return l.logFile.Close()
	}
	return nil
}
