package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker tracks liveness signals from the trading loop and
// serves them as a JSON health endpoint.
type HealthChecker struct {
	mu          sync.RWMutex
	lastScan    time.Time
	lastTrade   time.Time
	lastBalance float64
	isConnected bool
	errors      []string
}

// HealthStatus is the JSON shape served by the health endpoint.
type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LastScan    time.Time `json:"last_scan"`
	LastTrade   time.Time `json:"last_trade"`
	LastBalance float64   `json:"last_balance"`
	IsConnected bool      `json:"is_connected"`
	Uptime      string    `json:"uptime"`
	Errors      []string  `json:"errors,omitempty"`
}

const maxRecentErrors = 10

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

// SetConnected records whether the bot considers the API reachable.
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// UpdateLastScan records the completion of a scan cycle.
func (h *HealthChecker) UpdateLastScan(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastScan = t
	h.errors = h.errors[:0]
}

// UpdateLastTrade records the time of the most recent fill.
func (h *HealthChecker) UpdateLastTrade(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTrade = t
}

// UpdateBalance records the most recently observed balance.
func (h *HealthChecker) UpdateBalance(balance float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastBalance = balance
}

// AddError records a recent error, keeping a bounded window.
func (h *HealthChecker) AddError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > maxRecentErrors {
		h.errors = h.errors[1:]
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.isConnected {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:      status,
		Timestamp:   time.Now(),
		LastScan:    h.lastScan,
		LastTrade:   h.lastTrade,
		LastBalance: h.lastBalance,
		IsConnected: h.isConnected,
		Uptime:      time.Since(startTime).String(),
		Errors:      h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
