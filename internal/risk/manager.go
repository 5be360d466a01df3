package risk

import (
	"fmt"
	"math"
	"time"
)

// HaltReason identifies why new trading is blocked.
type HaltReason string

const (
	HaltReasonNone          HaltReason = ""
	HaltReasonDailyDrawdown HaltReason = "daily_drawdown"
)

// edgeMultiplierCap limits how much a very strong edge can amplify the
// base risk allocation.
const edgeMultiplierCap = 1.5

// hardStopLossPct is the per-position loss fraction that forces an exit
// regardless of edge.
const hardStopLossPct = -0.10

// Config holds the immutable risk parameters for the life of a manager.
type Config struct {
	InitialBalance      float64
	RiskPerTradePct     float64 // fraction of balance risked per trade
	MaxDailyDrawdownPct float64 // daily loss fraction that halts trading
	StopLossDeviation   float64 // fair value drift that cuts a position
	MaxPositions        int
}

// Manager owns all position and capital state: position sizing,
// admission checks, stop-outs, and the daily drawdown halt. It is not
// safe for concurrent callers; the trading loop is its single writer.
type Manager struct {
	cfg Config

	currentBalance    float64
	peakBalance       float64
	dailyStartBalance float64
	dailyResetMark    time.Time

	positions  map[string]*Position
	halted     bool
	haltReason HaltReason

	now func() time.Time
}

// NewManager creates a risk manager seeded with the initial balance.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		cfg:               cfg,
		currentBalance:    cfg.InitialBalance,
		peakBalance:       cfg.InitialBalance,
		dailyStartBalance: cfg.InitialBalance,
		positions:         make(map[string]*Position),
		now:               time.Now,
	}
	m.dailyResetMark = dateOf(m.now())
	return m
}

// UpdateBalance records an externally refreshed balance and tracks the
// historical peak.
func (m *Manager) UpdateBalance(newBalance float64) {
	m.currentBalance = newBalance
	m.peakBalance = math.Max(m.peakBalance, newBalance)
	m.checkDailyReset()
}

// checkDailyReset resets the daily tracking once per calendar-day
// boundary and clears a drawdown halt on that same reset.
func (m *Manager) checkDailyReset() {
	today := dateOf(m.now())
	if !today.After(m.dailyResetMark) {
		return
	}
	m.dailyStartBalance = m.currentBalance
	m.dailyResetMark = today
	if m.haltReason == HaltReasonDailyDrawdown {
		m.halted = false
		m.haltReason = HaltReasonNone
	}
}

// CheckDailyDrawdown halts trading when the day's loss breaches the
// configured limit. Idempotent once halted. The daily reset runs first
// so a halted manager clears on the calendar-day boundary even when no
// balance update arrives while halted. This is the sole path to a
// capital-preservation halt.
func (m *Manager) CheckDailyDrawdown() bool {
	m.checkDailyReset()

	dailyPnlPct := (m.currentBalance - m.dailyStartBalance) / m.dailyStartBalance
	if dailyPnlPct <= -m.cfg.MaxDailyDrawdownPct {
		if !m.halted {
			m.halted = true
			m.haltReason = HaltReasonDailyDrawdown
		}
		return true
	}
	return false
}

// CanOpenPosition runs the admission check: halt state, position count
// cap, and the hard 50%-of-initial balance floor.
func (m *Manager) CanOpenPosition() (bool, string) {
	if m.halted {
		return false, fmt.Sprintf("trading halted: %s", m.haltReason)
	}
	if len(m.positions) >= m.cfg.MaxPositions {
		return false, fmt.Sprintf("max positions reached (%d)", m.cfg.MaxPositions)
	}
	if m.currentBalance < m.cfg.InitialBalance*0.5 {
		return false, "balance below 50% of initial - risk limit"
	}
	return true, ""
}

// CalculatePositionSize converts the risk budget into a contract count,
// scaled by edge strength up to the multiplier cap. Returns 0 (do not
// trade) on non-positive price or balance.
func (m *Manager) CalculatePositionSize(marketPrice, edgeDeviation float64) int {
	if m.currentBalance <= 0 || marketPrice <= 0 {
		return 0
	}

	riskAmount := m.currentBalance * m.cfg.RiskPerTradePct
	edgeMultiplier := math.Min(edgeDeviation/m.cfg.StopLossDeviation, edgeMultiplierCap)

	size := int(math.Round(riskAmount * edgeMultiplier / marketPrice))
	if size < 1 {
		size = 1
	}
	return size
}

// OpenPosition registers a new position after re-running the admission
// check. The market id must not already be held.
func (m *Manager) OpenPosition(marketID string, side Side, size int, entryPrice, entryFairValue float64) error {
	canOpen, reason := m.CanOpenPosition()
	if !canOpen {
		return fmt.Errorf("position rejected: %s", reason)
	}
	if _, exists := m.positions[marketID]; exists {
		return fmt.Errorf("position already open for market %s", marketID)
	}

	m.positions[marketID] = &Position{
		MarketID:       marketID,
		Side:           side,
		Size:           size,
		EntryPrice:     entryPrice,
		EntryFairValue: entryFairValue,
		OpenedAt:       m.now(),
	}
	return nil
}

// UpdatePosition applies the latest market data to a held position.
// No-op if the market is not held.
func (m *Manager) UpdatePosition(marketID string, price, fairValue float64) {
	if pos, ok := m.positions[marketID]; ok {
		pos.Update(price, fairValue)
	}
}

// ShouldCutPosition decides whether a position must be exited. Edge
// flip is evaluated before the hard stop and takes precedence in the
// reported reason.
func (m *Manager) ShouldCutPosition(marketID string) (bool, string) {
	pos, ok := m.positions[marketID]
	if !ok {
		return false, ""
	}

	edgeLoss := pos.EdgeDeterioration()
	if edgeLoss >= m.cfg.StopLossDeviation {
		return true, fmt.Sprintf("edge flip: %.2f%% (stop at %.2f%%)", edgeLoss*100, m.cfg.StopLossDeviation*100)
	}

	lossPct := pos.UnrealizedPnL() / (pos.EntryPrice * float64(pos.Size))
	if lossPct < hardStopLossPct {
		return true, fmt.Sprintf("hard stop: %.2f%% loss", lossPct*100)
	}

	return false, ""
}

// ClosePosition realizes the position's P&L into the balance, removes
// it from the live map, and re-runs the daily reset and drawdown checks
// since a realized loss can itself trigger the halt. Closing an unknown
// market id is a no-op.
func (m *Manager) ClosePosition(marketID string, exitPrice float64, reason string) (float64, bool) {
	pos, ok := m.positions[marketID]
	if !ok {
		return 0, false
	}

	pos.Update(exitPrice, pos.LastFairValue())
	pnl := pos.UnrealizedPnL()
	m.currentBalance += pnl

	delete(m.positions, marketID)
	m.checkDailyReset()
	m.CheckDailyDrawdown()
	return pnl, true
}

// HasPosition reports whether the market is currently held.
func (m *Manager) HasPosition(marketID string) bool {
	_, ok := m.positions[marketID]
	return ok
}

// Position returns the held position for a market, if any.
func (m *Manager) Position(marketID string) (*Position, bool) {
	pos, ok := m.positions[marketID]
	return pos, ok
}

// MarketIDs returns the ids of all held positions.
func (m *Manager) MarketIDs() []string {
	ids := make([]string, 0, len(m.positions))
	for id := range m.positions {
		ids = append(ids, id)
	}
	return ids
}

// OpenPositionCount returns the number of live positions.
func (m *Manager) OpenPositionCount() int {
	return len(m.positions)
}

// Halted reports whether new trading is blocked.
func (m *Manager) Halted() bool {
	return m.halted
}

// Balance returns the current tracked balance.
func (m *Manager) Balance() float64 {
	return m.currentBalance
}

// Summary is a read-only snapshot of portfolio state.
type Summary struct {
	Balance          float64
	PeakBalance      float64
	TotalDrawdownPct float64
	DailyPnL         float64
	DailyPnLPct      float64
	OpenPositions    int
	UnrealizedPnL    float64
	Halted           bool
	HaltReason       HaltReason
}

// PortfolioSummary returns the current portfolio snapshot.
func (m *Manager) PortfolioSummary() Summary {
	var unrealized float64
	for _, pos := range m.positions {
		unrealized += pos.UnrealizedPnL()
	}

	dailyPnL := m.currentBalance - m.dailyStartBalance
	return Summary{
		Balance:          m.currentBalance,
		PeakBalance:      m.peakBalance,
		TotalDrawdownPct: (m.currentBalance - m.peakBalance) / m.peakBalance,
		DailyPnL:         dailyPnL,
		DailyPnLPct:      dailyPnL / m.dailyStartBalance,
		OpenPositions:    len(m.positions),
		UnrealizedPnL:    unrealized,
		Halted:           m.halted,
		HaltReason:       m.haltReason,
	}
}

// dateOf truncates a time to its calendar date.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
