package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(Config{
		InitialBalance:      10000,
		RiskPerTradePct:     0.01,
		MaxDailyDrawdownPct: 0.05,
		StopLossDeviation:   0.05,
		MaxPositions:        5,
	})
}

func setClock(m *Manager, t time.Time) {
	m.now = func() time.Time { return t }
	m.dailyResetMark = dateOf(t)
}

func TestCalculatePositionSize(t *testing.T) {
	m := newTestManager()

	// Risk budget is 1% of 10000 = $100. Edge at exactly the stop
	// deviation gives a 1.0 multiplier.
	assert.Equal(t, 238, m.CalculatePositionSize(0.42, 0.05))

	// Strong edge is capped at 1.5x.
	assert.Equal(t, 357, m.CalculatePositionSize(0.42, 0.09))
	assert.Equal(t, 357, m.CalculatePositionSize(0.42, 0.50))

	// Tiny edge still yields at least one contract.
	assert.Equal(t, 1, m.CalculatePositionSize(0.99, 0.001))
}

func TestCalculatePositionSize_Monotonic(t *testing.T) {
	m := newTestManager()

	prev := 0
	for _, edge := range []float64{0.01, 0.02, 0.04, 0.05, 0.06, 0.075, 0.10} {
		size := m.CalculatePositionSize(0.50, edge)
		assert.GreaterOrEqual(t, size, prev, "size must not shrink as edge grows")
		prev = size
	}
}

func TestCalculatePositionSize_DegenerateInputs(t *testing.T) {
	m := newTestManager()
	assert.Equal(t, 0, m.CalculatePositionSize(0, 0.05))
	assert.Equal(t, 0, m.CalculatePositionSize(-0.1, 0.05))

	m.UpdateBalance(0)
	assert.Equal(t, 0, m.CalculatePositionSize(0.42, 0.05))
}

func TestCheckDailyDrawdown(t *testing.T) {
	m := newTestManager()

	m.UpdateBalance(9600) // 4% loss, under the 5% limit
	assert.False(t, m.CheckDailyDrawdown())
	assert.False(t, m.Halted())

	m.UpdateBalance(9400) // 6% loss
	assert.True(t, m.CheckDailyDrawdown())
	assert.True(t, m.Halted())

	// Idempotent once halted.
	assert.True(t, m.CheckDailyDrawdown())
}

func TestDailyResetClearsHalt(t *testing.T) {
	m := newTestManager()
	day1 := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	setClock(m, day1)

	m.UpdateBalance(9400)
	require.True(t, m.CheckDailyDrawdown())
	require.True(t, m.Halted())

	// Later the same day: still halted.
	setClock(m, day1)
	m.now = func() time.Time { return day1.Add(8 * time.Hour) }
	m.UpdateBalance(9400)
	assert.True(t, m.Halted())

	// Next calendar day: halt clears and the daily baseline rebases.
	m.now = func() time.Time { return day1.Add(24 * time.Hour) }
	m.UpdateBalance(9400)
	assert.False(t, m.Halted())
	assert.False(t, m.CheckDailyDrawdown())

	summary := m.PortfolioSummary()
	assert.InDelta(t, 0, summary.DailyPnL, 1e-9)
}

func TestCheckDailyDrawdownClearsHaltAtDayBoundary(t *testing.T) {
	m := newTestManager()
	day1 := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	setClock(m, day1)

	m.UpdateBalance(9400)
	require.True(t, m.CheckDailyDrawdown())
	require.True(t, m.Halted())

	// No balance update arrives while halted; the drawdown check alone
	// must observe the day boundary and clear the halt.
	m.now = func() time.Time { return day1.Add(24 * time.Hour) }
	assert.False(t, m.CheckDailyDrawdown())
	assert.False(t, m.Halted())

	canOpen, _ := m.CanOpenPosition()
	assert.True(t, canOpen)
}

func TestCanOpenPosition(t *testing.T) {
	m := newTestManager()

	canOpen, reason := m.CanOpenPosition()
	assert.True(t, canOpen)
	assert.Empty(t, reason)

	// Halted blocks admission.
	m.UpdateBalance(9400)
	m.CheckDailyDrawdown()
	canOpen, reason = m.CanOpenPosition()
	assert.False(t, canOpen)
	assert.Contains(t, reason, "halted")
}

func TestCanOpenPosition_MaxPositions(t *testing.T) {
	m := NewManager(Config{
		InitialBalance:      10000,
		RiskPerTradePct:     0.01,
		MaxDailyDrawdownPct: 0.05,
		StopLossDeviation:   0.05,
		MaxPositions:        2,
	})

	require.NoError(t, m.OpenPosition("m1", SideYes, 10, 0.50, 0.60))
	require.NoError(t, m.OpenPosition("m2", SideNo, 10, 0.40, 0.30))

	canOpen, reason := m.CanOpenPosition()
	assert.False(t, canOpen)
	assert.Contains(t, reason, "max positions")
}

func TestCanOpenPosition_BalanceFloor(t *testing.T) {
	m := newTestManager()

	// The floor is unreachable while the drawdown halt works, but it
	// still guards against a missed halt.
	m.currentBalance = 4999
	canOpen, reason := m.CanOpenPosition()
	assert.False(t, canOpen)
	assert.Contains(t, reason, "50%")
}

func TestOpenPosition_Duplicate(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.OpenPosition("m1", SideYes, 10, 0.50, 0.60))
	err := m.OpenPosition("m1", SideYes, 5, 0.51, 0.60)
	assert.Error(t, err)
	assert.Equal(t, 1, m.OpenPositionCount())
}

func TestShouldCutPosition_EdgeFlip(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.OpenPosition("m1", SideYes, 10, 0.50, 0.55))

	// Fair value drifts from 0.55 to 0.49: deterioration 0.06 breaches
	// the 0.05 stop.
	m.UpdatePosition("m1", 0.50, 0.49)

	cut, reason := m.ShouldCutPosition("m1")
	assert.True(t, cut)
	assert.Contains(t, reason, "edge flip")
}

func TestShouldCutPosition_HardStop(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.OpenPosition("m1", SideYes, 10, 0.50, 0.55))

	// Price drops 12% of notional while the edge holds.
	m.UpdatePosition("m1", 0.44, 0.55)

	cut, reason := m.ShouldCutPosition("m1")
	assert.True(t, cut)
	assert.Contains(t, reason, "hard stop")
}

func TestShouldCutPosition_EdgeFlipTakesPrecedence(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.OpenPosition("m1", SideYes, 10, 0.50, 0.55))

	// Both conditions fire; edge flip is checked first.
	m.UpdatePosition("m1", 0.40, 0.45)

	cut, reason := m.ShouldCutPosition("m1")
	assert.True(t, cut)
	assert.Contains(t, reason, "edge flip")
}

func TestShouldCutPosition_Holds(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.OpenPosition("m1", SideYes, 10, 0.50, 0.55))

	// Unmonitored: never cut.
	cut, _ := m.ShouldCutPosition("m1")
	assert.False(t, cut)

	m.UpdatePosition("m1", 0.49, 0.54)
	cut, _ = m.ShouldCutPosition("m1")
	assert.False(t, cut)

	// Unknown market: never cut.
	cut, _ = m.ShouldCutPosition("nope")
	assert.False(t, cut)
}

func TestClosePosition_RoundTripIsNeutral(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.OpenPosition("m1", SideYes, 100, 0.50, 0.60))

	pnl, closed := m.ClosePosition("m1", 0.50, "test exit")
	assert.True(t, closed)
	assert.InDelta(t, 0, pnl, 1e-9)
	assert.InDelta(t, 10000, m.Balance(), 1e-9)
	assert.False(t, m.HasPosition("m1"))

	// Second close of the same id is a balance-neutral no-op.
	pnl, closed = m.ClosePosition("m1", 0.10, "again")
	assert.False(t, closed)
	assert.InDelta(t, 0, pnl, 1e-9)
	assert.InDelta(t, 10000, m.Balance(), 1e-9)
}

func TestClosePosition_RealizesLossAndMayHalt(t *testing.T) {
	m := NewManager(Config{
		InitialBalance:      10000,
		RiskPerTradePct:     0.01,
		MaxDailyDrawdownPct: 0.05,
		StopLossDeviation:   0.05,
		MaxPositions:        5,
	})
	require.NoError(t, m.OpenPosition("m1", SideYes, 10000, 0.50, 0.60))

	// Exit at 0.44 loses $600, a 6% daily loss.
	pnl, closed := m.ClosePosition("m1", 0.44, "hard stop")
	assert.True(t, closed)
	assert.InDelta(t, -600, pnl, 1e-9)
	assert.InDelta(t, 9400, m.Balance(), 1e-9)
	assert.True(t, m.Halted())
}

func TestPositionPnLSigns(t *testing.T) {
	yes := &Position{MarketID: "m1", Side: SideYes, Size: 10, EntryPrice: 0.50}
	no := &Position{MarketID: "m2", Side: SideNo, Size: 10, EntryPrice: 0.50}

	// Unmonitored positions carry no unrealized P&L.
	assert.InDelta(t, 0, yes.UnrealizedPnL(), 1e-9)
	assert.InDelta(t, 0.50, yes.LastPrice(), 1e-9)

	yes.Update(0.55, 0.60)
	no.Update(0.55, 0.40)

	assert.InDelta(t, 0.5, yes.UnrealizedPnL(), 1e-9)
	assert.InDelta(t, -0.5, no.UnrealizedPnL(), 1e-9)
}

func TestEdgeDeteriorationIsAbsolute(t *testing.T) {
	pos := &Position{MarketID: "m1", Side: SideYes, Size: 10, EntryPrice: 0.50, EntryFairValue: 0.55}

	pos.Update(0.50, 0.61)
	assert.InDelta(t, 0.06, pos.EdgeDeterioration(), 1e-9)

	pos.Update(0.50, 0.49)
	assert.InDelta(t, 0.06, pos.EdgeDeterioration(), 1e-9)
}

func TestPortfolioSummary(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.OpenPosition("m1", SideYes, 100, 0.50, 0.60))
	m.UpdatePosition("m1", 0.53, 0.60)
	m.UpdateBalance(10200)

	s := m.PortfolioSummary()
	assert.InDelta(t, 10200, s.Balance, 1e-9)
	assert.InDelta(t, 10200, s.PeakBalance, 1e-9)
	assert.InDelta(t, 200, s.DailyPnL, 1e-9)
	assert.InDelta(t, 0.02, s.DailyPnLPct, 1e-9)
	assert.Equal(t, 1, s.OpenPositions)
	assert.InDelta(t, 3, s.UnrealizedPnL, 1e-9)
	assert.False(t, s.Halted)
}
