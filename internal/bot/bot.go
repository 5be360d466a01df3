package bot

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/ducminhle1904/kalshi-edge-bot/internal/config"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/fairvalue"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/kalshi"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/logger"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/monitoring"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/notifications"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/reporting"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/risk"
)

// MarketAPI is the slice of the Kalshi client the loop needs.
// Satisfied by *kalshi.Client.
type MarketAPI interface {
	GetBalance(ctx context.Context) (float64, error)
	ListMarkets(ctx context.Context, status string, limit int) ([]kalshi.Market, error)
	GetMarket(ctx context.Context, id string) (*kalshi.Market, error)
	PlaceOrder(ctx context.Context, marketID, side string, count int, orderType string) (*kalshi.Order, error)
}

// Bot drives the risk manager against live market data on a fixed
// cadence: scan for mispriced markets, monitor open positions, halt on
// daily drawdown. All risk state mutations happen on this loop's
// goroutine; the bot is the risk manager's single writer.
type Bot struct {
	cfg        *config.Config
	api        MarketAPI
	estimator  fairvalue.Estimator
	riskMgr    *risk.Manager
	notifier   notifications.Notifier
	health     *monitoring.HealthChecker
	sessionLog *logger.Logger

	cycleCount    int
	haltAnnounced bool
}

// New creates a trading bot from its collaborators. sessionLog may be
// nil to disable file logging.
func New(
	cfg *config.Config,
	api MarketAPI,
	estimator fairvalue.Estimator,
	riskMgr *risk.Manager,
	notifier notifications.Notifier,
	health *monitoring.HealthChecker,
	sessionLog *logger.Logger,
) *Bot {
	return &Bot{
		cfg:        cfg,
		api:        api,
		estimator:  estimator,
		riskMgr:    riskMgr,
		notifier:   notifier,
		health:     health,
		sessionLog: sessionLog,
	}
}

// Run executes the trading loop until ctx is cancelled. It returns
// ctx.Err() on cancellation; any other error is fatal to the process.
func (b *Bot) Run(ctx context.Context) error {
	b.refreshBalance(ctx)
	b.health.SetConnected(true)
	if b.sessionLog != nil {
		b.sessionLog.Info("Trading loop started | scan interval %s | deviation threshold %.1f%%",
			b.cfg.ScanInterval, b.cfg.DeviationThreshold*100)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.cycleCount++

		// Capital preservation comes first: while halted for drawdown,
		// no scanning or monitoring happens at all.
		if b.riskMgr.CheckDailyDrawdown() {
			b.announceHalt()
			monitoring.SetHalted(true)
			if err := b.sleep(ctx, b.cfg.HaltCooldown); err != nil {
				return err
			}
			continue
		}
		b.haltAnnounced = false
		monitoring.SetHalted(false)

		b.scanMarkets(ctx)
		b.monitorPositions(ctx)

		b.health.UpdateLastScan(time.Now())
		monitoring.UpdateOpenPositions(b.riskMgr.OpenPositionCount())

		if b.cycleCount%b.cfg.BalanceRefreshCycles == 0 {
			b.refreshBalance(ctx)
			b.logSummary()
		}

		if err := b.sleep(ctx, b.cfg.ScanInterval); err != nil {
			return err
		}
	}
}

// scanMarkets hunts for mispricings across open markets. A failure on
// one market never aborts the scan; a denied admission check ends it,
// since the limits are cycle-global.
func (b *Bot) scanMarkets(ctx context.Context) {
	markets, err := b.api.ListMarkets(ctx, "open", b.cfg.MarketScanLimit)
	if err != nil {
		log.Printf("Market scan failed: %v", err)
		if b.sessionLog != nil {
			b.sessionLog.Warning("Market scan failed: %v", err)
		}
		b.health.AddError(err.Error())
		monitoring.RecordError(classifyError(err))
		return
	}

	for _, market := range markets {
		if ctx.Err() != nil {
			return
		}
		if b.riskMgr.HasPosition(market.ID) {
			continue
		}
		if canOpen, reason := b.riskMgr.CanOpenPosition(); !canOpen {
			log.Printf("Stopping scan: %s", reason)
			return
		}

		if err := b.evaluateMarket(ctx, market); err != nil {
			log.Printf("Error processing %q: %v", market.Title, err)
			monitoring.RecordError(classifyError(err))
		}
	}
}

// evaluateMarket compares fair value against the market's implied
// probability and opens a position if the edge clears the threshold.
func (b *Bot) evaluateMarket(ctx context.Context, market kalshi.Market) error {
	fairValue, err := b.estimator.FairValue(ctx, market)
	if err != nil {
		return fmt.Errorf("fair value: %w", err)
	}

	implied := market.ImpliedProbability()
	deviation := math.Abs(fairValue - implied)
	monitoring.ObserveEdge(deviation)

	if deviation < b.cfg.DeviationThreshold {
		return nil
	}

	// Buy the underpriced side.
	side := risk.SideNo
	entryPrice := 1 - market.YesBidPrice()
	if fairValue > implied {
		side = risk.SideYes
		entryPrice = market.YesAskPrice()
	}

	size := b.riskMgr.CalculatePositionSize(entryPrice, deviation)
	if size < 1 {
		return nil
	}

	log.Printf("🔍 EDGE FOUND: %.50s | Fair: %.2f%% | Implied: %.2f%% | Edge: %.2f%% | Side: %s",
		market.Title, fairValue*100, implied*100, deviation*100, side)

	order, err := b.api.PlaceOrder(ctx, market.ID, string(side), size, kalshi.OrderTypeMarket)
	if err != nil {
		monitoring.RecordOrder(string(side), "failed")
		return fmt.Errorf("place order: %w", err)
	}

	// Register only on a confirmed fill.
	if err := b.riskMgr.OpenPosition(market.ID, side, size, entryPrice, fairValue); err != nil {
		return fmt.Errorf("register position: %w", err)
	}

	monitoring.RecordOrder(string(side), "filled")
	b.health.UpdateLastTrade(time.Now())
	if b.sessionLog != nil {
		b.sessionLog.LogPositionOpened(market.ID, string(side), size, entryPrice, fairValue, deviation)
	}
	log.Printf("✅ ORDER FILLED: %s %s x%d (order %s)", market.ID, side, size, order.OrderID)

	if err := b.notifier.SendAlert("success", fmt.Sprintf(
		"Position opened\nMarket: %s\nSide: %s x%d\nEntry: %.2f\nEdge: %.2f%%",
		market.Title, side, size, entryPrice, deviation*100)); err != nil {
		log.Printf("Failed to send trade notification: %v", err)
	}

	return nil
}

// monitorPositions re-prices every open position and cuts the ones
// whose edge has evaporated. A failure on one position never aborts the
// rest.
func (b *Bot) monitorPositions(ctx context.Context) {
	for _, marketID := range b.riskMgr.MarketIDs() {
		if ctx.Err() != nil {
			return
		}
		if err := b.monitorPosition(ctx, marketID); err != nil {
			log.Printf("Error monitoring position %s: %v", marketID, err)
			monitoring.RecordError(classifyError(err))
		}
	}
}

func (b *Bot) monitorPosition(ctx context.Context, marketID string) error {
	market, err := b.api.GetMarket(ctx, marketID)
	if err != nil {
		return fmt.Errorf("refetch market: %w", err)
	}

	fairValue, err := b.estimator.FairValue(ctx, *market)
	if err != nil {
		return fmt.Errorf("fair value: %w", err)
	}

	currentPrice := market.ImpliedProbability()
	b.riskMgr.UpdatePosition(marketID, currentPrice, fairValue)

	shouldCut, reason := b.riskMgr.ShouldCutPosition(marketID)
	if !shouldCut {
		return nil
	}

	pos, ok := b.riskMgr.Position(marketID)
	if !ok {
		return nil
	}
	exitSide := pos.Side.Opposite()

	log.Printf("🔪 CUTTING POSITION: %.50s | %s", market.Title, reason)

	if _, err := b.api.PlaceOrder(ctx, marketID, string(exitSide), pos.Size, kalshi.OrderTypeMarket); err != nil {
		monitoring.RecordOrder(string(exitSide), "failed")
		return fmt.Errorf("place closing order: %w", err)
	}

	pnl, closed := b.riskMgr.ClosePosition(marketID, currentPrice, reason)
	if !closed {
		return nil
	}

	monitoring.RecordOrder(string(exitSide), "filled")
	monitoring.RecordCut(cutReasonClass(reason))
	monitoring.UpdateBalance(b.riskMgr.Balance())
	if b.sessionLog != nil {
		b.sessionLog.LogPositionClosed(marketID, pnl, reason)
	}
	log.Printf("🔒 Position closed: %s | P&L: $%.2f | Reason: %s", marketID, pnl, reason)

	if err := b.notifier.SendAlert("warning", fmt.Sprintf(
		"Position cut\nMarket: %s\nP&L: $%.2f\nReason: %s", market.Title, pnl, reason)); err != nil {
		log.Printf("Failed to send cut notification: %v", err)
	}

	return nil
}

// refreshBalance re-synchronizes the tracked balance from the account,
// correcting for fees, manual intervention, or missed fills. Failures
// leave the locally tracked balance in place.
func (b *Bot) refreshBalance(ctx context.Context) {
	balance, err := b.api.GetBalance(ctx)
	if err != nil {
		log.Printf("Balance refresh failed: %v", err)
		if b.sessionLog != nil {
			b.sessionLog.Warning("Balance refresh failed: %v", err)
		}
		b.health.AddError(err.Error())
		monitoring.RecordError(classifyError(err))
		return
	}

	b.riskMgr.UpdateBalance(balance)
	b.health.UpdateBalance(balance)
	monitoring.UpdateBalance(balance)
}

// announceHalt logs and alerts the drawdown halt once per halt episode.
func (b *Bot) announceHalt() {
	if b.haltAnnounced {
		return
	}
	b.haltAnnounced = true

	summary := b.riskMgr.PortfolioSummary()
	log.Printf("🛑 DAILY DRAWDOWN HALT: %.2f%% - waiting for daily reset", summary.DailyPnLPct*100)
	if b.sessionLog != nil {
		b.sessionLog.LogHalt(summary.DailyPnLPct)
	}
	if err := b.notifier.SendAlert("error", fmt.Sprintf(
		"Daily drawdown halt: %.2f%% loss. New trading blocked until daily reset.",
		summary.DailyPnLPct*100)); err != nil {
		log.Printf("Failed to send halt notification: %v", err)
	}
}

func (b *Bot) logSummary() {
	summary := b.riskMgr.PortfolioSummary()
	reporting.PrintSummary(summary)
	if b.sessionLog != nil {
		b.sessionLog.Status("Balance: $%.2f | Daily P&L: $%+.2f | Positions: %d",
			summary.Balance, summary.DailyPnL, summary.OpenPositions)
	}
}

// sleep waits for the duration or until ctx is cancelled.
func (b *Bot) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func cutReasonClass(reason string) string {
	if len(reason) >= 9 && reason[:9] == "edge flip" {
		return "edge_flip"
	}
	return "hard_stop"
}

func classifyError(err error) string {
	switch {
	case kalshi.IsAuthError(err):
		return "auth"
	case kalshi.IsTransient(err):
		return "transient"
	case kalshi.IsMalformedResponse(err):
		return "malformed_response"
	default:
		return "api"
	}
}
