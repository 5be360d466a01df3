package reporting

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/kalshi-edge-bot/internal/config"
	"github.com/ducminhle1904/kalshi-edge-bot/internal/risk"
)

// PrintStartup renders the startup configuration table.
func PrintStartup(cfg *config.Config) {
	mode := "⚠️ LIVE TRADING"
	if cfg.IsSandbox() {
		mode = "SANDBOX (Paper Trading)"
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("KALSHI EDGE BOT")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🔧 Environment", mode},
		{"💰 Initial Balance", fmt.Sprintf("$%.2f", cfg.InitialBalance)},
		{"📊 Risk per Trade", fmt.Sprintf("%.1f%%", cfg.RiskPerTradePct*100)},
		{"📉 Max Daily Drawdown", fmt.Sprintf("%.1f%%", cfg.MaxDailyDrawdownPct*100)},
		{"🎯 Deviation Threshold", fmt.Sprintf("%.1f%%", cfg.DeviationThreshold*100)},
		{"🔪 Stop Loss Deviation", fmt.Sprintf("%.1f%%", cfg.StopLossDeviation*100)},
		{"📦 Max Open Positions", fmt.Sprintf("%d", cfg.MaxOpenPositions)},
		{"⏰ Scan Interval", cfg.ScanInterval.String()},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, WidthMax: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 35, Align: text.AlignLeft},
	})

	t.Render()
}

// PrintSummary renders the periodic portfolio summary table.
func PrintSummary(s risk.Summary) {
	status := "ACTIVE"
	if s.Halted {
		status = fmt.Sprintf("HALTED (%s)", s.HaltReason)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("PORTFOLIO")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💼 Balance", fmt.Sprintf("$%.2f", s.Balance)},
		{"🏔 Peak Balance", fmt.Sprintf("$%.2f", s.PeakBalance)},
		{"📉 Drawdown from Peak", fmt.Sprintf("%.2f%%", s.TotalDrawdownPct*100)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"📅 Daily P&L", fmt.Sprintf("$%+.2f (%+.2f%%)", s.DailyPnL, s.DailyPnLPct*100)},
		{"📦 Open Positions", fmt.Sprintf("%d", s.OpenPositions)},
		{"💹 Unrealized P&L", fmt.Sprintf("$%+.2f", s.UnrealizedPnL)},
		{"🚦 Status", status},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, WidthMax: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})

	t.Render()
}
