package fairvalue

import (
	"context"

	"github.com/ducminhle1904/kalshi-edge-bot/internal/kalshi"
)

// Estimator produces a "true" probability estimate for a market,
// independent of its current price. Implementations are best-effort;
// callers must treat errors and out-of-range values as "no opinion".
type Estimator interface {
	FairValue(ctx context.Context, market kalshi.Market) (float64, error)
}

// MarketImplied is the baseline estimator: the market's own mid-price
// probability. It never fails and is used as the fallback when no model
// has an opinion.
type MarketImplied struct{}

// FairValue returns (yesBid+yesAsk)/200.
func (MarketImplied) FairValue(_ context.Context, market kalshi.Market) (float64, error) {
	return market.ImpliedProbability(), nil
}
