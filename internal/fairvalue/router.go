package fairvalue

import (
	"context"

	"github.com/ducminhle1904/kalshi-edge-bot/internal/kalshi"
)

// Router dispatches fair value estimation to a per-category model and
// degrades to the market-implied baseline whenever a model fails,
// returns an out-of-range value, or no model is registered. The
// category models themselves are replaceable collaborators; only the
// routing and the fallback are load-bearing.
type Router struct {
	models   map[Category]Estimator
	fallback Estimator
}

// NewRouter creates a router with the market-implied fallback and no
// category models registered.
func NewRouter() *Router {
	return &Router{
		models:   make(map[Category]Estimator),
		fallback: MarketImplied{},
	}
}

// Register installs an estimator for a category, replacing any
// previous one.
func (r *Router) Register(category Category, estimator Estimator) {
	r.models[category] = estimator
}

// FairValue routes by the market's inferred category. The result is
// always a valid probability.
func (r *Router) FairValue(ctx context.Context, market kalshi.Market) (float64, error) {
	model, ok := r.models[Categorize(market.Title)]
	if !ok {
		return r.fallback.FairValue(ctx, market)
	}

	value, err := model.FairValue(ctx, market)
	if err != nil || value < 0 || value > 1 {
		return r.fallback.FairValue(ctx, market)
	}
	return value, nil
}
