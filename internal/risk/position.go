package risk

import "time"

// Side is the side of a binary-outcome contract.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Sign returns the P&L direction multiplier for the side.
func (s Side) Sign() float64 {
	if s == SideYes {
		return 1
	}
	return -1
}

// Opposite returns the side used to close a position.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Position tracks one open exposure in one market. Exactly one position
// may exist per market id at any time.
type Position struct {
	MarketID       string
	Side           Side
	Size           int
	EntryPrice     float64
	EntryFairValue float64
	OpenedAt       time.Time

	lastPrice     float64
	lastFairValue float64
	monitored     bool
}

// Update applies the latest market data and transitions the position
// into the monitored state.
func (p *Position) Update(price, fairValue float64) {
	p.lastPrice = price
	p.lastFairValue = fairValue
	p.monitored = true
}

// Monitored reports whether the position has received at least one
// price update since it was opened.
func (p *Position) Monitored() bool {
	return p.monitored
}

// LastPrice returns the most recent price update, or the entry price if
// none has arrived yet.
func (p *Position) LastPrice() float64 {
	if !p.monitored {
		return p.EntryPrice
	}
	return p.lastPrice
}

// LastFairValue returns the most recent fair value update, or the entry
// fair value if none has arrived yet.
func (p *Position) LastFairValue() float64 {
	if !p.monitored {
		return p.EntryFairValue
	}
	return p.lastFairValue
}

// UnrealizedPnL returns the open profit or loss. YES positions gain as
// price rises, NO positions gain as it falls.
func (p *Position) UnrealizedPnL() float64 {
	if !p.monitored {
		return 0
	}
	return p.Side.Sign() * (p.lastPrice - p.EntryPrice) * float64(p.Size)
}

// EdgeDeterioration returns how far the fair value has drifted since
// entry. Positive means the edge that justified the trade is eroding.
func (p *Position) EdgeDeterioration() float64 {
	if !p.monitored {
		return 0
	}
	deterioration := p.lastFairValue - p.EntryFairValue
	if deterioration < 0 {
		return -deterioration
	}
	return deterioration
}
