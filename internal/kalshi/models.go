package kalshi

// Market represents one binary-outcome market record. Bid/ask quotes
// are integer cents (0-100).
type Market struct {
	ID       string `json:"market_id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Status   string `json:"status"`
	YesBid   int    `json:"yes_bid"`
	YesAsk   int    `json:"yes_ask"`
}

// YesBidPrice returns the best YES bid as a probability fraction.
func (m Market) YesBidPrice() float64 {
	return float64(m.YesBid) / 100.0
}

// YesAskPrice returns the best YES ask as a probability fraction.
func (m Market) YesAskPrice() float64 {
	return float64(m.YesAsk) / 100.0
}

// ImpliedProbability returns the mid-price implied probability.
func (m Market) ImpliedProbability() float64 {
	return float64(m.YesBid+m.YesAsk) / 200.0
}

// Order is the confirmation returned by a successful order placement.
type Order struct {
	OrderID  string `json:"order_id"`
	MarketID string `json:"market_id"`
	Side     string `json:"side"`
	Count    int    `json:"count"`
	Status   string `json:"status"`
}

// Order types accepted by the orders endpoint. Market orders are used
// throughout for execution speed.
const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)
