package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_bot_orders_total",
			Help: "Total number of orders placed",
		},
		[]string{"side", "result"},
	)

	positionsCut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_bot_positions_cut_total",
			Help: "Total number of positions cut by the risk manager",
		},
		[]string{"reason"},
	)

	edgeDeviation = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edge_bot_edge_deviation",
			Help:    "Distribution of observed fair value vs implied deviations",
			Buckets: prometheus.LinearBuckets(0, 0.02, 15),
		},
	)

	// Portfolio metrics
	balanceGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "edge_bot_balance_dollars",
			Help: "Current account balance",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "edge_bot_open_positions",
			Help: "Number of open positions",
		},
	)

	haltedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "edge_bot_halted",
			Help: "Whether trading is halted (1) or active (0)",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_bot_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(ordersTotal)
	prometheus.MustRegister(positionsCut)
	prometheus.MustRegister(edgeDeviation)
	prometheus.MustRegister(balanceGauge)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(haltedGauge)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler serves the Prometheus metrics endpoint.
type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordOrder records an order placement attempt.
func RecordOrder(side, result string) {
	ordersTotal.WithLabelValues(side, result).Inc()
}

// RecordCut records a position cut with its reason class.
func RecordCut(reason string) {
	positionsCut.WithLabelValues(reason).Inc()
}

// ObserveEdge records an observed deviation between fair value and
// implied probability.
func ObserveEdge(deviation float64) {
	edgeDeviation.Observe(deviation)
}

// UpdateBalance updates the balance gauge.
func UpdateBalance(balance float64) {
	balanceGauge.Set(balance)
}

// UpdateOpenPositions updates the open position count gauge.
func UpdateOpenPositions(count int) {
	openPositions.Set(float64(count))
}

// SetHalted updates the halt state gauge.
func SetHalted(halted bool) {
	if halted {
		haltedGauge.Set(1)
	} else {
		haltedGauge.Set(0)
	}
}

// RecordError records an error metric.
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
