package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checkout results.
const (
	ResultCommitted = "committed"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
	ResultPartial   = "partial"
)

var (
	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "checkouts_total",
		Help:      "Checkout attempts by result.",
	}, []string{"result"})

	StockDeductionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "stock_deduction_failures_total",
		Help:      "Stock deductions that failed after the sale rows were recorded.",
	})

	CartRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "cart_rejections_total",
		Help:      "Cart mutations rejected for lack of stock, by operation.",
	}, []string{"operation"})

	CheckoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pos",
		Name:      "checkout_duration_seconds",
		Help:      "Time spent committing a checkout.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
