package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "sales_created_total",
		Help:      "Completed sales by payment method.",
	}, []string{"method"})

	SalesCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "sales_cancelled_total",
		Help:      "Sales moved to cancelled.",
	})

	SaleAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pos",
		Name:      "sale_total_amount",
		Help:      "Distribution of sale totals.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})

	StockRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "insufficient_stock_total",
		Help:      "Sales rejected because stock was insufficient under lock.",
	})

	SalePayments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "sale_payments_total",
		Help:      "Later payments recorded against pending or partial sales.",
	}, []string{"method"})

	SaleNumberRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "sale_number_retries_total",
		Help:      "Sale number collisions retried with the next sequence.",
	})

	StockMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "stock_movements_total",
		Help:      "Ledger movements by type.",
	}, []string{"type"})

	OpenSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pos",
		Name:      "cash_sessions_open",
		Help:      "Cash sessions currently open.",
	})

	SessionVariance = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pos",
		Name:      "cash_session_variance",
		Help:      "Counted minus expected cash at close.",
		Buckets:   []float64{-100, -20, -5, -1, -0.01, 0.01, 1, 5, 20, 100},
	})
)
