package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the checkout/review counters exposed on /metrics.
type Metrics struct {
	OrdersPlaced   prometheus.Counter
	LinesFulfilled prometheus.Counter
	LinesClamped   prometheus.Counter
	LinesDropped   prometheus.Counter
	OrdersReviewed *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		OrdersPlaced: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "salesflow_orders_placed_total",
			Help: "Number of orders created by the placement workflow.",
		}),
		LinesFulfilled: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "salesflow_order_lines_fulfilled_total",
			Help: "Cart lines fulfilled, fully or after clamping.",
		}),
		LinesClamped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "salesflow_order_lines_clamped_total",
			Help: "Cart lines whose requested quantity exceeded available stock.",
		}),
		LinesDropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "salesflow_order_lines_dropped_total",
			Help: "Cart lines dropped because no stock was available.",
		}),
		OrdersReviewed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "salesflow_order_reviews_total",
			Help: "Review remarks recorded, by resulting status.",
		}, []string{"status"}),
	}
}
