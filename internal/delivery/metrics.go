package delivery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issuemail_deliveries_total",
			Help: "Total notification dispatch decisions by outcome.",
		},
		[]string{"outcome"},
	)
	deliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "issuemail_delivery_duration_seconds",
			Help:    "Duration of transport send calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)
