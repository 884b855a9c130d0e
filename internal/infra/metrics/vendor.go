package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		vendorCallLatencyMs,
		vendorCallErrors,
		requestRetries,
	)
}

var (
	vendorCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vendor_call_latency_ms",
			Help:    "Vendor call latency distribution in milliseconds.",
			Buckets: []float64{25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"vendor", "outcome"},
	)

	vendorCallErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_call_errors_total",
			Help: "Failed vendor calls per vendor.",
		},
		[]string{"vendor"},
	)

	requestRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "request_retries_total",
			Help: "HTTP attempts beyond the first, across all retried requests.",
		},
	)
)

func IncRequestRetries() { requestRetries.Inc() }

// ObserveVendorCall records one vendor round trip.
func ObserveVendorCall(vendor string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		vendorCallErrors.WithLabelValues(vendor).Inc()
	}
	vendorCallLatencyMs.WithLabelValues(vendor, outcome).Observe(float64(time.Since(start).Milliseconds()))
}
