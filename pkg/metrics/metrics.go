// Package metrics exposes Prometheus collectors for transfer outcomes
// and relayer funding.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransfersTotal counts transfer attempts by network and outcome
	// (confirmed, failed, pending_timeout).
	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liquidpay",
		Subsystem: "transfer",
		Name:      "attempts_total",
		Help:      "Gasless transfer attempts by network and outcome.",
	}, []string{"network", "outcome"})

	// TransferDuration observes end-to-end transfer latency.
	TransferDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "liquidpay",
		Subsystem: "transfer",
		Name:      "duration_seconds",
		Help:      "End-to-end gasless transfer duration.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"network"})

	// RelayerBalance tracks relayer native balances in the chain's
	// smallest unit (wei, lamports). The relayer is a consumable
	// resource; operators alert on this gauge.
	RelayerBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "liquidpay",
		Subsystem: "relayer",
		Name:      "native_balance",
		Help:      "Relayer native-currency balance in base units.",
	}, []string{"network"})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
