package hub

import "github.com/prometheus/client_golang/prometheus"

var (
	viewersGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "psyched",
			Subsystem: "hub",
			Name:      "viewers",
			Help:      "Connected viewers per canvas",
		},
		[]string{"canvas"},
	)

	framesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psyched",
			Subsystem: "hub",
			Name:      "frames_sent_total",
			Help:      "Successful frame deliveries per canvas",
		},
		[]string{"canvas"},
	)

	framesFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psyched",
			Subsystem: "hub",
			Name:      "frames_failed_total",
			Help:      "Failed frame deliveries per canvas",
		},
		[]string{"canvas"},
	)
)

func init() {
	prometheus.MustRegister(viewersGauge, framesSentTotal, framesFailedTotal)
}
