package services

import "github.com/prometheus/client_golang/prometheus"

var (
	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurotrack_reports_total",
			Help: "Report gate outcomes by report type",
		},
		[]string{"type", "outcome"},
	)
	aiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurotrack_ai_requests_total",
			Help: "Calls to the AI provider by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

// InitMetrics registers the service metrics. Call this from main.go
func InitMetrics() {
	prometheus.MustRegister(reportsTotal)
	prometheus.MustRegister(aiRequestsTotal)
}
