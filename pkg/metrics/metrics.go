package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster inventory
	NodesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "croft_nodes",
			Help: "Number of nodes by runtime and status",
		},
		[]string{"runtime", "status"},
	)

	PodsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "croft_pods",
			Help: "Number of pods by namespace and status",
		},
		[]string{"namespace", "status"},
	)

	NamespacesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "croft_namespaces_total",
			Help: "Total number of namespaces",
		},
	)

	PacksTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "croft_packs_total",
			Help: "Total number of registered pack versions",
		},
	)

	SecretsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "croft_secrets_total",
			Help: "Total number of secrets",
		},
	)

	// Scheduler
	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "croft_scheduling_latency_seconds",
			Help:    "Time taken to place a pod in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "croft_scheduling_attempts_total",
			Help: "Total number of placement attempts by result",
		},
		[]string{"result"},
	)

	Preemptions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "croft_preemptions_total",
			Help: "Total number of pods evicted by preemption",
		},
	)

	QuotaRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "croft_quota_rejections_total",
			Help: "Total number of pod creations rejected by namespace quota",
		},
	)

	PodsFailedOver = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "croft_pods_failed_over_total",
			Help: "Total number of pods failed because their node went unhealthy",
		},
	)

	// Node liveness
	HeartbeatSweeps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "croft_heartbeat_sweeps_total",
			Help: "Total number of heartbeat liveness sweeps",
		},
	)

	NodesMarkedUnhealthy = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "croft_nodes_marked_unhealthy_total",
			Help: "Total number of nodes transitioned to unhealthy by the sweep",
		},
	)
)

func init() {
	prometheus.MustRegister(NodesByStatus)
	prometheus.MustRegister(PodsByStatus)
	prometheus.MustRegister(NamespacesTotal)
	prometheus.MustRegister(PacksTotal)
	prometheus.MustRegister(SecretsTotal)
	prometheus.MustRegister(SchedulingLatency)
	prometheus.MustRegister(SchedulingAttempts)
	prometheus.MustRegister(Preemptions)
	prometheus.MustRegister(QuotaRejections)
	prometheus.MustRegister(PodsFailedOver)
	prometheus.MustRegister(HeartbeatSweeps)
	prometheus.MustRegister(NodesMarkedUnhealthy)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
