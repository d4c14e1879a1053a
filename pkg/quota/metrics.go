package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for quota tracking.
var (
	quotaAdmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rover_quota_admitted_total",
		Help: "Total number of outbound requests admitted by the quota limiter",
	})

	quotaDeniedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rover_quota_denied_total",
		Help: "Total number of outbound requests denied because the hourly quota was consumed",
	})

	quotaWindowCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rover_quota_window_count",
		Help: "Requests consumed inside the current hourly quota window",
	})
)
