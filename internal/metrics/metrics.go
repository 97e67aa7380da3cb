package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dispensary"

type Collectors struct {
	VendorCalls   *prometheus.CounterVec
	QuotaDenials  *prometheus.CounterVec
	UsageFailures prometheus.Counter
	ChatTurns     *prometheus.CounterVec
	Notifications *prometheus.CounterVec

	HTTPRequests *prometheus.HistogramVec
}

var collectors = sync.OnceValue(func() *Collectors {
	return &Collectors{
		VendorCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendor_calls_total",
			Help:      "Outbound AI and search vendor calls.",
		}, []string{"vendor", "result"}),
		QuotaDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_denials_total",
			Help:      "Vendor calls skipped because a daily or monthly budget was exhausted.",
		}, []string{"api_type"}),
		UsageFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_record_failures_total",
			Help:      "Usage records that could not be written.",
		}),
		ChatTurns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Customer chat turns by response mode and outcome.",
		}, []string{"mode", "outcome"}),
		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Admin notifications by delivery path and result.",
		}, []string{"path", "result"}),
		HTTPRequests: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route", "status"}),
	}
})

// Get returns the process-wide collectors, registering them on first use.
func Get() *Collectors {
	return collectors()
}

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
