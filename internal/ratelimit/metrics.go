package ratelimit

import "github.com/prometheus/client_golang/prometheus"

// PromRecorder exports limiter activity as Prometheus metrics.
type PromRecorder struct {
	decisions *prometheus.CounterVec
	cleaned   prometheus.Counter
}

// NewPromRecorder creates the collectors and registers them with reg.
func NewPromRecorder(reg prometheus.Registerer) *PromRecorder {
	r := &PromRecorder{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notekeeper",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limit decisions by outcome.",
		}, []string{"outcome"}),
		cleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "notekeeper",
			Subsystem: "ratelimit",
			Name:      "buckets_cleaned_total",
			Help:      "Expired buckets removed by the cleanup pass.",
		}),
	}
	reg.MustRegister(r.decisions, r.cleaned)
	return r
}

func (r *PromRecorder) ObserveDecision(allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	r.decisions.WithLabelValues(outcome).Inc()
}

func (r *PromRecorder) ObserveCleanup(removed int) {
	r.cleaned.Add(float64(removed))
}
