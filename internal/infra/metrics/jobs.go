package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobsStartedTotal, callbacksDeliveredTotal, pollsTotal)
}

var jobsStartedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "broker_jobs_started_total",
		Help: "Total number of interpretation jobs initiated, labeled by callback.",
	},
	[]string{"callback"},
)

var callbacksDeliveredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "broker_callbacks_delivered_total",
		Help: "Total number of super-backend callback deliveries accepted.",
	},
)

var pollsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "broker_polls_total",
		Help: "Total number of job polls, labeled by outcome.",
	},
	[]string{"outcome"}, // 'processed', 'no_data', 'transform_failed'
)

func IncJobStarted(callback string) {
	jobsStartedTotal.WithLabelValues(callback).Inc()
}

func IncCallbackDelivered() {
	callbacksDeliveredTotal.Inc()
}

func IncPoll(outcome string) {
	pollsTotal.WithLabelValues(outcome).Inc()
}
