package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(publishFailedTotal, wsConnections)
}

var publishFailedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "broker_delivery_publish_failed_total",
		Help: "Total number of failed pushes to a delivery group.",
	},
)

var wsConnections = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "broker_ws_connections",
		Help: "Number of live WebSocket connections.",
	},
)

func IncPublishFailed() {
	publishFailedTotal.Inc()
}

func WSConnected()    { wsConnections.Inc() }
func WSDisconnected() { wsConnections.Dec() }
