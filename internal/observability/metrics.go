package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce      sync.Once
	connectionsTotal  prometheus.Counter
	connectionsActive prometheus.Gauge
	commandsTotal     *prometheus.CounterVec
	pushLinesTotal    prometheus.Counter
	bookingsTotal     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the hub server.
func RegisterMetrics() {
	registerOnce.Do(func() {
		connectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_connections_total",
			Help: "Total number of client connections accepted.",
		})

		connectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_connections_active",
			Help: "Number of currently open client connections.",
		})

		commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_commands_total",
			Help: "Total number of protocol commands dispatched.",
		}, []string{"verb"})

		pushLinesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_push_lines_total",
			Help: "Total number of push lines fanned out to subscribers.",
		})

		bookingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_bookings_total",
			Help: "Total number of booking attempts by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(connectionsTotal, connectionsActive, commandsTotal, pushLinesTotal, bookingsTotal)
	})
}

// Connections exposes the accepted-connections counter.
func Connections() prometheus.Counter {
	RegisterMetrics()
	return connectionsTotal
}

// ActiveConnections exposes the open-connections gauge.
func ActiveConnections() prometheus.Gauge {
	RegisterMetrics()
	return connectionsActive
}

// Commands exposes the per-verb command counter.
func Commands() *prometheus.CounterVec {
	RegisterMetrics()
	return commandsTotal
}

// PushLines exposes the push fan-out counter.
func PushLines() prometheus.Counter {
	RegisterMetrics()
	return pushLinesTotal
}

// Bookings exposes the booking outcome counter.
func Bookings() *prometheus.CounterVec {
	RegisterMetrics()
	return bookingsTotal
}
