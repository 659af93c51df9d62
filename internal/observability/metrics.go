package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	packetsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vivian",
			Subsystem: "transport",
			Name:      "packets_written_total",
			Help:      "Packets written to the device's GATT characteristic.",
		},
	)
	valuesNotified = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vivian",
			Subsystem: "transport",
			Name:      "values_notified_total",
			Help:      "GATT value notifications delivered from the device.",
		},
	)
	commandsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vivian",
			Subsystem: "manager",
			Name:      "commands_finished_total",
			Help:      "Commands that reached a terminal state, by kind.",
		},
		[]string{"kind"},
	)
	errorsReported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vivian",
			Subsystem: "manager",
			Name:      "errors_total",
			Help:      "Errors reported by the manager's delegate, by kind.",
		},
		[]string{"kind"},
	)
)

// RegisterMetrics registers the package's collectors with the default
// prometheus registry. Safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(packetsWritten, valuesNotified, commandsFinished, errorsReported)
	})
}

// RecordPacketWritten increments the packets-written counter.
func RecordPacketWritten() {
	RegisterMetrics()
	packetsWritten.Inc()
}

// RecordValueNotified increments the values-notified counter.
func RecordValueNotified() {
	RegisterMetrics()
	valuesNotified.Inc()
}

// RecordCommandFinished increments the finished-commands counter for kind.
func RecordCommandFinished(kind string) {
	RegisterMetrics()
	commandsFinished.WithLabelValues(kind).Inc()
}

// RecordError increments the errors counter for kind.
func RecordError(kind string) {
	RegisterMetrics()
	errorsReported.WithLabelValues(kind).Inc()
}
