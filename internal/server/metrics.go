package server

import "github.com/prometheus/client_golang/prometheus"

var (
	clientsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kafkaviz",
		Subsystem: "ws",
		Name:      "clients_connected",
		Help:      "Currently connected websocket clients",
	})

	framesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kafkaviz",
		Subsystem: "ws",
		Name:      "frames_sent_total",
		Help:      "Total SVG frames broadcast to clients",
	})

	commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kafkaviz",
		Subsystem: "ws",
		Name:      "commands_total",
		Help:      "Total inbound client commands by type",
	}, []string{"type"})

	lessonSwitches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kafkaviz",
		Subsystem: "director",
		Name:      "lesson_switches_total",
		Help:      "Total successful lesson switches by slug",
	}, []string{"slug"})
)

func init() {
	prometheus.MustRegister(clientsConnected, framesSent, commandsTotal, lessonSwitches)
}
