package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Socket traffic
	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdev_frames_received_total",
			Help: "Inbound socket frames by type",
		},
		[]string{"type"},
	)

	FramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdev_frames_sent_total",
			Help: "Outbound socket frames by type",
		},
		[]string{"type"},
	)

	MalformedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatdev_malformed_frames_total",
			Help: "Inbound frames dropped because they could not be decoded",
		},
	)

	Connections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdev_connections_total",
			Help: "Socket connection outcomes",
		},
		[]string{"result"}, // "opened", "failed", "dropped"
	)

	// Acknowledgements
	AcksSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdev_acks_sent_total",
			Help: "Acknowledgements written to the socket",
		},
		[]string{"status"},
	)

	AcksDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdev_acks_dropped_total",
			Help: "Acknowledgements dropped because the socket was not open",
		},
		[]string{"status"},
	)

	PendingSeen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatdev_pending_seen_acks",
			Help: "Seen acknowledgements deferred while the chat is hidden",
		},
	)

	// Sends
	SendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatdev_send_failures_total",
			Help: "Messages that could not be written because there was no connection",
		},
	)
)

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
