package observe

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	connected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "steamkit_connected",
		Help: "1 while a CM connection is established",
	})

	messagesRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamkit_messages_routed_total",
			Help: "Total inbound messages handed to a handler, by EMsg",
		},
		[]string{"emsg"},
	)

	messagesUnhandled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "steamkit_messages_unhandled_total",
		Help: "Total inbound messages with no registered handler",
	})

	batchFrames = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "steamkit_batch_frames_total",
		Help: "Total frames extracted from Multi batches",
	})

	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamkit_decode_errors_total",
			Help: "Total inbound decode errors by kind",
		},
		[]string{"kind"}, // not_structured|malformed_batch|decompression|frame_truncated|unparseable_frame|nesting_limit|malformed_packet|handler
	)

	callbacksPosted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamkit_callbacks_posted_total",
			Help: "Total callbacks posted by name",
		},
		[]string{"name"},
	)

	packetsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "steamkit_packets_sent_total",
		Help: "Total packets written to the CM",
	})

	sendDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "steamkit_send_dropped_total",
		Help: "Total outbound packets dropped due to backpressure",
	})
)

func init() {
	prometheus.MustRegister(
		connected,
		messagesRouted,
		messagesUnhandled,
		batchFrames,
		decodeErrors,
		callbacksPosted,
		packetsSent,
		sendDropped,
	)
}

func SetConnected(up bool) {
	if up {
		connected.Set(1)
		return
	}
	connected.Set(0)
}

func IncRouted(emsg string)      { messagesRouted.WithLabelValues(emsg).Inc() }
func IncUnhandled()              { messagesUnhandled.Inc() }
func AddBatchFrames(n int)       { batchFrames.Add(float64(n)) }
func IncDecodeError(kind string) { decodeErrors.WithLabelValues(kind).Inc() }
func IncCallback(name string)    { callbacksPosted.WithLabelValues(name).Inc() }
func IncSent()                   { packetsSent.Inc() }
func IncSendDropped()            { sendDropped.Inc() }
