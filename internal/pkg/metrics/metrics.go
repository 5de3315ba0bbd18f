package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	streamsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_streams_total",
		Help: "Streamed turns by final state",
	}, []string{"state"})

	streamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_stream_duration_seconds",
		Help:    "Duration of streamed turns from user persist to terminal frame",
		Buckets: prometheus.DefBuckets,
	}, []string{"state"})

	fragmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_stream_fragments_total",
		Help: "Non-empty model fragments forwarded to clients",
	})

	summarizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_summarizations_total",
		Help: "Summarization runs by outcome",
	}, []string{"status"})

	summarizedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_summarized_messages_total",
		Help: "Messages folded into rolling summaries",
	})

	gateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_gate_rejections_total",
		Help: "Requests rejected by the session gate",
	}, []string{"reason"})
)

func RecordStream(state string, started time.Time) {
	streamsTotal.WithLabelValues(state).Inc()
	streamDuration.WithLabelValues(state).Observe(time.Since(started).Seconds())
}

func RecordFragment() {
	fragmentsTotal.Inc()
}

func RecordSummarization(status string, folded int) {
	summarizationsTotal.WithLabelValues(status).Inc()
	if folded > 0 {
		summarizedMessages.Add(float64(folded))
	}
}

func RecordGateRejection(reason string) {
	gateRejections.WithLabelValues(reason).Inc()
}
