// Package metrics exposes Prometheus instruments for the transcription
// pipeline and the silence gate.
package metrics

import (
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/satriahrh/speaklab/internal/silencegate"
)

// Collector owns every instrument the service reports.
type Collector struct {
	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Silence gate
	gateVerdictsTotal  *prometheus.CounterVec
	gateFallbacksTotal *prometheus.CounterVec
	decodeDuration     *prometheus.HistogramVec
	silenceRatio       prometheus.Histogram

	// Speech-to-text
	transcriptionsTotal   *prometheus.CounterVec
	transcriptionDuration *prometheus.HistogramVec

	logger *zap.Logger
}

var _ silencegate.Recorder = (*Collector)(nil)

// NewCollector registers the instruments on registerer. A nil registerer
// falls back to the default Prometheus registry.
func NewCollector(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(registerer)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.gateVerdictsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "silence_gate",
			Name:      "verdicts_total",
			Help:      "Silence gate verdicts by outcome and deciding rule",
		},
		[]string{"outcome", "rule"},
	)

	c.gateFallbacksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "silence_gate",
			Name:      "fallbacks_total",
			Help:      "Silence checks skipped because decoding could not complete",
		},
		[]string{"cause"},
	)

	c.decodeDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "silence_gate",
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding and analysing one recording",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"success"},
	)

	c.silenceRatio = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "silence_gate",
			Name:      "silence_ratio",
			Help:      "Fraction of silent frames per analysed recording",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	c.transcriptionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Transcription requests by result kind",
		},
		[]string{"provider", "result"},
	)

	c.transcriptionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "Speech-to-text call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	c.logger.Debug("Metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordVerdict implements silencegate.Recorder.
func (c *Collector) RecordVerdict(outcome, rule string) {
	c.gateVerdictsTotal.WithLabelValues(outcome, rule).Inc()
}

// RecordFallback implements silencegate.Recorder.
func (c *Collector) RecordFallback(cause string) {
	c.gateFallbacksTotal.WithLabelValues(cause).Inc()
}

// RecordDecode implements silencegate.Recorder.
func (c *Collector) RecordDecode(duration time.Duration, success bool) {
	c.decodeDuration.WithLabelValues(strconv.FormatBool(success)).Observe(duration.Seconds())
}

// RecordSilenceRatio implements silencegate.Recorder. NaN ratios carry no
// information and are dropped.
func (c *Collector) RecordSilenceRatio(ratio float64) {
	if math.IsNaN(ratio) {
		return
	}
	c.silenceRatio.Observe(ratio)
}

// RecordTranscription records one orchestrated request. result is the
// response kind; duration is zero when no provider call was made.
func (c *Collector) RecordTranscription(provider, result string, duration time.Duration) {
	c.transcriptionsTotal.WithLabelValues(provider, result).Inc()
	if duration > 0 {
		c.transcriptionDuration.WithLabelValues(provider).Observe(duration.Seconds())
	}
}
