package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upload results.
const (
	ResultHit      = "hit"
	ResultCreated  = "created"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Collectors groups every vidaq metric. A nil *Collectors is valid and
// records nothing.
type Collectors struct {
	Uploads           *prometheus.CounterVec
	Transcodes        *prometheus.CounterVec
	TranscodeDuration prometheus.Histogram
	TranscodeInFlight prometheus.Gauge
	ManifestRewrites  prometheus.Counter
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidaq_uploads_total",
				Help: "Uploads processed, by result",
			},
			[]string{"result"},
		),
		Transcodes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidaq_transcodes_total",
				Help: "Finished probe+render cycles, by outcome",
			},
			[]string{"outcome"},
		),
		TranscodeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vidaq_transcode_duration_seconds",
				Help:    "Wall time of probe+render cycles in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 900, 1800, 3600},
			},
		),
		TranscodeInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vidaq_transcodes_in_flight",
				Help: "Renders currently holding a concurrency slot",
			},
		),
		ManifestRewrites: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vidaq_manifest_rewrites_total",
				Help: "Playlists rewritten for a serving host and persisted",
			},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidaq_http_requests_total",
				Help: "Gateway HTTP requests, by route pattern and status code",
			},
			[]string{"route", "code"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vidaq_http_request_duration_seconds",
				Help:    "Gateway request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// ObserveUpload counts one upload outcome.
func (c *Collectors) ObserveUpload(result string) {
	if c == nil {
		return
	}
	c.Uploads.WithLabelValues(result).Inc()
}

// TranscodeStarted marks a render slot as taken and returns the completion
// callback that records outcome and duration.
func (c *Collectors) TranscodeStarted() func(err error) {
	if c == nil {
		return func(error) {}
	}
	start := time.Now()
	c.TranscodeInFlight.Inc()
	return func(err error) {
		c.TranscodeInFlight.Dec()
		c.TranscodeDuration.Observe(time.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		c.Transcodes.WithLabelValues(outcome).Inc()
	}
}

// ObserveManifestRewrite counts one persisted playlist rewrite.
func (c *Collectors) ObserveManifestRewrite() {
	if c == nil {
		return
	}
	c.ManifestRewrites.Inc()
}

// ObserveHTTP records one finished gateway request.
func (c *Collectors) ObserveHTTP(route string, code int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	c.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
