// Package metrics exposes Prometheus instruments for signing attempts,
// revocation fetches and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/remiblancher/signpdfkit/pkg/revocation"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

const namespace = "signpdfkit"

// Recorder holds every instrument. A nil *Recorder records nothing.
type Recorder struct {
	signTotal     *prometheus.CounterVec
	signDuration  prometheus.Histogram
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

var (
	_ signpdf.Recorder    = (*Recorder)(nil)
	_ revocation.Observer = (*Recorder)(nil)
)

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		signTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_total",
			Help:      "Sign attempts by response code.",
		}, []string{"code"}),
		signDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sign_duration_seconds",
			Help:      "Duration of a complete sign attempt.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		fetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "revocation",
			Name:      "fetch_total",
			Help:      "Revocation evidence fetches by kind and result.",
		}, []string{"kind", "result"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "revocation",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single OCSP or CRL fetch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP API requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP API request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveSign records one sign attempt.
func (r *Recorder) ObserveSign(code int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.signTotal.WithLabelValues(strconv.Itoa(code)).Inc()
	r.signDuration.Observe(elapsed.Seconds())
}

// ObserveFetch records one revocation fetch.
func (r *Recorder) ObserveFetch(kind string, ok bool, elapsed time.Duration) {
	if r == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	r.fetchTotal.WithLabelValues(kind, result).Inc()
	r.fetchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveHTTP records one API request.
func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
