package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dshills/marginalia/internal/engine/placement"
	"github.com/dshills/marginalia/internal/renderer/glyph"
)

// Metrics records overlay engine metrics on a caller-supplied registerer.
// One Metrics is shared by every view of a process. A nil *Metrics
// records nothing.
type Metrics struct {
	searches          *prometheus.CounterVec
	searchDuration    prometheus.Histogram
	searchMatches     prometheus.Histogram
	factoryFailures   *prometheus.CounterVec
	renderFailures    *prometheus.CounterVec
	reconcileDuration prometheus.Histogram
	views             prometheus.Gauge
}

var _ placement.Observer = (*Metrics)(nil)

// NewMetrics registers the metrics on reg. It panics if they are already
// registered there.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		searches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marginalia_searches_total",
			Help: "Placement searches by outcome",
		}, []string{"outcome"}),
		searchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "marginalia_search_duration_seconds",
			Help:    "Duration of completed placement searches",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.25},
		}),
		searchMatches: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "marginalia_search_matches",
			Help:    "Matches found by completed placement searches",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		factoryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marginalia_factory_failures_total",
			Help: "Glyph elements a factory failed to create",
		}, []string{"kind"}),
		renderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marginalia_render_failures_total",
			Help: "Failed draws by surface",
		}, []string{"surface"}),
		reconcileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "marginalia_reconcile_duration_seconds",
			Help:    "Duration of line glyph reconciliation passes",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		views: f.NewGauge(prometheus.GaugeOpts{
			Name: "marginalia_views",
			Help: "Open views",
		}),
	}
}

// SearchStarted implements placement.Observer.
func (m *Metrics) SearchStarted() {
	if m != nil {
		m.searches.WithLabelValues("started").Inc()
	}
}

// SearchAborted implements placement.Observer.
func (m *Metrics) SearchAborted() {
	if m != nil {
		m.searches.WithLabelValues("aborted").Inc()
	}
}

// SearchCompleted implements placement.Observer.
func (m *Metrics) SearchCompleted(d time.Duration, matches int) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues("completed").Inc()
	m.searchDuration.Observe(d.Seconds())
	m.searchMatches.Observe(float64(matches))
}

// SearchFailed implements placement.Observer.
func (m *Metrics) SearchFailed() {
	if m != nil {
		m.searches.WithLabelValues("failed").Inc()
	}
}

// FactoryFailed counts an element a factory could not create.
func (m *Metrics) FactoryFailed(kind glyph.TagKind) {
	if m != nil {
		m.factoryFailures.WithLabelValues(string(kind)).Inc()
	}
}

// RenderFailed counts a failed draw of surface.
func (m *Metrics) RenderFailed(surface string) {
	if m != nil {
		m.renderFailures.WithLabelValues(surface).Inc()
	}
}

// ObserveReconcile records the duration of one reconciliation pass.
func (m *Metrics) ObserveReconcile(d time.Duration) {
	if m != nil {
		m.reconcileDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) viewOpened() {
	if m != nil {
		m.views.Inc()
	}
}

func (m *Metrics) viewClosed() {
	if m != nil {
		m.views.Dec()
	}
}
