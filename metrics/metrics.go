// Package metrics exposes Prometheus instrumentation for the preview
// pipeline. All components accept a *Metrics and treat a nil receiver as a
// no-op, so tests and embedded use never need a registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for the preview pipeline.
type Metrics struct {
	registry             *prometheus.Registry
	chunksRenderedTotal  prometheus.Counter
	renderErrorsTotal    prometheus.Counter
	renderSeconds        prometheus.Histogram
	activeRenders        prometheus.Gauge
	frameCacheHitsTotal  prometheus.Counter
	frameCacheMissTotal  prometheus.Counter
	frameExtractSeconds  prometheus.Histogram
	scrubSnippetsTotal   prometheus.Counter
	invalidationsTotal   prometheus.Counter
	assembledPreviewsSum prometheus.Counter
}

// New creates and registers Prometheus metrics for the preview pipeline.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	chunksRenderedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preview_chunks_rendered_total",
		Help: "Total number of chunks rendered successfully",
	})
	renderErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preview_render_errors_total",
		Help: "Total number of failed chunk renders",
	})
	renderSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "preview_render_duration_seconds",
		Help:    "Wall-clock duration of chunk renders",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
	activeRenders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "preview_active_renders",
		Help: "Number of chunk renders currently in flight",
	})
	frameCacheHitsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preview_frame_cache_hits_total",
		Help: "Total number of frame requests served from the frame cache",
	})
	frameCacheMissTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preview_frame_cache_misses_total",
		Help: "Total number of frame requests that required extraction",
	})
	frameExtractSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "preview_frame_extract_duration_seconds",
		Help:    "Wall-clock duration of single-frame extractions",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	})
	scrubSnippetsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preview_scrub_snippets_total",
		Help: "Total number of scrub audio snippets synthesized",
	})
	invalidationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preview_chunk_invalidations_total",
		Help: "Total number of chunks invalidated by timeline edits",
	})
	assembledPreviewsSum := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preview_full_assemblies_total",
		Help: "Total number of full preview files assembled",
	})

	registry.MustRegister(
		chunksRenderedTotal,
		renderErrorsTotal,
		renderSeconds,
		activeRenders,
		frameCacheHitsTotal,
		frameCacheMissTotal,
		frameExtractSeconds,
		scrubSnippetsTotal,
		invalidationsTotal,
		assembledPreviewsSum,
	)

	return &Metrics{
		registry:             registry,
		chunksRenderedTotal:  chunksRenderedTotal,
		renderErrorsTotal:    renderErrorsTotal,
		renderSeconds:        renderSeconds,
		activeRenders:        activeRenders,
		frameCacheHitsTotal:  frameCacheHitsTotal,
		frameCacheMissTotal:  frameCacheMissTotal,
		frameExtractSeconds:  frameExtractSeconds,
		scrubSnippetsTotal:   scrubSnippetsTotal,
		invalidationsTotal:   invalidationsTotal,
		assembledPreviewsSum: assembledPreviewsSum,
	}
}

// ObserveRender records one finished chunk render.
func (m *Metrics) ObserveRender(duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.renderSeconds.Observe(duration.Seconds())
	if success {
		m.chunksRenderedTotal.Inc()
	} else {
		m.renderErrorsTotal.Inc()
	}
}

// RenderStarted increments the in-flight render gauge.
func (m *Metrics) RenderStarted() {
	if m == nil {
		return
	}
	m.activeRenders.Inc()
}

// RenderFinished decrements the in-flight render gauge.
func (m *Metrics) RenderFinished() {
	if m == nil {
		return
	}
	m.activeRenders.Dec()
}

// FrameCacheHit counts a frame served from cache.
func (m *Metrics) FrameCacheHit() {
	if m == nil {
		return
	}
	m.frameCacheHitsTotal.Inc()
}

// FrameCacheMiss counts a frame that required extraction.
func (m *Metrics) FrameCacheMiss() {
	if m == nil {
		return
	}
	m.frameCacheMissTotal.Inc()
}

// ObserveFrameExtraction records the duration of one completed frame decode.
func (m *Metrics) ObserveFrameExtraction(duration time.Duration) {
	if m == nil {
		return
	}
	m.frameExtractSeconds.Observe(duration.Seconds())
}

// ScrubSnippet counts one synthesized scrub audio snippet.
func (m *Metrics) ScrubSnippet() {
	if m == nil {
		return
	}
	m.scrubSnippetsTotal.Inc()
}

// ChunksInvalidated counts chunks invalidated by a timeline edit.
func (m *Metrics) ChunksInvalidated(n int) {
	if m == nil {
		return
	}
	m.invalidationsTotal.Add(float64(n))
}

// PreviewAssembled counts one completed full-preview assembly.
func (m *Metrics) PreviewAssembled() {
	if m == nil {
		return
	}
	m.assembledPreviewsSum.Inc()
}

// Handler returns an http.Handler serving the pipeline's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
