// Package metrics exposes pipeline counters over Prometheus
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all pipeline metrics
type Metrics struct {
	FramesCaptured *prometheus.CounterVec
	FramesDropped  *prometheus.GaugeVec
	TicksProcessed *prometheus.CounterVec
	TicksSkipped   *prometheus.CounterVec
	Detections     *prometheus.CounterVec
	AlertsRaised   *prometheus.CounterVec
	BufferDepth    *prometheus.GaugeVec
	CrowdDensity   *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FramesCaptured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bytelocker_frames_captured_total",
			Help: "Frames pushed into the buffer per camera",
		}, []string{"camera"}),
		FramesDropped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bytelocker_frames_dropped",
			Help: "Frames evicted by drop-oldest backpressure per camera",
		}, []string{"camera"}),
		TicksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bytelocker_ticks_processed_total",
			Help: "Processing ticks that consumed a frame per camera",
		}, []string{"camera"}),
		TicksSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bytelocker_ticks_skipped_total",
			Help: "Processing ticks skipped because detection failed per camera",
		}, []string{"camera"}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bytelocker_detections_total",
			Help: "Detections produced per camera",
		}, []string{"camera"}),
		AlertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bytelocker_alerts_raised_total",
			Help: "Alerts raised by type",
		}, []string{"type"}),
		BufferDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bytelocker_buffer_depth",
			Help: "Frames currently buffered per camera",
		}, []string{"camera"}),
		CrowdDensity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bytelocker_crowd_density",
			Help: "Most recent crowd density per camera",
		}, []string{"camera"}),
	}

	m.registry.MustRegister(
		m.FramesCaptured, m.FramesDropped,
		m.TicksProcessed, m.TicksSkipped,
		m.Detections, m.AlertsRaised,
		m.BufferDepth, m.CrowdDensity,
	)

	return m
}

// Handler returns the Prometheus HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
