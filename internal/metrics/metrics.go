// Package metrics exposes the gesture pipeline as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ayusman/orbit/internal/mode"
)

var (
	// Mode and gesture metrics
	metricMode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "orbit",
			Name:      "mode",
			Help:      "1 for the current application mode, 0 otherwise",
		},
		[]string{"mode"},
	)

	metricModeTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "mode_transitions_total",
			Help:      "Mode changes by source and destination mode",
		},
		[]string{"from", "to"},
	)

	metricPinchConfidence = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "orbit",
			Name:      "pinch_confidence",
			Help:      "Smoothed pinch confidence [0,1]",
		},
	)

	metricOpenConfidence = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "orbit",
			Name:      "open_confidence",
			Help:      "Smoothed open palm confidence [0,1]",
		},
	)

	metricScrollOffset = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "orbit",
			Name:      "scroll_offset_radians",
			Help:      "Accumulated carousel scroll offset",
		},
	)

	metricHandPresent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "orbit",
			Name:      "hand_present",
			Help:      "1 when the last processed frame contained a hand",
		},
	)

	// Pipeline health metrics
	metricFramesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "frames_processed_total",
			Help:      "Frames passed through the gesture controller",
		},
	)

	metricFramesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "frames_skipped_total",
			Help:      "Ticks where detection was skipped because no new camera frame was ready",
		},
	)

	metricDetectorErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "detector_errors_total",
			Help:      "Detector failures and malformed landmark sets",
		},
	)

	metricCameraError = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "orbit",
			Name:      "camera_error",
			Help:      "1 while the camera cannot be opened",
		},
	)

	metricSlots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "orbit",
			Name:      "slots",
			Help:      "Number of carousel slots",
		},
	)
)

// Frame describes one processed frame.
type Frame struct {
	Mode            mode.Mode
	PinchConfidence float64
	OpenConfidence  float64
	ScrollOffset    float64
	HandPresent     bool
	SlotCount       int
}

// RecordFrame updates the per-frame gauges.
func RecordFrame(f Frame) {
	metricFramesProcessed.Inc()
	for _, m := range []mode.Mode{mode.Aggregate, mode.Browse, mode.Focus} {
		metricMode.WithLabelValues(m.String()).Set(boolFloat(m == f.Mode))
	}
	metricPinchConfidence.Set(f.PinchConfidence)
	metricOpenConfidence.Set(f.OpenConfidence)
	metricScrollOffset.Set(f.ScrollOffset)
	metricHandPresent.Set(boolFloat(f.HandPresent))
	metricSlots.Set(float64(f.SlotCount))
}

// RecordTransition counts a mode change.
func RecordTransition(from, to mode.Mode) {
	metricModeTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordSkippedFrame counts a tick without a new camera frame.
func RecordSkippedFrame() {
	metricFramesSkipped.Inc()
}

// RecordDetectorError counts a failed or malformed detection.
func RecordDetectorError() {
	metricDetectorErrors.Inc()
}

// SetCameraError sets the camera error gauge.
func SetCameraError(failed bool) {
	metricCameraError.Set(boolFloat(failed))
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
