// Package telemetry публикует результаты детекции наружу:
// метрики Prometheus, MQTT и журнал детекций.
package telemetry

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
)

// Metrics коллекторы Prometheus приложения
type Metrics struct {
	registry *prometheus.Registry

	framesDisplayed prometheus.Counter
	framesSkipped   prometheus.Counter
	displayFPS      prometheus.Gauge
	skippedPct      prometheus.Gauge
	processing      prometheus.Histogram
	detections      *prometheus.CounterVec
	images          prometheus.Counter
	playbacks       *prometheus.CounterVec
}

// NewMetrics создаёт отдельный реестр и регистрирует коллекторы
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesDisplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qc_playback_frames_displayed_total",
			Help: "Total video frames processed and displayed",
		}),
		framesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qc_playback_frames_skipped_total",
			Help: "Total video frames skipped to keep real-time pace",
		}),
		displayFPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "qc_playback_display_fps",
			Help: "Display rate of the latest playback iteration",
		}),
		skippedPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "qc_playback_frames_skipped_percent",
			Help: "Share of skipped frames in the latest playback iteration",
		}),
		processing: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "qc_frame_processing_seconds",
			Help:    "Detection and annotation time per frame",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qc_detections_total",
			Help: "Detections by defect class",
		}, []string{"class"}),
		images: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qc_images_inspected_total",
			Help: "Total inspected still images",
		}),
		playbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qc_playbacks_total",
			Help: "Finished playback sessions by result",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.framesDisplayed,
		m.framesSkipped,
		m.displayFPS,
		m.skippedPct,
		m.processing,
		m.detections,
		m.images,
		m.playbacks,
	)
	return m
}

// Handler отдаёт метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Emit учитывает одну итерацию воспроизведения
func (m *Metrics) Emit(ctx context.Context, update entity.PlaybackUpdate) error {
	m.framesDisplayed.Inc()
	m.displayFPS.Set(update.Metrics.DisplayFPS)
	m.skippedPct.Set(update.Metrics.FramesSkippedPct)
	m.processing.Observe(update.Metrics.FrameProcessingSeconds)
	m.observeDetections(update.Detections)
	return nil
}

// ObserveImage учитывает проверку снимка
func (m *Metrics) ObserveImage(username string, detections []entity.Detection) {
	m.images.Inc()
	m.observeDetections(detections)
}

// ObservePlayback учитывает завершённый сеанс воспроизведения
func (m *Metrics) ObservePlayback(username string, summary *entity.PlaybackSummary, err error) {
	if summary != nil {
		m.framesSkipped.Add(float64(summary.FramesSkipped))
	}
	m.playbacks.WithLabelValues(playbackResult(err)).Inc()
}

func (m *Metrics) observeDetections(detections []entity.Detection) {
	for _, d := range detections {
		m.detections.WithLabelValues(d.ClassName).Inc()
	}
}

func playbackResult(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, entity.ErrPlaybackCancelled):
		return "cancelled"
	case errors.Is(err, entity.ErrSourceOpen):
		return "open_failed"
	case errors.Is(err, entity.ErrSourceRead):
		return "read_failed"
	case errors.Is(err, entity.ErrDetection):
		return "detection_failed"
	default:
		return "failed"
	}
}

var _ port.InspectionObserver = (*Metrics)(nil)
