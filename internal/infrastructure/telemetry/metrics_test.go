package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"qc-vision/internal/domain/entity"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_PlaybackAndImages(t *testing.T) {
	m := NewMetrics()
	ctx := context.Background()

	update := entity.PlaybackUpdate{
		Metrics: entity.PlaybackMetrics{DisplayFPS: 4, FramesSkippedPct: 25, FrameProcessingSeconds: 0.01},
		Detections: []entity.Detection{
			{ClassName: "scratch"},
			{ClassName: "dent"},
		},
	}
	require.NoError(t, m.Emit(ctx, update))
	require.NoError(t, m.Emit(ctx, update))
	m.ObserveImage("ivan", []entity.Detection{{ClassName: "scratch"}})
	m.ObservePlayback("ivan", &entity.PlaybackSummary{FramesSkipped: 7}, entity.Wrap(entity.ErrPlaybackCancelled, context.Canceled))
	m.ObservePlayback("ivan", nil, entity.Wrap(entity.ErrSourceOpen, errors.New("bad file")))

	body := scrape(t, m)
	require.Contains(t, body, "qc_playback_frames_displayed_total 2")
	require.Contains(t, body, "qc_playback_frames_skipped_total 7")
	require.Contains(t, body, "qc_playback_display_fps 4")
	require.Contains(t, body, "qc_playback_frames_skipped_percent 25")
	require.Contains(t, body, `qc_detections_total{class="scratch"} 3`)
	require.Contains(t, body, `qc_detections_total{class="dent"} 2`)
	require.Contains(t, body, "qc_images_inspected_total 1")
	require.Contains(t, body, `qc_playbacks_total{result="cancelled"} 1`)
	require.Contains(t, body, `qc_playbacks_total{result="open_failed"} 1`)
	require.Contains(t, body, "qc_frame_processing_seconds_count 2")
}

func TestPlaybackResult(t *testing.T) {
	require.Equal(t, "completed", playbackResult(nil))
	require.Equal(t, "read_failed", playbackResult(entity.Wrap(entity.ErrSourceRead, errors.New("x"))))
	require.Equal(t, "detection_failed", playbackResult(entity.Wrap(entity.ErrDetection, errors.New("x"))))
	require.Equal(t, "failed", playbackResult(errors.New("sink")))
}
