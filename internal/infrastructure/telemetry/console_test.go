package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/infrastructure/describer"
)

func TestConsole_PrintsEveryNth(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	console := NewConsole(&buf, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, console.Emit(ctx, entity.PlaybackUpdate{
			FrameIndex: i,
			Elapsed:    entity.ElapsedText(time.Duration(i) * time.Second),
		}))
	}

	out := buf.String()
	require.Contains(t, out, "frame 0  Video Duration: 0.00 sec")
	require.NotContains(t, out, "frame 1 ")
	require.Contains(t, out, "frame 2  Video Duration: 2.00 sec")
	require.Equal(t, 2, strings.Count(out, describer.NoDefects))
}

func TestConsole_DetectionsAndSummary(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	console := NewConsole(&buf, 0)

	require.NoError(t, console.Emit(context.Background(), entity.PlaybackUpdate{
		Detections: []entity.Detection{{ID: 1, ClassName: "crack", Confidence: 88}},
	}))
	require.Contains(t, buf.String(), "crack")

	buf.Reset()
	console.Summary(&entity.PlaybackSummary{
		FrameRate:       25,
		TotalFrames:     100,
		FramesDisplayed: 30,
		FramesSkipped:   10,
		Duration:        4 * time.Second,
	}, nil)
	out := buf.String()
	require.Contains(t, out, "playback finished")
	require.Contains(t, out, "displayed: 30 (75.00%), skipped: 10 (25.00%)")
	require.Contains(t, out, "Video Duration: 4.00 sec")

	buf.Reset()
	console.Summary(nil, errors.New("interrupted"))
	require.Equal(t, "playback stopped: interrupted\n", buf.String())
}
