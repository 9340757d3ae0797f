package main

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/infrastructure/telemetry"
)

type model struct{}

func (model) Predict(_ context.Context, frame image.Image, _ float64) (*entity.ModelOutput, error) {
	return &entity.ModelOutput{
		Candidates: []entity.Candidate{{ClassIndex: 0, Confidence: 0.8, CenterX: 4, CenterY: 4, Width: 4, Height: 4}},
		Names:      []string{"dent"},
		Image:      frame,
	}, nil
}

type opener struct{ fps, frames int }

func (o opener) Open(string) (port.VideoSource, error) {
	return &source{fps: o.fps, total: o.frames}, nil
}

type source struct{ fps, total, cursor int }

func (s *source) FrameRate() int  { return s.fps }
func (s *source) FrameCount() int { return s.total }
func (s *source) Close() error    { return nil }
func (s *source) Seek(i int) error {
	s.cursor = i
	return nil
}

func (s *source) Read() (image.Image, bool, error) {
	if s.cursor >= s.total {
		return nil, false, nil
	}
	s.cursor++
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), true, nil
}

func TestAnnotate(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer

	summary, err := annotate(context.Background(), model{}, opener{fps: 1000, frames: 2}, "line.mp4", 50, nil, telemetry.NewConsole(&buf, 1))
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalFrames)
	require.NotNil(t, summary.LastFrame)
	require.Len(t, summary.LastDetections, 1)
	require.Contains(t, buf.String(), "dent")

	out := filepath.Join(t.TempDir(), "last.jpg")
	require.NoError(t, writeJPEG(out, summary))
	info, err := os.Stat(out)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestAnnotate_InvalidFrameRate(t *testing.T) {
	_, err := annotate(context.Background(), model{}, opener{fps: 0, frames: 2}, "line.mp4", 50, nil)
	require.ErrorIs(t, err, entity.ErrSourceOpen)
}
