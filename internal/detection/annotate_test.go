package detection

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"qc-vision/internal/domain/entity"
)

var gray = color.RGBA{R: 90, G: 90, B: 90, A: 255}

func grayFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, gray)
		}
	}
	return img
}

func TestAnnotate_DrawsOnCopy(t *testing.T) {
	frame := grayFrame(120, 120)
	dets := []entity.Detection{{ID: 1, Box: entity.BoundingBox{X0: 40, Y0: 40, X1: 80, Y1: 80}}}

	out := Annotate(frame, dets)

	require.Equal(t, BoxColor, out.RGBAAt(40, 40))
	require.Equal(t, BoxColor, out.RGBAAt(80, 80))
	require.Equal(t, BoxColor, out.RGBAAt(39, 60))
	require.Equal(t, BoxColor, out.RGBAAt(60, 80))
	require.Equal(t, gray, out.RGBAAt(60, 60))

	// исходный кадр не тронут
	require.Equal(t, gray, frame.RGBAAt(40, 40))
	require.Equal(t, gray, frame.RGBAAt(80, 80))
}

func TestAnnotate_DrawsLabelLeftOfBox(t *testing.T) {
	frame := grayFrame(120, 120)
	dets := []entity.Detection{{ID: 7, Box: entity.BoundingBox{X0: 60, Y0: 40, X1: 100, Y1: 80}}}

	out := Annotate(frame, dets)

	// подпись занимает область слева от рамки над линией y=60
	found := false
	for y := 48; y <= 60 && !found; y++ {
		for x := 40; x < 50; x++ {
			if out.RGBAAt(x, y) == BoxColor {
				found = true
				break
			}
		}
	}
	require.True(t, found)
}

func TestAnnotate_ClipsOutOfBounds(t *testing.T) {
	frame := grayFrame(30, 30)
	dets := []entity.Detection{{ID: 1, Box: entity.BoundingBox{X0: -10, Y0: -10, X1: 50, Y1: 50}}}

	require.NotPanics(t, func() {
		out := Annotate(frame, dets)
		require.Equal(t, frame.Bounds(), out.Bounds())
	})
}

type fakeModel struct {
	out       *entity.ModelOutput
	err       error
	gotMinCnf float64
}

func (m *fakeModel) Predict(_ context.Context, frame image.Image, minConfidence float64) (*entity.ModelOutput, error) {
	m.gotMinCnf = minConfidence
	if m.err != nil {
		return nil, m.err
	}
	m.out.Image = frame
	return m.out, nil
}

func TestPipeline_Process(t *testing.T) {
	model := &fakeModel{out: scenarioOutput()}
	p := NewPipeline(model)

	res, err := p.Process(context.Background(), grayFrame(300, 300), 50)
	require.NoError(t, err)
	require.Len(t, res.Detections, 2)
	require.Equal(t, 0.5, model.gotMinCnf)
	require.Equal(t, BoxColor, res.Annotated.RGBAAt(40, 40))
}

func TestPipeline_ModelFailure(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipeline(&fakeModel{err: boom})

	_, err := p.Process(context.Background(), grayFrame(10, 10), 50)
	require.ErrorIs(t, err, entity.ErrDetection)
	require.ErrorIs(t, err, boom)
}

func TestPipeline_NoModel(t *testing.T) {
	_, err := NewPipeline(nil).Process(context.Background(), grayFrame(10, 10), 50)
	require.ErrorIs(t, err, entity.ErrDetection)
}
